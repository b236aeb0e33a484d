package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/response"
)

// AdminUserService manages the accounts of a tenant. Users outside the
// caller's tenant are reported as not found.
type AdminUserService struct {
	users    UserStore
	accounts Accounts
	audit    AuditQueue
	now      func() time.Time
	log      zerolog.Logger
}

// NewAdminUserService creates a new AdminUserService.
func NewAdminUserService(users UserStore, accounts Accounts, audit AuditQueue, log zerolog.Logger) *AdminUserService {
	return &AdminUserService{
		users:    users,
		accounts: accounts,
		audit:    audit,
		now:      time.Now,
		log:      log.With().Str("component", "admin_user_service").Logger(),
	}
}

// List retrieves the caller's tenant users. MANAGER and above.
func (s *AdminUserService) List(ctx context.Context, p model.Principal, f model.UserFilter, page, perPage int) ([]model.User, *response.Pagination, error) {
	if !p.Role.AtLeast(model.RoleManager) {
		return nil, nil, ErrForbidden
	}
	page, perPage = normalizePage(page, perPage)

	f.TenantID = p.TenantID
	f.Search = strings.TrimSpace(f.Search)
	f.Limit = perPage
	f.Offset = (page - 1) * perPage

	users, total, err := s.users.List(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, response.NewPagination(page, perPage, total), nil
}

// Get returns an account to its owner or to MANAGER and above.
func (s *AdminUserService) Get(ctx context.Context, id uuid.UUID, p model.Principal) (*model.User, error) {
	u, err := s.load(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if u.ID != p.UserID && !p.Role.AtLeast(model.RoleManager) {
		return nil, fmt.Errorf("user %s: %w", id, ErrForbidden)
	}
	return u, nil
}

// Create adds an account of any role to the caller's tenant. ADMIN only.
func (s *AdminUserService) Create(ctx context.Context, p model.Principal, req *model.CreateUserRequest) (*model.User, error) {
	if !p.Role.AtLeast(model.RoleAdmin) {
		return nil, ErrForbidden
	}
	u, err := s.accounts.CreateUser(ctx, p.TenantID, req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.log, p, model.AuditActionCreate, "user", u.ID.String(),
		map[string]any{"role": u.Role}, s.now())
	return u, nil
}

// Update edits an account. Owners may change their name and password; role
// and activation are ADMIN-only and an admin cannot demote or disable
// themselves. Role changes and deactivation end the user's sessions.
func (s *AdminUserService) Update(ctx context.Context, id uuid.UUID, p model.Principal, req *model.UpdateUserRequest) (*model.User, error) {
	u, err := s.load(ctx, id, p)
	if err != nil {
		return nil, err
	}

	admin := p.Role.AtLeast(model.RoleAdmin)
	self := u.ID == p.UserID
	if !self && !admin {
		return nil, fmt.Errorf("user %s: %w", id, ErrForbidden)
	}
	if (req.Role != nil || req.IsActive != nil) && !admin {
		return nil, fmt.Errorf("role or status change: %w", ErrForbidden)
	}
	if self && ((req.Role != nil && *req.Role != u.Role) || (req.IsActive != nil && !*req.IsActive)) {
		return nil, fmt.Errorf("own role or status: %w", ErrForbidden)
	}

	changed := make([]string, 0, 4)
	revoke := false
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
		changed = append(changed, "name")
	}
	if req.Password != nil {
		hash, err := s.accounts.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
		changed = append(changed, "password")
	}
	if req.Role != nil && *req.Role != u.Role {
		if !req.Role.Valid() {
			return nil, fmt.Errorf("unknown role %q", *req.Role)
		}
		u.Role = *req.Role
		changed = append(changed, "role")
		revoke = true
	}
	if req.IsActive != nil && *req.IsActive != u.IsActive {
		u.IsActive = *req.IsActive
		changed = append(changed, "is_active")
		revoke = revoke || !u.IsActive
	}

	if len(changed) == 0 {
		return u, nil
	}
	if err := s.save(ctx, u, revoke); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.log, p, model.AuditActionUpdate, "user", u.ID.String(),
		map[string]any{"fields": changed}, s.now())
	return u, nil
}

// Deactivate disables an account and ends its sessions. ADMIN only; an admin
// cannot deactivate themselves. Deactivating an inactive account is a no-op.
func (s *AdminUserService) Deactivate(ctx context.Context, id uuid.UUID, p model.Principal) error {
	if !p.Role.AtLeast(model.RoleAdmin) {
		return ErrForbidden
	}
	if id == p.UserID {
		return fmt.Errorf("deactivate self: %w", ErrForbidden)
	}
	u, err := s.load(ctx, id, p)
	if err != nil {
		return err
	}
	if !u.IsActive {
		return nil
	}

	u.IsActive = false
	if err := s.save(ctx, u, true); err != nil {
		return err
	}

	recordAudit(ctx, s.audit, s.log, p, model.AuditActionDelete, "user", u.ID.String(), nil, s.now())
	return nil
}

func (s *AdminUserService) load(ctx context.Context, id uuid.UUID, p model.Principal) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	if u.TenantID != p.TenantID {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, nil
}

func (s *AdminUserService) save(ctx context.Context, u *model.User, revoke bool) error {
	if err := s.users.Update(ctx, u); err != nil {
		return notFound(err, "user", u.ID)
	}
	if !revoke {
		return nil
	}
	if err := s.accounts.RevokeAll(ctx, u.ID); err != nil {
		return err
	}
	s.log.Info().Str("user_id", u.ID.String()).Msg("User sessions revoked")
	return nil
}
