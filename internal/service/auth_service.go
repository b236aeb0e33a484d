package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/repository"
)

// Token types. An access and a refresh token issued together share one
// session id.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims extends JWT standard claims with the caller's tenant and role.
// Subject carries the user id and ID the session id.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string     `json:"tenant_id"`
	Role     model.Role `json:"role"`
	Type     string     `json:"typ"`
}

// Principal converts validated claims into the caller identity services use.
func (c *Claims) Principal() (model.Principal, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return model.Principal{}, fmt.Errorf("token subject: %w", err)
	}
	return model.Principal{UserID: id, TenantID: c.TenantID, Role: c.Role}, nil
}

// AuthService handles accounts, password hashing, JWT issuance and sessions.
type AuthService struct {
	cfg      *config.Config
	users    UserStore
	sessions SessionStore
	audit    AuditQueue
	now      func() time.Time
	log      zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, users UserStore, sessions SessionStore, audit AuditQueue, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		audit:    audit,
		now:      time.Now,
		log:      log.With().Str("component", "auth_service").Logger(),
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// CreateUser stores a new active account with the given role.
func (s *AuthService) CreateUser(ctx context.Context, tenantID, name, email, password string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		ID:           uuid.New(),
		TenantID:     strings.TrimSpace(tenantID),
		Name:         strings.TrimSpace(name),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, fmt.Errorf("%s: %w", u.Email, ErrEmailTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().
		Str("user_id", u.ID.String()).
		Str("tenant_id", u.TenantID).
		Str("role", string(u.Role)).
		Msg("User created")
	return u, nil
}

// Register creates a STUDENT account and signs it in.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.LoginResponse, error) {
	u, err := s.CreateUser(ctx, req.TenantID, req.Name, req.Email, req.Password, model.RoleStudent)
	if err != nil {
		return nil, err
	}

	s.record(ctx, u, model.AuditActionCreate)
	return s.issue(ctx, u)
}

// Login verifies credentials and issues a token. Unknown emails, wrong
// passwords and disabled accounts are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := s.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	s.record(ctx, u, model.AuditActionLogin)
	return s.issue(ctx, u)
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, p model.Principal) (*model.User, error) {
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, notFound(err, "user", p.UserID)
	}
	return u, nil
}

// Refresh exchanges a live refresh token for a new access token in the same
// session. Role and tenant are re-read so changes apply without a new login.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.RefreshResponse, error) {
	claims, p, err := s.authenticate(ctx, refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionRevoked
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !u.IsActive {
		return nil, ErrSessionRevoked
	}

	signed, expiresAt, err := s.sign(u, claims.ID, TokenTypeAccess, s.now(), s.cfg.JWTExpiry)
	if err != nil {
		return nil, err
	}
	return &model.RefreshResponse{Token: signed, ExpiresAt: expiresAt}, nil
}

// RevokeAll ends every session of a user.
func (s *AuthService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// Logout revokes the session behind the given claims.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	p, err := claims.Principal()
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, p.UserID, claims.ID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("invalid role %q in token", claims.Role)
	}
	return claims, nil
}

// Authenticate validates an access token and checks that its session was not
// revoked.
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (*Claims, model.Principal, error) {
	return s.authenticate(ctx, tokenStr, TokenTypeAccess)
}

func (s *AuthService) authenticate(ctx context.Context, tokenStr, typ string) (*Claims, model.Principal, error) {
	claims, err := s.ValidateToken(tokenStr)
	if err != nil {
		return nil, model.Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Type != typ {
		return nil, model.Principal{}, fmt.Errorf("%w: %s token used as %s", ErrInvalidToken, claims.Type, typ)
	}
	p, err := claims.Principal()
	if err != nil {
		return nil, model.Principal{}, err
	}

	live, err := s.sessions.Exists(ctx, p.UserID, claims.ID)
	if err != nil {
		return nil, model.Principal{}, fmt.Errorf("check session: %w", err)
	}
	if !live {
		return nil, model.Principal{}, ErrSessionRevoked
	}
	return claims, p, nil
}

// issue signs an access and a refresh token for u and registers their
// shared session for the refresh token's lifetime.
func (s *AuthService) issue(ctx context.Context, u *model.User) (*model.LoginResponse, error) {
	jti := uuid.New().String()
	now := s.now()
	refreshTTL := max(s.cfg.JWTRefreshExpiry, s.cfg.JWTExpiry)

	access, expiresAt, err := s.sign(u, jti, TokenTypeAccess, now, s.cfg.JWTExpiry)
	if err != nil {
		return nil, err
	}
	refresh, refreshExpiresAt, err := s.sign(u, jti, TokenTypeRefresh, now, refreshTTL)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Put(ctx, u.ID, jti, refreshTTL); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &model.LoginResponse{
		Token:            access,
		ExpiresAt:        expiresAt,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpiresAt,
		User:             *u,
	}, nil
}

func (s *AuthService) sign(u *model.User, jti, typ string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TenantID: u.TenantID,
		Role:     u.Role,
		Type:     typ,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, expiresAt, nil
}

func (s *AuthService) record(ctx context.Context, u *model.User, action model.AuditAction) {
	p := model.Principal{UserID: u.ID, TenantID: u.TenantID, Role: u.Role}
	recordAudit(ctx, s.audit, s.log, p, action, "user", u.ID.String(), nil, s.now())
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
