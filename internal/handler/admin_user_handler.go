package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/response"
	"github.com/learnhub/learnhub-backend/internal/validator"
)

type adminUserService interface {
	List(ctx context.Context, p model.Principal, f model.UserFilter, page, perPage int) ([]model.User, *response.Pagination, error)
	Get(ctx context.Context, id uuid.UUID, p model.Principal) (*model.User, error)
	Create(ctx context.Context, p model.Principal, req *model.CreateUserRequest) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, p model.Principal, req *model.UpdateUserRequest) (*model.User, error)
	Deactivate(ctx context.Context, id uuid.UUID, p model.Principal) error
}

type userListQuery struct {
	pageQuery
	Role     model.Role `form:"role" binding:"omitempty,oneof=STUDENT TEACHER MANAGER ADMIN"`
	Search   string     `form:"search" binding:"omitempty,max=100"`
	IsActive *bool      `form:"is_active"`
}

// AdminUserHandler manages accounts of the caller's tenant.
type AdminUserHandler struct {
	users adminUserService
	log   zerolog.Logger
}

// NewAdminUserHandler creates a new AdminUserHandler.
func NewAdminUserHandler(users adminUserService, log zerolog.Logger) *AdminUserHandler {
	return &AdminUserHandler{
		users: users,
		log:   log.With().Str("component", "admin_user_handler").Logger(),
	}
}

// ListUsers godoc
// GET /api/v1/users
// Filters: ?role, ?search (name or email), ?is_active.
func (h *AdminUserHandler) ListUsers(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var q userListQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	f := model.UserFilter{Role: q.Role, Search: q.Search, IsActive: q.IsActive}
	users, pagination, err := h.users.List(c.Request.Context(), p, f, q.Page, q.PerPage)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"users": users}, pagination)
}

// GetUser godoc
// GET /api/v1/users/:user_id
func (h *AdminUserHandler) GetUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "user_id")
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), id, p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// CreateUser godoc
// POST /api/v1/users
// Creates an account of any role in the caller's tenant.
func (h *AdminUserHandler) CreateUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.CreateUserRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.users.Create(c.Request.Context(), p, &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

// UpdateUser godoc
// PUT /api/v1/users/:user_id
// Partial edit. Role and is_active need ADMIN.
func (h *AdminUserHandler) UpdateUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "user_id")
	if !ok {
		return
	}

	var req model.UpdateUserRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.users.Update(c.Request.Context(), id, p, &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// DeactivateUser godoc
// DELETE /api/v1/users/:user_id
// Disables the account and revokes its sessions. The row is kept.
func (h *AdminUserHandler) DeactivateUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "user_id")
	if !ok {
		return
	}

	if err := h.users.Deactivate(c.Request.Context(), id, p); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "User deactivated."})
}
