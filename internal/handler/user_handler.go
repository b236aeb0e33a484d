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

type leaderboardService interface {
	Leaderboard(ctx context.Context, p model.Principal, limit int) ([]model.LeaderboardEntry, error)
}

type auditService interface {
	List(ctx context.Context, p model.Principal, userID *uuid.UUID, action model.AuditAction, entity string, page, perPage int) ([]model.AuditLog, *response.Pagination, error)
}

type auditListQuery struct {
	pageQuery
	Action model.AuditAction `form:"action" binding:"omitempty,oneof=CREATE UPDATE DELETE LOGIN EXAM_START EXAM_SUBMIT PUBLISH ARCHIVE"`
	Entity string            `form:"entity" binding:"omitempty,max=32"`
}

// UserHandler serves the leaderboard and the audit trail.
type UserHandler struct {
	users leaderboardService
	audit auditService
	log   zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users leaderboardService, audit auditService, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		users: users,
		audit: audit,
		log:   log.With().Str("component", "user_handler").Logger(),
	}
}

// Leaderboard godoc
// GET /api/v1/leaderboard
// Top users of the caller's tenant by XP. ?limit defaults to 10, max 100.
func (h *UserHandler) Leaderboard(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var q struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
	}
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	entries, err := h.users.Leaderboard(c.Request.Context(), p, q.Limit)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"leaderboard": entries})
}

// ListAuditLogs godoc
// GET /api/v1/audit-logs
func (h *UserHandler) ListAuditLogs(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var q auditListQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	userID, ok := optionalUUID(c, "user_id")
	if !ok {
		return
	}

	logs, pagination, err := h.audit.List(c.Request.Context(), p, userID, q.Action, q.Entity, q.Page, q.PerPage)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"audit_logs": logs}, pagination)
}
