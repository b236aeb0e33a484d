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

type attemptService interface {
	Start(ctx context.Context, examID uuid.UUID, p model.Principal) (*model.AttemptSession, error)
	Sync(ctx context.Context, attemptID uuid.UUID, p model.Principal, answers []model.SubmittedAnswer) (*model.SyncAck, error)
	Submit(ctx context.Context, attemptID uuid.UUID, p model.Principal, answers []model.SubmittedAnswer) (*model.AttemptResult, error)
	Get(ctx context.Context, attemptID uuid.UUID, p model.Principal) (*model.Attempt, error)
	List(ctx context.Context, p model.Principal, examID *uuid.UUID, page, perPage int) ([]model.Attempt, *response.Pagination, error)
}

// AttemptHandler handles the exam-taking endpoints.
type AttemptHandler struct {
	attempts attemptService
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts attemptService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

// StartExam godoc
// POST /api/v1/exams/:exam_id/start
// Starts an attempt, or resumes the caller's in-progress one.
func (h *AttemptHandler) StartExam(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	session, err := h.attempts.Start(c.Request.Context(), examID, p)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	status := http.StatusCreated
	if session.Resumed {
		status = http.StatusOK
	}
	response.Success(c, status, session)
}

// SyncAttempt godoc
// POST /api/v1/attempts/:attempt_id/sync
// Replaces the saved answers of an in-progress attempt.
func (h *AttemptHandler) SyncAttempt(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	attemptID, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.AnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ack, err := h.attempts.Sync(c.Request.Context(), attemptID, p, req.Answers)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, ack)
}

// SubmitAttempt godoc
// POST /api/v1/attempts/:attempt_id/submit
// Grades the attempt. An empty body submits whatever was last synced.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	attemptID, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	var req model.AnswersRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	result, err := h.attempts.Submit(c.Request.Context(), attemptID, p, req.Answers)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GetAttempt godoc
// GET /api/v1/attempts/:attempt_id
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	attemptID, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	attempt, err := h.attempts.Get(c.Request.Context(), attemptID, p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// ListAttempts godoc
// GET /api/v1/attempts
// Lists the caller's own attempts, newest first, optionally for one exam.
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var q pageQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	examID, ok := optionalUUID(c, "exam_id")
	if !ok {
		return
	}

	attempts, pagination, err := h.attempts.List(c.Request.Context(), p, examID, q.Page, q.PerPage)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": attempts}, pagination)
}
