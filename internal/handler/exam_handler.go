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

type examService interface {
	Get(ctx context.Context, id uuid.UUID, p model.Principal) (*model.Exam, error)
	List(ctx context.Context, p model.Principal, status model.ExamStatus, categoryID string, page, perPage int) ([]model.Exam, *response.Pagination, error)
	Create(ctx context.Context, req *model.CreateExamRequest, p model.Principal) (*model.Exam, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateExamRequest, p model.Principal) (*model.UpdateExamResult, error)
	Publish(ctx context.Context, id uuid.UUID, p model.Principal) (*model.Exam, error)
	Archive(ctx context.Context, id uuid.UUID, p model.Principal) (*model.Exam, error)
	Delete(ctx context.Context, id uuid.UUID, p model.Principal) error
}

type examListQuery struct {
	pageQuery
	Status     model.ExamStatus `form:"status" binding:"omitempty,oneof=DRAFT PUBLISHED ACTIVE COMPLETED ARCHIVED"`
	CategoryID string           `form:"category_id" binding:"omitempty,max=64"`
}

// ExamHandler handles exam authoring and lifecycle endpoints.
type ExamHandler struct {
	exams examService
	log   zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(exams examService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		exams: exams,
		log:   log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/v1/exams
// Lists the tenant's exams. Students only see exams they can start.
func (h *ExamHandler) ListExams(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var q examListQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exams, pagination, err := h.exams.List(c.Request.Context(), p, q.Status, q.CategoryID, q.Page, q.PerPage)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// GetExam godoc
// GET /api/v1/exams/:exam_id
func (h *ExamHandler) GetExam(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	exam, err := h.exams.Get(c.Request.Context(), examID, p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// CreateExam godoc
// POST /api/v1/exams
// Creates a new DRAFT exam at version 1.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.exams.Create(c.Request.Context(), &req, p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/exams/:exam_id
// Applies a partial update. Changing question_ids of a non-DRAFT exam forks
// a new DRAFT version and leaves the original untouched.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.exams.Update(c.Request.Context(), examID, &req, p)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	status := http.StatusOK
	if res.Forked {
		status = http.StatusCreated
	}
	response.Success(c, status, res)
}

// PublishExam godoc
// POST /api/v1/exams/:exam_id/publish
// Moves an exam with at least one question to PUBLISHED.
func (h *ExamHandler) PublishExam(c *gin.Context) {
	h.transition(c, h.exams.Publish)
}

// ArchiveExam godoc
// POST /api/v1/exams/:exam_id/archive
func (h *ExamHandler) ArchiveExam(c *gin.Context) {
	h.transition(c, h.exams.Archive)
}

// DeleteExam godoc
// DELETE /api/v1/exams/:exam_id
// Soft-deletes an exam. Existing attempts stay readable.
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	if err := h.exams.Delete(c.Request.Context(), examID, p); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Exam deleted."})
}

func (h *ExamHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID, model.Principal) (*model.Exam, error)) {
	p, ok := principal(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	exam, err := fn(c.Request.Context(), examID, p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}
