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

type questionService interface {
	Get(ctx context.Context, id uuid.UUID, p model.Principal) (*model.Question, error)
	List(ctx context.Context, p model.Principal, f model.QuestionFilter, page, perPage int) ([]model.Question, *response.Pagination, error)
	Create(ctx context.Context, req *model.CreateQuestionRequest, p model.Principal) (*model.Question, error)
	CreateBulk(ctx context.Context, req *model.BulkCreateQuestionsRequest, p model.Principal) ([]*model.Question, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionRequest, p model.Principal) (*model.Question, error)
	Delete(ctx context.Context, id uuid.UUID, p model.Principal) error
	Stats(ctx context.Context, p model.Principal) (*model.QuestionStats, error)
}

type questionListQuery struct {
	pageQuery
	CategoryID string             `form:"category_id" binding:"omitempty,max=64"`
	Difficulty model.Difficulty   `form:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD EXPERT"`
	Type       model.QuestionType `form:"type" binding:"omitempty,oneof=MCQ_SINGLE MCQ_MULTI TRUE_FALSE FILL_BLANK CASE_BASED"`
	Search     string             `form:"search" binding:"omitempty,max=200"`
}

// QuestionHandler handles question bank endpoints.
type QuestionHandler struct {
	questions questionService
	log       zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questions questionService, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questions: questions,
		log:       log.With().Str("component", "question_handler").Logger(),
	}
}

// ListQuestions godoc
// GET /api/v1/questions
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var q questionListQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	f := model.QuestionFilter{
		CategoryID: q.CategoryID,
		Difficulty: q.Difficulty,
		Type:       q.Type,
		Search:     q.Search,
	}
	questions, pagination, err := h.questions.List(c.Request.Context(), p, f, q.Page, q.PerPage)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": questions}, pagination)
}

// GetQuestion godoc
// GET /api/v1/questions/:question_id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "question_id")
	if !ok {
		return
	}

	q, err := h.questions.Get(c.Request.Context(), id, p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// CreateQuestion godoc
// POST /api/v1/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questions.Create(c.Request.Context(), &req, p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"question": q})
}

// BulkCreateQuestions godoc
// POST /api/v1/questions/bulk
// Creates up to 200 questions; one invalid question rejects the whole batch.
func (h *QuestionHandler) BulkCreateQuestions(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.BulkCreateQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	created, err := h.questions.CreateBulk(c.Request.Context(), &req, p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"questions": created, "count": len(created)})
}

// UpdateQuestion godoc
// PUT /api/v1/questions/:question_id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "question_id")
	if !ok {
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questions.Update(c.Request.Context(), id, &req, p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// DeleteQuestion godoc
// DELETE /api/v1/questions/:question_id
// Deactivates the question; graded attempts keep resolving it.
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "question_id")
	if !ok {
		return
	}

	if err := h.questions.Delete(c.Request.Context(), id, p); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Question deleted."})
}

// QuestionStats godoc
// GET /api/v1/questions/stats
func (h *QuestionHandler) QuestionStats(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	stats, err := h.questions.Stats(c.Request.Context(), p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}
