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

// QuestionService handles the question bank. Edits drop the cached papers of
// every exam that includes the question.
type QuestionService struct {
	questions QuestionStore
	exams     ExamReferencer
	papers    PaperStore
	audit     AuditQueue
	now       func() time.Time
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions QuestionStore, exams ExamReferencer, papers PaperStore, audit AuditQueue, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questions: questions,
		exams:     exams,
		papers:    papers,
		audit:     audit,
		now:       time.Now,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// Get retrieves a question of the caller's tenant, answer key included.
func (s *QuestionService) Get(ctx context.Context, id uuid.UUID, p model.Principal) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "question", id)
	}
	if q.TenantID != p.TenantID || !q.IsActive {
		return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	return q, nil
}

// List retrieves active questions of the caller's tenant.
func (s *QuestionService) List(ctx context.Context, p model.Principal, f model.QuestionFilter, page, perPage int) ([]model.Question, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	f.TenantID = p.TenantID
	f.Search = strings.TrimSpace(f.Search)
	f.Limit = perPage
	f.Offset = (page - 1) * perPage

	qs, total, err := s.questions.List(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	if qs == nil {
		qs = []model.Question{}
	}
	return qs, response.NewPagination(page, perPage, total), nil
}

// Create validates and stores a single question.
func (s *QuestionService) Create(ctx context.Context, req *model.CreateQuestionRequest, p model.Principal) (*model.Question, error) {
	q := newQuestion(req, p)
	if err := ValidateAnswerKey(q.Type, q.Options, q.CorrectAnswer); err != nil {
		return nil, err
	}

	if err := s.questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	s.record(ctx, p, model.AuditActionCreate, q.ID.String(), map[string]any{"type": q.Type})
	return q, nil
}

// CreateBulk validates every question first and then stores them in one
// batch; a single invalid question rejects the whole request.
func (s *QuestionService) CreateBulk(ctx context.Context, req *model.BulkCreateQuestionsRequest, p model.Principal) ([]*model.Question, error) {
	qs := make([]*model.Question, len(req.Questions))
	for i := range req.Questions {
		q := newQuestion(&req.Questions[i], p)
		if err := ValidateAnswerKey(q.Type, q.Options, q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		qs[i] = q
	}

	if err := s.questions.CreateBatch(ctx, qs); err != nil {
		return nil, fmt.Errorf("create questions: %w", err)
	}

	s.record(ctx, p, model.AuditActionCreate, "bulk", map[string]any{"count": len(qs)})
	s.log.Info().Int("count", len(qs)).Str("tenant_id", p.TenantID).Msg("Questions bulk created")
	return qs, nil
}

// Update applies a partial edit and revalidates the answer key against the
// resulting type and options.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionRequest, p model.Principal) (*model.Question, error) {
	q, err := s.Get(ctx, id, p)
	if err != nil {
		return nil, err
	}

	if req.CategoryID != nil {
		q.CategoryID = *req.CategoryID
	}
	if req.Text != nil {
		q.Text = *req.Text
	}
	if req.CaseContext != nil {
		q.CaseContext = req.CaseContext
	}
	if req.Options != nil {
		q.Options = req.Options
	}
	if req.CorrectAnswer != nil {
		q.CorrectAnswer = *req.CorrectAnswer
	}
	if req.Explanation != nil {
		q.Explanation = req.Explanation
	}
	if req.Difficulty != nil {
		q.Difficulty = *req.Difficulty
	}
	if req.Marks != nil {
		q.Marks = *req.Marks
	}
	if req.NegativeMarks != nil {
		q.NegativeMarks = *req.NegativeMarks
	}
	if req.Tags != nil {
		q.Tags = req.Tags
	}

	if err := ValidateAnswerKey(q.Type, q.Options, q.CorrectAnswer); err != nil {
		return nil, err
	}
	if err := s.questions.Update(ctx, q); err != nil {
		return nil, notFound(err, "question", id)
	}
	s.invalidatePapers(ctx, id)

	s.record(ctx, p, model.AuditActionUpdate, id.String(), nil)
	return q, nil
}

// Delete deactivates a question. Exams and attempts that reference it keep
// resolving it.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID, p model.Principal) error {
	if _, err := s.Get(ctx, id, p); err != nil {
		return err
	}
	if err := s.questions.Deactivate(ctx, id); err != nil {
		return notFound(err, "question", id)
	}
	s.invalidatePapers(ctx, id)

	s.record(ctx, p, model.AuditActionDelete, id.String(), nil)
	return nil
}

// Stats summarizes the caller's tenant bank.
func (s *QuestionService) Stats(ctx context.Context, p model.Principal) (*model.QuestionStats, error) {
	return s.questions.Stats(ctx, p.TenantID)
}

func (s *QuestionService) invalidatePapers(ctx context.Context, questionID uuid.UUID) {
	examIDs, err := s.exams.IDsReferencing(ctx, questionID)
	if err != nil {
		s.log.Error().Err(err).Str("question_id", questionID.String()).Msg("Failed to find exams for paper invalidation")
		return
	}
	for _, examID := range examIDs {
		if err := s.papers.Invalidate(ctx, examID); err != nil {
			s.log.Warn().Err(err).
				Str("exam_id", examID.String()).
				Str("question_id", questionID.String()).
				Msg("Failed to invalidate paper")
		}
	}
}

func (s *QuestionService) record(ctx context.Context, p model.Principal, action model.AuditAction, entityID string, meta map[string]any) {
	recordAudit(ctx, s.audit, s.log, p, action, "question", entityID, meta, s.now())
}

func newQuestion(req *model.CreateQuestionRequest, p model.Principal) *model.Question {
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyMedium
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	return &model.Question{
		TenantID:      p.TenantID,
		CategoryID:    req.CategoryID,
		Type:          req.Type,
		Text:          req.Text,
		CaseContext:   req.CaseContext,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Explanation:   req.Explanation,
		Difficulty:    difficulty,
		Marks:         req.Marks,
		NegativeMarks: req.NegativeMarks,
		Tags:          tags,
		IsActive:      true,
		CreatedBy:     p.UserID,
	}
}

// ValidateAnswerKey checks that a canonical answer fits its question type:
// choice types need at least two uniquely identified options and an answer
// made of their ids, TRUE_FALSE needs "true" or "false", FILL_BLANK needs a
// non-empty text and no options.
func ValidateAnswerKey(t model.QuestionType, options []model.Option, key model.Answer) error {
	values := key.Values()
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("blank answer value: %w", ErrInvalidAnswerKey)
		}
	}

	if t.HasOptions() {
		if len(options) < 2 {
			return fmt.Errorf("%s needs at least 2 options: %w", t, ErrInvalidAnswerKey)
		}
		ids := make(map[string]struct{}, len(options))
		for _, o := range options {
			id := strings.TrimSpace(o.ID)
			if _, dup := ids[id]; dup {
				return fmt.Errorf("duplicate option id %q: %w", o.ID, ErrInvalidAnswerKey)
			}
			ids[id] = struct{}{}
		}

		if len(values) == 0 {
			return fmt.Errorf("%s needs a correct answer: %w", t, ErrInvalidAnswerKey)
		}
		if t != model.QuestionTypeMCQMulti && len(values) != 1 {
			return fmt.Errorf("%s takes exactly one correct option: %w", t, ErrInvalidAnswerKey)
		}
		for _, v := range values {
			if _, ok := ids[strings.TrimSpace(v)]; !ok {
				return fmt.Errorf("answer %q is not an option id: %w", v, ErrInvalidAnswerKey)
			}
		}
		return nil
	}

	if key.Kind != model.AnswerKindScalar {
		return fmt.Errorf("%s takes a single answer value: %w", t, ErrInvalidAnswerKey)
	}

	switch t {
	case model.QuestionTypeTrueFalse:
		v := strings.ToLower(strings.TrimSpace(key.Scalar))
		if v != "true" && v != "false" {
			return fmt.Errorf("TRUE_FALSE answer must be true or false: %w", ErrInvalidAnswerKey)
		}
	case model.QuestionTypeFillBlank:
		if len(options) > 0 {
			return fmt.Errorf("FILL_BLANK takes no options: %w", ErrInvalidAnswerKey)
		}
	default:
		return fmt.Errorf("unknown question type %q: %w", t, ErrInvalidAnswerKey)
	}
	return nil
}
