package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/response"
)

// ErrUnknownQuestions is returned when an exam references question ids that
// do not resolve to active questions of the exam's tenant.
var ErrUnknownQuestions = errors.New("exam references unknown questions")

// ExamService handles exam authoring, versioning and the paper cache.
type ExamService struct {
	exams     ExamStore
	questions QuestionReader
	papers    PaperStore
	audit     AuditQueue
	now       func() time.Time
	log       zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	exams ExamStore,
	questions QuestionReader,
	papers PaperStore,
	audit AuditQueue,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		exams:     exams,
		questions: questions,
		papers:    papers,
		audit:     audit,
		now:       time.Now,
		log:       log.With().Str("component", "exam_service").Logger(),
	}
}

// Get retrieves an exam visible to the caller. Students only see exams they
// could start.
func (s *ExamService) Get(ctx context.Context, id uuid.UUID, p model.Principal) (*model.Exam, error) {
	exam, err := s.load(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if !p.Role.AtLeast(model.RoleTeacher) && !exam.Status.Startable() {
		return nil, fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}
	return exam, nil
}

// List retrieves the tenant's exams. Students are limited to PUBLISHED and
// ACTIVE exams whatever status filter they send.
func (s *ExamService) List(ctx context.Context, p model.Principal, status model.ExamStatus, categoryID string, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	f := model.ExamFilter{
		TenantID:   p.TenantID,
		Status:     status,
		CategoryID: categoryID,
		Limit:      perPage,
		Offset:     (page - 1) * perPage,
	}
	if !p.Role.AtLeast(model.RoleTeacher) {
		f.Statuses = []model.ExamStatus{model.ExamStatusPublished, model.ExamStatusActive}
	}

	exams, total, err := s.exams.List(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, response.NewPagination(page, perPage, total), nil
}

// Create stores a new DRAFT exam at version 1. total_marks is derived from
// the referenced questions; the requested value is only used when the exam
// starts out empty.
func (s *ExamService) Create(ctx context.Context, req *model.CreateExamRequest, p model.Principal) (*model.Exam, error) {
	exam := &model.Exam{
		TenantID:              p.TenantID,
		Title:                 req.Title,
		Description:           req.Description,
		CategoryID:            req.CategoryID,
		Instructions:          req.Instructions,
		DurationMinutes:       req.DurationMinutes,
		TotalMarks:            req.TotalMarks,
		PassingMarks:          req.PassingMarks,
		ShuffleQuestions:      req.ShuffleQuestions,
		ShuffleOptions:        req.ShuffleOptions,
		ShowResultImmediately: req.ShowResultImmediately,
		AllowReview:           req.AllowReview,
		NegativeMarking:       req.NegativeMarking,
		QuestionIDs:           dedupeIDs(req.QuestionIDs),
		Status:                model.ExamStatusDraft,
		Version:               1,
		CreatedBy:             p.UserID,
	}

	if len(exam.QuestionIDs) > 0 {
		total, err := s.totalMarks(ctx, p.TenantID, exam.QuestionIDs)
		if err != nil {
			return nil, err
		}
		exam.TotalMarks = total
	}

	if err := s.exams.Insert(ctx, exam); err != nil {
		return nil, fmt.Errorf("insert exam: %w", err)
	}

	s.record(ctx, p, model.AuditActionCreate, exam.ID, map[string]any{"title": exam.Title})
	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Int("questions", len(exam.QuestionIDs)).
		Msg("Exam created")
	return exam, nil
}

// Update applies a partial edit. Changing the question set of a non-DRAFT
// exam forks a new DRAFT record at the next version and leaves the original,
// and every attempt bound to it, untouched. Everything else is in place.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateExamRequest, p model.Principal) (*model.UpdateExamResult, error) {
	original, err := s.load(ctx, id, p)
	if err != nil {
		return nil, err
	}

	structural := req.QuestionIDs != nil
	target := *original
	target.QuestionIDs = append([]uuid.UUID(nil), original.QuestionIDs...)
	applyExamPatch(&target, req)

	if structural {
		target.QuestionIDs = dedupeIDs(*req.QuestionIDs)
		total, err := s.totalMarks(ctx, original.TenantID, target.QuestionIDs)
		if err != nil {
			return nil, err
		}
		target.TotalMarks = total
	}

	if structural && original.Status != model.ExamStatusDraft {
		parentID := original.ID
		target.ID = uuid.New()
		target.Version = original.Version + 1
		target.Status = model.ExamStatusDraft
		target.ParentID = &parentID
		target.PublishedAt = nil
		target.ArchivedAt = nil
		target.CreatedBy = p.UserID

		if err := s.exams.Insert(ctx, &target); err != nil {
			return nil, fmt.Errorf("insert exam version: %w", err)
		}

		s.record(ctx, p, model.AuditActionCreate, target.ID, map[string]any{
			"parent_id": original.ID,
			"version":   target.Version,
		})
		s.log.Info().
			Str("exam_id", target.ID.String()).
			Str("parent_id", original.ID.String()).
			Int("version", target.Version).
			Msg("Exam forked")
		return &model.UpdateExamResult{Exam: &target, Forked: true}, nil
	}

	if target.Status.Startable() && len(target.QuestionIDs) == 0 {
		return nil, fmt.Errorf("exam %s: %w", id, ErrEmptyExam)
	}

	if err := s.exams.Update(ctx, &target); err != nil {
		return nil, notFound(err, "exam", id)
	}
	s.invalidate(ctx, id)

	s.record(ctx, p, model.AuditActionUpdate, id, map[string]any{"structural": structural})
	s.log.Info().
		Str("exam_id", id.String()).
		Bool("structural", structural).
		Msg("Exam updated")
	return &model.UpdateExamResult{Exam: &target, Forked: false}, nil
}

// Publish moves an exam to PUBLISHED and warms its paper. An exam without
// questions cannot be published.
func (s *ExamService) Publish(ctx context.Context, id uuid.UUID, p model.Principal) (*model.Exam, error) {
	exam, err := s.load(ctx, id, p)
	if err != nil {
		return nil, err
	}
	if len(exam.QuestionIDs) == 0 {
		return nil, fmt.Errorf("exam %s: %w", id, ErrEmptyExam)
	}

	now := s.now()
	if err := s.exams.SetStatus(ctx, id, model.ExamStatusPublished, now); err != nil {
		return nil, notFound(err, "exam", id)
	}
	exam.Status = model.ExamStatusPublished
	exam.PublishedAt = &now

	if err := s.WarmPaper(ctx, exam); err != nil {
		s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Failed to warm paper after publish")
	}

	s.record(ctx, p, model.AuditActionPublish, id, map[string]any{"version": exam.Version})
	s.log.Info().Str("exam_id", id.String()).Msg("Exam published")
	return exam, nil
}

// Archive moves an exam to ARCHIVED from any state.
func (s *ExamService) Archive(ctx context.Context, id uuid.UUID, p model.Principal) (*model.Exam, error) {
	exam, err := s.load(ctx, id, p)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.exams.SetStatus(ctx, id, model.ExamStatusArchived, now); err != nil {
		return nil, notFound(err, "exam", id)
	}
	exam.Status = model.ExamStatusArchived
	exam.ArchivedAt = &now
	s.invalidate(ctx, id)

	s.record(ctx, p, model.AuditActionArchive, id, nil)
	s.log.Info().Str("exam_id", id.String()).Msg("Exam archived")
	return exam, nil
}

// Delete soft-deletes an exam. Attempts bound to it stay readable.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID, p model.Principal) error {
	if _, err := s.load(ctx, id, p); err != nil {
		return err
	}
	if err := s.exams.SoftDelete(ctx, id, s.now()); err != nil {
		return notFound(err, "exam", id)
	}
	s.invalidate(ctx, id)

	s.record(ctx, p, model.AuditActionDelete, id, nil)
	s.log.Info().Str("exam_id", id.String()).Msg("Exam deleted")
	return nil
}

// WarmPaper builds an exam's paper and stores it in the cache.
func (s *ExamService) WarmPaper(ctx context.Context, exam *model.Exam) error {
	paper, err := BuildPaper(ctx, s.questions, exam)
	if err != nil {
		return err
	}
	if err := s.papers.Set(ctx, paper); err != nil {
		return fmt.Errorf("cache paper: %w", err)
	}

	s.log.Debug().
		Str("exam_id", exam.ID.String()).
		Int("questions", len(paper.Questions)).
		Msg("Paper warmed")
	return nil
}

// PrewarmPapers loads every startable exam's paper into the cache on
// startup so the first wave of starts does not all miss.
func (s *ExamService) PrewarmPapers(ctx context.Context) error {
	exams, err := s.exams.ListStartable(ctx)
	if err != nil {
		return fmt.Errorf("list startable exams: %w", err)
	}
	if len(exams) == 0 {
		s.log.Info().Msg("No startable exams to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(exams)).Msg("Prewarming exam papers...")

	warmed := 0
	for i := range exams {
		if err := s.WarmPaper(ctx, &exams[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("exam_id", exams[i].ID.String()).
				Msg("Failed to warm paper, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(exams)).
		Msg("Prewarming complete")
	return nil
}

// load fetches a non-deleted exam of the caller's tenant.
func (s *ExamService) load(ctx context.Context, id uuid.UUID, p model.Principal) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "exam", id)
	}
	if exam.TenantID != p.TenantID {
		return nil, fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}
	return exam, nil
}

// totalMarks sums the marks of the referenced questions. Every id must
// resolve to an active question of the tenant.
func (s *ExamService) totalMarks(ctx context.Context, tenantID string, ids []uuid.UUID) (float64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	qs, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load questions: %w", err)
	}

	marks := make(map[uuid.UUID]int, len(qs))
	for _, q := range qs {
		if q.TenantID == tenantID && q.IsActive {
			marks[q.ID] = q.Marks
		}
	}

	var total float64
	var missing int
	for _, id := range ids {
		m, ok := marks[id]
		if !ok {
			missing++
			continue
		}
		total += float64(m)
	}
	if missing > 0 {
		return 0, fmt.Errorf("%d of %d question ids: %w", missing, len(ids), ErrUnknownQuestions)
	}
	return total, nil
}

func (s *ExamService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.papers.Invalidate(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Failed to invalidate paper cache")
	}
}

func (s *ExamService) record(ctx context.Context, p model.Principal, action model.AuditAction, examID uuid.UUID, meta map[string]any) {
	recordAudit(ctx, s.audit, s.log, p, action, "exam", examID.String(), meta, s.now())
}

// applyExamPatch copies the non-nil fields of req onto e, except question_ids
// which the caller handles.
func applyExamPatch(e *model.Exam, req *model.UpdateExamRequest) {
	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.CategoryID != nil {
		e.CategoryID = *req.CategoryID
	}
	if req.Instructions != nil {
		e.Instructions = *req.Instructions
	}
	if req.DurationMinutes != nil {
		e.DurationMinutes = *req.DurationMinutes
	}
	if req.PassingMarks != nil {
		e.PassingMarks = *req.PassingMarks
	}
	if req.ShuffleQuestions != nil {
		e.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShuffleOptions != nil {
		e.ShuffleOptions = *req.ShuffleOptions
	}
	if req.ShowResultImmediately != nil {
		e.ShowResultImmediately = *req.ShowResultImmediately
	}
	if req.AllowReview != nil {
		e.AllowReview = *req.AllowReview
	}
	if req.NegativeMarking != nil {
		e.NegativeMarking = *req.NegativeMarking
	}
	if req.Status != nil {
		e.Status = *req.Status
	}
}

// dedupeIDs drops repeated ids, keeping first occurrences in order.
func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
