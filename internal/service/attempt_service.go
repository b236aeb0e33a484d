package service

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/grading"
	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/repository"
	"github.com/learnhub/learnhub-backend/internal/response"
)

// AttemptService runs the attempt lifecycle: start or resume, sync, submit.
type AttemptService struct {
	attempts  AttemptStore
	exams     ExamReader
	questions QuestionReader
	papers    PaperStore
	locker    StartLocker
	rewards   RewardQueue
	audit     AuditQueue
	metrics   AttemptMetrics
	// grace is how long past its deadline an attempt stays usable.
	// Negative disables expiry.
	grace time.Duration
	now   func() time.Time
	log   zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	exams ExamReader,
	questions QuestionReader,
	papers PaperStore,
	locker StartLocker,
	rewards RewardQueue,
	audit AuditQueue,
	metrics AttemptMetrics,
	grace time.Duration,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:  attempts,
		exams:     exams,
		questions: questions,
		papers:    papers,
		locker:    locker,
		rewards:   rewards,
		audit:     audit,
		metrics:   metrics,
		grace:     grace,
		now:       time.Now,
		log:       log.With().Str("component", "attempt_service").Logger(),
	}
}

// Start begins an attempt at examID, or resumes the caller's IN_PROGRESS one.
func (s *AttemptService) Start(ctx context.Context, examID uuid.UUID, p model.Principal) (*model.AttemptSession, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, notFound(err, "exam", examID)
	}
	if exam.TenantID != p.TenantID {
		return nil, fmt.Errorf("exam %s: %w", examID, ErrNotFound)
	}
	if !exam.Status.Startable() {
		return nil, fmt.Errorf("exam %s is %s: %w", examID, exam.Status, ErrNotAvailable)
	}

	if session, err := s.resumeActive(ctx, exam, p.UserID); session != nil || err != nil {
		return session, err
	}

	release, locked, err := s.locker.Acquire(ctx, examID, p.UserID)
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Start lock unavailable, relying on unique index")
	} else if !locked {
		s.log.Warn().Str("exam_id", examID.String()).Msg("Start lock wait timed out, relying on unique index")
	}
	defer release()

	// Another request may have created the attempt while we waited.
	if session, err := s.resumeActive(ctx, exam, p.UserID); session != nil || err != nil {
		return session, err
	}

	paper, err := s.paper(ctx, exam)
	if err != nil {
		return nil, err
	}

	now := s.now()
	attempt := &model.Attempt{
		ID:          uuid.New(),
		TenantID:    exam.TenantID,
		ExamID:      exam.ID,
		ExamVersion: exam.Version,
		UserID:      p.UserID,
		Status:      model.AttemptStatusInProgress,
		QuestionIDs: append([]uuid.UUID(nil), exam.QuestionIDs...),
		Answers:     []model.SubmittedAnswer{},
		StartedAt:   now,
	}
	attempt.QuestionOrder = make([]uuid.UUID, len(paper.Questions))
	for i, q := range paper.Questions {
		attempt.QuestionOrder[i] = q.ID
	}
	if exam.ShuffleQuestions {
		rng := attemptRand(attempt.ID, 0)
		rng.Shuffle(len(attempt.QuestionOrder), func(i, j int) {
			attempt.QuestionOrder[i], attempt.QuestionOrder[j] = attempt.QuestionOrder[j], attempt.QuestionOrder[i]
		})
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrActiveAttemptExists) {
			s.log.Info().
				Str("exam_id", examID.String()).
				Str("user_id", p.UserID.String()).
				Msg("Concurrent start detected, resuming winner")
			existing, getErr := s.attempts.GetActive(ctx, p.UserID, examID)
			if getErr != nil {
				return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", getErr)
			}
			s.metrics.AttemptStarted(true)
			return s.session(exam, paper, existing, true), nil
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.record(ctx, p, model.AuditActionExamStart, attempt.ID, map[string]any{
		"exam_id":      exam.ID,
		"exam_version": exam.Version,
	})
	s.metrics.AttemptStarted(false)

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", exam.ID.String()).
		Int("exam_version", exam.Version).
		Str("user_id", p.UserID.String()).
		Msg("Attempt started")

	return s.session(exam, paper, attempt, false), nil
}

// resumeActive returns a session for the user's live attempt, or nil if there
// is none. An attempt found past its deadline is expired on the way.
func (s *AttemptService) resumeActive(ctx context.Context, exam *model.Exam, userID uuid.UUID) (*model.AttemptSession, error) {
	active, err := s.attempts.GetActive(ctx, userID, exam.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check active attempt: %w", err)
	}

	if s.expired(active, exam) {
		s.expire(ctx, active)
		return nil, nil
	}

	paper, err := s.paper(ctx, exam)
	if err != nil {
		return nil, err
	}
	s.metrics.AttemptStarted(true)
	return s.session(exam, paper, active, true), nil
}

// Sync overwrites the saved answers of an IN_PROGRESS attempt. Only the last
// answer per question of the attempt's snapshot is kept.
func (s *AttemptService) Sync(ctx context.Context, attemptID uuid.UUID, p model.Principal, answers []model.SubmittedAnswer) (*model.SyncAck, error) {
	attempt, _, err := s.loadLive(ctx, attemptID, p)
	if err != nil {
		return nil, err
	}

	answers = grading.LatestAnswers(attempt.QuestionIDs, answers)
	now := s.now()
	if err := s.attempts.SaveAnswers(ctx, attempt.ID, answers, now); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("attempt %s: %w", attemptID, ErrAlreadySubmitted)
		}
		return nil, fmt.Errorf("save answers: %w", err)
	}

	return &model.SyncAck{
		AttemptID:   attempt.ID,
		SyncedCount: len(answers),
		SyncedAt:    now,
	}, nil
}

// Submit grades an attempt against the question set it started with and
// persists the result. The XP reward is best effort.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, p model.Principal, answers []model.SubmittedAnswer) (*model.AttemptResult, error) {
	attempt, exam, err := s.loadLive(ctx, attemptID, p)
	if err != nil {
		return nil, err
	}

	key, err := s.answerKey(ctx, attempt.QuestionIDs)
	if err != nil {
		return nil, err
	}

	outcome := grading.Evaluate(attempt.QuestionIDs, key, answers, grading.Config{
		NegativeMarking: exam.NegativeMarking,
		TotalMarks:      exam.TotalMarks,
		PassingMarks:    exam.PassingMarks,
	})

	now := s.now()
	timeTaken := int(now.Sub(attempt.StartedAt) / time.Second)
	if timeTaken < 0 {
		timeTaken = 0
	}
	xp := grading.XP(outcome.Score, outcome.Passed)

	if answers == nil {
		answers = []model.SubmittedAnswer{}
	}
	attempt.Status = model.AttemptStatusEvaluated
	attempt.Answers = answers
	attempt.Score = &outcome.Score
	attempt.CorrectCount = outcome.CorrectCount
	attempt.IncorrectCount = outcome.IncorrectCount
	attempt.UnansweredCount = outcome.UnansweredCount
	attempt.Percentage = &outcome.Percentage
	attempt.Passed = &outcome.Passed
	attempt.TimeTakenSeconds = &timeTaken
	attempt.XPEarned = xp
	attempt.DetailedResults = outcome.Results
	attempt.SubmittedAt = &now

	if err := s.attempts.SaveEvaluation(ctx, attempt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("attempt %s: %w", attemptID, ErrAlreadySubmitted)
		}
		return nil, fmt.Errorf("save evaluation: %w", err)
	}

	s.reward(ctx, attempt)
	s.record(ctx, p, model.AuditActionExamSubmit, attempt.ID, map[string]any{
		"exam_id": exam.ID,
		"score":   outcome.Score,
		"passed":  outcome.Passed,
	})
	s.metrics.AttemptSubmitted(outcome.Passed, outcome.Percentage)

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", exam.ID.String()).
		Float64("score", outcome.Score).
		Float64("raw_score", outcome.RawScore).
		Bool("passed", outcome.Passed).
		Int("time_taken_seconds", timeTaken).
		Msg("Attempt evaluated")

	result := &model.AttemptResult{
		AttemptID:        attempt.ID,
		ExamID:           exam.ID,
		Score:            outcome.Score,
		TotalMarks:       exam.TotalMarks,
		PassingMarks:     exam.PassingMarks,
		Percentage:       grading.Round2(outcome.Percentage),
		Passed:           outcome.Passed,
		CorrectCount:     outcome.CorrectCount,
		IncorrectCount:   outcome.IncorrectCount,
		UnansweredCount:  outcome.UnansweredCount,
		TimeTakenSeconds: timeTaken,
		XPEarned:         xp,
		SubmittedAt:      now,
	}
	if exam.ShowResultImmediately {
		result.DetailedResults = outcome.Results
		if result.DetailedResults == nil {
			result.DetailedResults = []model.QuestionResult{}
		}
	}
	return result, nil
}

// Get returns an attempt to its owner, or to a manager or admin of the same
// tenant. Owners only see the per-question breakdown if the exam shows
// results or allows review.
func (s *AttemptService) Get(ctx context.Context, attemptID uuid.UUID, p model.Principal) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, notFound(err, "attempt", attemptID)
	}

	owner := attempt.UserID == p.UserID
	staff := p.Role.AtLeast(model.RoleManager) && attempt.TenantID == p.TenantID
	if !owner && !staff {
		return nil, fmt.Errorf("attempt %s: %w", attemptID, ErrForbidden)
	}

	if owner && !staff && attempt.DetailedResults != nil {
		exam, err := s.exams.GetVersion(ctx, attempt.ExamID)
		if err != nil {
			return nil, notFound(err, "exam", attempt.ExamID)
		}
		if !exam.ShowResultImmediately && !exam.AllowReview {
			attempt.DetailedResults = nil
		}
	}
	return attempt, nil
}

// List returns the caller's attempts, newest first.
func (s *AttemptService) List(ctx context.Context, p model.Principal, examID *uuid.UUID, page, perPage int) ([]model.Attempt, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	attempts, total, err := s.attempts.List(ctx, model.AttemptFilter{
		UserID: p.UserID,
		ExamID: examID,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return nil, nil, err
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	for i := range attempts {
		// Listings are summaries; the breakdown is served by Get.
		attempts[i].DetailedResults = nil
	}
	return attempts, response.NewPagination(page, perPage, total), nil
}

// loadLive fetches an attempt for a write by its owner and checks that it is
// still IN_PROGRESS and within its time budget.
func (s *AttemptService) loadLive(ctx context.Context, attemptID uuid.UUID, p model.Principal) (*model.Attempt, *model.Exam, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, nil, notFound(err, "attempt", attemptID)
	}
	if attempt.UserID != p.UserID {
		return nil, nil, fmt.Errorf("attempt %s: %w", attemptID, ErrForbidden)
	}

	switch attempt.Status {
	case model.AttemptStatusInProgress:
	case model.AttemptStatusExpired:
		return nil, nil, fmt.Errorf("attempt %s: %w", attemptID, ErrAttemptExpired)
	default:
		return nil, nil, fmt.Errorf("attempt %s is %s: %w", attemptID, attempt.Status, ErrAlreadySubmitted)
	}

	exam, err := s.exams.GetVersion(ctx, attempt.ExamID)
	if err != nil {
		return nil, nil, notFound(err, "exam", attempt.ExamID)
	}

	if s.expired(attempt, exam) {
		s.expire(ctx, attempt)
		return nil, nil, fmt.Errorf("attempt %s: %w", attemptID, ErrAttemptExpired)
	}
	return attempt, exam, nil
}

func (s *AttemptService) deadline(a *model.Attempt, exam *model.Exam) time.Time {
	return a.StartedAt.Add(time.Duration(exam.DurationMinutes) * time.Minute)
}

func (s *AttemptService) expired(a *model.Attempt, exam *model.Exam) bool {
	if s.grace < 0 {
		return false
	}
	return s.now().After(s.deadline(a, exam).Add(s.grace))
}

func (s *AttemptService) expire(ctx context.Context, a *model.Attempt) {
	if err := s.attempts.MarkExpired(ctx, a.ID); err != nil {
		s.log.Error().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to mark attempt expired")
		return
	}
	a.Status = model.AttemptStatusExpired
	s.metrics.AttemptExpired()
	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Time("started_at", a.StartedAt).
		Msg("Attempt expired")
}

// paper returns the exam's answer-free paper from cache, building and caching
// it from the question store on a miss.
func (s *AttemptService) paper(ctx context.Context, exam *model.Exam) (*model.ExamPaper, error) {
	cached, err := s.papers.Get(ctx, exam.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Paper cache read failed, loading from store")
	}
	if cached != nil && cached.Version == exam.Version {
		return cached, nil
	}

	paper, err := BuildPaper(ctx, s.questions, exam)
	if err != nil {
		return nil, err
	}
	if err := s.papers.Set(ctx, paper); err != nil {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Failed to cache paper")
	}
	return paper, nil
}

// BuildPaper resolves an exam's questions in exam order and strips their
// answer keys. Ids that no longer resolve are skipped.
func BuildPaper(ctx context.Context, questions QuestionReader, exam *model.Exam) (*model.ExamPaper, error) {
	qs, err := questions.GetByIDs(ctx, exam.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[uuid.UUID]model.Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}

	paper := &model.ExamPaper{
		ExamID:    exam.ID,
		Version:   exam.Version,
		Questions: make([]model.QuestionForStudent, 0, len(exam.QuestionIDs)),
	}
	seen := make(map[uuid.UUID]struct{}, len(exam.QuestionIDs))
	for _, id := range exam.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		paper.Questions = append(paper.Questions, q.Sanitize())
	}
	return paper, nil
}

func (s *AttemptService) answerKey(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error) {
	qs, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}
	key := make(map[uuid.UUID]model.Question, len(qs))
	for _, q := range qs {
		key[q.ID] = q
	}
	return key, nil
}

// session shapes the start/resume payload, presenting questions in the
// attempt's order with options shuffled per attempt if the exam asks for it.
func (s *AttemptService) session(exam *model.Exam, paper *model.ExamPaper, a *model.Attempt, resumed bool) *model.AttemptSession {
	byID := make(map[uuid.UUID]model.QuestionForStudent, len(paper.Questions))
	for _, q := range paper.Questions {
		byID[q.ID] = q
	}

	questions := make([]model.QuestionForStudent, 0, len(a.QuestionOrder))
	for i, id := range a.QuestionOrder {
		q, ok := byID[id]
		if !ok {
			continue
		}
		if exam.ShuffleOptions && len(q.Options) > 1 {
			opts := append([]model.Option(nil), q.Options...)
			rng := attemptRand(a.ID, uint64(i)+1)
			rng.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
			q.Options = opts
		}
		questions = append(questions, q)
	}

	elapsed := int(s.now().Sub(a.StartedAt) / time.Second)
	remaining := max(0, exam.DurationMinutes*60-max(0, elapsed))

	saved := a.Answers
	if saved == nil {
		saved = []model.SubmittedAnswer{}
	}

	return &model.AttemptSession{
		AttemptID:       a.ID,
		ExamID:          exam.ID,
		ExamVersion:     a.ExamVersion,
		Title:           exam.Title,
		Instructions:    exam.Instructions,
		DurationMinutes: exam.DurationMinutes,
		TotalMarks:      exam.TotalMarks,
		Questions:       questions,
		TimeRemaining:   remaining,
		StartedAt:       a.StartedAt,
		SavedAnswers:    saved,
		Resumed:         resumed,
	}
}

func (s *AttemptService) reward(ctx context.Context, a *model.Attempt) {
	if a.XPEarned == 0 {
		return
	}
	err := s.rewards.Enqueue(context.WithoutCancel(ctx), model.XPReward{
		UserID:    a.UserID,
		AttemptID: a.ID,
		Amount:    a.XPEarned,
	})
	s.metrics.RewardEnqueued(err == nil)
	if err != nil {
		s.log.Error().Err(err).
			Str("attempt_id", a.ID.String()).
			Str("user_id", a.UserID.String()).
			Int("xp", a.XPEarned).
			Msg("Failed to enqueue XP reward")
	}
}

func (s *AttemptService) record(ctx context.Context, p model.Principal, action model.AuditAction, attemptID uuid.UUID, meta map[string]any) {
	recordAudit(ctx, s.audit, s.log, p, action, "exam_attempt", attemptID.String(), meta, s.now())
}

// attemptRand is a generator seeded from the attempt id, so a resumed attempt
// sees the same option order it saw at start.
func attemptRand(id uuid.UUID, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(binary.BigEndian.Uint64(id[:8])^stream, binary.BigEndian.Uint64(id[8:])))
}

// recordAudit enqueues an audit entry; failures are logged and dropped.
func recordAudit(ctx context.Context, q AuditQueue, log zerolog.Logger, p model.Principal, action model.AuditAction, entity, entityID string, meta map[string]any, at time.Time) {
	var raw json.RawMessage
	if len(meta) > 0 {
		b, err := json.Marshal(meta)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to encode audit meta")
		} else {
			raw = b
		}
	}

	entry := model.AuditLog{
		TenantID:  p.TenantID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Meta:      raw,
		CreatedAt: at,
	}
	if p.UserID != uuid.Nil {
		uid := p.UserID
		entry.UserID = &uid
	}

	if err := q.Enqueue(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn().Err(err).
			Str("action", string(action)).
			Str("entity_id", entityID).
			Msg("Failed to enqueue audit entry")
	}
}

// normalizePage clamps pagination parameters.
func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
