package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/learnhub/learnhub-backend/internal/model"
)

// The interfaces below are what the services need from storage, cache and
// queues. The pgx repositories, the Redis cache types and the worker queues
// satisfy them in production; tests use in-memory fakes.

// QuestionStore is the question bank.
type QuestionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
	List(ctx context.Context, f model.QuestionFilter) ([]model.Question, int, error)
	Create(ctx context.Context, q *model.Question) error
	CreateBatch(ctx context.Context, qs []*model.Question) error
	Update(ctx context.Context, q *model.Question) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, tenantID string) (*model.QuestionStats, error)
}

// QuestionReader is the read side of the question bank used while grading.
type QuestionReader interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// ExamStore holds exam definitions. GetByID hides soft-deleted exams.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	List(ctx context.Context, f model.ExamFilter) ([]model.Exam, int, error)
	Insert(ctx context.Context, e *model.Exam) error
	Update(ctx context.Context, e *model.Exam) error
	SetStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus, at time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	ListStartable(ctx context.Context) ([]model.Exam, error)
}

// ExamReferencer finds the exams built from a question.
type ExamReferencer interface {
	IDsReferencing(ctx context.Context, questionID uuid.UUID) ([]uuid.UUID, error)
}

// ExamReader is the read side of the exam store used by the attempt engine.
// GetVersion also returns soft-deleted exams so bound attempts stay gradable.
type ExamReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	GetVersion(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// AttemptStore persists attempts.
type AttemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetActive(ctx context.Context, userID, examID uuid.UUID) (*model.Attempt, error)
	Create(ctx context.Context, a *model.Attempt) error
	SaveAnswers(ctx context.Context, id uuid.UUID, answers []model.SubmittedAnswer, at time.Time) error
	SaveEvaluation(ctx context.Context, a *model.Attempt) error
	MarkExpired(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f model.AttemptFilter) ([]model.Attempt, int, error)
}

// UserStore holds accounts.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	List(ctx context.Context, f model.UserFilter) ([]model.User, int, error)
	Update(ctx context.Context, u *model.User) error
	Leaderboard(ctx context.Context, tenantID string, limit int) ([]model.LeaderboardEntry, error)
}

// AuditStore reads persisted audit entries.
type AuditStore interface {
	List(ctx context.Context, f model.AuditFilter) ([]model.AuditLog, int, error)
}

// PaperStore caches sanitized exam papers. Get returns nil on a miss.
type PaperStore interface {
	Get(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error)
	Set(ctx context.Context, paper *model.ExamPaper) error
	Invalidate(ctx context.Context, examID uuid.UUID) error
}

// StartLocker serializes attempt creation per (user, exam).
type StartLocker interface {
	Acquire(ctx context.Context, examID, userID uuid.UUID) (release func(), ok bool, err error)
}

// RewardQueue hands XP rewards to the reward worker.
type RewardQueue interface {
	Enqueue(ctx context.Context, r model.XPReward) error
}

// AuditQueue hands audit entries to the audit worker.
type AuditQueue interface {
	Enqueue(ctx context.Context, l model.AuditLog) error
}

// AttemptMetrics receives attempt lifecycle observations.
type AttemptMetrics interface {
	AttemptStarted(resumed bool)
	AttemptSubmitted(passed bool, percentage float64)
	AttemptExpired()
	RewardEnqueued(ok bool)
}

// Accounts creates credentials and ends sessions. AuthService implements it.
type Accounts interface {
	CreateUser(ctx context.Context, tenantID, name, email, password string, role model.Role) (*model.User, error)
	HashPassword(password string) (string, error)
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

// SessionStore tracks issued tokens so they can be revoked.
type SessionStore interface {
	Put(ctx context.Context, userID uuid.UUID, jti string, ttl time.Duration) error
	Exists(ctx context.Context, userID uuid.UUID, jti string) (bool, error)
	Delete(ctx context.Context, userID uuid.UUID, jti string) error
	DeleteAll(ctx context.Context, userID uuid.UUID) error
}

// DashboardStore serves the dashboard aggregates.
type DashboardStore interface {
	SummaryCounts(ctx context.Context, tenantID string) (users, exams, questions, attempts int, err error)
	ExamStatusCounts(ctx context.Context, tenantID string) (map[model.ExamStatus]int, error)
	AttemptOutcomes(ctx context.Context, scope model.DashboardScope) (model.AttemptOutcome, error)
	RoleCounts(ctx context.Context, tenantID string, since time.Time) (map[model.Role]int, int, error)
	RecentActivity(ctx context.Context, scope model.DashboardScope, limit int) ([]model.ActivityItem, error)
	PerformanceByDay(ctx context.Context, scope model.DashboardScope, since time.Time) ([]model.PerformancePoint, error)
}
