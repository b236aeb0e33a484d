package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/learnhub/learnhub-backend/internal/model"
)

// ErrActiveAttemptExists is returned by Create when the user already holds an
// IN_PROGRESS attempt for the exam.
var ErrActiveAttemptExists = errors.New("active attempt already exists")

// AttemptRepository handles exam attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, tenant_id, exam_id, exam_version, user_id, status, question_ids, question_order,
	answers, started_at, last_sync_at, submitted_at, score, correct_count, incorrect_count,
	unanswered_count, percentage, passed, time_taken_seconds, xp_earned, detailed_results`

func scanAttempt(row pgx.Row, a *model.Attempt) error {
	return row.Scan(&a.ID, &a.TenantID, &a.ExamID, &a.ExamVersion, &a.UserID, &a.Status,
		&a.QuestionIDs, &a.QuestionOrder, &a.Answers, &a.StartedAt, &a.LastSyncAt, &a.SubmittedAt,
		&a.Score, &a.CorrectCount, &a.IncorrectCount, &a.UnansweredCount, &a.Percentage, &a.Passed,
		&a.TimeTakenSeconds, &a.XPEarned, &a.DetailedResults)
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	if err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts WHERE id = $1`, id), a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetActive retrieves the IN_PROGRESS attempt of a user for an exam.
func (r *AttemptRepository) GetActive(ctx context.Context, userID, examID uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	if err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE user_id = $1 AND exam_id = $2 AND status = $3`,
		userID, examID, model.AttemptStatusInProgress), a); err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new IN_PROGRESS attempt. The partial unique index on
// (user_id, exam_id) for IN_PROGRESS rows turns a concurrent duplicate into
// ErrActiveAttemptExists.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Answers == nil {
		a.Answers = []model.SubmittedAnswer{}
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (id, tenant_id, exam_id, exam_version, user_id, status,
		                            question_ids, question_order, answers, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (user_id, exam_id) WHERE status = 'IN_PROGRESS' DO NOTHING
		 RETURNING started_at`,
		a.ID, a.TenantID, a.ExamID, a.ExamVersion, a.UserID, model.AttemptStatusInProgress,
		a.QuestionIDs, a.QuestionOrder, a.Answers, a.StartedAt,
	).Scan(&a.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrActiveAttemptExists
	}
	if err != nil {
		return err
	}
	a.Status = model.AttemptStatusInProgress
	return nil
}

// SaveAnswers replaces the stored answer list of an IN_PROGRESS attempt.
// Returns pgx.ErrNoRows if the attempt is no longer in progress.
func (r *AttemptRepository) SaveAnswers(ctx context.Context, id uuid.UUID, answers []model.SubmittedAnswer, at time.Time) error {
	if answers == nil {
		answers = []model.SubmittedAnswer{}
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts SET answers = $1, last_sync_at = $2
		 WHERE id = $3 AND status = $4`,
		answers, at, id, model.AttemptStatusInProgress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SaveEvaluation writes the final result of an attempt. The update only
// applies while the attempt is IN_PROGRESS; otherwise pgx.ErrNoRows.
func (r *AttemptRepository) SaveEvaluation(ctx context.Context, a *model.Attempt) error {
	if a.Answers == nil {
		a.Answers = []model.SubmittedAnswer{}
	}
	if a.DetailedResults == nil {
		a.DetailedResults = []model.QuestionResult{}
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = $1, answers = $2, score = $3, correct_count = $4, incorrect_count = $5,
		     unanswered_count = $6, percentage = $7, passed = $8, time_taken_seconds = $9,
		     xp_earned = $10, detailed_results = $11, submitted_at = $12
		 WHERE id = $13 AND status = $14`,
		model.AttemptStatusEvaluated, a.Answers, a.Score, a.CorrectCount, a.IncorrectCount,
		a.UnansweredCount, a.Percentage, a.Passed, a.TimeTakenSeconds,
		a.XPEarned, a.DetailedResults, a.SubmittedAt,
		a.ID, model.AttemptStatusInProgress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkExpired moves an IN_PROGRESS attempt to EXPIRED. It is a no-op for
// attempts already in a terminal state.
func (r *AttemptRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts SET status = $1 WHERE id = $2 AND status = $3`,
		model.AttemptStatusExpired, id, model.AttemptStatusInProgress)
	return err
}

// List retrieves a user's attempts, newest first.
func (r *AttemptRepository) List(ctx context.Context, f model.AttemptFilter) ([]model.Attempt, int, error) {
	where := ` WHERE user_id = $1`
	args := []any{f.UserID}
	if f.ExamID != nil {
		args = append(args, *f.ExamID)
		where += fmt.Sprintf(" AND exam_id = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exam_attempts`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + attemptColumns + ` FROM exam_attempts` + where +
		fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := scanAttempt(rows, &a); err != nil {
			return nil, 0, err
		}
		attempts = append(attempts, a)
	}
	return attempts, total, rows.Err()
}
