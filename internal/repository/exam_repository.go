package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/learnhub/learnhub-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, tenant_id, title, description, category_id, instructions, duration_minutes,
	total_marks, passing_marks, shuffle_questions, shuffle_options, show_result_immediately,
	allow_review, negative_marking, question_ids, status, version, parent_id,
	published_at, archived_at, deleted_at, created_by, created_at, updated_at`

func scanExam(row pgx.Row, e *model.Exam) error {
	return row.Scan(&e.ID, &e.TenantID, &e.Title, &e.Description, &e.CategoryID, &e.Instructions,
		&e.DurationMinutes, &e.TotalMarks, &e.PassingMarks, &e.ShuffleQuestions, &e.ShuffleOptions,
		&e.ShowResultImmediately, &e.AllowReview, &e.NegativeMarking, &e.QuestionIDs, &e.Status,
		&e.Version, &e.ParentID, &e.PublishedAt, &e.ArchivedAt, &e.DeletedAt, &e.CreatedBy,
		&e.CreatedAt, &e.UpdatedAt)
}

// GetByID retrieves a non-deleted exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1 AND deleted_at IS NULL`, id), e)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetVersion retrieves an exam by its UUID even if it was soft-deleted.
func (r *ExamRepository) GetVersion(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	if err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id), e); err != nil {
		return nil, err
	}
	return e, nil
}

// List retrieves non-deleted exams of a tenant with optional filters and pagination.
func (r *ExamRepository) List(ctx context.Context, f model.ExamFilter) ([]model.Exam, int, error) {
	where := ` WHERE tenant_id = $1 AND deleted_at IS NULL`
	args := []any{f.TenantID}

	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		where += fmt.Sprintf(" AND status = ANY($%d::text[])", len(args))
	}
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		where += fmt.Sprintf(" AND category_id = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exams`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + examColumns + ` FROM exams` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// Insert persists a new exam record, assigning an ID if it has none.
func (r *ExamRepository) Insert(ctx context.Context, e *model.Exam) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.QuestionIDs == nil {
		e.QuestionIDs = []uuid.UUID{}
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (id, tenant_id, title, description, category_id, instructions, duration_minutes,
		                    total_marks, passing_marks, shuffle_questions, shuffle_options,
		                    show_result_immediately, allow_review, negative_marking, question_ids,
		                    status, version, parent_id, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		 RETURNING created_at, updated_at`,
		e.ID, e.TenantID, e.Title, e.Description, e.CategoryID, e.Instructions, e.DurationMinutes,
		e.TotalMarks, e.PassingMarks, e.ShuffleQuestions, e.ShuffleOptions,
		e.ShowResultImmediately, e.AllowReview, e.NegativeMarking, e.QuestionIDs,
		e.Status, e.Version, e.ParentID, e.CreatedBy,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
}

// Update overwrites the mutable fields of an exam in place. Identity and
// version are never changed here.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	if e.QuestionIDs == nil {
		e.QuestionIDs = []uuid.UUID{}
	}
	err := r.pool.QueryRow(ctx,
		`UPDATE exams
		 SET title = $1, description = $2, category_id = $3, instructions = $4, duration_minutes = $5,
		     total_marks = $6, passing_marks = $7, shuffle_questions = $8, shuffle_options = $9,
		     show_result_immediately = $10, allow_review = $11, negative_marking = $12,
		     question_ids = $13, status = $14, updated_at = NOW()
		 WHERE id = $15 AND deleted_at IS NULL
		 RETURNING updated_at`,
		e.Title, e.Description, e.CategoryID, e.Instructions, e.DurationMinutes,
		e.TotalMarks, e.PassingMarks, e.ShuffleQuestions, e.ShuffleOptions,
		e.ShowResultImmediately, e.AllowReview, e.NegativeMarking,
		e.QuestionIDs, e.Status, e.ID,
	).Scan(&e.UpdatedAt)
	return err
}

// SetStatus transitions an exam and stamps the matching timestamp column.
func (r *ExamRepository) SetStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus, at time.Time) error {
	var query string
	switch status {
	case model.ExamStatusPublished:
		query = `UPDATE exams SET status = $1, published_at = $2, updated_at = NOW() WHERE id = $3 AND deleted_at IS NULL`
	case model.ExamStatusArchived:
		query = `UPDATE exams SET status = $1, archived_at = $2, updated_at = NOW() WHERE id = $3 AND deleted_at IS NULL`
	default:
		query = `UPDATE exams SET status = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	}

	tag, err := r.pool.Exec(ctx, query, status, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SoftDelete archives an exam and hides it from every read.
func (r *ExamRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, archived_at = COALESCE(archived_at, $2), deleted_at = $2, updated_at = NOW()
		 WHERE id = $3 AND deleted_at IS NULL`,
		model.ExamStatusArchived, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// IDsReferencing returns the ids of every exam, any version, whose question
// set contains questionID.
func (r *ExamRepository) IDsReferencing(ctx context.Context, questionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM exams WHERE $1 = ANY(question_ids)`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListStartable returns every non-deleted PUBLISHED or ACTIVE exam.
// Used for paper cache prewarming on application startup.
func (r *ExamRepository) ListStartable(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams
		 WHERE status IN ($1, $2) AND deleted_at IS NULL
		 ORDER BY created_at DESC`, model.ExamStatusPublished, model.ExamStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}
