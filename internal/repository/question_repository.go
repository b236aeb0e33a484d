package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/learnhub/learnhub-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, tenant_id, category_id, type, text, case_context, options, correct_answer,
	explanation, difficulty, marks, negative_marks, tags, is_active, created_by, created_at, updated_at`

func scanQuestion(row pgx.Row, q *model.Question) error {
	return row.Scan(&q.ID, &q.TenantID, &q.CategoryID, &q.Type, &q.Text, &q.CaseContext, &q.Options,
		&q.CorrectAnswer, &q.Explanation, &q.Difficulty, &q.Marks, &q.NegativeMarks, &q.Tags,
		&q.IsActive, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
}

// GetByID retrieves a question by its UUID, active or not.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id), q)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetByIDs retrieves every question whose id is in ids. Order is unspecified
// and missing ids are silently skipped. Deactivated questions are included so
// that attempts bound to them can still be graded.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]model.Question, 0, len(ids))
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// List retrieves active questions of a tenant with optional filters and pagination.
func (r *QuestionRepository) List(ctx context.Context, f model.QuestionFilter) ([]model.Question, int, error) {
	where := ` WHERE tenant_id = $1 AND is_active = TRUE`
	args := []any{f.TenantID}

	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		where += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if f.Difficulty != "" {
		args = append(args, f.Difficulty)
		where += fmt.Sprintf(" AND difficulty = $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(" AND text ILIKE $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + questionColumns + ` FROM questions` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, 0, err
		}
		questions = append(questions, q)
	}
	return questions, total, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (tenant_id, category_id, type, text, case_context, options, correct_answer,
		                        explanation, difficulty, marks, negative_marks, tags, is_active, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE, $13)
		 RETURNING id, is_active, created_at, updated_at`,
		q.TenantID, q.CategoryID, q.Type, q.Text, q.CaseContext, q.Options, q.CorrectAnswer,
		q.Explanation, q.Difficulty, q.Marks, q.NegativeMarks, q.Tags, q.CreatedBy,
	).Scan(&q.ID, &q.IsActive, &q.CreatedAt, &q.UpdatedAt)
}

// CreateBatch inserts many questions with a single COPY. IDs are assigned
// client-side so the caller can reference the new rows.
func (r *QuestionRepository) CreateBatch(ctx context.Context, qs []*model.Question) error {
	if len(qs) == 0 {
		return nil
	}

	for _, q := range qs {
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		q.IsActive = true
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"questions"},
		[]string{"id", "tenant_id", "category_id", "type", "text", "case_context", "options", "correct_answer",
			"explanation", "difficulty", "marks", "negative_marks", "tags", "is_active", "created_by"},
		pgx.CopyFromSlice(len(qs), func(i int) ([]any, error) {
			q := qs[i]
			return []any{q.ID, q.TenantID, q.CategoryID, string(q.Type), q.Text, q.CaseContext, q.Options,
				q.CorrectAnswer, q.Explanation, string(q.Difficulty), q.Marks, q.NegativeMarks, q.Tags,
				q.IsActive, q.CreatedBy}, nil
		}),
	)
	return err
}

// Update overwrites the editable fields of a question.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`UPDATE questions
		 SET category_id = $1, text = $2, case_context = $3, options = $4, correct_answer = $5,
		     explanation = $6, difficulty = $7, marks = $8, negative_marks = $9, tags = $10,
		     updated_at = NOW()
		 WHERE id = $11
		 RETURNING updated_at`,
		q.CategoryID, q.Text, q.CaseContext, q.Options, q.CorrectAnswer,
		q.Explanation, q.Difficulty, q.Marks, q.NegativeMarks, q.Tags, q.ID,
	).Scan(&q.UpdatedAt)
}

// Deactivate soft-deletes a question.
func (r *QuestionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Stats aggregates active question counts of a tenant by difficulty and type.
func (r *QuestionRepository) Stats(ctx context.Context, tenantID string) (*model.QuestionStats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT difficulty, type, COUNT(*)
		 FROM questions
		 WHERE tenant_id = $1 AND is_active = TRUE
		 GROUP BY difficulty, type`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &model.QuestionStats{
		ByDifficulty: make(map[model.Difficulty]int),
		ByType:       make(map[model.QuestionType]int),
	}
	for rows.Next() {
		var (
			d model.Difficulty
			t model.QuestionType
			n int
		)
		if err := rows.Scan(&d, &t, &n); err != nil {
			return nil, err
		}
		stats.Total += n
		stats.ByDifficulty[d] += n
		stats.ByType[t] += n
	}
	return stats, rows.Err()
}
