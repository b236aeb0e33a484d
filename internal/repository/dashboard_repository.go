package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/learnhub/learnhub-backend/internal/model"
)

// DashboardRepository handles dashboard aggregates.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// SummaryCounts returns active users, non-draft exams, active questions and
// all attempts of a tenant.
func (r *DashboardRepository) SummaryCounts(ctx context.Context, tenantID string) (users, exams, questions, attempts int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND is_active),
			(SELECT COUNT(*) FROM exams WHERE tenant_id = $1 AND status <> $2 AND deleted_at IS NULL),
			(SELECT COUNT(*) FROM questions WHERE tenant_id = $1 AND is_active),
			(SELECT COUNT(*) FROM exam_attempts WHERE tenant_id = $1)`,
		tenantID, model.ExamStatusDraft,
	).Scan(&users, &exams, &questions, &attempts)
	return
}

// ExamStatusCounts retrieves the distribution of a tenant's exams by status.
func (r *DashboardRepository) ExamStatusCounts(ctx context.Context, tenantID string) (map[model.ExamStatus]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM exams
		 WHERE tenant_id = $1 AND deleted_at IS NULL
		 GROUP BY status`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.ExamStatus]int)
	for rows.Next() {
		var status model.ExamStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// AttemptOutcomes aggregates EVALUATED attempts in scope.
func (r *DashboardRepository) AttemptOutcomes(ctx context.Context, scope model.DashboardScope) (model.AttemptOutcome, error) {
	var o model.AttemptOutcome
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(percentage), 0),
		        COALESCE(AVG(CASE WHEN passed THEN 100.0 ELSE 0 END), 0)
		 FROM exam_attempts
		 WHERE tenant_id = $1 AND ($2::uuid IS NULL OR user_id = $2) AND status = $3`,
		scope.TenantID, scope.UserID, model.AttemptStatusEvaluated,
	).Scan(&o.Count, &o.AverageScore, &o.PassRate)
	return o, err
}

// RoleCounts counts active users per role and the students created since.
func (r *DashboardRepository) RoleCounts(ctx context.Context, tenantID string, since time.Time) (map[model.Role]int, int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role, COUNT(*), COUNT(*) FILTER (WHERE created_at >= $2)
		 FROM users WHERE tenant_id = $1 AND is_active
		 GROUP BY role`, tenantID, since)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	counts := make(map[model.Role]int)
	recentStudents := 0
	for rows.Next() {
		var role model.Role
		var count, recent int
		if err := rows.Scan(&role, &count, &recent); err != nil {
			return nil, 0, err
		}
		counts[role] = count
		if role == model.RoleStudent {
			recentStudents = recent
		}
	}
	return counts, recentStudents, rows.Err()
}

// RecentActivity lists the newest attempts in scope with user and exam names.
func (r *DashboardRepository) RecentActivity(ctx context.Context, scope model.DashboardScope, limit int) ([]model.ActivityItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, u.name, e.title, a.status, a.score, a.percentage, a.passed, a.started_at
		 FROM exam_attempts a
		 JOIN users u ON u.id = a.user_id
		 JOIN exams e ON e.id = a.exam_id
		 WHERE a.tenant_id = $1 AND ($2::uuid IS NULL OR a.user_id = $2)
		 ORDER BY a.started_at DESC
		 LIMIT $3`,
		scope.TenantID, scope.UserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.ActivityItem{}
	for rows.Next() {
		var it model.ActivityItem
		if err := rows.Scan(&it.AttemptID, &it.UserName, &it.ExamTitle, &it.Status,
			&it.Score, &it.Percentage, &it.Passed, &it.StartedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// PerformanceByDay buckets EVALUATED attempts started since by UTC day.
func (r *DashboardRepository) PerformanceByDay(ctx context.Context, scope model.DashboardScope, since time.Time) ([]model.PerformancePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT to_char(started_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
		        COUNT(*),
		        ROUND(AVG(percentage)::numeric, 2)::float8,
		        ROUND(AVG(CASE WHEN passed THEN 100.0 ELSE 0 END)::numeric, 2)::float8
		 FROM exam_attempts
		 WHERE tenant_id = $1 AND ($2::uuid IS NULL OR user_id = $2)
		   AND status = $3 AND started_at >= $4
		 GROUP BY day
		 ORDER BY day`,
		scope.TenantID, scope.UserID, model.AttemptStatusEvaluated, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []model.PerformancePoint{}
	for rows.Next() {
		var p model.PerformancePoint
		if err := rows.Scan(&p.Date, &p.Attempts, &p.AverageScore, &p.PassRate); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
