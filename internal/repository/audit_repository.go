package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/learnhub/learnhub-backend/internal/model"
)

// AuditRepository handles audit log data access.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

var auditCopyColumns = []string{"tenant_id", "user_id", "action", "entity", "entity_id", "meta", "created_at"}

// InsertBatch writes many audit entries with a single COPY.
func (r *AuditRepository) InsertBatch(ctx context.Context, logs []model.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"audit_logs"},
		auditCopyColumns,
		pgx.CopyFromSlice(len(logs), func(i int) ([]any, error) {
			l := logs[i]
			return []any{l.TenantID, l.UserID, string(l.Action), l.Entity, l.EntityID, l.Meta, l.CreatedAt}, nil
		}),
	)
	return err
}

// Insert writes a single audit entry.
func (r *AuditRepository) Insert(ctx context.Context, l model.AuditLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (tenant_id, user_id, action, entity, entity_id, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
		l.TenantID, l.UserID, l.Action, l.Entity, l.EntityID, l.Meta, l.CreatedAt)
	return err
}

// List retrieves audit entries of a tenant, newest first.
func (r *AuditRepository) List(ctx context.Context, f model.AuditFilter) ([]model.AuditLog, int, error) {
	where := ` WHERE tenant_id = $1`
	args := []any{f.TenantID}

	if f.UserID != nil {
		args = append(args, *f.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.Action != "" {
		args = append(args, f.Action)
		where += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if f.Entity != "" {
		args = append(args, f.Entity)
		where += fmt.Sprintf(" AND entity = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, tenant_id, user_id, action, entity, entity_id, meta, created_at FROM audit_logs` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []model.AuditLog
	for rows.Next() {
		var l model.AuditLog
		if err := rows.Scan(&l.ID, &l.TenantID, &l.UserID, &l.Action, &l.Entity, &l.EntityID, &l.Meta, &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}
