package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/learnhub/learnhub-backend/internal/model"
)

var ErrDuplicateEmail = errors.New("email already exists")

// UserRepository handles user data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, tenant_id, name, email, password_hash, role, xp_points, is_active, created_at, updated_at`

func scanUser(row pgx.Row, u *model.User) error {
	return row.Scan(&u.ID, &u.TenantID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.XPPoints, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

// GetByID retrieves a user by UUID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u := &model.User{}
	if err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id), u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	if err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email), u); err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (tenant_id, name, email, password_hash, role, is_active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 RETURNING id, xp_points, is_active, created_at, updated_at`,
		u.TenantID, u.Name, u.Email, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.XPPoints, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// List returns one page of a tenant's users and the total match count.
func (r *UserRepository) List(ctx context.Context, f model.UserFilter) ([]model.User, int, error) {
	where := ` WHERE tenant_id = $1`
	args := []any{f.TenantID}

	if f.Role != "" {
		args = append(args, f.Role)
		where += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d)", len(args), len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Update writes the mutable account fields. Email and XP are left alone.
func (r *UserRepository) Update(ctx context.Context, u *model.User) error {
	return r.pool.QueryRow(ctx,
		`UPDATE users
		 SET name = $2, password_hash = $3, role = $4, is_active = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		u.ID, u.Name, u.PasswordHash, u.Role, u.IsActive,
	).Scan(&u.UpdatedAt)
}

// IncrementXP atomically adds amount to a user's XP balance.
func (r *UserRepository) IncrementXP(ctx context.Context, userID uuid.UUID, amount int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET xp_points = xp_points + $1, updated_at = NOW() WHERE id = $2`,
		amount, userID)
	return err
}

// IncrementXPBatch applies many XP increments in one statement. userIDs must
// be distinct; callers aggregate duplicates first.
func (r *UserRepository) IncrementXPBatch(ctx context.Context, userIDs []uuid.UUID, amounts []int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users AS u
		 SET xp_points = u.xp_points + t.amount,
		     updated_at = NOW()
		 FROM (
			SELECT x.user_id, x.amount
			FROM UNNEST($1::uuid[], $2::int[]) AS x (user_id, amount)
		 ) AS t
		 WHERE u.id = t.user_id`,
		userIDs, amounts)
	return err
}

// Leaderboard returns the top active students of a tenant by XP.
func (r *UserRepository) Leaderboard(ctx context.Context, tenantID string, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, xp_points
		 FROM users
		 WHERE tenant_id = $1 AND role = $2 AND is_active = TRUE
		 ORDER BY xp_points DESC, name ASC
		 LIMIT $3`, tenantID, model.RoleStudent, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.XPPoints); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
