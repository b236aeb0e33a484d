package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an account within a tenant.
type User struct {
	ID           uuid.UUID `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	XPPoints     int       `json:"xp_points"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest is the payload for self-registration.
type RegisterRequest struct {
	TenantID string `json:"tenant_id" binding:"required,min=1,max=64,slug"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after successful login or registration. The
// refresh token outlives the access token and shares its session.
type LoginResponse struct {
	Token            string    `json:"token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	User             User      `json:"user"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshResponse carries a freshly issued access token.
type RefreshResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserFilter narrows a user listing.
type UserFilter struct {
	TenantID string
	Role     Role
	Search   string
	IsActive *bool
	Limit    int
	Offset   int
}

// CreateUserRequest is the payload for an admin creating an account.
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Role     Role   `json:"role" binding:"required,oneof=STUDENT TEACHER MANAGER ADMIN"`
}

// UpdateUserRequest is a partial account edit. Role and IsActive are
// reserved for admins; email is immutable.
type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=2,max=100"`
	Password *string `json:"password" binding:"omitempty,min=8,max=128"`
	Role     *Role   `json:"role" binding:"omitempty,oneof=STUDENT TEACHER MANAGER ADMIN"`
	IsActive *bool   `json:"is_active"`
}

// LeaderboardEntry is one ranked row of the XP leaderboard.
type LeaderboardEntry struct {
	Rank     int       `json:"rank"`
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	XPPoints int       `json:"xp_points"`
}

// XPReward is a queued XP increment produced by an evaluated attempt.
type XPReward struct {
	UserID    uuid.UUID `json:"user_id"`
	AttemptID uuid.UUID `json:"attempt_id"`
	Amount    int       `json:"amount"`
}
