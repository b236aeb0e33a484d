package model

import "github.com/google/uuid"

// Role is a user's authorization level within a tenant.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

var roleRank = map[Role]int{
	RoleStudent: 1,
	RoleTeacher: 2,
	RoleManager: 3,
	RoleAdmin:   4,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

// Principal identifies the authenticated caller of an operation.
type Principal struct {
	UserID   uuid.UUID
	TenantID string
	Role     Role
}
