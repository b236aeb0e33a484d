package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction enumerates recorded actions.
type AuditAction string

const (
	AuditActionCreate     AuditAction = "CREATE"
	AuditActionUpdate     AuditAction = "UPDATE"
	AuditActionDelete     AuditAction = "DELETE"
	AuditActionLogin      AuditAction = "LOGIN"
	AuditActionExamStart  AuditAction = "EXAM_START"
	AuditActionExamSubmit AuditAction = "EXAM_SUBMIT"
	AuditActionPublish    AuditAction = "PUBLISH"
	AuditActionArchive    AuditAction = "ARCHIVE"
)

// AuditLog is one recorded action.
type AuditLog struct {
	ID        int64           `json:"id"`
	TenantID  string          `json:"tenant_id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	Action    AuditAction     `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entity_id"`
	Meta      json.RawMessage `json:"meta,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditFilter narrows an audit listing.
type AuditFilter struct {
	TenantID string
	UserID   *uuid.UUID
	Action   AuditAction
	Entity   string
	Limit    int
	Offset   int
}
