package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusActive    ExamStatus = "ACTIVE"
	ExamStatusCompleted ExamStatus = "COMPLETED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Startable reports whether candidates may begin attempts in this state.
func (s ExamStatus) Startable() bool {
	return s == ExamStatusPublished || s == ExamStatusActive
}

// Exam is one version of an exam definition.
type Exam struct {
	ID                    uuid.UUID   `json:"id"`
	TenantID              string      `json:"tenant_id"`
	Title                 string      `json:"title"`
	Description           string      `json:"description"`
	CategoryID            string      `json:"category_id"`
	Instructions          string      `json:"instructions"`
	DurationMinutes       int         `json:"duration_minutes"`
	TotalMarks            float64     `json:"total_marks"`
	PassingMarks          float64     `json:"passing_marks"`
	ShuffleQuestions      bool        `json:"shuffle_questions"`
	ShuffleOptions        bool        `json:"shuffle_options"`
	ShowResultImmediately bool        `json:"show_result_immediately"`
	AllowReview           bool        `json:"allow_review"`
	NegativeMarking       bool        `json:"negative_marking"`
	QuestionIDs           []uuid.UUID `json:"question_ids"`
	Status                ExamStatus  `json:"status"`
	Version               int         `json:"version"`
	ParentID              *uuid.UUID  `json:"parent_id,omitempty"`
	PublishedAt           *time.Time  `json:"published_at,omitempty"`
	ArchivedAt            *time.Time  `json:"archived_at,omitempty"`
	DeletedAt             *time.Time  `json:"-"`
	CreatedBy             uuid.UUID   `json:"created_by"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title                 string      `json:"title" binding:"required,min=3,max=255"`
	Description           string      `json:"description" binding:"omitempty,max=5000"`
	CategoryID            string      `json:"category_id" binding:"omitempty,max=64"`
	Instructions          string      `json:"instructions" binding:"omitempty,max=10000"`
	DurationMinutes       int         `json:"duration_minutes" binding:"required,min=1,max=480"`
	TotalMarks            float64     `json:"total_marks" binding:"min=0"`
	PassingMarks          float64     `json:"passing_marks" binding:"min=0"`
	ShuffleQuestions      bool        `json:"shuffle_questions"`
	ShuffleOptions        bool        `json:"shuffle_options"`
	ShowResultImmediately bool        `json:"show_result_immediately"`
	AllowReview           bool        `json:"allow_review"`
	NegativeMarking       bool        `json:"negative_marking"`
	QuestionIDs           []uuid.UUID `json:"question_ids" binding:"omitempty,max=500"`
}

// UpdateExamRequest is a partial update; nil fields are left unchanged.
// A non-nil QuestionIDs marks the update as structural.
type UpdateExamRequest struct {
	Title                 *string      `json:"title" binding:"omitempty,min=3,max=255"`
	Description           *string      `json:"description" binding:"omitempty,max=5000"`
	CategoryID            *string      `json:"category_id" binding:"omitempty,max=64"`
	Instructions          *string      `json:"instructions" binding:"omitempty,max=10000"`
	DurationMinutes       *int         `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	PassingMarks          *float64     `json:"passing_marks" binding:"omitempty,min=0"`
	ShuffleQuestions      *bool        `json:"shuffle_questions"`
	ShuffleOptions        *bool        `json:"shuffle_options"`
	ShowResultImmediately *bool        `json:"show_result_immediately"`
	AllowReview           *bool        `json:"allow_review"`
	NegativeMarking       *bool        `json:"negative_marking"`
	QuestionIDs           *[]uuid.UUID `json:"question_ids" binding:"omitempty,max=500"`
	Status                *ExamStatus  `json:"status" binding:"omitempty,oneof=ACTIVE COMPLETED"`
}

// UpdateExamResult is the outcome of an update: the record now holding the
// changes and whether it is a freshly forked version.
type UpdateExamResult struct {
	Exam   *Exam `json:"exam"`
	Forked bool  `json:"forked"`
}

// ExamFilter narrows an exam listing. A non-empty Statuses restricts results
// to any of those states.
type ExamFilter struct {
	TenantID   string
	Status     ExamStatus
	Statuses   []ExamStatus
	CategoryID string
	Limit      int
	Offset     int
}

// ExamPaper is the cached, answer-free question paper of an exam.
type ExamPaper struct {
	ExamID    uuid.UUID            `json:"exam_id"`
	Version   int                  `json:"version"`
	Questions []QuestionForStudent `json:"questions"`
}
