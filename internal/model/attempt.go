package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states. EVALUATED and EXPIRED are terminal.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusEvaluated  AttemptStatus = "EVALUATED"
	AttemptStatusExpired    AttemptStatus = "EXPIRED"
)

// SubmittedAnswer is a candidate's response to one question.
type SubmittedAnswer struct {
	QuestionID       uuid.UUID `json:"question_id" binding:"required"`
	Answer           Answer    `json:"answer"`
	TimeSpentSeconds int       `json:"time_spent_seconds" binding:"min=0"`
	Flagged          bool      `json:"flagged"`
}

// QuestionResult is the per-question breakdown of an evaluated attempt.
type QuestionResult struct {
	QuestionID       uuid.UUID    `json:"question_id"`
	QuestionText     string       `json:"question_text"`
	QuestionType     QuestionType `json:"question_type"`
	SubmittedAnswer  Answer       `json:"submitted_answer"`
	CorrectAnswer    Answer       `json:"correct_answer"`
	IsCorrect        bool         `json:"is_correct"`
	Marks            int          `json:"marks"`
	MarksObtained    float64      `json:"marks_obtained"`
	Explanation      *string      `json:"explanation,omitempty"`
	TimeSpentSeconds int          `json:"time_spent_seconds"`
	Flagged          bool         `json:"flagged"`
}

// Attempt is one user's pass at a specific exam version. QuestionIDs is the
// exam's question set frozen at start and is what gets graded; QuestionOrder
// is the presentation order handed to the candidate.
type Attempt struct {
	ID            uuid.UUID         `json:"id"`
	TenantID      string            `json:"tenant_id"`
	ExamID        uuid.UUID         `json:"exam_id"`
	ExamVersion   int               `json:"exam_version"`
	UserID        uuid.UUID         `json:"user_id"`
	Status        AttemptStatus     `json:"status"`
	QuestionIDs   []uuid.UUID       `json:"question_ids"`
	QuestionOrder []uuid.UUID       `json:"question_order"`
	Answers       []SubmittedAnswer `json:"answers"`
	StartedAt     time.Time         `json:"started_at"`
	LastSyncAt    *time.Time        `json:"last_sync_at,omitempty"`
	SubmittedAt   *time.Time        `json:"submitted_at,omitempty"`

	Score            *float64         `json:"score,omitempty"`
	CorrectCount     int              `json:"correct_count"`
	IncorrectCount   int              `json:"incorrect_count"`
	UnansweredCount  int              `json:"unanswered_count"`
	Percentage       *float64         `json:"percentage,omitempty"`
	Passed           *bool            `json:"passed,omitempty"`
	TimeTakenSeconds *int             `json:"time_taken_seconds,omitempty"`
	XPEarned         int              `json:"xp_earned"`
	DetailedResults  []QuestionResult `json:"detailed_results,omitempty"`
}

// AttemptSession is returned by start and resume.
type AttemptSession struct {
	AttemptID       uuid.UUID            `json:"attempt_id"`
	ExamID          uuid.UUID            `json:"exam_id"`
	ExamVersion     int                  `json:"exam_version"`
	Title           string               `json:"title"`
	Instructions    string               `json:"instructions"`
	DurationMinutes int                  `json:"duration_minutes"`
	TotalMarks      float64              `json:"total_marks"`
	Questions       []QuestionForStudent `json:"questions"`
	TimeRemaining   int                  `json:"time_remaining"`
	StartedAt       time.Time            `json:"started_at"`
	SavedAnswers    []SubmittedAnswer    `json:"saved_answers"`
	Resumed         bool                 `json:"resumed"`
}

// SyncAck acknowledges a durable answer save.
type SyncAck struct {
	AttemptID   uuid.UUID `json:"attempt_id"`
	SyncedCount int       `json:"synced_count"`
	SyncedAt    time.Time `json:"synced_at"`
}

// AttemptResult is the summary returned on submission. DetailedResults is nil
// unless the exam shows results immediately.
type AttemptResult struct {
	AttemptID        uuid.UUID        `json:"attempt_id"`
	ExamID           uuid.UUID        `json:"exam_id"`
	Score            float64          `json:"score"`
	TotalMarks       float64          `json:"total_marks"`
	PassingMarks     float64          `json:"passing_marks"`
	Percentage       float64          `json:"percentage"`
	Passed           bool             `json:"passed"`
	CorrectCount     int              `json:"correct_count"`
	IncorrectCount   int              `json:"incorrect_count"`
	UnansweredCount  int              `json:"unanswered_count"`
	TimeTakenSeconds int              `json:"time_taken_seconds"`
	XPEarned         int              `json:"xp_earned"`
	SubmittedAt      time.Time        `json:"submitted_at"`
	DetailedResults  []QuestionResult `json:"detailed_results"`
}

// AnswersRequest is the payload of sync and submit.
type AnswersRequest struct {
	Answers []SubmittedAnswer `json:"answers" binding:"omitempty,max=500,dive"`
}

// AttemptFilter narrows an attempt listing.
type AttemptFilter struct {
	UserID uuid.UUID
	ExamID *uuid.UUID
	Limit  int
	Offset int
}
