package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionTypeMCQSingle QuestionType = "MCQ_SINGLE"
	QuestionTypeMCQMulti  QuestionType = "MCQ_MULTI"
	QuestionTypeTrueFalse QuestionType = "TRUE_FALSE"
	QuestionTypeFillBlank QuestionType = "FILL_BLANK"
	QuestionTypeCaseBased QuestionType = "CASE_BASED"
)

// HasOptions reports whether questions of this type are answered by picking choices.
func (t QuestionType) HasOptions() bool {
	switch t {
	case QuestionTypeMCQSingle, QuestionTypeMCQMulti, QuestionTypeCaseBased:
		return true
	default:
		return false
	}
}

// Difficulty grades how hard a question is.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
	DifficultyExpert Difficulty = "EXPERT"
)

// Option is one selectable choice of a choice-type question.
type Option struct {
	ID   string `json:"id" binding:"required,max=20"`
	Text string `json:"text" binding:"required,max=1000"`
}

// Question is a single bank question, including its answer key.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	TenantID      string       `json:"tenant_id"`
	CategoryID    string       `json:"category_id"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	CaseContext   *string      `json:"case_context,omitempty"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer Answer       `json:"correct_answer"`
	Explanation   *string      `json:"explanation,omitempty"`
	Difficulty    Difficulty   `json:"difficulty"`
	Marks         int          `json:"marks"`
	NegativeMarks float64      `json:"negative_marks"`
	Tags          []string     `json:"tags"`
	IsActive      bool         `json:"is_active"`
	CreatedBy     uuid.UUID    `json:"created_by"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Sanitize strips the answer key so the question can be sent to a candidate.
func (q Question) Sanitize() QuestionForStudent {
	opts := make([]Option, len(q.Options))
	copy(opts, q.Options)
	return QuestionForStudent{
		ID:          q.ID,
		Type:        q.Type,
		Text:        q.Text,
		CaseContext: q.CaseContext,
		Options:     opts,
		Marks:       q.Marks,
	}
}

// QuestionForStudent is a question without correct answer and explanation.
type QuestionForStudent struct {
	ID          uuid.UUID    `json:"id"`
	Type        QuestionType `json:"type"`
	Text        string       `json:"text"`
	CaseContext *string      `json:"case_context,omitempty"`
	Options     []Option     `json:"options,omitempty"`
	Marks       int          `json:"marks"`
}

// CreateQuestionRequest is the payload for adding a question to the bank.
type CreateQuestionRequest struct {
	CategoryID    string       `json:"category_id" binding:"required,max=64"`
	Type          QuestionType `json:"type" binding:"required,oneof=MCQ_SINGLE MCQ_MULTI TRUE_FALSE FILL_BLANK CASE_BASED"`
	Text          string       `json:"text" binding:"required,min=1,max=5000"`
	CaseContext   *string      `json:"case_context" binding:"omitempty,max=10000"`
	Options       []Option     `json:"options" binding:"omitempty,dive"`
	CorrectAnswer Answer       `json:"correct_answer"`
	Explanation   *string      `json:"explanation" binding:"omitempty,max=5000"`
	Difficulty    Difficulty   `json:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD EXPERT"`
	Marks         int          `json:"marks" binding:"required,min=1,max=100"`
	NegativeMarks float64      `json:"negative_marks" binding:"min=0"`
	Tags          []string     `json:"tags" binding:"omitempty,max=20,dive,max=50"`
}

// BulkCreateQuestionsRequest is the payload for adding many questions at once.
type BulkCreateQuestionsRequest struct {
	Questions []CreateQuestionRequest `json:"questions" binding:"required,min=1,max=200,dive"`
}

// UpdateQuestionRequest is a partial update; nil fields are left unchanged.
type UpdateQuestionRequest struct {
	CategoryID    *string     `json:"category_id" binding:"omitempty,max=64"`
	Text          *string     `json:"text" binding:"omitempty,min=1,max=5000"`
	CaseContext   *string     `json:"case_context" binding:"omitempty,max=10000"`
	Options       []Option    `json:"options" binding:"omitempty,dive"`
	CorrectAnswer *Answer     `json:"correct_answer"`
	Explanation   *string     `json:"explanation" binding:"omitempty,max=5000"`
	Difficulty    *Difficulty `json:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD EXPERT"`
	Marks         *int        `json:"marks" binding:"omitempty,min=1,max=100"`
	NegativeMarks *float64    `json:"negative_marks" binding:"omitempty,min=0"`
	Tags          []string    `json:"tags" binding:"omitempty,max=20,dive,max=50"`
}

// QuestionFilter narrows a question listing.
type QuestionFilter struct {
	TenantID   string
	CategoryID string
	Difficulty Difficulty
	Type       QuestionType
	Search     string
	Limit      int
	Offset     int
}

// QuestionStats summarizes the active questions of a tenant.
type QuestionStats struct {
	Total        int                  `json:"total"`
	ByDifficulty map[Difficulty]int   `json:"by_difficulty"`
	ByType       map[QuestionType]int `json:"by_type"`
}
