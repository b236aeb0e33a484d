// Package grading evaluates submitted answers against an answer key. It is
// pure: no I/O, no clock, no randomness.
package grading

import (
	"math"

	"github.com/google/uuid"

	"github.com/learnhub/learnhub-backend/internal/model"
)

// Matcher decides whether a submitted answer matches a question's key.
type Matcher interface {
	Match(key, submitted model.Answer) bool
}

type setMatcher struct{}

func (setMatcher) Match(key, submitted model.Answer) bool {
	k := Normalize(model.QuestionTypeMCQMulti, key)
	s := Normalize(model.QuestionTypeMCQMulti, submitted)
	return setEqual(k.Set, s.Set)
}

type textMatcher struct{}

func (textMatcher) Match(key, submitted model.Answer) bool {
	k, ok := normalizeText(key)
	if !ok {
		return false
	}
	s, ok := normalizeText(submitted)
	return ok && k == s
}

var matchers = map[model.QuestionType]Matcher{
	model.QuestionTypeMCQMulti:  setMatcher{},
	model.QuestionTypeMCQSingle: textMatcher{},
	model.QuestionTypeTrueFalse: textMatcher{},
	model.QuestionTypeFillBlank: textMatcher{},
	model.QuestionTypeCaseBased: textMatcher{},
}

// IsCorrect reports whether submitted is an acceptable answer to q.
// Unknown types fall back to text comparison.
func IsCorrect(q model.Question, submitted model.Answer) bool {
	m, ok := matchers[q.Type]
	if !ok {
		m = textMatcher{}
	}
	return m.Match(q.CorrectAnswer, submitted)
}

// Config is the exam-level grading configuration.
type Config struct {
	NegativeMarking bool
	TotalMarks      float64
	PassingMarks    float64
}

// Outcome is the result of evaluating one submission.
type Outcome struct {
	// RawScore is the running total before the zero floor.
	RawScore        float64
	Score           float64
	Percentage      float64
	Passed          bool
	CorrectCount    int
	IncorrectCount  int
	UnansweredCount int
	Results         []model.QuestionResult
}

// Evaluate scores answers against the question set questionIDs. questions is
// the answer key keyed by id; ids missing from it are treated as not part of
// the exam. Answers are reduced with LatestAnswers first, so answers for
// questions outside the set earn nothing and cost nothing, and the last entry
// per question counts. A last entry that is empty leaves the question
// unanswered.
func Evaluate(questionIDs []uuid.UUID, questions map[uuid.UUID]model.Question, answers []model.SubmittedAnswer, cfg Config) Outcome {
	inExam := make([]uuid.UUID, 0, len(questionIDs))
	for _, id := range questionIDs {
		if _, ok := questions[id]; ok {
			inExam = append(inExam, id)
		}
	}

	var out Outcome
	answered := 0
	for _, a := range LatestAnswers(inExam, answers) {
		if a.Answer.IsZero() {
			continue
		}
		answered++
		q := questions[a.QuestionID]

		correct := IsCorrect(q, a.Answer)
		var obtained float64
		if correct {
			obtained = float64(q.Marks)
			out.CorrectCount++
		} else {
			if cfg.NegativeMarking {
				obtained = -q.NegativeMarks
			}
			out.IncorrectCount++
		}
		out.RawScore += obtained

		out.Results = append(out.Results, model.QuestionResult{
			QuestionID:       q.ID,
			QuestionText:     q.Text,
			QuestionType:     q.Type,
			SubmittedAnswer:  a.Answer,
			CorrectAnswer:    q.CorrectAnswer,
			IsCorrect:        correct,
			Marks:            q.Marks,
			MarksObtained:    obtained,
			Explanation:      q.Explanation,
			TimeSpentSeconds: a.TimeSpentSeconds,
			Flagged:          a.Flagged,
		})
	}

	out.UnansweredCount = len(questionIDs) - answered
	if out.UnansweredCount < 0 {
		out.UnansweredCount = 0
	}
	out.Score = math.Max(0, out.RawScore)
	if cfg.TotalMarks > 0 {
		out.Percentage = out.Score / cfg.TotalMarks * 100
	}
	out.Passed = out.Score >= cfg.PassingMarks
	return out
}

// XP is the experience awarded for a submission.
func XP(score float64, passed bool) int {
	xp := int(score * 10)
	if passed {
		xp += 50
	}
	return xp
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
