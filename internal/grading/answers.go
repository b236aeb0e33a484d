package grading

import (
	"github.com/google/uuid"

	"github.com/learnhub/learnhub-backend/internal/model"
)

// LatestAnswers keeps, for every question in questionIDs, the last entry
// submitted for it, in the order those last entries appear. Answers to other
// questions are dropped. Empty answers are kept so a later clear overrides an
// earlier choice.
func LatestAnswers(questionIDs []uuid.UUID, answers []model.SubmittedAnswer) []model.SubmittedAnswer {
	inSet := make(map[uuid.UUID]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		inSet[id] = struct{}{}
	}

	last := make(map[uuid.UUID]int, len(answers))
	for i, a := range answers {
		if _, ok := inSet[a.QuestionID]; ok {
			last[a.QuestionID] = i
		}
	}

	out := make([]model.SubmittedAnswer, 0, len(last))
	for i, a := range answers {
		if idx, ok := last[a.QuestionID]; ok && idx == i {
			out = append(out, a)
		}
	}
	return out
}
