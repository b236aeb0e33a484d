package grading

import (
	"strings"

	"github.com/learnhub/learnhub-backend/internal/model"
)

// Normalized is the canonical comparable form of an answer. Exactly one of
// Set and Text is meaningful, depending on the question type. Invalid marks
// a list of several values given for a single-value question.
type Normalized struct {
	Set     map[string]struct{}
	Text    string
	Invalid bool
}

// Normalize maps an answer to its comparable form: a set of trimmed choice ids
// for multi-select questions, a trimmed lower-cased string otherwise.
func Normalize(t model.QuestionType, a model.Answer) Normalized {
	if t == model.QuestionTypeMCQMulti {
		return Normalized{Set: toSet(a.Values())}
	}
	text, ok := normalizeText(a)
	return Normalized{Text: text, Invalid: !ok}
}

// normalizeText reduces a single-value answer to a trimmed lower-cased
// string. A one-element list counts as its element; a longer list is not a
// single value and reports false.
func normalizeText(a model.Answer) (string, bool) {
	var s string
	switch a.Kind {
	case model.AnswerKindScalar:
		s = a.Scalar
	case model.AnswerKindSet:
		switch len(a.Set) {
		case 0:
		case 1:
			s = a.Set[0]
		default:
			return "", false
		}
	}
	return strings.ToLower(strings.TrimSpace(s)), true
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[strings.TrimSpace(s)] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
