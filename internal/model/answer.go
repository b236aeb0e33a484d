package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// AnswerKind tags which arm of Answer is populated.
type AnswerKind string

const (
	AnswerKindNone   AnswerKind = ""
	AnswerKindScalar AnswerKind = "scalar"
	AnswerKindSet    AnswerKind = "set"
)

// Answer is either a single value (choice id, true/false, free text) or a set
// of choice ids. It is used both for a question's canonical answer and for a
// submitted response.
//
// On the wire a scalar is a JSON string (booleans and numbers are accepted and
// kept in their literal form) and a set is a JSON array of strings.
type Answer struct {
	Kind   AnswerKind
	Scalar string
	Set    []string
}

// ScalarAnswer builds a single-value answer.
func ScalarAnswer(v string) Answer {
	return Answer{Kind: AnswerKindScalar, Scalar: v}
}

// SetAnswer builds a multi-value answer.
func SetAnswer(vs ...string) Answer {
	return Answer{Kind: AnswerKindSet, Set: vs}
}

// IsZero reports whether no answer was given.
func (a Answer) IsZero() bool {
	return a.Kind == AnswerKindNone
}

// Values returns the answer as a list: a scalar becomes a one-element list.
func (a Answer) Values() []string {
	switch a.Kind {
	case AnswerKindScalar:
		return []string{a.Scalar}
	case AnswerKindSet:
		return a.Set
	default:
		return nil
	}
}

// String renders the answer for logs and scalar comparison.
func (a Answer) String() string {
	switch a.Kind {
	case AnswerKindScalar:
		return a.Scalar
	case AnswerKindSet:
		return fmt.Sprint(a.Set)
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerKindScalar:
		return json.Marshal(a.Scalar)
	case AnswerKindSet:
		if a.Set == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.Set)
	default:
		return []byte("null"), nil
	}
}

var errUnsupportedAnswer = errors.New("answer must be a string, number, boolean or array of strings")

// UnmarshalJSON implements json.Unmarshaler.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Answer{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = ScalarAnswer(s)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		set := make([]string, 0, len(raw))
		for _, item := range raw {
			var elem Answer
			if err := elem.UnmarshalJSON(item); err != nil {
				return err
			}
			if elem.Kind != AnswerKindScalar {
				return errUnsupportedAnswer
			}
			set = append(set, elem.Scalar)
		}
		*a = SetAnswer(set...)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*a = ScalarAnswer(strconv.FormatBool(b))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return errUnsupportedAnswer
		}
		*a = ScalarAnswer(n.String())
	}
	return nil
}
