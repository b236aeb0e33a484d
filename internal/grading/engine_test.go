package grading

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/learnhub/learnhub-backend/internal/model"
)

func q(typ model.QuestionType, key model.Answer, marks int, neg float64) model.Question {
	return model.Question{
		ID:            uuid.New(),
		Type:          typ,
		Text:          "question " + string(typ),
		CorrectAnswer: key,
		Marks:         marks,
		NegativeMarks: neg,
	}
}

func keyed(qs ...model.Question) ([]uuid.UUID, map[uuid.UUID]model.Question) {
	ids := make([]uuid.UUID, 0, len(qs))
	m := make(map[uuid.UUID]model.Question, len(qs))
	for _, x := range qs {
		ids = append(ids, x.ID)
		m[x.ID] = x
	}
	return ids, m
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestIsCorrectMultiSelect(t *testing.T) {
	question := q(model.QuestionTypeMCQMulti, model.SetAnswer("a", "c"), 2, 0)

	tests := []struct {
		name      string
		submitted model.Answer
		want      bool
	}{
		{"same order", model.SetAnswer("a", "c"), true},
		{"reordered", model.SetAnswer("c", "a"), true},
		{"duplicates ignored", model.SetAnswer("a", "c", "a"), true},
		{"subset", model.SetAnswer("a"), false},
		{"superset", model.SetAnswer("a", "c", "d"), false},
		{"scalar wrapped", model.ScalarAnswer("a"), false},
		{"empty", model.SetAnswer(), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCorrect(question, tc.submitted); got != tc.want {
				t.Errorf("IsCorrect(%v) = %v, want %v", tc.submitted, got, tc.want)
			}
		})
	}
}

func TestIsCorrectScalarKeyForMultiSelect(t *testing.T) {
	question := q(model.QuestionTypeMCQMulti, model.ScalarAnswer("b"), 1, 0)
	if !IsCorrect(question, model.SetAnswer("b")) {
		t.Error("scalar key must match a singleton set")
	}
	if !IsCorrect(question, model.ScalarAnswer("b")) {
		t.Error("scalar key must match a scalar submission")
	}
}

func TestIsCorrectText(t *testing.T) {
	tests := []struct {
		name      string
		typ       model.QuestionType
		key       model.Answer
		submitted model.Answer
		want      bool
	}{
		{"fill blank case and spaces", model.QuestionTypeFillBlank, model.ScalarAnswer("Speaking"), model.ScalarAnswer(" speaking "), true},
		{"fill blank different word", model.QuestionTypeFillBlank, model.ScalarAnswer("Speaking"), model.ScalarAnswer("spoken"), false},
		{"single choice", model.QuestionTypeMCQSingle, model.ScalarAnswer("a"), model.ScalarAnswer("A"), true},
		{"single choice wrong", model.QuestionTypeMCQSingle, model.ScalarAnswer("a"), model.ScalarAnswer("b"), false},
		{"true false", model.QuestionTypeTrueFalse, model.ScalarAnswer("True"), model.ScalarAnswer("true"), true},
		{"case based singleton list", model.QuestionTypeCaseBased, model.ScalarAnswer("c"), model.SetAnswer("c"), true},
		{"single choice list of two", model.QuestionTypeMCQSingle, model.ScalarAnswer("a"), model.SetAnswer("a", "b"), false},
		{"list is not joined into text", model.QuestionTypeFillBlank, model.ScalarAnswer("a,b"), model.SetAnswer("a", "b"), false},
		{"list key never matches", model.QuestionTypeFillBlank, model.SetAnswer("a", "b"), model.ScalarAnswer("a,b"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCorrect(q(tc.typ, tc.key, 1, 0), tc.submitted); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluateScoreFloor(t *testing.T) {
	q1 := q(model.QuestionTypeMCQSingle, model.ScalarAnswer("a"), 5, 0)
	q2 := q(model.QuestionTypeMCQSingle, model.ScalarAnswer("b"), 3, 10)
	ids, key := keyed(q1, q2)

	out := Evaluate(ids, key, []model.SubmittedAnswer{
		{QuestionID: q1.ID, Answer: model.ScalarAnswer("a")},
		{QuestionID: q2.ID, Answer: model.ScalarAnswer("c")},
	}, Config{NegativeMarking: true, TotalMarks: 8, PassingMarks: 4})

	if !almostEqual(out.RawScore, -5) {
		t.Errorf("raw score = %v, want -5", out.RawScore)
	}
	if out.Score != 0 {
		t.Errorf("score = %v, want 0", out.Score)
	}
	if out.Percentage != 0 || out.Passed {
		t.Errorf("percentage = %v passed = %v", out.Percentage, out.Passed)
	}
}

func TestEvaluateNegativeMarkingDisabled(t *testing.T) {
	q1 := q(model.QuestionTypeMCQSingle, model.ScalarAnswer("a"), 2, 1)
	ids, key := keyed(q1)

	out := Evaluate(ids, key, []model.SubmittedAnswer{
		{QuestionID: q1.ID, Answer: model.ScalarAnswer("b")},
	}, Config{TotalMarks: 2})

	if out.RawScore != 0 || out.IncorrectCount != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Results[0].MarksObtained != 0 {
		t.Errorf("marks obtained = %v, want 0", out.Results[0].MarksObtained)
	}
}

func TestEvaluateUnanswered(t *testing.T) {
	var qs []model.Question
	for i := 0; i < 5; i++ {
		qs = append(qs, q(model.QuestionTypeMCQSingle, model.ScalarAnswer("a"), 1, 0))
	}
	ids, key := keyed(qs...)

	out := Evaluate(ids, key, []model.SubmittedAnswer{
		{QuestionID: qs[0].ID, Answer: model.ScalarAnswer("a")},
		{QuestionID: qs[1].ID, Answer: model.ScalarAnswer("b")},
		{QuestionID: qs[2].ID, Answer: model.ScalarAnswer("a")},
		{QuestionID: qs[2].ID, Answer: model.ScalarAnswer("a")},
		{QuestionID: uuid.New(), Answer: model.ScalarAnswer("a")},
	}, Config{TotalMarks: 5})

	if out.UnansweredCount != 2 {
		t.Errorf("unanswered = %d, want 2", out.UnansweredCount)
	}
	if out.CorrectCount != 2 || out.IncorrectCount != 1 {
		t.Errorf("correct = %d incorrect = %d", out.CorrectCount, out.IncorrectCount)
	}
	if len(out.Results) != 3 {
		t.Errorf("results = %d, want 3", len(out.Results))
	}
}

func TestEvaluateForeignQuestionIgnored(t *testing.T) {
	q1 := q(model.QuestionTypeMCQSingle, model.ScalarAnswer("a"), 1, 5)
	ids, key := keyed(q1)

	out := Evaluate(ids, key, []model.SubmittedAnswer{
		{QuestionID: uuid.New(), Answer: model.ScalarAnswer("zzz")},
	}, Config{NegativeMarking: true, TotalMarks: 1})

	if out.RawScore != 0 || out.IncorrectCount != 0 || out.UnansweredCount != 1 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestEvaluateLastAnswerWins(t *testing.T) {
	q1 := q(model.QuestionTypeMCQSingle, model.ScalarAnswer("a"), 3, 0)
	ids, key := keyed(q1)

	out := Evaluate(ids, key, []model.SubmittedAnswer{
		{QuestionID: q1.ID, Answer: model.ScalarAnswer("b")},
		{QuestionID: q1.ID, Answer: model.ScalarAnswer("a")},
	}, Config{TotalMarks: 3})

	if out.Score != 3 || out.CorrectCount != 1 || out.IncorrectCount != 0 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestEvaluatePassBoundary(t *testing.T) {
	tests := []struct {
		marks int
		want  bool
	}{
		{40, true},
		{39, false},
		{41, true},
	}
	for _, tc := range tests {
		question := q(model.QuestionTypeFillBlank, model.ScalarAnswer("x"), tc.marks, 0)
		ids, key := keyed(question)
		out := Evaluate(ids, key, []model.SubmittedAnswer{
			{QuestionID: question.ID, Answer: model.ScalarAnswer("x")},
		}, Config{TotalMarks: 100, PassingMarks: 40})
		if out.Passed != tc.want {
			t.Errorf("score %d: passed = %v, want %v", tc.marks, out.Passed, tc.want)
		}
	}
}

func TestEvaluateEndToEndScenario(t *testing.T) {
	q1 := q(model.QuestionTypeMCQSingle, model.ScalarAnswer("a"), 1, 0)
	q2 := q(model.QuestionTypeMCQMulti, model.SetAnswer("a", "c"), 2, 0.5)
	ids, key := keyed(q1, q2)

	out := Evaluate(ids, key, []model.SubmittedAnswer{
		{QuestionID: q1.ID, Answer: model.ScalarAnswer("a")},
		{QuestionID: q2.ID, Answer: model.SetAnswer("a")},
	}, Config{NegativeMarking: true, TotalMarks: 10, PassingMarks: 6})

	if !almostEqual(out.Score, 0.5) {
		t.Errorf("score = %v, want 0.5", out.Score)
	}
	if !almostEqual(out.Percentage, 5.0) {
		t.Errorf("percentage = %v, want 5.0", out.Percentage)
	}
	if out.Passed {
		t.Error("passed = true, want false")
	}
	if out.Results[0].MarksObtained != 1 || out.Results[1].MarksObtained != -0.5 {
		t.Errorf("marks obtained = %v, %v", out.Results[0].MarksObtained, out.Results[1].MarksObtained)
	}
	if XP(out.Score, out.Passed) != 5 {
		t.Errorf("xp = %d, want 5", XP(out.Score, out.Passed))
	}
}

func TestEvaluateZeroTotalMarks(t *testing.T) {
	out := Evaluate(nil, nil, nil, Config{})
	if out.Percentage != 0 || !out.Passed {
		t.Errorf("outcome = %+v", out)
	}
}

func TestXP(t *testing.T) {
	tests := []struct {
		score  float64
		passed bool
		want   int
	}{
		{0, false, 0},
		{7, true, 120},
		{2.75, false, 27},
	}
	for _, tc := range tests {
		if got := XP(tc.score, tc.passed); got != tc.want {
			t.Errorf("XP(%v, %v) = %d, want %d", tc.score, tc.passed, got, tc.want)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(33.33333); got != 33.33 {
		t.Errorf("Round2 = %v", got)
	}
}

func TestLatestAnswers(t *testing.T) {
	q1, q2, foreign := uuid.New(), uuid.New(), uuid.New()

	got := LatestAnswers([]uuid.UUID{q1, q2}, []model.SubmittedAnswer{
		{QuestionID: q1, Answer: model.ScalarAnswer("b")},
		{QuestionID: foreign, Answer: model.ScalarAnswer("zzz")},
		{QuestionID: q2, Answer: model.ScalarAnswer("x")},
		{QuestionID: q1, Answer: model.ScalarAnswer("a")},
	})

	if len(got) != 2 {
		t.Fatalf("kept %d answers, want 2", len(got))
	}
	if got[0].QuestionID != q2 || got[1].QuestionID != q1 || got[1].Answer.Scalar != "a" {
		t.Errorf("kept = %+v", got)
	}
}

func TestEvaluateClearedAnswerIsUnanswered(t *testing.T) {
	q1 := q(model.QuestionTypeMCQSingle, model.ScalarAnswer("a"), 2, 0)
	ids, key := keyed(q1)

	out := Evaluate(ids, key, []model.SubmittedAnswer{
		{QuestionID: q1.ID, Answer: model.ScalarAnswer("a")},
		{QuestionID: q1.ID},
	}, Config{TotalMarks: 2})

	if out.Score != 0 || out.CorrectCount != 0 || out.UnansweredCount != 1 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestNormalizeSingleValue(t *testing.T) {
	tests := []struct {
		name    string
		a       model.Answer
		text    string
		invalid bool
	}{
		{"scalar", model.ScalarAnswer("  Paris "), "paris", false},
		{"singleton list", model.SetAnswer(" B "), "b", false},
		{"empty list", model.SetAnswer(), "", false},
		{"list of two", model.SetAnswer("a", "b"), "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(model.QuestionTypeFillBlank, tc.a)
			if got.Text != tc.text || got.Invalid != tc.invalid {
				t.Errorf("Normalize(%v) = %+v, want text %q invalid %v", tc.a, got, tc.text, tc.invalid)
			}
		})
	}
}
