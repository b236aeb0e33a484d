package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/model"
)

type examFixture struct {
	svc       *ExamService
	exams     *fakeExams
	questions *fakeQuestions
	papers    *fakePapers
	audit     *fakeAudit
	qs        []model.Question
	teacher   model.Principal
}

func newExamFixture(t *testing.T) *examFixture {
	t.Helper()

	var qs []model.Question
	for i, marks := range []int{1, 2, 3} {
		qs = append(qs, model.Question{
			ID:            uuid.New(),
			TenantID:      testTenant,
			Type:          model.QuestionTypeFillBlank,
			Text:          "q" + string(rune('1'+i)),
			CorrectAnswer: model.ScalarAnswer("x"),
			Marks:         marks,
			IsActive:      true,
		})
	}

	f := &examFixture{
		exams:     newFakeExams(),
		questions: newFakeQuestions(qs...),
		papers:    newFakePapers(),
		audit:     &fakeAudit{},
		qs:        qs,
		teacher:   model.Principal{UserID: uuid.New(), TenantID: testTenant, Role: model.RoleTeacher},
	}
	f.svc = NewExamService(f.exams, f.questions, f.papers, f.audit, zerolog.Nop())
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

func (f *examFixture) create(t *testing.T, ids ...uuid.UUID) *model.Exam {
	t.Helper()
	exam, err := f.svc.Create(context.Background(), &model.CreateExamRequest{
		Title:           "Algebra",
		DurationMinutes: 45,
		TotalMarks:      50,
		PassingMarks:    3,
		QuestionIDs:     ids,
	}, f.teacher)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return exam
}

func TestCreateDerivesTotalMarks(t *testing.T) {
	f := newExamFixture(t)

	exam := f.create(t, f.qs[0].ID, f.qs[1].ID, f.qs[0].ID)

	if exam.TotalMarks != 3 {
		t.Errorf("TotalMarks = %v, want 3", exam.TotalMarks)
	}
	if len(exam.QuestionIDs) != 2 {
		t.Errorf("duplicates kept: %v", exam.QuestionIDs)
	}
	if exam.Status != model.ExamStatusDraft || exam.Version != 1 {
		t.Errorf("status/version = %s/%d", exam.Status, exam.Version)
	}

	empty := f.create(t)
	if empty.TotalMarks != 50 {
		t.Errorf("empty exam TotalMarks = %v, want requested 50", empty.TotalMarks)
	}
}

func TestCreateRejectsUnknownQuestions(t *testing.T) {
	f := newExamFixture(t)

	foreign := model.Question{ID: uuid.New(), TenantID: "globex", Marks: 1, IsActive: true}
	f.questions.byID[foreign.ID] = foreign

	for name, id := range map[string]uuid.UUID{"missing": uuid.New(), "other tenant": foreign.ID} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), &model.CreateExamRequest{
				Title: "Bad", DurationMinutes: 10, QuestionIDs: []uuid.UUID{f.qs[0].ID, id},
			}, f.teacher)
			if !errors.Is(err, ErrUnknownQuestions) {
				t.Fatalf("err = %v, want ErrUnknownQuestions", err)
			}
		})
	}
}

func TestUpdateDraftInPlace(t *testing.T) {
	f := newExamFixture(t)
	ctx := context.Background()
	exam := f.create(t, f.qs[0].ID)

	ids := []uuid.UUID{f.qs[1].ID, f.qs[2].ID}
	title := "Algebra II"
	res, err := f.svc.Update(ctx, exam.ID, &model.UpdateExamRequest{Title: &title, QuestionIDs: &ids}, f.teacher)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if res.Forked {
		t.Error("draft update forked")
	}
	if res.Exam.ID != exam.ID {
		t.Error("draft update changed identity")
	}
	stored := f.exams.get(exam.ID)
	if stored.Title != title || stored.TotalMarks != 5 || stored.Version != 1 {
		t.Errorf("stored = %q / %v / v%d", stored.Title, stored.TotalMarks, stored.Version)
	}
}

func TestUpdatePublishedQuestionSetForks(t *testing.T) {
	f := newExamFixture(t)
	ctx := context.Background()
	exam := f.create(t, f.qs[0].ID)
	if _, err := f.svc.Publish(ctx, exam.ID, f.teacher); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	ids := []uuid.UUID{f.qs[0].ID, f.qs[2].ID}
	res, err := f.svc.Update(ctx, exam.ID, &model.UpdateExamRequest{QuestionIDs: &ids}, f.teacher)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if !res.Forked {
		t.Fatal("structural edit of a published exam did not fork")
	}
	fork := res.Exam
	if fork.ID == exam.ID {
		t.Error("fork reused the original id")
	}
	if fork.Version != 2 || fork.Status != model.ExamStatusDraft {
		t.Errorf("fork version/status = %d/%s, want 2/DRAFT", fork.Version, fork.Status)
	}
	if fork.ParentID == nil || *fork.ParentID != exam.ID {
		t.Errorf("fork ParentID = %v", fork.ParentID)
	}
	if fork.TotalMarks != 4 {
		t.Errorf("fork TotalMarks = %v, want 4", fork.TotalMarks)
	}
	if fork.PublishedAt != nil {
		t.Error("fork carries the original publish stamp")
	}

	original := f.exams.get(exam.ID)
	if original.Version != 1 || original.Status != model.ExamStatusPublished {
		t.Errorf("original changed to v%d %s", original.Version, original.Status)
	}
	if len(original.QuestionIDs) != 1 || original.QuestionIDs[0] != f.qs[0].ID {
		t.Errorf("original question ids changed: %v", original.QuestionIDs)
	}
	if p, _ := f.papers.Get(ctx, exam.ID); p == nil {
		t.Error("fork evicted the original's paper")
	}
}

func TestUpdatePublishedMetadataInPlace(t *testing.T) {
	f := newExamFixture(t)
	ctx := context.Background()
	exam := f.create(t, f.qs[0].ID)
	if _, err := f.svc.Publish(ctx, exam.ID, f.teacher); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	instructions := "No calculators"
	res, err := f.svc.Update(ctx, exam.ID, &model.UpdateExamRequest{Instructions: &instructions}, f.teacher)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Forked || res.Exam.ID != exam.ID {
		t.Error("non-structural edit forked")
	}
	if got := f.exams.get(exam.ID); got.Instructions != instructions || got.Status != model.ExamStatusPublished {
		t.Errorf("stored = %q %s", got.Instructions, got.Status)
	}
	if len(f.papers.invalidated) != 1 || f.papers.invalidated[0] != exam.ID {
		t.Errorf("invalidated = %v", f.papers.invalidated)
	}
}

func TestUpdateCannotActivateEmptyExam(t *testing.T) {
	f := newExamFixture(t)
	exam := f.create(t)

	status := model.ExamStatusActive
	_, err := f.svc.Update(context.Background(), exam.ID, &model.UpdateExamRequest{Status: &status}, f.teacher)
	if !errors.Is(err, ErrEmptyExam) {
		t.Fatalf("err = %v, want ErrEmptyExam", err)
	}
}

func TestPublishGuard(t *testing.T) {
	f := newExamFixture(t)
	ctx := context.Background()

	empty := f.create(t)
	if _, err := f.svc.Publish(ctx, empty.ID, f.teacher); !errors.Is(err, ErrEmptyExam) {
		t.Fatalf("err = %v, want ErrEmptyExam", err)
	}
	if got := f.exams.get(empty.ID); got.Status != model.ExamStatusDraft || got.PublishedAt != nil {
		t.Errorf("empty exam changed to %s", got.Status)
	}

	exam := f.create(t, f.qs[0].ID, f.qs[1].ID)
	published, err := f.svc.Publish(ctx, exam.ID, f.teacher)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if published.Status != model.ExamStatusPublished || published.PublishedAt == nil {
		t.Errorf("published = %s %v", published.Status, published.PublishedAt)
	}
	paper, _ := f.papers.Get(ctx, exam.ID)
	if paper == nil || len(paper.Questions) != 2 {
		t.Fatalf("paper = %+v", paper)
	}
}

func TestArchiveFromAnyState(t *testing.T) {
	for _, status := range []model.ExamStatus{
		model.ExamStatusDraft, model.ExamStatusPublished, model.ExamStatusActive,
		model.ExamStatusCompleted, model.ExamStatusArchived,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newExamFixture(t)
			exam := f.create(t, f.qs[0].ID)
			e := f.exams.get(exam.ID)
			e.Status = status
			f.exams.byID[e.ID] = e

			archived, err := f.svc.Archive(context.Background(), exam.ID, f.teacher)
			if err != nil {
				t.Fatalf("Archive: %v", err)
			}
			if archived.Status != model.ExamStatusArchived || archived.ArchivedAt == nil {
				t.Errorf("archived = %s %v", archived.Status, archived.ArchivedAt)
			}
		})
	}
}

func TestDeleteHidesExamButKeepsVersion(t *testing.T) {
	f := newExamFixture(t)
	ctx := context.Background()
	exam := f.create(t, f.qs[0].ID)

	if err := f.svc.Delete(ctx, exam.ID, f.teacher); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, exam.ID, f.teacher); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
	if _, err := f.exams.GetVersion(ctx, exam.ID); err != nil {
		t.Errorf("deleted exam no longer resolvable for grading: %v", err)
	}
	if err := f.svc.Delete(ctx, exam.ID, f.teacher); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestStudentsOnlySeeStartableExams(t *testing.T) {
	f := newExamFixture(t)
	ctx := context.Background()
	draft := f.create(t, f.qs[0].ID)
	live := f.create(t, f.qs[1].ID)
	if _, err := f.svc.Publish(ctx, live.ID, f.teacher); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	student := model.Principal{UserID: uuid.New(), TenantID: testTenant, Role: model.RoleStudent}

	exams, _, err := f.svc.List(ctx, student, model.ExamStatusDraft, "", 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, e := range exams {
		if !e.Status.Startable() {
			t.Errorf("student listing contains %s exam", e.Status)
		}
	}

	all, _, err := f.svc.List(ctx, f.teacher, "", "", 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("teacher sees %d exams, want 2", len(all))
	}

	if _, err := f.svc.Get(ctx, draft.ID, student); !errors.Is(err, ErrNotFound) {
		t.Errorf("student Get on draft err = %v", err)
	}
	if _, err := f.svc.Get(ctx, live.ID, student); err != nil {
		t.Errorf("student Get on published: %v", err)
	}

	outsider := model.Principal{UserID: uuid.New(), TenantID: "globex", Role: model.RoleAdmin}
	if _, err := f.svc.Get(ctx, live.ID, outsider); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant Get err = %v", err)
	}
}

func TestPrewarmPapers(t *testing.T) {
	f := newExamFixture(t)
	ctx := context.Background()
	exam := f.create(t, f.qs[0].ID)
	e := f.exams.get(exam.ID)
	e.Status = model.ExamStatusActive
	f.exams.byID[e.ID] = e
	f.create(t, f.qs[1].ID)

	if err := f.svc.PrewarmPapers(ctx); err != nil {
		t.Fatalf("PrewarmPapers: %v", err)
	}
	if len(f.papers.byID) != 1 {
		t.Errorf("%d papers warmed, want 1", len(f.papers.byID))
	}
}
