package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/repository"
)

// In-memory stand-ins for the pgx repositories and Redis helpers. They keep
// the conditional-write semantics of the real stores.

type fakeQuestions struct {
	mu   sync.Mutex
	byID map[uuid.UUID]model.Question
}

func newFakeQuestions(qs ...model.Question) *fakeQuestions {
	f := &fakeQuestions{byID: make(map[uuid.UUID]model.Question)}
	for _, q := range qs {
		f.byID[q.ID] = q
	}
	return f
}

func (f *fakeQuestions) GetByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &q, nil
}

func (f *fakeQuestions) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Question
	for _, id := range ids {
		if q, ok := f.byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestions) List(_ context.Context, filter model.QuestionFilter) ([]model.Question, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Question
	for _, q := range f.byID {
		if q.TenantID != filter.TenantID || !q.IsActive {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(q.Text), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, q)
	}
	return out, len(out), nil
}

func (f *fakeQuestions) Create(_ context.Context, q *model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.ID = uuid.New()
	f.byID[q.ID] = *q
	return nil
}

func (f *fakeQuestions) CreateBatch(ctx context.Context, qs []*model.Question) error {
	for _, q := range qs {
		if err := f.Create(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeQuestions) Update(_ context.Context, q *model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[q.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.byID[q.ID] = *q
	return nil
}

func (f *fakeQuestions) Deactivate(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.byID[id]
	if !ok || !q.IsActive {
		return pgx.ErrNoRows
	}
	q.IsActive = false
	f.byID[id] = q
	return nil
}

func (f *fakeQuestions) Stats(_ context.Context, tenantID string) (*model.QuestionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &model.QuestionStats{
		ByDifficulty: map[model.Difficulty]int{},
		ByType:       map[model.QuestionType]int{},
	}
	for _, q := range f.byID {
		if q.TenantID != tenantID || !q.IsActive {
			continue
		}
		st.Total++
		st.ByDifficulty[q.Difficulty]++
		st.ByType[q.Type]++
	}
	return st, nil
}

type fakeExams struct {
	mu   sync.Mutex
	byID map[uuid.UUID]model.Exam
}

func newFakeExams(es ...model.Exam) *fakeExams {
	f := &fakeExams{byID: make(map[uuid.UUID]model.Exam)}
	for _, e := range es {
		f.byID[e.ID] = e
	}
	return f
}

func (f *fakeExams) get(id uuid.UUID) model.Exam {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeExams) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok || e.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	e.QuestionIDs = append([]uuid.UUID(nil), e.QuestionIDs...)
	return &e, nil
}

func (f *fakeExams) GetVersion(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (f *fakeExams) List(_ context.Context, filter model.ExamFilter) ([]model.Exam, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Exam
	for _, e := range f.byID {
		if e.TenantID != filter.TenantID || e.DeletedAt != nil {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				match = match || e.Status == s
			}
			if !match {
				continue
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, len(out), nil
}

func (f *fakeExams) Insert(_ context.Context, e *model.Exam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	f.byID[e.ID] = *e
	return nil
}

func (f *fakeExams) Update(_ context.Context, e *model.Exam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[e.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.byID[e.ID] = *e
	return nil
}

func (f *fakeExams) SetStatus(_ context.Context, id uuid.UUID, status model.ExamStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok || e.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	e.Status = status
	switch status {
	case model.ExamStatusPublished:
		e.PublishedAt = &at
	case model.ExamStatusArchived:
		e.ArchivedAt = &at
	}
	f.byID[id] = e
	return nil
}

func (f *fakeExams) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok || e.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	e.Status = model.ExamStatusArchived
	e.DeletedAt = &at
	f.byID[id] = e
	return nil
}

func (f *fakeExams) IDsReferencing(_ context.Context, questionID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uuid.UUID
	for _, e := range f.byID {
		for _, id := range e.QuestionIDs {
			if id == questionID {
				out = append(out, e.ID)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeExams) ListStartable(_ context.Context) ([]model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Exam
	for _, e := range f.byID {
		if e.Status.Startable() && e.DeletedAt == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeAttempts struct {
	mu   sync.Mutex
	byID map[uuid.UUID]model.Attempt
	// beforeCreate runs ahead of the uniqueness check, to simulate a racing
	// request winning the insert.
	beforeCreate func(a *model.Attempt)
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{byID: make(map[uuid.UUID]model.Attempt)}
}

func (f *fakeAttempts) put(a model.Attempt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[a.ID] = a
}

func (f *fakeAttempts) get(id uuid.UUID) model.Attempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeAttempts) count(status model.AttemptStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.byID {
		if a.Status == status {
			n++
		}
	}
	return n
}

func (f *fakeAttempts) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (f *fakeAttempts) GetActive(_ context.Context, userID, examID uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.UserID == userID && a.ExamID == examID && a.Status == model.AttemptStatusInProgress {
			return &a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAttempts) Create(_ context.Context, a *model.Attempt) error {
	if f.beforeCreate != nil {
		f.beforeCreate(a)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.UserID == a.UserID && existing.ExamID == a.ExamID && existing.Status == model.AttemptStatusInProgress {
			return repository.ErrActiveAttemptExists
		}
	}
	f.byID[a.ID] = *a
	return nil
}

func (f *fakeAttempts) SaveAnswers(_ context.Context, id uuid.UUID, answers []model.SubmittedAnswer, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.Status != model.AttemptStatusInProgress {
		return pgx.ErrNoRows
	}
	a.Answers = answers
	a.LastSyncAt = &at
	f.byID[id] = a
	return nil
}

func (f *fakeAttempts) SaveEvaluation(_ context.Context, a *model.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[a.ID]
	if !ok || cur.Status != model.AttemptStatusInProgress {
		return pgx.ErrNoRows
	}
	f.byID[a.ID] = *a
	return nil
}

func (f *fakeAttempts) MarkExpired(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.Status != model.AttemptStatusInProgress {
		return pgx.ErrNoRows
	}
	a.Status = model.AttemptStatusExpired
	f.byID[id] = a
	return nil
}

func (f *fakeAttempts) List(_ context.Context, filter model.AttemptFilter) ([]model.Attempt, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Attempt
	for _, a := range f.byID {
		if a.UserID != filter.UserID {
			continue
		}
		if filter.ExamID != nil && a.ExamID != *filter.ExamID {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

type fakePapers struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]model.ExamPaper
	invalidated []uuid.UUID
}

func newFakePapers() *fakePapers {
	return &fakePapers{byID: make(map[uuid.UUID]model.ExamPaper)}
}

func (f *fakePapers) Get(_ context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[examID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakePapers) Set(_ context.Context, paper *model.ExamPaper) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[paper.ExamID] = *paper
	return nil
}

func (f *fakePapers) Invalidate(_ context.Context, examID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, examID)
	f.invalidated = append(f.invalidated, examID)
	return nil
}

type fakeLocker struct {
	acquired int
}

func (f *fakeLocker) Acquire(context.Context, uuid.UUID, uuid.UUID) (func(), bool, error) {
	f.acquired++
	return func() {}, true, nil
}

type fakeRewards struct {
	mu      sync.Mutex
	rewards []model.XPReward
	err     error
}

func (f *fakeRewards) Enqueue(_ context.Context, r model.XPReward) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rewards = append(f.rewards, r)
	return nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (f *fakeAudit) Enqueue(_ context.Context, l model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, l)
	return nil
}

func (f *fakeAudit) actions() []model.AuditAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.AuditAction, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Action
	}
	return out
}

type fakeMetrics struct {
	started, resumed, expired int
	submitted                 int
	rewardFailures            int
}

func (f *fakeMetrics) AttemptStarted(resumed bool) {
	if resumed {
		f.resumed++
		return
	}
	f.started++
}

func (f *fakeMetrics) AttemptSubmitted(bool, float64) { f.submitted++ }
func (f *fakeMetrics) AttemptExpired()                { f.expired++ }

func (f *fakeMetrics) RewardEnqueued(ok bool) {
	if !ok {
		f.rewardFailures++
	}
}

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]model.User
	entries []model.LeaderboardEntry
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[uuid.UUID]model.User)}
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	f.byID[u.ID] = *u
	return nil
}

func (f *fakeUsers) List(_ context.Context, flt model.UserFilter) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []model.User
	for _, u := range f.byID {
		if u.TenantID != flt.TenantID {
			continue
		}
		if flt.Role != "" && u.Role != flt.Role {
			continue
		}
		if flt.IsActive != nil && u.IsActive != *flt.IsActive {
			continue
		}
		if flt.Search != "" && !strings.Contains(strings.ToLower(u.Name+" "+u.Email), strings.ToLower(flt.Search)) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Email < matched[j].Email })
	total := len(matched)
	if flt.Offset >= total {
		return nil, total, nil
	}
	end := min(flt.Offset+flt.Limit, total)
	return matched[flt.Offset:end], total, nil
}

func (f *fakeUsers) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.byID[u.ID] = *u
	return nil
}

func (f *fakeUsers) Leaderboard(_ context.Context, _ string, limit int) ([]model.LeaderboardEntry, error) {
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

type fakeSessions struct {
	mu   sync.Mutex
	live map[string]bool
	err  error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{live: make(map[string]bool)}
}

func (f *fakeSessions) Put(_ context.Context, userID uuid.UUID, jti string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live[userID.String()+":"+jti] = true
	return nil
}

func (f *fakeSessions) Exists(_ context.Context, userID uuid.UUID, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return f.live[userID.String()+":"+jti], nil
}

func (f *fakeSessions) Delete(_ context.Context, userID uuid.UUID, jti string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, userID.String()+":"+jti)
	return nil
}

func (f *fakeSessions) DeleteAll(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := userID.String() + ":"
	for key := range f.live {
		if strings.HasPrefix(key, prefix) {
			delete(f.live, key)
		}
	}
	return nil
}

var errBoom = errors.New("boom")
