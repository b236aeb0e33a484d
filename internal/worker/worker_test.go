package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/model"
)

func TestAggregateRewards(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	ids, amounts := aggregateRewards([]model.XPReward{
		{UserID: a, Amount: 55},
		{UserID: b, Amount: 5},
		{UserID: a, Amount: 10},
		{UserID: b, Amount: 0},
		{UserID: uuid.Nil, Amount: 70},
	})

	if len(ids) != 2 || ids[0] != a || ids[1] != b {
		t.Fatalf("ids = %v, want [a b]", ids)
	}
	if amounts[0] != 65 || amounts[1] != 5 {
		t.Errorf("amounts = %v, want [65 5]", amounts)
	}
}

func TestRewardsOfKeepsAttemptIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	a1, a2, b1 := uuid.New(), uuid.New(), uuid.New()
	batch := []model.XPReward{
		{UserID: a, AttemptID: a1, Amount: 55},
		{UserID: b, AttemptID: b1, Amount: 5},
		{UserID: a, AttemptID: a2, Amount: 10},
		{UserID: a, Amount: 0},
	}

	got := rewardsOf(batch, map[uuid.UUID]bool{a: true})

	if len(got) != 2 {
		t.Fatalf("got %d rewards, want 2: %+v", len(got), got)
	}
	if got[0].AttemptID != a1 || got[0].Amount != 55 || got[1].AttemptID != a2 || got[1].Amount != 10 {
		t.Errorf("requeued = %+v", got)
	}
	if rewardsOf(batch, map[uuid.UUID]bool{}) != nil {
		t.Error("rewards returned for no failed users")
	}
}

type fakeXP struct {
	batchErr error
	batches  int
	singles  map[uuid.UUID]int
}

func (f *fakeXP) IncrementXPBatch(_ context.Context, ids []uuid.UUID, amounts []int) error {
	f.batches++
	if f.batchErr != nil {
		return f.batchErr
	}
	for i, id := range ids {
		f.singles[id] += amounts[i]
	}
	return nil
}

func (f *fakeXP) IncrementXP(_ context.Context, id uuid.UUID, amount int) error {
	f.singles[id] += amount
	return nil
}

func TestRewardFlush(t *testing.T) {
	a := uuid.New()
	batch := []model.XPReward{{UserID: a, Amount: 5}, {UserID: a, Amount: 50}}

	tests := []struct {
		name     string
		batchErr error
	}{
		{"bulk path", nil},
		{"fallback path", errors.New("deadlock detected")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeXP{batchErr: tt.batchErr, singles: map[uuid.UUID]int{}}
			w := NewRewardWorker(store, nil, zerolog.Nop())

			w.flushSafe(context.Background(), batch)

			if store.singles[a] != 55 {
				t.Errorf("user got %d XP, want 55", store.singles[a])
			}
			if store.batches != 1 {
				t.Errorf("batch update called %d times", store.batches)
			}
		})
	}
}

type fakeAuditWriter struct {
	batchErr error
	rows     []model.AuditLog
}

func (f *fakeAuditWriter) InsertBatch(_ context.Context, logs []model.AuditLog) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	f.rows = append(f.rows, logs...)
	return nil
}

func (f *fakeAuditWriter) Insert(_ context.Context, l model.AuditLog) error {
	f.rows = append(f.rows, l)
	return nil
}

func TestAuditFlushFallsBackToSingleInserts(t *testing.T) {
	store := &fakeAuditWriter{batchErr: errors.New("copy failed")}
	w := NewAuditWorker(store, nil, zerolog.Nop())

	w.flushSafe(context.Background(), []model.AuditLog{
		{TenantID: "acme", Action: model.AuditActionLogin},
		{TenantID: "acme", Action: model.AuditActionExamStart},
	})

	if len(store.rows) != 2 {
		t.Fatalf("%d rows written, want 2", len(store.rows))
	}
}
