package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/model"
)

const (
	RewardBatchSize    = 100
	RewardBatchTimeout = 2 * time.Second
	// PollTimeout must be at least 1s to satisfy Redis.
	PollTimeout = 1 * time.Second
)

// XPStore applies XP increments.
type XPStore interface {
	IncrementXP(ctx context.Context, userID uuid.UUID, amount int) error
	IncrementXPBatch(ctx context.Context, userIDs []uuid.UUID, amounts []int) error
}

// RewardWorker drains XP rewards from Redis and applies them in batches.
type RewardWorker struct {
	store XPStore
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewRewardWorker(store XPStore, rdb *redis.Client, log zerolog.Logger) *RewardWorker {
	return &RewardWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "reward_worker").Logger(),
	}
}

func (w *RewardWorker) Start(ctx context.Context) {
	w.log.Info().Msg("RewardWorker started")

	batch := make([]model.XPReward, 0, RewardBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= RewardBatchSize || time.Since(lastFlush) >= RewardBatchTimeout) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining rewards...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.flushSafe(shutdownCtx, batch)
			cancel()
			return
		default:
		}

		item, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistRewardsQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(item) < 2 {
			continue
		}

		var r model.XPReward
		if err := json.Unmarshal([]byte(item[1]), &r); err != nil {
			w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed reward")
			continue
		}
		batch = append(batch, r)
	}
}

// flushSafe applies a batch with one UNNEST update, falling back to per-user
// increments. The original rewards of users whose increment still fails are
// requeued so each keeps its attempt id.
func (w *RewardWorker) flushSafe(ctx context.Context, batch []model.XPReward) {
	userIDs, amounts := aggregateRewards(batch)
	if len(userIDs) == 0 {
		return
	}

	err := w.store.IncrementXPBatch(ctx, userIDs, amounts)
	if err == nil {
		w.log.Debug().Int("rewards", len(batch)).Int("users", len(userIDs)).Msg("XP batch applied")
		return
	}
	w.log.Warn().Err(err).Int("users", len(userIDs)).Msg("Bulk XP update failed, using fallback")

	failedUsers := make(map[uuid.UUID]bool)
	for i, id := range userIDs {
		if err := w.store.IncrementXP(ctx, id, amounts[i]); err != nil {
			w.log.Error().Err(err).Str("user_id", id.String()).Int("xp", amounts[i]).Msg("XP increment failed, requeueing")
			failedUsers[id] = true
		}
	}
	if len(failedUsers) == 0 {
		return
	}

	failed := rewardsOf(batch, failedUsers)
	if err := requeue(context.WithoutCancel(ctx), w.rdb, config.WorkerKey.PersistRewardsQueue, failed); err != nil {
		w.log.Error().Err(err).Int("count", len(failed)).Msg("CRITICAL: failed to requeue rewards. XP lost.")
		return
	}
	w.log.Info().Int("count", len(failed)).Msg("Requeued failed rewards")
	time.Sleep(2 * time.Second)
}

// rewardsOf returns the applicable rewards of batch that belong to users.
func rewardsOf(batch []model.XPReward, users map[uuid.UUID]bool) []model.XPReward {
	var out []model.XPReward
	for _, r := range batch {
		if users[r.UserID] && r.Amount > 0 {
			out = append(out, r)
		}
	}
	return out
}

// aggregateRewards sums rewards per user in first-seen order. A single
// UPDATE ... FROM applies only one source row per target, so duplicates must
// be merged before the batch update.
func aggregateRewards(batch []model.XPReward) ([]uuid.UUID, []int) {
	index := make(map[uuid.UUID]int, len(batch))
	var userIDs []uuid.UUID
	var amounts []int
	for _, r := range batch {
		if r.UserID == uuid.Nil || r.Amount <= 0 {
			continue
		}
		i, ok := index[r.UserID]
		if !ok {
			index[r.UserID] = len(userIDs)
			userIDs = append(userIDs, r.UserID)
			amounts = append(amounts, r.Amount)
			continue
		}
		amounts[i] += r.Amount
	}
	return userIDs, amounts
}
