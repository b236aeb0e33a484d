package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/model"
)

// Queue is the producer side of a Redis list drained by a worker.
type Queue[T any] struct {
	rdb *redis.Client
	key string
}

// NewRewardQueue returns the producer feeding RewardWorker.
func NewRewardQueue(rdb *redis.Client) *Queue[model.XPReward] {
	return &Queue[model.XPReward]{rdb: rdb, key: config.WorkerKey.PersistRewardsQueue}
}

// NewAuditQueue returns the producer feeding AuditWorker.
func NewAuditQueue(rdb *redis.Client) *Queue[model.AuditLog] {
	return &Queue[model.AuditLog]{rdb: rdb, key: config.WorkerKey.PersistAuditQueue}
}

// Enqueue appends v to the queue as JSON.
func (q *Queue[T]) Enqueue(ctx context.Context, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s item: %w", q.key, err)
	}
	return q.rdb.RPush(ctx, q.key, raw).Err()
}

// requeue pushes items back in one pipeline after a failed flush.
func requeue[T any](ctx context.Context, rdb *redis.Client, key string, items []T) error {
	pipe := rdb.Pipeline()
	for _, it := range items {
		raw, err := json.Marshal(it)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, raw)
	}
	_, err := pipe.Exec(ctx)
	return err
}
