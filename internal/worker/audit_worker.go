package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/model"
)

const (
	AuditBatchSize    = 200
	AuditBatchTimeout = 2 * time.Second
)

// AuditWriter persists audit entries.
type AuditWriter interface {
	InsertBatch(ctx context.Context, logs []model.AuditLog) error
	Insert(ctx context.Context, l model.AuditLog) error
}

// AuditWorker drains audit entries from Redis and COPYs them into Postgres.
type AuditWorker struct {
	store AuditWriter
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewAuditWorker(store AuditWriter, rdb *redis.Client, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "audit_worker").Logger(),
	}
}

func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AuditWorker started")

	buffer := make([]model.AuditLog, 0, AuditBatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 &&
			(len(buffer) >= AuditBatchSize || time.Since(lastFlush) >= AuditBatchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistAuditQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var entry model.AuditLog
		if err := json.Unmarshal([]byte(result[1]), &entry); err != nil {
			// Malformed entries can never succeed; drop them.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed audit entry")
			continue
		}
		buffer = append(buffer, entry)
	}
}

// flushSafe attempts a bulk COPY, then row-by-row inserts, then requeue.
func (w *AuditWorker) flushSafe(ctx context.Context, batch []model.AuditLog) {
	if len(batch) == 0 {
		return
	}
	err := w.store.InsertBatch(ctx, batch)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var failed []model.AuditLog
	for _, l := range batch {
		if err := w.store.Insert(ctx, l); err != nil {
			w.log.Error().Err(err).
				Str("action", string(l.Action)).
				Str("entity_id", l.EntityID).
				Msg("Insert failed, requeueing")
			failed = append(failed, l)
		}
	}
	if len(failed) == 0 {
		return
	}

	if err := requeue(context.WithoutCancel(ctx), w.rdb, config.WorkerKey.PersistAuditQueue, failed); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue audit entries. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(failed)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing while the database is down.
	time.Sleep(2 * time.Second)
}

func (w *AuditWorker) shutdown(buffer []model.AuditLog) {
	w.log.Info().Int("pending", len(buffer)).Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w.flushSafe(shutdownCtx, buffer)
}
