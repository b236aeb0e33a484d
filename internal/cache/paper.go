// Package cache holds the Redis-backed caches and locks used by the services.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/model"
)

// PaperCache stores the sanitized question paper of an exam. Answer keys are
// never written here.
type PaperCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewPaperCache creates a new PaperCache.
func NewPaperCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *PaperCache {
	return &PaperCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "paper_cache").Logger(),
	}
}

// Get returns the cached paper, or nil without error on a miss.
func (c *PaperCache) Get(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	data, err := c.rdb.Get(ctx, config.CacheKey.ExamPaperKey(examID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}

	var paper model.ExamPaper
	if err := json.Unmarshal(data, &paper); err != nil {
		return nil, fmt.Errorf("unmarshal paper: %w", err)
	}
	return &paper, nil
}

// Set stores a paper under its exam id.
func (c *PaperCache) Set(ctx context.Context, paper *model.ExamPaper) error {
	data, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}
	if err := c.rdb.Set(ctx, config.CacheKey.ExamPaperKey(paper.ExamID.String()), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache paper: %w", err)
	}

	c.log.Debug().
		Str("exam_id", paper.ExamID.String()).
		Int("questions", len(paper.Questions)).
		Msg("Paper cached")
	return nil
}

// Invalidate drops the cached paper of an exam.
func (c *PaperCache) Invalidate(ctx context.Context, examID uuid.UUID) error {
	return c.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID.String())).Err()
}
