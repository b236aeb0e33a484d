package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/config"
)

// RedisClientName identifies API connections in CLIENT LIST.
const RedisClientName = "learnhub-api"

// NewRedisClient connects to the Redis instance behind the paper cache,
// sessions, start locks and worker queues, waiting for it to come up.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if opt.ClientName == "" {
		opt.ClientName = RedisClientName
	}

	rdb := redis.NewClient(opt)
	ping := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	if err := waitReady(ctx, log, "redis", cfg.ConnectAttempts, firstRetryDelay, ping); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Str("client_name", opt.ClientName).
		Int("pool_size", opt.PoolSize).
		Msg("Redis ready")

	return rdb, nil
}
