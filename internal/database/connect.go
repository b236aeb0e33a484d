package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	firstRetryDelay = 500 * time.Millisecond
	maxRetryDelay   = 5 * time.Second
)

// waitReady pings a backing store until it answers. Compose and Kubernetes
// start the API alongside Postgres and Redis, so the first pings may fail.
// The delay doubles after each failure, capped at maxRetryDelay.
func waitReady(ctx context.Context, log zerolog.Logger, store string, attempts int, delay time.Duration, ping func(context.Context) error) error {
	attempts = max(attempts, 1)
	for attempt := 1; ; attempt++ {
		err := ping(ctx)
		if err == nil {
			return nil
		}
		if attempt >= attempts {
			return fmt.Errorf("ping %s after %d attempts: %w", store, attempt, err)
		}

		log.Warn().Err(err).
			Str("store", store).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("Store not ready")

		select {
		case <-ctx.Done():
			return fmt.Errorf("ping %s: %w", store, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}
