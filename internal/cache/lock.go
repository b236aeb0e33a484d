package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/learnhub/learnhub-backend/internal/config"
)

const lockPollInterval = 25 * time.Millisecond

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock re-acquired by another request is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// StartLock serializes attempt creation per (user, exam) pair.
type StartLock struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStartLock creates a new StartLock whose locks expire after ttl.
func NewStartLock(rdb *redis.Client, ttl time.Duration) *StartLock {
	return &StartLock{rdb: rdb, ttl: ttl}
}

// Acquire waits up to the lock TTL for the (user, exam) lock. ok is false if
// the wait timed out; release is always safe to call.
func (l *StartLock) Acquire(ctx context.Context, examID, userID uuid.UUID) (release func(), ok bool, err error) {
	key := config.CacheKey.AttemptStartLockKey(examID.String(), userID.String())
	token := uuid.NewString()
	deadline := time.Now().Add(l.ttl)

	for {
		ok, err = l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return func() {}, false, err
		}
		if ok {
			return func() {
				_ = releaseScript.Run(context.WithoutCancel(ctx), l.rdb, []string{key}, token).Err()
			}, true, nil
		}
		if time.Now().After(deadline) {
			return func() {}, false, nil
		}

		select {
		case <-ctx.Done():
			return func() {}, false, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}
