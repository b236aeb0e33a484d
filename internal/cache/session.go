package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/learnhub/learnhub-backend/internal/config"
)

// SessionStore tracks live sessions by their JTI so logout and account
// deactivation can revoke tokens before they expire.
type SessionStore struct {
	rdb *redis.Client
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Put marks a token live for ttl.
func (s *SessionStore) Put(ctx context.Context, userID uuid.UUID, jti string, ttl time.Duration) error {
	return s.rdb.Set(ctx, config.CacheKey.UserSessionKey(userID.String(), jti), 1, ttl).Err()
}

// Exists reports whether a token is still live.
func (s *SessionStore) Exists(ctx context.Context, userID uuid.UUID, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, config.CacheKey.UserSessionKey(userID.String(), jti)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteAll revokes every token of a user.
func (s *SessionStore) DeleteAll(ctx context.Context, userID uuid.UUID) error {
	iter := s.rdb.Scan(ctx, 0, config.CacheKey.UserSessionPattern(userID.String()), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// Delete revokes a token.
func (s *SessionStore) Delete(ctx context.Context, userID uuid.UUID, jti string) error {
	return s.rdb.Del(ctx, config.CacheKey.UserSessionKey(userID.String(), jti)).Err()
}
