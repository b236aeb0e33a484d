package service

import (
	"context"

	"github.com/learnhub/learnhub-backend/internal/model"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// UserService serves read-only views over user accounts.
type UserService struct {
	users UserStore
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// Leaderboard returns the top students of the caller's tenant by XP.
func (s *UserService) Leaderboard(ctx context.Context, p model.Principal, limit int) ([]model.LeaderboardEntry, error) {
	if limit < 1 {
		limit = defaultLeaderboardSize
	}
	limit = min(limit, maxLeaderboardSize)

	entries, err := s.users.Leaderboard(ctx, p.TenantID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	return entries, nil
}
