package service

import (
	"context"
	"fmt"
	"time"

	"github.com/learnhub/learnhub-backend/internal/model"
)

const (
	registrationWindow = 7 * 24 * time.Hour

	defaultActivityLimit = 10
	maxActivityLimit     = 50
	defaultChartDays     = 30
	minChartDays         = 7
	maxChartDays         = 365
)

// DashboardService assembles the role-dependent landing statistics.
// Students see their own attempts; staff see the whole tenant.
type DashboardService struct {
	store DashboardStore
	users UserStore
	now   func() time.Time
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(store DashboardStore, users UserStore) *DashboardService {
	return &DashboardService{store: store, users: users, now: time.Now}
}

// Stats returns the summary cards for the caller.
func (s *DashboardService) Stats(ctx context.Context, p model.Principal) (*model.DashboardStats, error) {
	users, exams, questions, attempts, err := s.store.SummaryCounts(ctx, p.TenantID)
	if err != nil {
		return nil, fmt.Errorf("summary counts: %w", err)
	}
	statusCounts, err := s.store.ExamStatusCounts(ctx, p.TenantID)
	if err != nil {
		return nil, fmt.Errorf("exam status counts: %w", err)
	}

	stats := &model.DashboardStats{
		TotalUsers:       users,
		TotalExams:       exams,
		TotalQuestions:   questions,
		TotalAttempts:    attempts,
		ExamStatusCounts: statusCounts,
	}

	outcome, err := s.store.AttemptOutcomes(ctx, scopeFor(p))
	if err != nil {
		return nil, fmt.Errorf("attempt outcomes: %w", err)
	}

	if p.Role == model.RoleStudent {
		u, err := s.users.GetByID(ctx, p.UserID)
		if err != nil {
			return nil, notFound(err, "user", p.UserID)
		}
		stats.Personal = &model.PersonalStats{
			ExamsTaken:   outcome.Count,
			AverageScore: outcome.AverageScore,
			PassRate:     outcome.PassRate,
			XPPoints:     u.XPPoints,
		}
		return stats, nil
	}

	roles, recent, err := s.store.RoleCounts(ctx, p.TenantID, s.now().Add(-registrationWindow))
	if err != nil {
		return nil, fmt.Errorf("role counts: %w", err)
	}
	stats.Tenant = &model.TenantStats{
		AverageScore:        outcome.AverageScore,
		PassRate:            outcome.PassRate,
		StudentsCount:       roles[model.RoleStudent],
		TeachersCount:       roles[model.RoleTeacher],
		ManagersCount:       roles[model.RoleManager],
		RecentRegistrations: recent,
	}
	return stats, nil
}

// RecentActivity lists the newest attempts visible to the caller.
func (s *DashboardService) RecentActivity(ctx context.Context, p model.Principal, limit int) ([]model.ActivityItem, error) {
	limit = clamp(limit, defaultActivityLimit, 1, maxActivityLimit)
	return s.store.RecentActivity(ctx, scopeFor(p), limit)
}

// Performance returns per-day averages over the last days days.
func (s *DashboardService) Performance(ctx context.Context, p model.Principal, days int) ([]model.PerformancePoint, error) {
	days = clamp(days, defaultChartDays, minChartDays, maxChartDays)
	since := s.now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -days)
	return s.store.PerformanceByDay(ctx, scopeFor(p), since)
}

func scopeFor(p model.Principal) model.DashboardScope {
	scope := model.DashboardScope{TenantID: p.TenantID}
	if p.Role == model.RoleStudent {
		id := p.UserID
		scope.UserID = &id
	}
	return scope
}

// clamp substitutes def for a zero v and bounds the result to [lo, hi].
func clamp(v, def, lo, hi int) int {
	if v == 0 {
		v = def
	}
	return max(lo, min(v, hi))
}
