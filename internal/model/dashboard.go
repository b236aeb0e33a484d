package model

import (
	"time"

	"github.com/google/uuid"
)

// DashboardStats is the landing summary. Personal is set for students,
// Tenant for staff.
type DashboardStats struct {
	TotalUsers       int                `json:"total_users"`
	TotalExams       int                `json:"total_exams"`
	TotalQuestions   int                `json:"total_questions"`
	TotalAttempts    int                `json:"total_attempts"`
	ExamStatusCounts map[ExamStatus]int `json:"exam_status_counts"`
	Personal         *PersonalStats     `json:"personal,omitempty"`
	Tenant           *TenantStats       `json:"tenant,omitempty"`
}

// PersonalStats summarizes the caller's evaluated attempts.
type PersonalStats struct {
	ExamsTaken   int     `json:"exams_taken"`
	AverageScore float64 `json:"average_score"`
	PassRate     float64 `json:"pass_rate"`
	XPPoints     int     `json:"xp_points"`
}

// TenantStats summarizes the tenant for staff.
type TenantStats struct {
	AverageScore        float64 `json:"average_score"`
	PassRate            float64 `json:"pass_rate"`
	StudentsCount       int     `json:"students_count"`
	TeachersCount       int     `json:"teachers_count"`
	ManagersCount       int     `json:"managers_count"`
	RecentRegistrations int     `json:"recent_registrations"`
}

// AttemptOutcome aggregates evaluated attempts. Rates are percentages.
type AttemptOutcome struct {
	Count        int
	AverageScore float64
	PassRate     float64
}

// ActivityItem is one attempt in the recent-activity feed.
type ActivityItem struct {
	AttemptID  uuid.UUID     `json:"attempt_id"`
	UserName   string        `json:"user_name"`
	ExamTitle  string        `json:"exam_title"`
	Status     AttemptStatus `json:"status"`
	Score      *float64      `json:"score,omitempty"`
	Percentage *float64      `json:"percentage,omitempty"`
	Passed     *bool         `json:"passed,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
}

// PerformancePoint is one UTC day of evaluated attempts.
type PerformancePoint struct {
	Date         string  `json:"date"`
	Attempts     int     `json:"attempts"`
	AverageScore float64 `json:"average_score"`
	PassRate     float64 `json:"pass_rate"`
}

// DashboardScope narrows dashboard reads to a tenant and optionally one user.
type DashboardScope struct {
	TenantID string
	UserID   *uuid.UUID
}
