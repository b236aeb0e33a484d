package config

import (
	"testing"
	"time"
)

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty allows all", raw: "", want: nil},
		{name: "single", raw: "https://a.test", want: []string{"https://a.test"}},
		{name: "trims and drops blanks", raw: " https://a.test , ,https://b.test ", want: []string{"https://a.test", "https://b.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseOrigins(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("parseOrigins(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseOrigins(%q)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadAttemptSettings(t *testing.T) {
	t.Setenv("ATTEMPT_EXPIRY_GRACE_SECONDS", "30")
	t.Setenv("START_LOCK_TTL_SECONDS", "not-a-number")
	t.Setenv("JWT_REFRESH_EXPIRY_HOURS", "")

	cfg := Load()
	if cfg.AttemptExpiryGrace != 30*time.Second {
		t.Errorf("AttemptExpiryGrace = %v, want 30s", cfg.AttemptExpiryGrace)
	}
	if cfg.StartLockTTL != 5*time.Second {
		t.Errorf("StartLockTTL = %v, want fallback 5s", cfg.StartLockTTL)
	}
	if cfg.JWTRefreshExpiry != 168*time.Hour {
		t.Errorf("JWTRefreshExpiry = %v, want 168h", cfg.JWTRefreshExpiry)
	}
}

func TestCacheKeys(t *testing.T) {
	if got := CacheKey.ExamPaperKey("e1"); got != "exam:e1:paper" {
		t.Errorf("ExamPaperKey = %q", got)
	}
	if got := CacheKey.AttemptStartLockKey("e1", "u1"); got != "user:u1:exam:e1:start_lock" {
		t.Errorf("AttemptStartLockKey = %q", got)
	}
	if got := CacheKey.UserSessionPattern("u1"); got != "user:u1:session:*" {
		t.Errorf("UserSessionPattern = %q", got)
	}
}
