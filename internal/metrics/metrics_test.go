package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, r http.Handler) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", w.Code)
	}
	return w.Body.String()
}

func TestAttemptCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry())

	m.AttemptStarted(false)
	m.AttemptStarted(true)
	m.AttemptStarted(true)
	m.AttemptSubmitted(true, 80)
	m.AttemptSubmitted(false, 10)
	m.AttemptExpired()
	m.RewardEnqueued(false)

	r := gin.New()
	r.GET("/metrics", m.Handler())
	body := scrape(t, r)

	for _, want := range []string{
		`attempts_started_total{resumed="true"} 2`,
		`attempts_started_total{resumed="false"} 1`,
		`attempts_submitted_total{passed="false"} 1`,
		`attempts_expired_total 1`,
		`attempt_score_percentage_count 2`,
		`xp_rewards_enqueued_total{result="error"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	body := scrape(t, r)
	if !strings.Contains(body, `http_requests_total{endpoint="/ping",method="GET",status="200"} 1`) {
		t.Errorf("exposition missing ping counter:\n%s", body)
	}
	if !strings.Contains(body, `endpoint="unmatched"`) {
		t.Errorf("exposition missing unmatched route label")
	}
}
