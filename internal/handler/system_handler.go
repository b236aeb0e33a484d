package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/response"
)

const healthTimeout = 2 * time.Second

type dbPinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves liveness and operational status.
type SystemHandler struct {
	db        dbPinger
	rdb       redis.Cmdable
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(db dbPinger, rdb redis.Cmdable, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type systemStatus struct {
	Uptime     string `json:"uptime"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	NumGC      uint32 `json:"num_gc"`

	// Worker queues
	QueueRewards int64 `json:"queue_rewards"`
	QueueAudit   int64 `json:"queue_audit"`
}

// Health godoc
// GET /health
// Reports whether Postgres and Redis answer within two seconds.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{"postgres": "ok", "redis": "ok"}
	healthy := true
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Postgres health check failed")
		checks["postgres"] = "unavailable"
		healthy = false
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Redis health check failed")
		checks["redis"] = "unavailable"
		healthy = false
	}

	if !healthy {
		response.Success(c, http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": checks})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok", "checks": checks})
}

// Status godoc
// GET /api/v1/system/status
// Returns Go runtime figures and the depth of the background queues.
func (h *SystemHandler) Status(c *gin.Context) {
	s := systemStatus{
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:  runtime.Version(),
		NumCPU:     runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapAlloc = ms.HeapAlloc
	s.HeapSys = ms.Sys
	s.NumGC = ms.NumGC

	ctx := c.Request.Context()
	pipe := h.rdb.Pipeline()
	rewardsCmd := pipe.LLen(ctx, config.WorkerKey.PersistRewardsQueue)
	auditCmd := pipe.LLen(ctx, config.WorkerKey.PersistAuditQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Queue depth lookup failed")
	} else {
		s.QueueRewards, _ = rewardsCmd.Result()
		s.QueueAudit, _ = auditCmd.Result()
	}

	response.Success(c, http.StatusOK, s)
}
