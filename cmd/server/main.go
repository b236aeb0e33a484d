package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/cache"
	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/database"
	"github.com/learnhub/learnhub-backend/internal/handler"
	"github.com/learnhub/learnhub-backend/internal/logger"
	"github.com/learnhub/learnhub-backend/internal/metrics"
	"github.com/learnhub/learnhub-backend/internal/middleware"
	"github.com/learnhub/learnhub-backend/internal/repository"
	"github.com/learnhub/learnhub-backend/internal/router"
	"github.com/learnhub/learnhub-backend/internal/service"
	"github.com/learnhub/learnhub-backend/internal/validator"
	"github.com/learnhub/learnhub-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting LearnHub Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Metrics ───────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Redis-backed Infrastructure ───────────────────────────────────
	papers := cache.NewPaperCache(rdb, cfg.PaperCacheTTL, log)
	startLock := cache.NewStartLock(rdb, cfg.StartLockTTL)
	sessions := cache.NewSessionStore(rdb)
	rewardQueue := worker.NewRewardQueue(rdb)
	auditQueue := worker.NewAuditQueue(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userRepo, sessions, auditQueue, log)
	userService := service.NewUserService(userRepo)
	adminUserService := service.NewAdminUserService(userRepo, authService, auditQueue, log)
	auditService := service.NewAuditService(auditRepo)
	dashboardService := service.NewDashboardService(dashboardRepo, userRepo)
	questionService := service.NewQuestionService(questionRepo, examRepo, papers, auditQueue, log)
	examService := service.NewExamService(examRepo, questionRepo, papers, auditQueue, log)
	attemptService := service.NewAttemptService(
		attemptRepo, examRepo, questionRepo, papers, startLock,
		rewardQueue, auditQueue, m, cfg.AttemptExpiryGrace, log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, log),
		Exam:      handler.NewExamHandler(examService, log),
		Question:  handler.NewQuestionHandler(questionService, log),
		Attempt:   handler.NewAttemptHandler(attemptService, log),
		User:      handler.NewUserHandler(userService, auditService, log),
		Users:     handler.NewAdminUserHandler(adminUserService, log),
		Dashboard: handler.NewDashboardHandler(dashboardService, log),
		WS:        handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
		System:    handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	rewardWorker := worker.NewRewardWorker(userRepo, rdb, log)
	auditWorker := worker.NewAuditWorker(auditRepo, rdb, log)
	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)

	workers.Add(3)
	go func() { defer workers.Done(); rewardWorker.Start(workerCtx) }()
	go func() { defer workers.Done(); auditWorker.Start(workerCtx) }()
	go func() { defer workers.Done(); authLimiter.Run(workerCtx) }()

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load papers of every startable exam before accepting traffic so the
	// first wave of starts does not stampede Postgres.
	if err := examService.PrewarmPapers(ctx); err != nil {
		log.Warn().Err(err).Msg("Paper cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg, m, authLimiter)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers; each flushes its buffer before returning.
	workerCancel()
	drained := make(chan struct{})
	go func() {
		workers.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Workers did not drain in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
