package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/handler"
	"github.com/learnhub/learnhub-backend/internal/metrics"
	"github.com/learnhub/learnhub-backend/internal/middleware"
	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Exam      *handler.ExamHandler
	Question  *handler.QuestionHandler
	Attempt   *handler.AttemptHandler
	User      *handler.UserHandler
	Users     *handler.AdminUserHandler
	Dashboard *handler.DashboardHandler
	WS        *handler.WSHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.Authenticator,
	handlers *Handlers,
	cfg *config.Config,
	m *metrics.Metrics,
	authLimiter *middleware.RateLimiter,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(m.Middleware())

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", m.Handler())

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	requireAuth := middleware.RequireAuth(auth)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authAPI := router.Group("/api/v1/auth")
	{
		authAPI.POST("/register", authLimiter.Middleware(), handlers.Auth.Register)
		authAPI.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		authAPI.POST("/refresh", authLimiter.Middleware(), handlers.Auth.Refresh)

		authAPI.POST("/logout", requireAuth, handlers.Auth.Logout)
		authAPI.GET("/me", requireAuth, handlers.Auth.Me)
	}

	api := router.Group("/api/v1")
	api.Use(requireAuth, middleware.Brotli())

	// ─── 2. Exam taking (any role) ─────────────────────────────────────
	taking := api.Group("")
	taking.Use(middleware.NoStore())
	{
		taking.POST("/exams/:exam_id/start", handlers.Attempt.StartExam)
		taking.POST("/attempts/:attempt_id/sync", handlers.Attempt.SyncAttempt)
		taking.POST("/attempts/:attempt_id/submit", handlers.Attempt.SubmitAttempt)
		taking.GET("/attempts", handlers.Attempt.ListAttempts)
		taking.GET("/attempts/:attempt_id", handlers.Attempt.GetAttempt)
	}

	// ─── 3. Exams ──────────────────────────────────────────────────────
	{
		api.GET("/exams", handlers.Exam.ListExams)
		api.GET("/exams/:exam_id", handlers.Exam.GetExam)

		api.POST("/exams",
			middleware.RequireRole(model.RoleTeacher),
			handlers.Exam.CreateExam,
		)
		api.PUT("/exams/:exam_id",
			middleware.RequireRole(model.RoleTeacher),
			handlers.Exam.UpdateExam,
		)
		api.POST("/exams/:exam_id/publish",
			middleware.RequireRole(model.RoleManager),
			handlers.Exam.PublishExam,
		)
		api.POST("/exams/:exam_id/archive",
			middleware.RequireRole(model.RoleManager),
			handlers.Exam.ArchiveExam,
		)
		api.DELETE("/exams/:exam_id",
			middleware.RequireRole(model.RoleAdmin),
			handlers.Exam.DeleteExam,
		)
	}

	// ─── 4. Question bank (TEACHER+) ───────────────────────────────────
	questions := api.Group("/questions")
	questions.Use(middleware.RequireRole(model.RoleTeacher))
	{
		questions.GET("", handlers.Question.ListQuestions)
		questions.GET("/stats", handlers.Question.QuestionStats)
		questions.GET("/:question_id", handlers.Question.GetQuestion)
		questions.POST("", handlers.Question.CreateQuestion)
		questions.POST("/bulk", handlers.Question.BulkCreateQuestions)
		questions.PUT("/:question_id", handlers.Question.UpdateQuestion)
		questions.DELETE("/:question_id",
			middleware.RequireRole(model.RoleManager),
			handlers.Question.DeleteQuestion,
		)
	}

	// ─── 5. Users & operations ─────────────────────────────────────────
	{
		api.GET("/leaderboard", handlers.User.Leaderboard)
		api.GET("/audit-logs",
			middleware.RequireRole(model.RoleManager),
			handlers.User.ListAuditLogs,
		)
		api.GET("/system/status",
			middleware.RequireRole(model.RoleAdmin),
			handlers.System.Status,
		)
	}

	// ─── 6. Accounts (self or MANAGER+, writes checked per user) ────────
	users := api.Group("/users")
	{
		users.GET("",
			middleware.RequireRole(model.RoleManager),
			handlers.Users.ListUsers,
		)
		users.POST("",
			middleware.RequireRole(model.RoleAdmin),
			handlers.Users.CreateUser,
		)
		users.GET("/:user_id", handlers.Users.GetUser)
		users.PUT("/:user_id", handlers.Users.UpdateUser)
		users.DELETE("/:user_id",
			middleware.RequireRole(model.RoleAdmin),
			handlers.Users.DeactivateUser,
		)
	}

	// ─── 7. Dashboard (any role, scoped by role) ───────────────────────
	dashboard := api.Group("/dashboard")
	{
		dashboard.GET("/stats", handlers.Dashboard.Stats)
		dashboard.GET("/recent-activity", handlers.Dashboard.RecentActivity)
		dashboard.GET("/performance-chart", handlers.Dashboard.PerformanceChart)
	}

	// ─── 8. WebSocket (token via ?token=) ──────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(requireAuth)
	{
		ws.GET("/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	return router
}
