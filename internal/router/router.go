package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizgrade/internal/config"
	"github.com/stemsi/quizgrade/internal/handler"
	"github.com/stemsi/quizgrade/internal/middleware"
	"github.com/stemsi/quizgrade/internal/response"
	"github.com/stemsi/quizgrade/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Grading *handler.GradingHandler
	Quiz    *handler.QuizHandler
	Attempt *handler.AttemptHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds the rate limiter's cleanup loop.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Batch results and question sets compress well; health probes are skipped.
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		MinLength: middleware.DefaultBrotliConfig.MinLength,
		Skipper: func(c *gin.Context) bool {
			return c.Request.URL.Path == "/health"
		},
	}))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute)

	api := router.Group("/api/v1")
	api.Use(middleware.NoStore(), middleware.BodyLimit(cfg.MaxBodyBytes))

	// ─── 1. Grading Group (grade scope, rate limited) ──────────────────
	grade := api.Group("")
	grade.Use(
		middleware.RequireScope(authService, service.ScopeGrade),
		limiter.Middleware(),
	)
	{
		grade.POST("/grade", handlers.Grading.Grade)
		grade.POST("/grade/batch", handlers.Grading.GradeBatch)

		grade.POST("/quizzes/:id/attempts", handlers.Attempt.SubmitAttempt)
		grade.GET("/attempts/:id", handlers.Attempt.GetAttempt)
	}

	// ─── 2. Admin Group (admin scope) ──────────────────────────────────
	admin := api.Group("")
	admin.Use(middleware.RequireScope(authService, service.ScopeAdmin))
	{
		admin.PUT("/quizzes/:id/questions", handlers.Quiz.ReplaceQuestions)
		admin.GET("/quizzes/:id/questions", handlers.Quiz.GetQuestions)
	}

	return router
}
