package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade/internal/config"
	"github.com/stemsi/quizgrade/internal/database"
	"github.com/stemsi/quizgrade/internal/grading"
	"github.com/stemsi/quizgrade/internal/handler"
	"github.com/stemsi/quizgrade/internal/logger"
	"github.com/stemsi/quizgrade/internal/repository"
	"github.com/stemsi/quizgrade/internal/router"
	"github.com/stemsi/quizgrade/internal/service"
	"github.com/stemsi/quizgrade/internal/validator"
	"github.com/stemsi/quizgrade/internal/worker"
)

// requeueLimit caps how many PENDING attempts are pushed back on startup.
const requeueLimit = 1000

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Int("grading_workers", cfg.GradingWorkers).
		Bool("strict_authoring", cfg.StrictAuthoring).
		Msg("Starting quiz grading service")

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

	// ─── Initialize Grading Engine ─────────────────────────────────────
	engine := grading.New(
		grading.WithLogger(log.With().Str("component", "grading").Logger()),
		grading.WithMaxEditDistance(cfg.MaxEditDistance),
	)

	// ─── Initialize Repositories ───────────────────────────────────────
	quizRepo := repository.NewQuizRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	quizService := service.NewQuizService(quizRepo, rdb, cfg, log)
	gradingService := service.NewGradingService(engine, quizService, log)
	attemptService := service.NewAttemptService(attemptRepo, gradingService, rdb, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Grading: handler.NewGradingHandler(gradingService),
		Quiz:    handler.NewQuizHandler(quizService),
		Attempt: handler.NewAttemptHandler(attemptService),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	gradingWorker := worker.NewGradingWorker(attemptRepo, gradingService, rdb, cfg, log)
	go func() {
		defer close(workerDone)
		gradingWorker.Start(workerCtx)
	}()

	// ─── Requeue Pending Attempts ─────────────────────────────────────
	// Attempts accepted before a crash are still PENDING in Postgres.
	if n, err := attemptService.RequeuePending(ctx, requeueLimit); err != nil {
		log.Warn().Err(err).Msg("Requeue of pending attempts failed")
	} else if n > 0 {
		log.Info().Int("count", n).Msg("Requeued pending attempts")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg)

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

	// 2. Stop the grading worker; it flushes its current batch before returning.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Grading worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
