package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade/internal/config"
	"github.com/stemsi/quizgrade/internal/model"
	"github.com/stemsi/quizgrade/internal/repository"
)

// ErrAttemptNotFound is returned when an attempt id is unknown.
var ErrAttemptNotFound = errors.New("attempt not found")

// pendingResponsesTTL bounds how long enqueued responses stay in Redis; the
// worker falls back to PostgreSQL after that.
const pendingResponsesTTL = 24 * time.Hour

// AttemptService handles attempt submission and lookup.
type AttemptService struct {
	repo    *repository.AttemptRepository
	grading *GradingService
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(repo *repository.AttemptRepository, grading *GradingService, rdb *redis.Client, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		repo:    repo,
		grading: grading,
		rdb:     rdb,
		log:     log.With().Str("component", "attempt_service").Logger(),
	}
}

// Submit records an attempt. With sync set it is graded and persisted before
// returning; otherwise it is queued for the grading worker and comes back
// PENDING.
func (s *AttemptService) Submit(ctx context.Context, quizID uuid.UUID, req model.SubmitAttemptRequest, sync bool) (*model.Attempt, error) {
	// Fail fast on unknown quizzes; this also warms the question cache.
	questions, err := s.grading.quizzes.LoadQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(req.Responses)
	if err != nil {
		return nil, fmt.Errorf("encode responses: %w", err)
	}

	attempt := &model.Attempt{
		QuizID:    quizID,
		LearnerID: req.LearnerID,
		Status:    model.AttemptStatusPending,
		Responses: raw,
	}
	if err := s.repo.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	if sync {
		graded := model.GradedAttempt{
			AttemptID: attempt.ID,
			Result:    s.grading.GradeBatch(questions, req.Responses),
			GradedAt:  time.Now(),
		}
		if err := s.repo.SaveGraded(ctx, graded); err != nil {
			return nil, fmt.Errorf("save grades: %w", err)
		}
		applyGrade(attempt, graded)
		return attempt, nil
	}

	if err := s.Enqueue(ctx, attempt.ID, quizID, raw); err != nil {
		// The row stays PENDING and is picked up by the startup sweep.
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to enqueue attempt")
	}
	attempt.Responses = nil
	return attempt, nil
}

// Enqueue stages responses in Redis and pushes a grading job.
func (s *AttemptService) Enqueue(ctx context.Context, attemptID, quizID uuid.UUID, responses []byte) error {
	job, err := json.Marshal(model.AttemptJob{AttemptID: attemptID.String(), QuizID: quizID.String()})
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	if responses != nil {
		pipe.Set(ctx, config.CacheKey.AttemptResponsesKey(attemptID.String()), responses, pendingResponsesTTL)
	}
	pipe.RPush(ctx, config.WorkerKey.GradeAttemptsQueue, job)
	_, err = pipe.Exec(ctx)
	return err
}

// RequeuePending pushes attempts left PENDING by a previous run back onto
// the queue when Redis lost it. Responses are read from PostgreSQL by the
// worker.
func (s *AttemptService) RequeuePending(ctx context.Context, limit int) (int, error) {
	queued, err := s.rdb.LLen(ctx, config.WorkerKey.GradeAttemptsQueue).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	if queued > 0 {
		return 0, nil
	}

	jobs, err := s.repo.ListPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}
	for _, j := range jobs {
		attemptID, _ := uuid.Parse(j.AttemptID)
		quizID, _ := uuid.Parse(j.QuizID)
		if err := s.Enqueue(ctx, attemptID, quizID, nil); err != nil {
			return 0, fmt.Errorf("enqueue %s: %w", j.AttemptID, err)
		}
	}
	return len(jobs), nil
}

// Get returns an attempt with its grade details.
func (s *AttemptService) Get(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	attempt.Responses = nil
	return attempt, nil
}

func applyGrade(a *model.Attempt, g model.GradedAttempt) {
	a.Status = model.AttemptStatusGraded
	a.TotalScore = &g.Result.TotalScore
	a.TotalPossible = &g.Result.TotalPossible
	a.GradedAt = &g.GradedAt
	a.Details = g.Result.Details
	a.Responses = nil
}
