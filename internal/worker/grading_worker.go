package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade/internal/config"
	"github.com/stemsi/quizgrade/internal/model"
	"github.com/stemsi/quizgrade/internal/repository"
	"github.com/stemsi/quizgrade/internal/service"
	"golang.org/x/sync/errgroup"
)

const (
	GradeBatchTimeout = 2 * time.Second
	GradePollTimeout  = 1 * time.Second
	// GradeMaxTries is how many persist rounds a job gets before its
	// attempt is marked FAILED.
	GradeMaxTries = 3
)

// GradingWorker drains the attempt queue, grades attempts in parallel and
// persists each batch in bulk.
type GradingWorker struct {
	attempts  *repository.AttemptRepository
	grading   *service.GradingService
	rdb       *redis.Client
	log       zerolog.Logger
	batchSize int
	workers   int
}

func NewGradingWorker(
	attempts *repository.AttemptRepository,
	grading *service.GradingService,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *GradingWorker {
	return &GradingWorker{
		attempts:  attempts,
		grading:   grading,
		rdb:       rdb,
		log:       log.With().Str("component", "grading_worker").Logger(),
		batchSize: cfg.GradingBatchSize,
		workers:   cfg.GradingWorkers,
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start blocks until ctx is cancelled, then flushes what it holds.
func (w *GradingWorker) Start(ctx context.Context) {
	w.log.Info().Int("workers", w.workers).Int("batch_size", w.batchSize).Msg("GradingWorker started")

	batch := make([]model.AttemptJob, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= GradeBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, GradePollTimeout, config.WorkerKey.GradeAttemptsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
					time.Sleep(GradePollTimeout)
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var job model.AttemptJob
			if err := json.Unmarshal([]byte(item[1]), &job); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, job)
		}
	}
}

// ----------------------------------------------------------------
// Grade + persist wrapper
// ----------------------------------------------------------------

func (w *GradingWorker) flushSafe(ctx context.Context, batch []model.AttemptJob) {
	if len(batch) == 0 {
		return
	}

	graded, jobs := w.gradeAll(ctx, batch)
	if len(graded) == 0 {
		return
	}

	if err := w.attempts.SaveGradedBulk(ctx, graded); err != nil {
		w.log.Warn().Err(err).Int("count", len(graded)).Msg("bulk grade persist failed, using fallback")

		for i, g := range graded {
			if err := w.attempts.SaveGraded(ctx, g); err != nil {
				w.retry(ctx, jobs[i], err)
				continue
			}
			w.clearResponses(ctx, []model.GradedAttempt{g})
		}
		return
	}

	w.clearResponses(ctx, graded)
	w.log.Debug().Int("count", len(graded)).Msg("Batch graded")
}

// gradeAll grades jobs concurrently, bounded by the worker count. It
// returns the successful results and, index-aligned, the jobs they came
// from. Jobs that cannot be graded are retried or failed here.
func (w *GradingWorker) gradeAll(ctx context.Context, batch []model.AttemptJob) ([]model.GradedAttempt, []model.AttemptJob) {
	var (
		mu     sync.Mutex
		graded = make([]model.GradedAttempt, 0, len(batch))
		jobs   = make([]model.AttemptJob, 0, len(batch))
		g      errgroup.Group
	)
	g.SetLimit(w.workers)

	for _, job := range batch {
		g.Go(func() error {
			res, err := w.gradeOne(ctx, job)
			if err != nil {
				w.retry(ctx, job, err)
				return nil
			}
			mu.Lock()
			graded = append(graded, res)
			jobs = append(jobs, job)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return graded, jobs
}

func (w *GradingWorker) gradeOne(ctx context.Context, job model.AttemptJob) (model.GradedAttempt, error) {
	attemptID, err := uuid.Parse(job.AttemptID)
	if err != nil {
		return model.GradedAttempt{}, err
	}

	quizID, responses, err := w.loadResponses(ctx, attemptID, job.QuizID)
	if err != nil {
		return model.GradedAttempt{}, err
	}
	return w.grading.GradeAttempt(ctx, quizID, attemptID, responses)
}

// loadResponses prefers the copy staged in Redis at submission and falls
// back to the attempt row.
func (w *GradingWorker) loadResponses(ctx context.Context, attemptID uuid.UUID, quiz string) (uuid.UUID, map[string]any, error) {
	key := config.CacheKey.AttemptResponsesKey(attemptID.String())
	quizID, err := uuid.Parse(quiz)
	if err == nil {
		if data, err := w.rdb.Get(ctx, key).Bytes(); err == nil {
			var responses map[string]any
			if err := json.Unmarshal(data, &responses); err == nil {
				return quizID, responses, nil
			}
		}
	}
	return w.attempts.GetResponses(ctx, attemptID)
}

// nextTry bumps the job's try counter and reports whether the attempt
// should be given up on instead of requeued.
func nextTry(job model.AttemptJob, cause error) (model.AttemptJob, bool) {
	job.Tries++
	giveUp := job.Tries >= GradeMaxTries ||
		errors.Is(cause, service.ErrQuizNotFound) ||
		errors.Is(cause, service.ErrNoQuestions)
	return job, giveUp
}

// retry puts a job back on the queue, or marks its attempt FAILED once it
// has used up its tries.
func (w *GradingWorker) retry(ctx context.Context, job model.AttemptJob, cause error) {
	job, giveUp := nextTry(job, cause)
	log := w.log.With().Str("attempt_id", job.AttemptID).Int("tries", job.Tries).Logger()

	if giveUp {
		log.Error().Err(cause).Msg("giving up on attempt")
		if id, err := uuid.Parse(job.AttemptID); err == nil {
			if err := w.attempts.MarkFailed(ctx, id); err != nil {
				log.Error().Err(err).Msg("MarkFailed failed")
			}
		}
		return
	}

	log.Warn().Err(cause).Msg("grading failed, requeueing")
	raw, err := json.Marshal(job)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode job")
		return
	}
	if err := w.rdb.RPush(ctx, config.WorkerKey.GradeAttemptsQueue, raw).Err(); err != nil {
		// The attempt stays PENDING for the startup sweep.
		log.Error().Err(err).Msg("Failed to requeue job")
	}
}

// ----------------------------------------------------------------
// BULK Redis DEL for staged responses
// ----------------------------------------------------------------

func (w *GradingWorker) clearResponses(ctx context.Context, graded []model.GradedAttempt) {
	pipe := w.rdb.Pipeline()

	for _, g := range graded {
		pipe.Del(ctx, config.CacheKey.AttemptResponsesKey(g.AttemptID.String()))
	}

	_, _ = pipe.Exec(ctx)
}
