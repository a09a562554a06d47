package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizgrade/internal/grading"
	"github.com/stemsi/quizgrade/internal/model"
)

// AttemptRepository handles attempt and per-question grade data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts a pending attempt and fills in its id and submission time.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO quiz_attempts (quiz_id, learner_id, status, responses)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, submitted_at`,
		a.QuizID, a.LearnerID, model.AttemptStatusPending, a.Responses,
	).Scan(&a.ID, &a.SubmittedAt)
}

// GetByID retrieves an attempt with its grade details. Returns pgx.ErrNoRows
// when it does not exist.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	var a model.Attempt
	err := r.pool.QueryRow(ctx,
		`SELECT id, quiz_id, learner_id, status, responses, total_score, total_possible, submitted_at, graded_at
		 FROM quiz_attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.QuizID, &a.LearnerID, &a.Status, &a.Responses, &a.TotalScore, &a.TotalPossible, &a.SubmittedAt, &a.GradedAt)
	if err != nil {
		return nil, err
	}

	details, err := r.ListGrades(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	a.Details = details
	return &a, nil
}

// GetResponses returns the stored responses and quiz of an attempt.
func (r *AttemptRepository) GetResponses(ctx context.Context, id uuid.UUID) (uuid.UUID, map[string]any, error) {
	var (
		quizID uuid.UUID
		raw    []byte
	)
	if err := r.pool.QueryRow(ctx,
		`SELECT quiz_id, responses FROM quiz_attempts WHERE id = $1`, id,
	).Scan(&quizID, &raw); err != nil {
		return uuid.Nil, nil, err
	}
	var responses map[string]any
	if err := json.Unmarshal(raw, &responses); err != nil {
		return quizID, nil, fmt.Errorf("decode responses: %w", err)
	}
	return quizID, responses, nil
}

// ListGrades retrieves per-question details in quiz order.
func (r *AttemptRepository) ListGrades(ctx context.Context, attemptID uuid.UUID) ([]grading.GradeDetail, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, type, is_correct, score, possible, COALESCE(diagnostic, '')
		 FROM attempt_grades WHERE attempt_id = $1
		 ORDER BY position`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []grading.GradeDetail
	for rows.Next() {
		var d grading.GradeDetail
		if err := rows.Scan(&d.QuestionID, &d.Type, &d.IsCorrect, &d.Score, &d.Possible, &d.Diagnostic); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// SaveGraded persists one graded attempt: totals, status and details.
func (r *AttemptRepository) SaveGraded(ctx context.Context, g model.GradedAttempt) error {
	return r.SaveGradedBulk(ctx, []model.GradedAttempt{g})
}

// SaveGradedBulk persists many graded attempts in one transaction using
// UNNEST, so a worker batch costs two round trips regardless of its size.
func (r *AttemptRepository) SaveGradedBulk(ctx context.Context, batch []model.GradedAttempt) error {
	if len(batch) == 0 {
		return nil
	}

	n := len(batch)
	ids := make([]uuid.UUID, 0, n)
	scores := make([]float64, 0, n)
	possibles := make([]float64, 0, n)
	gradedAts := make([]time.Time, 0, n)

	var (
		gAttempt  []uuid.UUID
		gQuestion []string
		gPosition []int32
		gType     []string
		gCorrect  []*bool
		gScore    []float64
		gPossible []float64
		gDiag     []*string
	)

	for _, g := range batch {
		ids = append(ids, g.AttemptID)
		scores = append(scores, g.Result.TotalScore)
		possibles = append(possibles, g.Result.TotalPossible)
		gradedAts = append(gradedAts, g.GradedAt)

		for i, d := range g.Result.Details {
			gAttempt = append(gAttempt, g.AttemptID)
			gQuestion = append(gQuestion, d.QuestionID)
			gPosition = append(gPosition, int32(i))
			gType = append(gType, d.Type)
			gCorrect = append(gCorrect, d.IsCorrect)
			gScore = append(gScore, d.Score)
			gPossible = append(gPossible, d.Possible)
			if d.Diagnostic != "" {
				gDiag = append(gDiag, &d.Diagnostic)
			} else {
				gDiag = append(gDiag, nil)
			}
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE quiz_attempts AS a
		SET status = 'GRADED',
		    total_score = t.score,
		    total_possible = t.possible,
		    graded_at = t.graded_at
		FROM (
			SELECT u.id, u.score, u.possible, u.graded_at
			FROM UNNEST(
				$1::uuid[],
				$2::float8[],
				$3::float8[],
				$4::timestamptz[]
			) AS u (id, score, possible, graded_at)
		) AS t
		WHERE a.id = t.id
	`, ids, scores, possibles, gradedAts)
	if err != nil {
		return fmt.Errorf("update attempts: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM attempt_grades WHERE attempt_id = ANY($1::uuid[])`, ids); err != nil {
		return fmt.Errorf("clear grades: %w", err)
	}

	if len(gAttempt) > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO attempt_grades (attempt_id, question_id, position, type, is_correct, score, possible, diagnostic)
			SELECT * FROM UNNEST(
				$1::uuid[],
				$2::text[],
				$3::int[],
				$4::text[],
				$5::bool[],
				$6::float8[],
				$7::float8[],
				$8::text[]
			)
			ON CONFLICT (attempt_id, question_id) DO NOTHING
		`, gAttempt, gQuestion, gPosition, gType, gCorrect, gScore, gPossible, gDiag)
		if err != nil {
			return fmt.Errorf("insert grades: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// MarkFailed flags an attempt the worker gave up on.
func (r *AttemptRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quiz_attempts SET status = $1 WHERE id = $2 AND status = $3`,
		model.AttemptStatusFailed, id, model.AttemptStatusPending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListPending returns attempts still waiting for a grade, oldest first.
// Used on startup to re-enqueue work lost with a Redis restart.
func (r *AttemptRepository) ListPending(ctx context.Context, limit int) ([]model.AttemptJob, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id FROM quiz_attempts
		 WHERE status = 'PENDING'
		 ORDER BY submitted_at
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.AttemptJob
	for rows.Next() {
		var id, quizID uuid.UUID
		if err := rows.Scan(&id, &quizID); err != nil {
			return nil, err
		}
		jobs = append(jobs, model.AttemptJob{AttemptID: id.String(), QuizID: quizID.String()})
	}
	return jobs, rows.Err()
}
