package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizgrade/internal/model"
)

// QuizRepository handles quiz and question data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// GetByID retrieves a quiz. Returns pgx.ErrNoRows when it does not exist.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	var q model.Quiz
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, created_at, updated_at FROM quizzes WHERE id = $1`, id,
	).Scan(&q.ID, &q.Title, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListQuestions retrieves all questions of a quiz, ordered by position.
func (r *QuizRepository) ListQuestions(ctx context.Context, quizID uuid.UUID) ([]model.QuizQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT quiz_id, question_id, position, type, stem, metadata, points
		 FROM quiz_questions WHERE quiz_id = $1
		 ORDER BY position`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.QuizQuestion
	for rows.Next() {
		var q model.QuizQuestion
		if err := rows.Scan(&q.QuizID, &q.QuestionID, &q.Position, &q.Type, &q.Stem, &q.Metadata, &q.Points); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReplaceQuestions upserts the quiz and swaps its whole question set in one
// transaction. An empty title keeps the stored one.
func (r *QuizRepository) ReplaceQuestions(ctx context.Context, quiz *model.Quiz, questions []model.QuizQuestion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO quizzes (id, title) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE
		 SET title = COALESCE(NULLIF(EXCLUDED.title, ''), quizzes.title),
		     updated_at = NOW()
		 RETURNING title, created_at, updated_at`,
		quiz.ID, quiz.Title,
	).Scan(&quiz.Title, &quiz.CreatedAt, &quiz.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert quiz: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM quiz_questions WHERE quiz_id = $1`, quiz.ID); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}

	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(
			`INSERT INTO quiz_questions (quiz_id, question_id, position, type, stem, metadata, points)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			quiz.ID, q.QuestionID, q.Position, q.Type, q.Stem, q.Metadata, nullableJSON(q.Points),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}

	return tx.Commit(ctx)
}

// nullableJSON maps an absent JSON value to SQL NULL.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
