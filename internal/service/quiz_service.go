package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade/internal/config"
	"github.com/stemsi/quizgrade/internal/grading"
	"github.com/stemsi/quizgrade/internal/model"
	"github.com/stemsi/quizgrade/internal/repository"
	"github.com/stemsi/quizgrade/internal/validator"
)

// Domain Errors
var (
	ErrQuizNotFound = errors.New("quiz not found")
	ErrNoQuestions  = errors.New("quiz has no questions")
)

// AuthoringError carries per-field problems found by strict authoring.
type AuthoringError struct {
	Fields map[string]string
}

func (e *AuthoringError) Error() string {
	return fmt.Sprintf("invalid question metadata (%d problems)", len(e.Fields))
}

// QuizService manages question sets and their Redis cache.
type QuizService struct {
	repo   *repository.QuizRepository
	rdb    *redis.Client
	ttl    time.Duration
	strict bool
	log    zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(repo *repository.QuizRepository, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *QuizService {
	return &QuizService{
		repo:   repo,
		rdb:    rdb,
		ttl:    cfg.QuizCacheTTL,
		strict: cfg.StrictAuthoring,
		log:    log.With().Str("component", "quiz_service").Logger(),
	}
}

// ReplaceQuestions stores a new question set for quizID, creating the quiz
// if needed, and drops the cached copy.
func (s *QuizService) ReplaceQuestions(ctx context.Context, quizID uuid.UUID, req model.ReplaceQuestionsRequest) (*model.QuizWithQuestions, error) {
	questions := make([]grading.Question, len(req.Questions))
	for i, in := range req.Questions {
		questions[i] = in.Question()
	}

	if s.strict {
		if err := checkAuthoring(questions); err != nil {
			return nil, err
		}
	}

	rows := make([]model.QuizQuestion, len(questions))
	for i, q := range questions {
		row, err := toRow(quizID, i, q)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}

	quiz := &model.Quiz{ID: quizID, Title: req.Title}
	if err := s.repo.ReplaceQuestions(ctx, quiz, rows); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}

	if err := s.rdb.Del(ctx, config.CacheKey.QuizQuestionsKey(quizID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Failed to drop cached questions")
	}

	s.log.Info().
		Str("quiz_id", quizID.String()).
		Int("questions", len(rows)).
		Msg("Question set replaced")
	return &model.QuizWithQuestions{Quiz: *quiz, Questions: questions}, nil
}

// checkAuthoring validates every question and prefixes field paths with
// the question's position.
func checkAuthoring(questions []grading.Question) error {
	fields := map[string]string{}
	for i, q := range questions {
		problems := validator.ValidateQuestion(q)
		for _, k := range slices.Sorted(maps.Keys(problems)) {
			fields[fmt.Sprintf("questions[%d].%s", i, k)] = problems[k]
		}
	}
	if len(fields) > 0 {
		return &AuthoringError{Fields: fields}
	}
	return nil
}

func toRow(quizID uuid.UUID, pos int, q grading.Question) (model.QuizQuestion, error) {
	meta := q.Metadata
	if meta == nil {
		meta = grading.Metadata{}
	}
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return model.QuizQuestion{}, fmt.Errorf("encode metadata of %s: %w", q.ID, err)
	}
	var rawPoints []byte
	if q.Points != nil {
		if rawPoints, err = json.Marshal(q.Points); err != nil {
			return model.QuizQuestion{}, fmt.Errorf("encode points of %s: %w", q.ID, err)
		}
	}
	return model.QuizQuestion{
		QuizID:     quizID,
		QuestionID: q.ID,
		Position:   pos,
		Type:       q.Type,
		Stem:       q.Stem,
		Metadata:   rawMeta,
		Points:     rawPoints,
	}, nil
}

// GetQuiz returns a quiz with its questions straight from PostgreSQL.
func (s *QuizService) GetQuiz(ctx context.Context, quizID uuid.UUID) (*model.QuizWithQuestions, error) {
	quiz, err := s.repo.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	questions, err := s.loadFromDB(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return &model.QuizWithQuestions{Quiz: *quiz, Questions: questions}, nil
}

// LoadQuestions returns the question set used for grading, reading through
// the Redis cache.
func (s *QuizService) LoadQuestions(ctx context.Context, quizID uuid.UUID) ([]grading.Question, error) {
	key := config.CacheKey.QuizQuestionsKey(quizID.String())

	data, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var questions []grading.Question
		if err := json.Unmarshal(data, &questions); err == nil {
			return questions, nil
		}
		s.log.Warn().Str("quiz_id", quizID.String()).Msg("Corrupt cached questions, reloading")
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Cache read failed, using database")
	}

	questions, err := s.loadFromDB(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		if _, err := s.repo.GetByID(ctx, quizID); errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, ErrNoQuestions
	}

	if payload, err := json.Marshal(questions); err == nil {
		if err := s.rdb.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Cache write failed")
		}
	}
	return questions, nil
}

func (s *QuizService) loadFromDB(ctx context.Context, quizID uuid.UUID) ([]grading.Question, error) {
	rows, err := s.repo.ListQuestions(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	questions := make([]grading.Question, 0, len(rows))
	for _, row := range rows {
		q, err := row.ToGrading()
		if err != nil {
			// Grade with whatever decoded.
			s.log.Error().Err(err).Str("quiz_id", quizID.String()).Msg("Undecodable question row")
		}
		questions = append(questions, q)
	}
	return questions, nil
}
