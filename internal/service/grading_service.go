package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade/internal/grading"
	"github.com/stemsi/quizgrade/internal/model"
)

// GradingService wraps the grading engine for the HTTP layer and the worker.
type GradingService struct {
	engine  *grading.Engine
	quizzes *QuizService
	log     zerolog.Logger
}

// NewGradingService creates a new GradingService. quizzes may be nil when
// only stateless grading is needed.
func NewGradingService(engine *grading.Engine, quizzes *QuizService, log zerolog.Logger) *GradingService {
	return &GradingService{
		engine:  engine,
		quizzes: quizzes,
		log:     log.With().Str("component", "grading_service").Logger(),
	}
}

// Grade grades one question.
func (s *GradingService) Grade(q grading.Question, response any) grading.GradeDetail {
	return s.engine.GradeOne(q, response)
}

// GradeBatch grades a question set against responses keyed by question id.
func (s *GradingService) GradeBatch(questions []grading.Question, responses map[string]any) grading.BatchResult {
	res := s.engine.GradeBatch(questions, responses)
	ungraded := 0
	for _, d := range res.Details {
		if d.Ungraded() {
			ungraded++
		}
	}
	if ungraded > 0 {
		s.log.Debug().
			Int("questions", len(res.Details)).
			Int("ungraded", ungraded).
			Msg("Batch needs manual review")
	}
	return res
}

// GradeAttempt loads the quiz's question set and grades an attempt's
// responses against it.
func (s *GradingService) GradeAttempt(ctx context.Context, quizID, attemptID uuid.UUID, responses map[string]any) (model.GradedAttempt, error) {
	questions, err := s.quizzes.LoadQuestions(ctx, quizID)
	if err != nil {
		return model.GradedAttempt{}, err
	}
	return model.GradedAttempt{
		AttemptID: attemptID,
		Result:    s.GradeBatch(questions, responses),
		GradedAt:  time.Now(),
	}, nil
}
