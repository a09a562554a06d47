package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizgrade/internal/grading"
)

// Quiz is a named, ordered set of questions.
type Quiz struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuizQuestion is a question row as stored. Metadata and Points keep the
// authored JSON untouched; the grading engine is the only interpreter.
type QuizQuestion struct {
	QuizID     uuid.UUID       `json:"quiz_id"`
	QuestionID string          `json:"question_id"`
	Position   int             `json:"position"`
	Type       string          `json:"type"`
	Stem       string          `json:"stem"`
	Metadata   json.RawMessage `json:"metadata"`
	Points     json.RawMessage `json:"points,omitempty"`
}

// ToGrading decodes the stored row into the engine's question shape.
func (q QuizQuestion) ToGrading() (grading.Question, error) {
	gq := grading.Question{ID: q.QuestionID, Type: q.Type, Stem: q.Stem}
	if len(q.Metadata) > 0 {
		if err := json.Unmarshal(q.Metadata, &gq.Metadata); err != nil {
			return gq, fmt.Errorf("decode metadata of %s: %w", q.QuestionID, err)
		}
	}
	if len(q.Points) > 0 {
		if err := json.Unmarshal(q.Points, &gq.Points); err != nil {
			return gq, fmt.Errorf("decode points of %s: %w", q.QuestionID, err)
		}
	}
	return gq, nil
}

// QuestionInput is one question in an authoring request. Either "metadata"
// or the older "meta" carries the type-specific data.
type QuestionInput struct {
	ID       string         `json:"id" binding:"required,max=100"`
	Type     string         `json:"type" binding:"required,max=50"`
	Stem     string         `json:"stem" binding:"max=5000"`
	Metadata map[string]any `json:"metadata"`
	Meta     map[string]any `json:"meta"`
	Points   any            `json:"points"`
}

// Question returns the input as the engine sees it.
func (in QuestionInput) Question() grading.Question {
	meta := in.Metadata
	if meta == nil {
		meta = in.Meta
	}
	return grading.Question{ID: in.ID, Type: in.Type, Stem: in.Stem, Metadata: meta, Points: in.Points}
}

// ReplaceQuestionsRequest is the payload for replacing a quiz's question set.
type ReplaceQuestionsRequest struct {
	Title     string          `json:"title" binding:"omitempty,max=200"`
	Questions []QuestionInput `json:"questions" binding:"required,min=1,max=500,unique=ID,dive"`
}

// QuizWithQuestions is the admin view of a quiz.
type QuizWithQuestions struct {
	Quiz      Quiz               `json:"quiz"`
	Questions []grading.Question `json:"questions"`
}
