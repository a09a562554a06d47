package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizgrade/internal/grading"
)

// AttemptStatus tracks an attempt through the grading pipeline.
type AttemptStatus string

const (
	AttemptStatusPending AttemptStatus = "PENDING"
	AttemptStatusGraded  AttemptStatus = "GRADED"
	AttemptStatusFailed  AttemptStatus = "FAILED"
)

// Attempt is one learner's submission against a quiz.
type Attempt struct {
	ID            uuid.UUID             `json:"id"`
	QuizID        uuid.UUID             `json:"quiz_id"`
	LearnerID     string                `json:"learner_id"`
	Status        AttemptStatus         `json:"status"`
	Responses     json.RawMessage       `json:"responses,omitempty"`
	TotalScore    *float64              `json:"total_score"`
	TotalPossible *float64              `json:"total_possible"`
	SubmittedAt   time.Time             `json:"submitted_at"`
	GradedAt      *time.Time            `json:"graded_at,omitempty"`
	Details       []grading.GradeDetail `json:"details,omitempty"`
}

// GradedAttempt is a finished grading run waiting to be persisted.
type GradedAttempt struct {
	AttemptID uuid.UUID           `json:"attempt_id"`
	Result    grading.BatchResult `json:"result"`
	GradedAt  time.Time           `json:"graded_at"`
}

// AttemptJob is the queue payload for asynchronous grading.
type AttemptJob struct {
	AttemptID string `json:"attempt_id"`
	QuizID    string `json:"quiz_id"`
	// Tries counts failed persist rounds; the worker gives up after a few.
	Tries int `json:"tries,omitempty"`
}

// SubmitAttemptRequest is the payload for submitting an attempt.
type SubmitAttemptRequest struct {
	LearnerID string         `json:"learner_id" binding:"required,max=100"`
	Responses map[string]any `json:"responses" binding:"required"`
}

// GradeRequest grades one question without touching storage.
type GradeRequest struct {
	Question *grading.Question `json:"question" binding:"required"`
	Response any               `json:"response"`
}

// GradeBatchRequest grades a question set without touching storage.
type GradeBatchRequest struct {
	Questions []grading.Question `json:"questions" binding:"required,min=1,max=500"`
	Responses map[string]any     `json:"responses"`
}
