package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stemsi/quizgrade/internal/model"
	"github.com/stemsi/quizgrade/internal/service"
)

func TestNextTry(t *testing.T) {
	persistErr := errors.New("connection reset")

	tests := []struct {
		name      string
		tries     int
		cause     error
		wantTries int
		giveUp    bool
	}{
		{"first failure requeues", 0, persistErr, 1, false},
		{"second failure requeues", 1, persistErr, 2, false},
		{"third failure gives up", 2, persistErr, 3, true},
		{"quiz gone gives up at once", 0, service.ErrQuizNotFound, 1, true},
		{"wrapped quiz gone gives up", 0, fmt.Errorf("grade: %w", service.ErrQuizNotFound), 1, true},
		{"emptied quiz gives up at once", 0, service.ErrNoQuestions, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := model.AttemptJob{AttemptID: "a1", QuizID: "q1", Tries: tt.tries}
			next, giveUp := nextTry(job, tt.cause)
			if giveUp != tt.giveUp {
				t.Errorf("giveUp = %v, want %v", giveUp, tt.giveUp)
			}
			if next.Tries != tt.wantTries {
				t.Errorf("Tries = %d, want %d", next.Tries, tt.wantTries)
			}
			if job.Tries != tt.tries {
				t.Errorf("input job mutated: Tries = %d", job.Tries)
			}
		})
	}
}

func TestNextTry_RequeuePayload(t *testing.T) {
	job := model.AttemptJob{AttemptID: "a1", QuizID: "q1"}
	for range GradeMaxTries - 1 {
		var giveUp bool
		job, giveUp = nextTry(job, errors.New("timeout"))
		if giveUp {
			t.Fatalf("gave up after %d tries", job.Tries)
		}

		raw, err := json.Marshal(job)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var decoded model.AttemptJob
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if decoded != job {
			t.Fatalf("queued payload %s decodes to %+v, want %+v", raw, decoded, job)
		}
	}
	if _, giveUp := nextTry(job, errors.New("timeout")); !giveUp {
		t.Errorf("still requeueing after %d tries", GradeMaxTries)
	}
}
