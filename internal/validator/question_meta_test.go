package validator

import (
	"encoding/json"
	"testing"

	"github.com/stemsi/quizgrade/internal/grading"
)

func question(t *testing.T, raw string) grading.Question {
	t.Helper()
	var q grading.Question
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		t.Fatalf("decode question: %v", err)
	}
	return q
}

func TestValidateQuestion_Valid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"single choice by id", `{"id":"1","type":"mc_single","stem":"Capital?","meta":{"options":[{"id":"a","text":"Paris"},{"id":"b","text":"Lyon"}],"correct":"a"}}`},
		{"single choice by index", `{"id":"1","type":"single_choice","stem":"Capital?","metadata":{"options":[{"id":"a","label":"Paris"},{"id":"b","label":"Lyon"}],"correct":1}}`},
		{"multi choice", `{"id":"2","type":"mc_multi","stem":"Primes?","meta":{"options":[{"id":"a","text":"2"},{"id":"b","text":"4"},{"id":"c","text":"5"}],"correct":["a","c"],"partialCredit":"none"},"points":2}`},
		{"short text", `{"id":"3","type":"short_text","stem":"Capital?","meta":{"accepted":["Paris"],"fuzzy":{"maxDistance":1}}}`},
		{"true false", `{"id":"4","type":"true_false","stem":"Sky is blue","meta":{"correct":false}}`},
		{"open", `{"id":"5","type":"open","stem":"Discuss","meta":{"rubric":"Two arguments"}}`},
		{"ordering", `{"id":"6","type":"ordering","stem":"Sort","meta":{"items":[{"id":"x","text":"1"},{"id":"y","text":"2"}],"correctOrder":["y","x"]}}`},
		{"matching", `{"id":"7","type":"matching","stem":"Pair","meta":{"left":[{"id":"l1","text":"Apple"}],"right":[{"id":"r1","text":"Red"}],"correctMap":{"l1":"r1"},"matchMode":"lenient"}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if fields := ValidateQuestion(question(t, tc.raw)); fields != nil {
				t.Fatalf("unexpected errors: %v", fields)
			}
		})
	}
}

func TestValidateQuestion_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"unknown type", `{"id":"1","type":"hotspot","stem":"x","meta":{}}`, "type"},
		{"missing stem", `{"id":"1","type":"true_false","meta":{"correct":true}}`, "stem"},
		{"bad points", `{"id":"1","type":"true_false","stem":"x","meta":{"correct":true},"points":"2"}`, "points"},
		{"one option", `{"id":"1","type":"mc_single","stem":"x","meta":{"options":[{"id":"a","text":"A"}],"correct":"a"}}`, "metadata.options"},
		{"duplicate option ids", `{"id":"1","type":"mc_single","stem":"x","meta":{"options":[{"id":"a","text":"A"},{"id":"a","text":"B"}],"correct":"a"}}`, "metadata.options"},
		{"option without text", `{"id":"1","type":"mc_single","stem":"x","meta":{"options":[{"id":"a","text":"A"},{"id":"b"}],"correct":"a"}}`, "metadata.options[1].text"},
		{"correct not an option", `{"id":"1","type":"mc_single","stem":"x","meta":{"options":[{"id":"a","text":"A"},{"id":"b","text":"B"}],"correct":"z"}}`, "metadata.correct"},
		{"correct index out of range", `{"id":"1","type":"mc_single","stem":"x","meta":{"options":[{"id":"a","text":"A"},{"id":"b","text":"B"}],"correct":2}}`, "metadata.correct"},
		{"multi without correct", `{"id":"1","type":"mc_multi","stem":"x","meta":{"options":[{"id":"a","text":"A"},{"id":"b","text":"B"}]}}`, "metadata.correct"},
		{"multi unknown id", `{"id":"1","type":"mc_multi","stem":"x","meta":{"options":[{"id":"a","text":"A"},{"id":"b","text":"B"}],"correct":["a","q"]}}`, "metadata.correct"},
		{"no accepted answers", `{"id":"1","type":"short_text","stem":"x","meta":{"accepted":[]}}`, "metadata.accepted"},
		{"fuzzy too large", `{"id":"1","type":"short_text","stem":"x","meta":{"accepted":["a"],"fuzzy":{"maxDistance":5}}}`, "metadata.fuzzy.maxDistance"},
		{"true false without key", `{"id":"1","type":"true_false","stem":"x","meta":{}}`, "metadata.correct"},
		{"true false string key", `{"id":"1","type":"true_false","stem":"x","meta":{"correct":"yes"}}`, "metadata"},
		{"open without rubric", `{"id":"1","type":"open_ended","stem":"x","meta":{}}`, "metadata.rubric"},
		{"ordering unknown item", `{"id":"1","type":"ordering","stem":"x","meta":{"items":[{"id":"x","text":"1"},{"id":"y","text":"2"}],"correctOrder":["x","z"]}}`, "metadata.correctOrder"},
		{"matching unknown right", `{"id":"1","type":"matching","stem":"x","meta":{"left":[{"id":"l1","text":"A"}],"right":[{"id":"r1","text":"B"}],"correctMap":{"l1":"r9"}}}`, "metadata.correctMap"},
		{"matching bad mode", `{"id":"1","type":"matching","stem":"x","meta":{"left":[{"id":"l1","text":"A"}],"right":[{"id":"r1","text":"B"}],"correctMap":{"l1":"r1"},"matchMode":"fuzzy"}}`, "metadata.matchMode"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fields := ValidateQuestion(question(t, tc.raw))
			if _, ok := fields[tc.field]; !ok {
				t.Fatalf("expected error on %q, got %v", tc.field, fields)
			}
		})
	}
}
