package grading

import (
	"encoding/json"
	"strings"
)

// QuestionType names one of the structurally different question kinds.
type QuestionType string

const (
	TypeTrueFalse    QuestionType = "true_false"
	TypeSingleChoice QuestionType = "single_choice"
	TypeMultiChoice  QuestionType = "multi_choice"
	TypeShortText    QuestionType = "short_text"
	TypeOrdering     QuestionType = "ordering"
	TypeMatching     QuestionType = "matching"
	TypeOpenEnded    QuestionType = "open_ended"
)

var typeAliases = map[string]QuestionType{
	"true_false":               TypeTrueFalse,
	"single_choice":            TypeSingleChoice,
	"mc_single":                TypeSingleChoice,
	"multiple_choice_single":   TypeSingleChoice,
	"multi_choice":             TypeMultiChoice,
	"mc_multi":                 TypeMultiChoice,
	"multiple_choice_multiple": TypeMultiChoice,
	"short_text":               TypeShortText,
	"short_answer":             TypeShortText,
	"ordering":                 TypeOrdering,
	"matching":                 TypeMatching,
	"open_ended":               TypeOpenEnded,
	"open":                     TypeOpenEnded,
	"essay":                    TypeOpenEnded,
}

// ParseQuestionType maps canonical names and legacy aliases to a
// QuestionType.
func ParseQuestionType(s string) (QuestionType, bool) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

// Question is the definition graded against a response. Points is kept
// untyped because stored data carries numbers, numeric strings and garbage.
type Question struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Stem     string   `json:"stem,omitempty"`
	Metadata Metadata `json:"metadata"`
	Points   any      `json:"points,omitempty"`
}

// UnmarshalJSON also accepts the older "meta" field name.
func (q *Question) UnmarshalJSON(data []byte) error {
	type plain Question
	var aux struct {
		plain
		Meta Metadata `json:"meta"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*q = Question(aux.plain)
	if q.Metadata == nil {
		q.Metadata = aux.Meta
	}
	return nil
}

// Diagnostics explain why a detail is not a plain verdict.
const (
	DiagMissingAnswerKey = "missing_answer_key"
	DiagIndexOutOfRange  = "index_out_of_range"
	DiagNoResponse       = "no_response"
	DiagManualGrading    = "manual_grading"
	DiagUnsupportedType  = "unsupported_type"
	DiagGraderPanic      = "grader_panic"
)

// GradeDetail is the outcome for one question. IsCorrect is nil when the
// question is not machine-gradable or could not be evaluated; callers must
// not read nil as false.
type GradeDetail struct {
	QuestionID string  `json:"question_id"`
	Type       string  `json:"type"`
	IsCorrect  *bool   `json:"is_correct"`
	Score      float64 `json:"score"`
	Possible   float64 `json:"possible"`
	Diagnostic string  `json:"diagnostic,omitempty"`
}

// Ungraded reports whether the detail carries no verdict.
func (d GradeDetail) Ungraded() bool { return d.IsCorrect == nil }

// BatchResult aggregates details in question order.
type BatchResult struct {
	TotalScore    float64       `json:"total_score"`
	TotalPossible float64       `json:"total_possible"`
	Details       []GradeDetail `json:"details"`
}

func boolPtr(v bool) *bool {
	return &v
}
