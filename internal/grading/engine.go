// Package grading turns a question definition and a learner response into a
// verdict and a score.
//
// The engine is pure: it performs no I/O, keeps no state between calls and
// never panics or returns an error to its caller. Questions whose authoring
// data cannot be evaluated come back with IsCorrect == nil and a diagnostic.
// An *Engine is safe for concurrent use.
package grading

import (
	"github.com/rs/zerolog"
)

// Engine grades questions. Build one with New and share it.
type Engine struct {
	log     zerolog.Logger
	maxEdit int
	graders map[QuestionType]gradeFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sends per-question diagnostics to log. The default discards them.
func WithLogger(log zerolog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithMaxEditDistance sets the fuzzy threshold used by short-text questions
// whose metadata configures none. Zero keeps exact matching.
func WithMaxEditDistance(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.maxEdit = n
		}
	}
}

// New returns an Engine with all built-in graders installed.
func New(opts ...EngineOption) *Engine {
	e := &Engine{log: zerolog.Nop()}
	for _, o := range opts {
		o(e)
	}
	e.graders = map[QuestionType]gradeFunc{
		TypeTrueFalse:    e.gradeTrueFalse,
		TypeSingleChoice: e.gradeSingleChoice,
		TypeMultiChoice:  e.gradeMultiChoice,
		TypeOrdering:     e.gradeOrdering,
		TypeMatching:     e.gradeMatching,
		TypeShortText:    e.gradeShortText,
		TypeOpenEnded:    e.gradeOpenEnded,
	}
	return e
}

// GradeOne grades a single question. It always returns a detail; a grader
// that blows up on malformed data yields an ungraded detail instead.
func (e *Engine) GradeOne(q Question, response any) (detail GradeDetail) {
	qt, known := ParseQuestionType(q.Type)
	typeName := q.Type
	if known {
		typeName = string(qt)
	}
	pts := resolvePoints(q)
	detail = GradeDetail{QuestionID: q.ID, Type: typeName, Possible: pts.value}

	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("question_id", q.ID).
				Str("type", typeName).
				Interface("panic", r).
				Strs("metadata_keys", sortedKeys(q.Metadata)).
				Msg("grader failed, question left ungraded")
			detail = GradeDetail{
				QuestionID: q.ID,
				Type:       typeName,
				Possible:   pts.value,
				Diagnostic: DiagGraderPanic,
			}
		}
	}()

	grade, ok := e.graders[qt]
	if !known || !ok {
		e.log.Debug().Str("question_id", q.ID).Str("type", q.Type).Msg("unknown type, manual grading")
		detail.Diagnostic = DiagUnsupportedType
		return detail
	}

	meta := q.Metadata
	if meta == nil {
		meta = Metadata{}
	}
	v := grade(meta, pts, response)

	detail.IsCorrect = v.correct
	detail.Possible = v.possible
	detail.Score = min(max(v.score, 0), v.possible)
	detail.Diagnostic = v.diag

	ev := e.log.Debug().Str("question_id", q.ID).Str("type", typeName).Float64("score", detail.Score)
	if detail.IsCorrect != nil {
		ev = ev.Bool("is_correct", *detail.IsCorrect)
	}
	if detail.Diagnostic != "" {
		ev = ev.Str("diagnostic", detail.Diagnostic)
	}
	ev.Msg("graded")
	return detail
}

// GradeBatch grades every question against responses[question.ID] and sums
// the results. Details keep the order of questions.
func (e *Engine) GradeBatch(questions []Question, responses map[string]any) BatchResult {
	res := BatchResult{Details: make([]GradeDetail, 0, len(questions))}
	for _, q := range questions {
		d := e.GradeOne(q, responses[q.ID])
		res.Details = append(res.Details, d)
		res.TotalScore += d.Score
		res.TotalPossible += d.Possible
	}
	e.log.Debug().
		Int("count", len(res.Details)).
		Float64("total_score", res.TotalScore).
		Float64("total_possible", res.TotalPossible).
		Msg("batch graded")
	return res
}
