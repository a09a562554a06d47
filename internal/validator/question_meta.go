package validator

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/stemsi/quizgrade/internal/grading"
)

// Authoring schemas. Grading tolerates far more than these accept; they
// only gate what new question sets may look like when strict authoring is
// switched on.

type choiceOption struct {
	ID    string `json:"id" validate:"required,max=100"`
	Text  string `json:"text" validate:"required_without=Label,max=2000"`
	Label string `json:"label" validate:"max=2000"`
}

type singleChoiceMeta struct {
	Options []choiceOption `json:"options" validate:"min=2,max=50,unique=ID,dive"`
	Correct any            `json:"correct"`
}

type multiChoiceMeta struct {
	Options       []choiceOption `json:"options" validate:"min=2,max=50,unique=ID,dive"`
	Correct       []string       `json:"correct" validate:"min=1,dive,required"`
	PartialCredit string         `json:"partialCredit" validate:"omitempty,oneof=none proportional all-or-nothing"`
}

type fuzzyMeta struct {
	MaxDistance int `json:"maxDistance" validate:"min=0,max=3"`
}

type shortTextMeta struct {
	Accepted      []string   `json:"accepted" validate:"min=1,dive,required"`
	CaseSensitive bool       `json:"caseSensitive"`
	Fuzzy         *fuzzyMeta `json:"fuzzy"`
}

type trueFalseMeta struct {
	Correct *bool `json:"correct" validate:"required"`
}

type openEndedMeta struct {
	Rubric   string `json:"rubric" validate:"required"`
	MaxChars int    `json:"maxChars" validate:"omitempty,min=1,max=10000"`
}

type orderingMeta struct {
	Items         []choiceOption `json:"items" validate:"min=2,unique=ID,dive"`
	CorrectOrder  []string       `json:"correctOrder" validate:"min=2,dive,required"`
	PartialCredit string         `json:"partialCredit" validate:"omitempty,oneof=none pairwise"`
}

type matchingMeta struct {
	Left          []choiceOption    `json:"left" validate:"min=1,unique=ID,dive"`
	Right         []choiceOption    `json:"right" validate:"min=1,unique=ID,dive"`
	CorrectMap    map[string]string `json:"correctMap" validate:"min=1"`
	PartialCredit string            `json:"partialCredit" validate:"omitempty,oneof=none perPair"`
	MatchMode     string            `json:"matchMode" validate:"omitempty,oneof=strict lenient"`
}

var metaValidator = sync.OnceValue(func() *govalidator.Validate {
	v := govalidator.New(govalidator.WithRequiredStructEnabled())
	configure(v)
	return v
})

// ValidateQuestion checks a question against its type's authoring schema.
// It returns nil when the question is acceptable, otherwise a map of
// field path -> message in the same shape as TranslateErrors.
func ValidateQuestion(q grading.Question) map[string]string {
	fields := map[string]string{}

	qt, ok := grading.ParseQuestionType(q.Type)
	if !ok {
		fields["type"] = fmt.Sprintf("unknown question type %q", q.Type)
		return fields
	}
	if strings.TrimSpace(q.Stem) == "" {
		fields["stem"] = "stem is a required field"
	}
	if q.Points != nil {
		if f, isNum := q.Points.(float64); !isNum || f < 0.01 || f > 999999 {
			fields["points"] = "points must be a number between 0.01 and 999999"
		}
	}

	switch qt {
	case grading.TypeSingleChoice:
		var m singleChoiceMeta
		if decodeMeta(q.Metadata, &m, fields) {
			ids := optionIDs(m.Options)
			switch c := m.Correct.(type) {
			case string:
				if !lo.Contains(ids, c) {
					fields["metadata.correct"] = fmt.Sprintf("correct must name one of the options, got %q", c)
				}
			case float64:
				if c != float64(int(c)) || int(c) < 0 || int(c) >= len(ids) {
					fields["metadata.correct"] = "correct index is out of range"
				}
			default:
				fields["metadata.correct"] = "correct is a required field"
			}
		}
	case grading.TypeMultiChoice:
		var m multiChoiceMeta
		if decodeMeta(q.Metadata, &m, fields) {
			checkRefs(fields, "metadata.correct", m.Correct, optionIDs(m.Options))
		}
	case grading.TypeShortText:
		var m shortTextMeta
		decodeMeta(q.Metadata, &m, fields)
	case grading.TypeTrueFalse:
		var m trueFalseMeta
		decodeMeta(q.Metadata, &m, fields)
	case grading.TypeOpenEnded:
		var m openEndedMeta
		decodeMeta(q.Metadata, &m, fields)
	case grading.TypeOrdering:
		var m orderingMeta
		if decodeMeta(q.Metadata, &m, fields) {
			checkRefs(fields, "metadata.correctOrder", m.CorrectOrder, optionIDs(m.Items))
		}
	case grading.TypeMatching:
		var m matchingMeta
		if decodeMeta(q.Metadata, &m, fields) {
			checkRefs(fields, "metadata.correctMap", lo.Keys(m.CorrectMap), optionIDs(m.Left))
			checkRefs(fields, "metadata.correctMap", lo.Values(m.CorrectMap), optionIDs(m.Right))
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// decodeMeta round-trips the loose metadata through JSON into a typed
// schema and validates it. It reports whether the schema itself passed, so
// callers only cross-check references on well-formed data.
func decodeMeta(meta grading.Metadata, dst any, fields map[string]string) bool {
	raw, err := json.Marshal(meta)
	if err != nil {
		fields["metadata"] = err.Error()
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		fields["metadata"] = err.Error()
		return false
	}
	if err := metaValidator().Struct(dst); err != nil {
		for k, msg := range TranslateErrors(err) {
			fields["metadata."+k] = msg
		}
		return false
	}
	return true
}

func optionIDs(opts []choiceOption) []string {
	return lo.Map(opts, func(o choiceOption, _ int) string { return o.ID })
}

func checkRefs(fields map[string]string, field string, refs, known []string) {
	unknown := lo.Uniq(lo.Without(refs, known...))
	slices.Sort(unknown)
	if len(unknown) > 0 {
		fields[field] = fmt.Sprintf("unknown ids: %s", strings.Join(unknown, ", "))
	}
}
