package grading

import (
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// points is a question's resolved maximum score. set is false when neither
// the question nor its metadata carried a usable value.
type points struct {
	value float64
	set   bool
}

func resolvePoints(q Question) points {
	if f, ok := toNumber(q.Points); ok && f >= 0 {
		return points{value: f, set: true}
	}
	for _, k := range []string{"points", "weight"} {
		if f, ok := toNumber(q.Metadata[k]); ok && f >= 0 {
			return points{value: f, set: true}
		}
	}
	return points{value: 1}
}

// verdict is what a per-type grader hands back to the orchestrator.
type verdict struct {
	correct  *bool
	score    float64
	possible float64
	diag     string
}

func allOrNothing(ok bool, possible float64) verdict {
	if ok {
		return verdict{correct: boolPtr(true), score: possible, possible: possible}
	}
	return verdict{correct: boolPtr(false), possible: possible}
}

func failed(possible float64, diag string) verdict {
	return verdict{correct: boolPtr(false), possible: possible, diag: diag}
}

type gradeFunc func(meta Metadata, pts points, response any) verdict

func (e *Engine) gradeTrueFalse(meta Metadata, pts points, response any) verdict {
	correct, ok := resolveTrueFalseKey(meta)
	if !ok {
		return failed(pts.value, DiagMissingAnswerKey)
	}
	given, ok := ReadTrueFalse(response)
	if !ok {
		return failed(pts.value, DiagNoResponse)
	}
	e.log.Debug().Bool("correct", correct).Bool("given", given).Msg("tf: compare")
	return allOrNothing(given == correct, pts.value)
}

func (e *Engine) gradeSingleChoice(meta Metadata, pts points, response any) verdict {
	ix := indexOptions(ResolveOptions(meta))
	correct, outOfRange := resolveSingleChoiceKey(meta, ix)
	if correct == "" {
		if outOfRange {
			return failed(pts.value, DiagIndexOutOfRange)
		}
		return failed(pts.value, DiagMissingAnswerKey)
	}
	given := ReadSingleChoice(response)
	if strings.TrimSpace(given) == "" {
		return failed(pts.value, DiagNoResponse)
	}

	// Strategy A: id equality.
	if Normalize(given) == Normalize(correct) {
		return allOrNothing(true, pts.value)
	}

	// Strategy B: label equality, for submissions that mix ids and labels.
	correctLabel, ok := ix.labelFor(correct)
	if !ok {
		correctLabel = correct
	}
	givenLabel, ok := ix.labelFor(given)
	if !ok {
		givenLabel = given
	}
	if cl, gl := Normalize(correctLabel), Normalize(givenLabel); cl != "" && gl != "" && cl == gl {
		e.log.Debug().Str("given", given).Str("correct", correct).Msg("mc1: label match")
		return allOrNothing(true, pts.value)
	}

	// Strategy C: the submission is a label, look its id up.
	if id, ok := ix.idForLabel(given); ok && Normalize(id) == Normalize(correct) {
		e.log.Debug().Str("given", given).Str("resolved", id).Msg("mc1: reverse label match")
		return allOrNothing(true, pts.value)
	}

	e.log.Debug().
		Str("given", given).
		Str("correct", correct).
		Int("options", len(ix.opts)).
		Msg("mc1: mismatch")
	return allOrNothing(false, pts.value)
}

func (e *Engine) gradeMultiChoice(meta Metadata, pts points, response any) verdict {
	ix := indexOptions(ResolveOptions(meta))
	correct := resolveMultiChoiceKey(meta, ix)
	if len(correct) == 0 {
		return failed(pts.value, DiagMissingAnswerKey)
	}
	given := lo.Map(ReadMultiChoice(response), func(id string, _ int) string {
		return ix.canonical(id)
	})
	if len(given) == 0 {
		return failed(pts.value, DiagNoResponse)
	}

	want, got := choiceSet(correct), choiceSet(given)
	e.log.Debug().Strs("correct", want).Strs("given", got).Msg("mcM: compare")
	return allOrNothing(slices.Equal(want, got), pts.value)
}

// choiceSet is the normalized, deduplicated, sorted form of an id list.
func choiceSet(ids []string) []string {
	set := lo.Uniq(lo.Map(ids, func(id string, _ int) string { return Normalize(id) }))
	set = lo.Filter(set, func(id string, _ int) bool { return id != "" })
	slices.Sort(set)
	return set
}

func (e *Engine) gradeOrdering(meta Metadata, pts points, response any) verdict {
	items := orderingItems(meta)
	correct := lo.Map(resolveOrderingKey(meta, items), func(id string, _ int) string { return Normalize(id) })
	if len(correct) == 0 {
		return failed(pts.value, DiagMissingAnswerKey)
	}
	given := lo.Map(ReadOrdering(response), func(id string, _ int) string {
		return Normalize(items.canonical(id))
	})
	if len(given) == 0 {
		return failed(pts.value, DiagNoResponse)
	}

	if slices.Equal(given, correct) {
		return allOrNothing(true, pts.value)
	}
	if isFlagTrue(meta["allowReverse"]) {
		reversed := slices.Clone(correct)
		slices.Reverse(reversed)
		if slices.Equal(given, reversed) {
			e.log.Debug().Msg("ord: reverse match")
			return allOrNothing(true, pts.value)
		}
	}
	if isFlagTrue(meta["ignoreMissing"]) {
		ok := isSubsequence(correct, given)
		e.log.Debug().Bool("ok", ok).Msg("ord: subsequence check")
		return allOrNothing(ok, pts.value)
	}
	return allOrNothing(false, pts.value)
}

// isSubsequence reports whether every element of want appears in got in the
// same relative order; extra elements in got are tolerated.
func isSubsequence(want, got []string) bool {
	i := 0
	for _, g := range got {
		if i < len(want) && g == want[i] {
			i++
		}
	}
	return i == len(want)
}

func (e *Engine) gradeMatching(meta Metadata, pts points, response any) verdict {
	key := resolveMatchingKey(meta)
	left := matchingSide(meta, "left")
	if len(left) == 0 {
		for _, k := range sortedStringKeys(key) {
			left = append(left, Option{ID: k, Label: k})
		}
	}

	possible := pts.value
	if !pts.set {
		possible = float64(max(len(left), 1))
	}
	if len(left) == 0 || len(key) == 0 {
		return failed(possible, DiagMissingAnswerKey)
	}

	right := indexOptions(matchingSide(meta, "right"))
	expected := normalizeKeys(key)
	given := ReadMatching(response)
	if strings.EqualFold(toString(meta["matchMode"]), "lenient") {
		given = remapLenient(given, left)
	}
	chosen := normalizeKeys(given)

	correctPairs := 0
	for _, l := range left {
		want, ok := lookupSide(expected, l)
		if !ok || want == "" {
			continue
		}
		got, ok := lookupSide(chosen, l)
		if !ok || got == "" {
			continue
		}
		if Normalize(right.canonical(want)) == Normalize(right.canonical(got)) {
			correctPairs++
		}
	}

	total := len(left)
	allCorrect := correctPairs == total
	e.log.Debug().Int("correct_pairs", correctPairs).Int("total", total).Msg("mat: compare")

	if toString(meta["partialCredit"]) == "none" {
		return allOrNothing(allCorrect, possible)
	}
	score := roundHalfUp(float64(correctPairs) / float64(total) * possible)
	if allCorrect {
		score = possible
	}
	return verdict{correct: boolPtr(allCorrect), score: score, possible: possible}
}

func matchingSide(meta Metadata, side string) []Option {
	if list, ok := asList(meta[side]); ok {
		return optionsFromList(list)
	}
	if m, ok := asMap(meta[side]); ok {
		return optionsFromMap(m)
	}
	return nil
}

func normalizeKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[Normalize(k)] = v
	}
	return out
}

// lookupSide finds a left item's entry by id, then by label.
func lookupSide(m map[string]string, l Option) (string, bool) {
	if v, ok := m[Normalize(l.ID)]; ok {
		return v, true
	}
	v, ok := m[Normalize(l.Label)]
	return v, ok
}

// remapLenient rewrites unknown left keys that uniquely contain, or are
// contained in, a known left id. Exact keys win over remapped ones.
func remapLenient(given map[string]string, left []Option) map[string]string {
	known := lo.Map(left, func(o Option, _ int) string { return Normalize(o.ID) })
	out := make(map[string]string, len(given))
	for k, v := range given {
		if lo.Contains(known, Normalize(k)) {
			out[Normalize(k)] = v
		}
	}
	for _, k := range sortedStringKeys(given) {
		nk := Normalize(k)
		if lo.Contains(known, nk) || nk == "" {
			continue
		}
		candidates := lo.Filter(known, func(c string, _ int) bool {
			return strings.Contains(c, nk) || strings.Contains(nk, c)
		})
		if len(candidates) != 1 {
			continue
		}
		if _, taken := out[candidates[0]]; !taken {
			out[candidates[0]] = given[k]
		}
	}
	return out
}

func sortedStringKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

func (e *Engine) gradeShortText(meta Metadata, pts points, response any) verdict {
	key := resolveShortTextKey(meta)
	if len(key.accepted) == 0 {
		return failed(pts.value, DiagMissingAnswerKey)
	}
	fold := !key.caseSensitive
	given := normalize(ReadText(response), fold)
	if given == "" {
		return failed(pts.value, DiagNoResponse)
	}

	for _, a := range key.accepted {
		if normalize(a, fold) == given {
			return allOrNothing(true, pts.value)
		}
	}

	limit := key.maxDistance
	if limit == 0 {
		limit = e.maxEdit
	}
	// Short submissions are never fuzzy-matched: with a limit equal to their
	// length any answer would do.
	givenLen := len([]rune(given))
	if limit >= 1 && givenLen > limit {
		for _, a := range key.accepted {
			target := normalize(a, fold)
			// The distance is at least the length gap.
			if gap := len([]rune(target)) - givenLen; gap > limit || -gap > limit {
				continue
			}
			if d := Distance(target, given); d <= limit {
				e.log.Debug().
					Str("given", given).
					Str("target", target).
					Int("distance", d).
					Int("limit", limit).
					Msg("short: fuzzy match")
				return allOrNothing(true, pts.value)
			}
		}
	}
	return allOrNothing(false, pts.value)
}

func (e *Engine) gradeOpenEnded(_ Metadata, pts points, _ any) verdict {
	return verdict{possible: pts.value, diag: DiagManualGrading}
}
