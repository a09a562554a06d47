package grading

// Correct-answer resolution. Each resolver walks a priority chain: the first
// field that is present and non-empty wins, later steps only cover legacy data.

func resolveTrueFalseKey(meta Metadata) (bool, bool) {
	if v, _, ok := meta.first("correct", "answer", "correctAnswer", "correct_answer"); ok {
		if list, isList := asList(v); isList && len(list) > 0 {
			v = list[0]
		}
		return toBool(v)
	}
	if list, ok := asList(meta["correctAnswers"]); ok && len(list) > 0 {
		return toBool(list[0])
	}
	return false, false
}

// singleChoiceKeys is ordered as observed in authoring data; numeric entries
// are treated as positions in the option list.
var singleChoiceKeys = []string{
	"correct", "answer", "correctId", "correct_id", "correctIndex",
	"solution", "correctLabel", "correct_text",
}

// resolveSingleChoiceKey returns the correct option id, or "" when the
// metadata does not say. outOfRange is set when an index pointed nowhere.
func resolveSingleChoiceKey(meta Metadata, ix optionIndex) (id string, outOfRange bool) {
	if raw, key, ok := meta.first(singleChoiceKeys...); ok {
		if list, isList := asList(raw); isList && len(list) > 0 {
			raw = list[0]
		}
		resolved, ok := resolveChoiceValue(raw, ix, key == "correctIndex")
		if ok {
			return resolved, false
		}
		outOfRange = true
	}
	if flagged := flaggedOptions(meta); len(flagged) > 0 {
		return flagged[0], false
	}
	return "", outOfRange
}

// resolveChoiceValue turns one authored value into an option id. Numbers
// are positions; digit strings are positions only when no option carries
// that id.
func resolveChoiceValue(raw any, ix optionIndex, forceIndex bool) (string, bool) {
	if isNumber(raw) && (forceIndex || !ix.empty()) {
		n, ok := toIndex(raw)
		if !ok {
			return "", false
		}
		return ix.at(n)
	}
	s := idOf(raw)
	if !forceIndex && ix.hasID(s) {
		return s, true
	}
	if n, isIdx := toIndex(raw); isIdx && (forceIndex || !ix.empty()) {
		return ix.at(n)
	}
	if forceIndex || s == "" {
		return "", false
	}
	return ix.canonical(s), true
}

func flaggedOptions(meta Metadata) []string {
	for _, k := range []string{"options", "choices", "items"} {
		list, ok := asList(meta[k])
		if !ok || len(list) == 0 {
			continue
		}
		var out []string
		for idx, raw := range list {
			if !flaggedCorrect(raw) {
				continue
			}
			if o, ok := optionFromRaw(raw, idx); ok {
				out = append(out, o.ID)
			}
		}
		return out
	}
	return nil
}

func resolveMultiChoiceKey(meta Metadata, ix optionIndex) []string {
	for _, k := range []string{"correctAnswers", "correct", "answers", "correctIds", "correct_ids"} {
		list, ok := asList(meta[k])
		if !ok || len(list) == 0 {
			continue
		}
		if ids := resolveChoiceList(list, ix); len(ids) > 0 {
			return ids
		}
	}
	return flaggedOptions(meta)
}

// resolveChoiceList maps an authored list onto option ids. Numbers are
// positions. A list of digit strings is read positionally unless every entry
// already names an option. Out-of-range positions are dropped.
func resolveChoiceList(list []any, ix optionIndex) []string {
	allIndex, allIDs := true, true
	for _, v := range list {
		if _, ok := toIndex(v); !ok {
			allIndex = false
		}
		if !ix.hasID(idOf(v)) {
			allIDs = false
		}
	}
	digitPositions := allIndex && !allIDs

	out := make([]string, 0, len(list))
	for _, v := range list {
		if !ix.empty() && (isNumber(v) || digitPositions) {
			if n, ok := toIndex(v); ok {
				if id, ok := ix.at(n); ok {
					out = append(out, id)
				}
			}
			continue
		}
		if s := idOf(v); s != "" {
			out = append(out, ix.canonical(s))
		}
	}
	return out
}

// orderingItems prefers the explicit items list, falling back to whatever
// option list the metadata carries.
func orderingItems(meta Metadata) optionIndex {
	if list, ok := asList(meta["items"]); ok && len(list) > 0 {
		return indexOptions(optionsFromList(list))
	}
	return indexOptions(ResolveOptions(meta))
}

func resolveOrderingKey(meta Metadata, items optionIndex) []string {
	for _, k := range []string{"correctOrder", "order", "correct"} {
		list, ok := asList(meta[k])
		if !ok || len(list) == 0 {
			continue
		}
		if ids := resolveChoiceList(list, items); len(ids) > 0 {
			return ids
		}
	}
	return nil
}

// resolveMatchingKey returns left key -> expected right value as authored.
func resolveMatchingKey(meta Metadata) map[string]string {
	for _, k := range []string{"correctMap", "pairs", "correctPairs", "correct"} {
		v, ok := meta[k]
		if !ok || !hasValue(v) {
			continue
		}
		if m := pairsToMap(v); len(m) > 0 {
			return m
		}
	}
	return nil
}

// pairsToMap accepts {left: right}, [[left, right], ...] and
// [{left, right}, ...].
func pairsToMap(v any) map[string]string {
	out := map[string]string{}
	if m, ok := asMap(v); ok {
		for k, r := range m {
			if k != "" {
				out[k] = idOf(r)
			}
		}
		return out
	}
	list, ok := asList(v)
	if !ok {
		return nil
	}
	for _, p := range list {
		l, r, ok := pairOf(p)
		if ok && l != "" {
			out[l] = r
		}
	}
	return out
}

func pairOf(p any) (string, string, bool) {
	if pair, ok := asList(p); ok {
		if len(pair) < 2 {
			return "", "", false
		}
		return idOf(pair[0]), idOf(pair[1]), true
	}
	if m, ok := asMap(p); ok {
		l, okL := m["left"]
		r, okR := m["right"]
		if !okL || !okR {
			return "", "", false
		}
		return idOf(l), idOf(r), true
	}
	return "", "", false
}

type shortTextKey struct {
	accepted      []string
	caseSensitive bool
	maxDistance   int // 0 means exact matching only
}

func resolveShortTextKey(meta Metadata) shortTextKey {
	var key shortTextKey
	for _, k := range []string{"acceptedAnswers", "accepted", "answers", "correctAnswers"} {
		if list, ok := asList(meta[k]); ok && len(list) > 0 {
			for _, a := range list {
				if s := toString(a); s != "" {
					key.accepted = append(key.accepted, s)
				}
			}
			break
		}
	}
	if len(key.accepted) == 0 {
		if v, _, ok := meta.first("answer", "correct"); ok {
			if s := toString(v); s != "" {
				key.accepted = []string{s}
			}
		}
	}

	key.caseSensitive = isFlagTrue(meta["caseSensitive"]) || isFlagTrue(meta["case_sensitive"])

	if v, _, ok := meta.first("fuzzy", "maxDistance", "fuzzyDistance"); ok {
		if m, isMap := asMap(v); isMap {
			v = m["maxDistance"]
		}
		if n, ok := toNumber(v); ok && n >= 1 {
			key.maxDistance = int(n)
		}
	}
	return key
}
