package grading

import "strconv"

// Option is one selectable choice, resolved to a stable comparison key and
// its display text.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Keys that hold answer keys or matching sides rather than choices. The
// legacy scan must never mistake them for an option list.
var nonOptionKeys = map[string]bool{
	"items": true, "left": true, "right": true,
	"correct": true, "correctIds": true, "correctOrder": true, "order": true,
	"answer": true, "answers": true, "correctAnswers": true, "acceptedAnswers": true,
	"accepted": true, "correctMap": true, "pairs": true, "correctPairs": true,
}

// ResolveOptions extracts a uniform option list from heterogeneous
// metadata. In priority order it accepts an options/choices/items array, an
// options/choices object map, and finally any other field whose first element
// looks choice-like. Malformed metadata yields an empty list.
func ResolveOptions(meta Metadata) []Option {
	if meta == nil {
		return nil
	}
	for _, k := range []string{"options", "choices", "items"} {
		if list, ok := asList(meta[k]); ok && len(list) > 0 {
			return optionsFromList(list)
		}
	}
	for _, k := range []string{"options", "choices"} {
		if m, ok := asMap(meta[k]); ok && len(m) > 0 {
			return optionsFromMap(m)
		}
	}
	return scanLegacyOptions(meta)
}

func scanLegacyOptions(meta Metadata) []Option {
	for _, k := range sortedKeys(meta) {
		if nonOptionKeys[k] {
			continue
		}
		v := meta[k]
		if list, ok := asList(v); ok && len(list) > 0 {
			if choiceLike(list[0]) {
				return optionsFromList(list)
			}
			continue
		}
		if m, ok := asMap(v); ok && len(m) > 0 {
			if choiceLike(m[sortedKeys(m)[0]]) {
				return optionsFromMap(m)
			}
		}
	}
	return nil
}

// choiceLike reports whether v is a primitive or an object carrying one of
// the usual option fields.
func choiceLike(v any) bool {
	switch v.(type) {
	case string, bool, float64, float32, int, int64, int32:
		return true
	}
	m, ok := asMap(v)
	if !ok {
		return false
	}
	for _, k := range []string{"text", "label", "name", "value", "id"} {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func optionsFromList(list []any) []Option {
	out := make([]Option, 0, len(list))
	for idx, raw := range list {
		if o, ok := optionFromRaw(raw, idx); ok {
			out = append(out, o)
		}
	}
	return out
}

// optionFromRaw normalizes one element: primitives are both id and label,
// objects contribute id ?? value ?? key ?? position.
func optionFromRaw(raw any, idx int) (Option, bool) {
	if raw == nil {
		return Option{}, false
	}
	m, ok := asMap(raw)
	if !ok {
		if _, nested := asList(raw); nested {
			return Option{}, false
		}
		s := toString(raw)
		return Option{ID: s, Label: s}, true
	}
	id := ""
	for _, k := range []string{"id", "value", "key"} {
		if x, ok := m[k]; ok && hasValue(x) {
			id = toString(x)
			break
		}
	}
	if id == "" {
		id = strconv.Itoa(idx)
	}
	label := labelOf(m)
	if label == "" {
		label = id
	}
	return Option{ID: id, Label: label}, true
}

func optionsFromMap(m map[string]any) []Option {
	out := make([]Option, 0, len(m))
	for _, k := range sortedKeys(m) {
		label := labelOf(m[k])
		if label == "" {
			label = k
		}
		out = append(out, Option{ID: k, Label: label})
	}
	return out
}

// optionIndex answers id/label questions about a resolved option list.
type optionIndex struct {
	opts    []Option
	byID    map[string]Option // normalized id
	byLabel map[string]string // normalized label -> id
}

func indexOptions(opts []Option) optionIndex {
	ix := optionIndex{
		opts:    opts,
		byID:    make(map[string]Option, len(opts)),
		byLabel: make(map[string]string, len(opts)),
	}
	for _, o := range opts {
		if o.ID != "" {
			if _, dup := ix.byID[Normalize(o.ID)]; !dup {
				ix.byID[Normalize(o.ID)] = o
			}
		}
		if o.Label != "" {
			if _, dup := ix.byLabel[Normalize(o.Label)]; !dup {
				ix.byLabel[Normalize(o.Label)] = o.ID
			}
		}
	}
	return ix
}

func (ix optionIndex) empty() bool { return len(ix.opts) == 0 }

func (ix optionIndex) hasID(id string) bool {
	_, ok := ix.byID[Normalize(id)]
	return ok
}

// labelFor returns the label of the option identified by id.
func (ix optionIndex) labelFor(id string) (string, bool) {
	o, ok := ix.byID[Normalize(id)]
	return o.Label, ok
}

// idForLabel is the reverse lookup used when a value was stored or
// submitted as display text.
func (ix optionIndex) idForLabel(label string) (string, bool) {
	id, ok := ix.byLabel[Normalize(label)]
	return id, ok
}

func (ix optionIndex) at(i int) (string, bool) {
	if i < 0 || i >= len(ix.opts) {
		return "", false
	}
	return ix.opts[i].ID, true
}

// canonical maps an id-or-label value onto the option id it denotes, or
// returns it unchanged when it matches nothing.
func (ix optionIndex) canonical(v string) string {
	if o, ok := ix.byID[Normalize(v)]; ok {
		return o.ID
	}
	if id, ok := ix.idForLabel(v); ok {
		return id
	}
	return v
}
