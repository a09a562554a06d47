package grading

// Response readers. Each accepts the current payload shape plus the
// historical variants still found in stored attempts, and falls back to a
// neutral empty value for anything else.

// ReadTrueFalse returns the submitted boolean and whether one was given.
func ReadTrueFalse(payload any) (bool, bool) {
	if m, ok := asMap(payload); ok {
		for _, k := range []string{"value", "answer", "choice"} {
			if v, ok := m[k]; ok && v != nil {
				return toBool(v)
			}
		}
		return false, false
	}
	if payload == nil {
		return false, false
	}
	return toBool(payload)
}

// ReadSingleChoice returns the submitted option id (or label), "" when absent.
func ReadSingleChoice(payload any) string {
	switch t := payload.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	if m, ok := asMap(payload); ok {
		for _, k := range []string{"choice", "selected", "answer"} {
			if v, ok := m[k]; ok {
				if list, isList := asList(v); isList {
					return firstID(list)
				}
				return idOf(v)
			}
		}
		return idOf(m)
	}
	if list, ok := asList(payload); ok {
		return firstID(list)
	}
	return toString(payload)
}

func firstID(list []any) string {
	if len(list) == 0 {
		return ""
	}
	return idOf(list[0])
}

// ReadMultiChoice returns the submitted option ids in submission order.
func ReadMultiChoice(payload any) []string {
	if list, ok := asList(payload); ok {
		return idList(list)
	}
	m, ok := asMap(payload)
	if !ok {
		if s := toString(payload); s != "" {
			return []string{s}
		}
		return nil
	}
	for _, k := range []string{"choices", "ids", "selected", "values"} {
		if list, ok := asList(m[k]); ok {
			return idList(list)
		}
	}
	// {optionId: true, ...} as kept by checkbox state.
	var out []string
	for _, k := range sortedKeys(m) {
		b, isBool := m[k].(bool)
		if !isBool {
			return nil
		}
		if b {
			out = append(out, k)
		}
	}
	return out
}

// ReadOrdering returns the submitted sequence of item ids.
func ReadOrdering(payload any) []string {
	if list, ok := asList(payload); ok {
		return idList(list)
	}
	if m, ok := asMap(payload); ok {
		for _, k := range []string{"order", "items", "sequence"} {
			if list, ok := asList(m[k]); ok {
				return idList(list)
			}
		}
	}
	return nil
}

// ReadMatching returns the submitted left -> right mapping.
func ReadMatching(payload any) map[string]string {
	if m, ok := asMap(payload); ok {
		if inner, ok := m["map"]; ok {
			payload = inner
		} else if inner, ok := m["pairs"]; ok {
			payload = inner
		}
	}
	out := pairsToMap(payload)
	if out == nil {
		return map[string]string{}
	}
	return out
}

// ReadText returns submitted free text.
func ReadText(payload any) string {
	if m, ok := asMap(payload); ok {
		for _, k := range []string{"text", "value", "answer"} {
			if v, ok := m[k]; ok {
				if _, nested := asMap(v); nested {
					return ""
				}
				return toString(v)
			}
		}
		return ""
	}
	if _, ok := asList(payload); ok {
		return ""
	}
	return toString(payload)
}

func idList(list []any) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s := idOf(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
