package grading

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Metadata is the loosely-typed authoring bag attached to a question.
// Its shape depends on the question type and on which authoring schema
// produced it, so every read goes through the probes in this file.
type Metadata map[string]any

// first returns the first key whose value is present and non-empty.
func (m Metadata) first(keys ...string) (any, string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && hasValue(v) {
			return v, k, true
		}
	}
	return nil, "", false
}

// hasValue reports whether v carries something other than nil, "" or an
// empty collection.
func hasValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	}
	if list, ok := asList(v); ok {
		return len(list) > 0
	}
	if m, ok := asMap(v); ok {
		return len(m) > 0
	}
	return toString(v) != ""
}

// toString renders primitives the way they were authored. Collections
// fall back to their identifier when they look like an option.
func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case json.Number:
		return t.String()
	case map[string]any:
		return idOf(t)
	case Metadata:
		return idOf(map[string]any(t))
	default:
		return fmt.Sprint(t)
	}
}

// idOf extracts the comparison key from an option-like value.
func idOf(v any) string {
	m, ok := asMap(v)
	if !ok {
		if _, isList := asList(v); isList {
			return ""
		}
		return toString(v)
	}
	for _, k := range []string{"id", "value", "key", "text"} {
		if x, ok := m[k]; ok && x != nil {
			if _, nested := asMap(x); nested {
				continue
			}
			return toString(x)
		}
	}
	return ""
}

// labelOf extracts the display text from an option-like value.
func labelOf(v any) string {
	m, ok := asMap(v)
	if !ok {
		return toString(v)
	}
	for _, k := range []string{"label", "text", "name", "title", "value", "id"} {
		if x, ok := m[k]; ok && hasValue(x) {
			if _, nested := asMap(x); nested {
				continue
			}
			return toString(x)
		}
	}
	return ""
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Metadata:
		return map[string]any(t), true
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = f
		}
		return out, true
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out, true
	case []bool:
		out := make([]any, len(t))
		for i, b := range t {
			out[i] = b
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}

// sortedKeys returns map keys in a stable order; decoded JSON objects do not
// keep their authored order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toNumber coerces numbers and numeric strings to a finite float.
func toNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// isNumber reports whether v was authored as a number rather than text.
func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32, json.Number:
		return true
	}
	return false
}

// toIndex reports whether v is an integral number or a string of digits.
func toIndex(v any) (int, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return 0, false
			}
		}
		n, err := strconv.Atoi(s)
		return n, err == nil
	}
	f, ok := toNumber(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// toBool coerces booleans, numbers and yes/no style strings.
func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "t", "y":
			return true, true
		case "false", "no", "0", "f", "n":
			return false, true
		}
		return false, false
	}
	if f, ok := toNumber(v); ok {
		return f != 0, true
	}
	return false, false
}

// isFlagTrue is the lenient truthiness used for option flags and policy
// switches: only explicit true values count.
func isFlagTrue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "yes" || s == "1"
	}
	if f, ok := toNumber(v); ok {
		return f == 1
	}
	return false
}

var correctFlagKeys = []string{"correct", "isCorrect", "is_correct", "answer", "is_correct_answer"}

func flaggedCorrect(v any) bool {
	m, ok := asMap(v)
	if !ok {
		return false
	}
	for _, k := range correctFlagKeys {
		if isFlagTrue(m[k]) {
			return true
		}
	}
	return false
}
