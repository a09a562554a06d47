package grading

import (
	"strings"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"paris", "pari", 1},
		{"ca", "ac", 1},
		{"paris", "parsi", 1},
		{"café", "cafe", 1},
		{"flaw", "lawn", 2},
	}

	for _, tc := range tests {
		if got := Distance(tc.a, tc.b); got != tc.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDistance_Symmetric(t *testing.T) {
	words := []string{"", "a", "ab", "ba", "paris", "pairs", "lyon", "kitten", "sitting", "ça va"}
	for _, a := range words {
		if d := Distance(a, a); d != 0 {
			t.Errorf("Distance(%q, %q) = %d, want 0", a, a, d)
		}
		for _, b := range words {
			if ab, ba := Distance(a, b), Distance(b, a); ab != ba {
				t.Errorf("Distance(%q, %q) = %d but Distance(%q, %q) = %d", a, b, ab, b, a, ba)
			}
		}
	}
}

func TestDistance_LongInputs(t *testing.T) {
	a, b := strings.Repeat("a", 5000), strings.Repeat("b", 5000)
	if got := Distance(a, b); got != 5000 {
		t.Fatalf("Distance = %d, want 5000", got)
	}
	if got := Distance(a+"xy", a+"yx"); got != 1 {
		t.Errorf("transposition at the end = %d, want 1", got)
	}

	// Two rune slices plus three rows, independent of input length.
	allocs := testing.AllocsPerRun(3, func() { Distance(a, b) })
	if allocs > 5 {
		t.Errorf("Distance allocated %v times, want at most 5", allocs)
	}
}
