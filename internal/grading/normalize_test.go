package grading

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Paris", "paris"},
		{" paris ", "paris"},
		{"Parìs", "paris"},
		{"  New\t\n  York  ", "new york"},
		{"Crème Brûlée", "creme brulee"},
		{"ÅNGSTRÖM", "angstrom"},
		{"", ""},
		{"   ", ""},
	}

	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"Paris", " Crème  Brûlée ", "ÅNGSTRÖM", "İstanbul", "áb̧", "日本 語", ""}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalize_KeepCase(t *testing.T) {
	if got := normalize("  Crème\tBrûlée ", false); got != "Creme Brulee" {
		t.Errorf("normalize keep case = %q, want %q", got, "Creme Brulee")
	}
}
