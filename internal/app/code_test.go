package app

import (
	"strings"
	"testing"
)

func TestGenerateCodeShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateCode()
		if len(code) != CodeLength {
			t.Fatalf("expected %d characters, got %q", CodeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		for _, ambiguous := range "0O1I" {
			if strings.ContainsRune(code, ambiguous) {
				t.Fatalf("code %q contains ambiguous character %q", code, ambiguous)
			}
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	cases := map[string]string{
		"abc234":    "ABC234",
		"ABC-234":   "ABC234",
		" abc 234 ": "ABC234",
		"AbC-2 34":  "ABC234",
	}
	for raw, want := range cases {
		if got := NormalizeCode(raw); got != want {
			t.Fatalf("NormalizeCode(%q) = %q, want %q", raw, got, want)
		}
	}
}
