package extract

import (
	"reflect"
	"testing"
)

func TestTokens_BasicMatch(t *testing.T) {
	got := Tokens("use code AB12CD now")
	want := []string{"AB12CD"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens = %v, want %v", got, want)
	}
}

func TestTokens_OrderAndRepeats(t *testing.T) {
	got := Tokens("XY12ZQ then AB12CD then XY12ZQ again")
	want := []string{"XY12ZQ", "AB12CD", "XY12ZQ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens = %v, want %v", got, want)
	}
}

func TestTokens_NoPartialOverlapWithLongerRuns(t *testing.T) {
	// a 7+ char run must not leak a 6-char window
	for _, in := range []string{"AB12CDE", "1234567", "xAB12CDx", "AB12CD7890"} {
		if got := Tokens(in); len(got) != 0 {
			t.Fatalf("Tokens(%q) = %v, want none", in, got)
		}
	}
}

func TestTokens_Boundaries(t *testing.T) {
	cases := map[string][]string{
		"(AB12CD)":        {"AB12CD"},
		"code:AB12CD!":    {"AB12CD"},
		"AB12CD":          {"AB12CD"},
		"-AB12CD-XY34QW-": {"AB12CD", "XY34QW"},
		// underscore is a word char, so the run is 7 long
		"_AB12CD":  nil,
		"AB12CD_x": nil,
	}
	for in, want := range cases {
		got := Tokens(in)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Tokens(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTokens_NonASCIIRunsRejected(t *testing.T) {
	// é makes the run non-ASCII even at length 6
	if got := Tokens("AB12Cé"); len(got) != 0 {
		t.Fatalf("non-ascii run should not match, got %v", got)
	}
	// adjacent unicode letter extends the run past 6
	if got := Tokens("AB12CDé"); len(got) != 0 {
		t.Fatalf("unicode-neighbored run should not match, got %v", got)
	}
}

func TestTokens_CasePreservedAndSixOnly(t *testing.T) {
	got := Tokens("ab12cd ABCDE abC12 toolong7")
	if len(got) != 1 || got[0] != "ab12cd" {
		t.Fatalf("Tokens = %v", got)
	}
}

func TestTokens_EmptyAndGarbage(t *testing.T) {
	if got := Tokens(""); len(got) != 0 {
		t.Fatalf("empty input should yield nothing, got %v", got)
	}
	if got := Tokens("!!! ??? ***"); len(got) != 0 {
		t.Fatalf("punctuation should yield nothing, got %v", got)
	}
}

func TestTokens_PropertiesOverMixedText(t *testing.T) {
	in := "AB12CD, (ZZ99xx) maybe 123456 and PLEASE plus ABC1234 or a1b2c3!"
	for _, tok := range Tokens(in) {
		if len(tok) != CodeLength {
			t.Fatalf("token %q length %d", tok, len(tok))
		}
		for i := 0; i < len(tok); i++ {
			c := tok[i]
			alnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
			if !alnum {
				t.Fatalf("token %q has non-alphanumeric byte %q", tok, c)
			}
		}
	}
}
