package index

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"basic", "Anxiety breakthrough today", []string{"anxiety", "breakthrough", "today"}},
		{"short tokens dropped", "I am ok at it", []string{}},
		{"punctuation split", "work-life balance, right?", []string{"work", "life", "balance", "right"}},
		{"mixed case", "DeepBreathing Helps", []string{"deepbreathing", "helps"}},
		{"non-ascii folded not leaked", "CAFÉ Visit", []string{"caf", "visit"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAddLookup(t *testing.T) {
	x := New()
	x.Add("r1", "Anxiety breakthrough")
	x.Add("r2", "work anxiety")

	if got := x.Lookup("anxiety"); !reflect.DeepEqual(got, []string{"r1", "r2"}) {
		t.Errorf("Lookup(anxiety) = %v", got)
	}
	if got := x.Lookup("breakthrough"); !reflect.DeepEqual(got, []string{"r1"}) {
		t.Errorf("Lookup(breakthrough) = %v", got)
	}
	if got := x.Lookup("missing"); got != nil {
		t.Errorf("Lookup(missing) = %v, want nil", got)
	}
	// Lookup normalizes case.
	if got := x.Lookup("ANXIETY"); len(got) != 2 {
		t.Errorf("Lookup(ANXIETY) = %v, want 2 ids", got)
	}
}

func TestTokenizeNeverEmitsUppercase(t *testing.T) {
	for _, in := range []string{"ÜBER Stress", "ΣΤΡΕΣ relief", "MiXeD CaSe Words"} {
		for _, tok := range Tokenize(in) {
			if tok != strings.ToLower(tok) {
				t.Errorf("Tokenize(%q) emitted %q with uppercase", in, tok)
			}
		}
	}
}

func TestShortTokensNeverIndexed(t *testing.T) {
	x := New()
	x.Add("r1", "I am up at it by do")

	if x.Tokens() != 0 {
		t.Errorf("Tokens() = %d, want 0 for all-short text", x.Tokens())
	}
}

func TestRemovePrunesEmptyBuckets(t *testing.T) {
	x := New()
	x.Add("r1", "anxiety breakthrough")
	x.Add("r2", "anxiety")

	x.Remove("r1")

	if got := x.Lookup("anxiety"); !reflect.DeepEqual(got, []string{"r2"}) {
		t.Errorf("Lookup(anxiety) after remove = %v", got)
	}
	// "breakthrough" bucket held only r1 and must be gone entirely.
	if got := x.Lookup("breakthrough"); got != nil {
		t.Errorf("Lookup(breakthrough) after remove = %v, want nil", got)
	}
	if x.Tokens() != 1 {
		t.Errorf("Tokens() = %d, want 1", x.Tokens())
	}
}

func TestRebuildIdempotent(t *testing.T) {
	entries := map[string]string{
		"r1": "anxiety breakthrough",
		"r2": "morning gratitude walk",
		"r3": "work stress spiral",
	}

	x := New()
	x.Add("stale", "leftover entry that rebuild must clear")

	x.Rebuild(entries)
	first := x.Snapshot()

	x.Rebuild(entries)
	second := x.Snapshot()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Rebuild is not idempotent:\nfirst:  %v\nsecond: %v", first, second)
	}
	if _, ok := first["leftover"]; ok {
		t.Error("Rebuild did not clear stale entries")
	}
}

func TestContains(t *testing.T) {
	x := New()
	x.Add("m1", "slept badly again")

	if !x.Contains("slept", "m1") {
		t.Error("Contains(slept, m1) = false, want true")
	}
	if x.Contains("slept", "m2") {
		t.Error("Contains(slept, m2) = true, want false")
	}
}
