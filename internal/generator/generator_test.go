package generator

import (
	"strings"
	"testing"
)

func TestGenerateDrawsFromList(t *testing.T) {
	words := []string{"alpha", "beta", "gamma"}
	g := NewWithSeed(words, 1)
	out := g.Generate(200)
	if len(out) != 200 {
		t.Fatalf("expected 200 words, got %d", len(out))
	}
	seen := map[string]bool{}
	for _, w := range out {
		if w != "alpha" && w != "beta" && w != "gamma" {
			t.Fatalf("unexpected word %q", w)
		}
		seen[w] = true
	}
	if len(seen) != len(words) {
		t.Fatalf("expected every word to appear with replacement, saw %v", seen)
	}
}

func TestTextJoinsWithSingleSpaces(t *testing.T) {
	g := NewWithSeed([]string{"a"}, 7)
	if got := g.Text(3); got != "a a a" {
		t.Fatalf("unexpected text %q", got)
	}
	if got := g.Text(0); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
	if strings.Contains(NewWithSeed(nil, 1).Text(5), " ") {
		t.Fatalf("expected no text from empty list")
	}
}
