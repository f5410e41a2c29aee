// Package generator builds practice text.
package generator

import (
	"math/rand"
	"strings"
	"time"
)

// Generator draws words uniformly at random, with replacement.
type Generator struct {
	rnd   *rand.Rand
	words []string
}

// New returns a Generator over words seeded with the current time.
func New(words []string) *Generator {
	return NewWithSeed(words, time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(words []string, seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed)), words: words}
}

// Generate returns count words.
func (g *Generator) Generate(count int) []string {
	if count <= 0 || len(g.words) == 0 {
		return nil
	}
	result := make([]string, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, g.words[g.rnd.Intn(len(g.words))])
	}
	return result
}

// Text returns count words joined by single spaces.
func (g *Generator) Text(count int) string {
	return strings.Join(g.Generate(count), " ")
}
