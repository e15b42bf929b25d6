package testutil

import (
	"fmt"
	"sync"
)

// SequentialTokens generates "tok-1", "tok-2", ... for deterministic tests.
//
// Implements events.TokenGenerator. Reset restarts the sequence so the same
// scenario can run twice with identical tokens.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTokens creates a generator. An empty prefix defaults to "tok".
func NewSequentialTokens(prefix string) *SequentialTokens {
	if prefix == "" {
		prefix = "tok"
	}
	return &SequentialTokens{prefix: prefix}
}

// Generate returns the next token.
func (g *SequentialTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *SequentialTokens) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
