package testfixtures

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// fixtureNamespace seeds the name-based UUIDs handed out by IDGenerator.
var fixtureNamespace = uuid.MustParse("6f1c2a4e-9b1d-4c55-8f0e-3d2b7a9c1e44")

// IDGenerator produces deterministic identifiers for tests. Identifiers are
// valid UUIDs derived from the prefix and a counter, so they pass the same
// path validation as production ids.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewIDGenerator constructs a generator seeded with prefix. When prefix is
// empty, "id" is used.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return IDFor(g.prefix, g.counter)
}

// NextFunc exposes Next as a function suitable for dependency injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return uuid.NewString
	}
	return g.Next
}

// SetCounter overrides the internal counter, enabling deterministic resets.
func (g *IDGenerator) SetCounter(counter uint64) {
	g.mu.Lock()
	g.counter = counter
	g.mu.Unlock()
}

// IDFor returns the identifier a generator with prefix yields at position n.
func IDFor(prefix string, n uint64) string {
	return uuid.NewSHA1(fixtureNamespace, []byte(fmt.Sprintf("%s-%d", prefix, n))).String()
}

// TokenGenerator yields deterministic 64 character hex tokens shaped like
// the production invitation and reset tokens.
type TokenGenerator struct {
	mu      sync.Mutex
	counter uint64
}

// Next returns the next token.
func (g *TokenGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%064x", g.counter)
}
