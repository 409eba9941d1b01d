package testfixtures

import (
	"testing"

	"github.com/google/uuid"
)

func TestIDGeneratorProducesDeterministicUUIDs(t *testing.T) {
	gen := NewIDGenerator("player")

	first := gen.Next()
	second := gen.Next()

	if first == second {
		t.Fatalf("expected distinct identifiers, got %q twice", first)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected a UUID, got %q: %v", first, err)
	}
	if first != IDFor("player", 1) || second != IDFor("player", 2) {
		t.Fatalf("identifiers are not reproducible: %q, %q", first, second)
	}
}

func TestIDGeneratorCanReset(t *testing.T) {
	gen := NewIDGenerator("match")
	first := gen.Next()
	gen.SetCounter(0)

	if next := gen.Next(); next != first {
		t.Fatalf("expected %q after reset, got %q", first, next)
	}
}

func TestTokenGenerator(t *testing.T) {
	var gen TokenGenerator
	token := gen.Next()
	if len(token) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(token))
	}
	if gen.Next() == token {
		t.Fatalf("expected a fresh token")
	}
}
