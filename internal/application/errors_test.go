package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestConflictReasonsWrapErrConflict(t *testing.T) {
	t.Parallel()

	reasons := []error{
		ErrMatchNotOpen,
		ErrMatchFull,
		ErrDuplicateEnrollment,
		ErrInvalidTransition,
		ErrMatchClosed,
		ErrCapacityBelowConfirmed,
		ErrConcurrentUpdate,
	}
	for _, reason := range reasons {
		wrapped := fmt.Errorf("decide enrollment: %w", reason)
		if !errors.Is(wrapped, ErrConflict) {
			t.Errorf("%v does not satisfy ErrConflict", reason)
		}
		if !errors.Is(wrapped, reason) {
			t.Errorf("%v lost its identity when wrapped", reason)
		}
		if errors.Is(reason, ErrAlreadyExists) {
			t.Errorf("%v must not be mistaken for ErrAlreadyExists", reason)
		}
	}

	if errors.Is(ErrMatchFull, ErrMatchNotOpen) {
		t.Fatal("distinct conflict reasons must not match each other")
	}
}

func TestValidationErrorKeepsFirstMessagePerField(t *testing.T) {
	t.Parallel()

	var nilErr *ValidationError
	if nilErr.Error() != "" || nilErr.HasErrors() {
		t.Fatal("nil validation error must be empty")
	}

	vErr := NewValidationError("max_jogadores", "primeira")
	vErr.add("max_jogadores", "segunda")
	vErr.merge(&ValidationError{FieldErrors: map[string]string{"titulo": "obrigatório", "max_jogadores": "terceira"}})
	vErr.merge(nil)

	if !vErr.HasErrors() || vErr.Error() != "validation failed" {
		t.Fatalf("unexpected validation error %+v", vErr)
	}
	if got := vErr.FieldErrors["max_jogadores"]; got != "primeira" {
		t.Fatalf("expected first message to win, got %q", got)
	}
	if got := vErr.FieldErrors["titulo"]; got != "obrigatório" {
		t.Fatalf("expected merged field, got %q", got)
	}

	var target *ValidationError
	if !errors.As(fmt.Errorf("create match: %w", vErr), &target) || target != vErr {
		t.Fatal("expected errors.As to find the validation error")
	}
}
