package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrForbidden is returned when the acting player lacks authority over the resource.
	ErrForbidden = errors.New("application: forbidden")
	// ErrConflict is the parent of every state conflict reported by the services.
	ErrConflict = errors.New("application: conflict")
	// ErrAlreadyExists is returned when a unique attribute such as an email is taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when an email/password pair does not verify.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrInvalidInvitation is returned when a registration token is unknown, used or expired.
	ErrInvalidInvitation = errors.New("application: invalid invitation")
	// ErrInvalidResetToken is returned when a password reset token is unknown, used or expired.
	ErrInvalidResetToken = errors.New("application: invalid reset token")
	// ErrUnauthenticated is returned when no valid access token accompanies a request.
	ErrUnauthenticated = errors.New("application: unauthenticated")
)

// Conflict reasons. Each satisfies errors.Is(err, ErrConflict).
var (
	ErrMatchNotOpen           = newConflict("match is not open for enrollment")
	ErrMatchFull              = newConflict("match is full")
	ErrDuplicateEnrollment    = newConflict("player already enrolled")
	ErrInvalidTransition      = newConflict("invalid status transition")
	ErrMatchClosed            = newConflict("match is closed")
	ErrCapacityBelowConfirmed = newConflict("max players below confirmed count")
	ErrConcurrentUpdate       = newConflict("match modified concurrently")
)

type conflictError struct {
	reason string
}

func newConflict(reason string) error {
	return &conflictError{reason: reason}
}

func (e *conflictError) Error() string {
	return "application: conflict: " + e.reason
}

func (e *conflictError) Is(target error) bool {
	return target == ErrConflict
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}
