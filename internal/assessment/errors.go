package assessment

import (
	"errors"
	"fmt"
)

var (
	ErrValidation               = errors.New("validation failed")
	ErrAttemptsExhausted        = errors.New("no attempts remaining")
	ErrInvalidState             = errors.New("operation not valid in current attempt state")
	ErrAttemptInProgress        = errors.New("an attempt is already in progress")
	ErrAttemptNotFound          = errors.New("attempt not found")
	ErrAssessmentNotFound       = errors.New("assessment not found")
	ErrTimeLimitReached         = errors.New("time limit reached")
	ErrCertificateAlreadyIssued = errors.New("certificate already issued")
	ErrCertificateNotEligible   = errors.New("report not eligible for a certificate")
	ErrEnrollmentNotCompleted   = errors.New("enrollment not completed")
	ErrClosed                   = errors.New("attempt orchestrator closed")
)

// ValidationError describes rejected input.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

// StateError is returned when an operation is called outside its valid state.
type StateError struct {
	Op     string
	Status AttemptStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: not allowed while attempt is %s", e.Op, e.Status)
}

func (e *StateError) Is(target error) bool { return target == ErrInvalidState }

// NetworkError wraps a failed Course API call verbatim. Callers may retry manually.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("course api %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
