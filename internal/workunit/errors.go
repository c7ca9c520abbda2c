package workunit

import (
	"errors"
	"fmt"
)

// Error taxonomy. Guard failures are ValidationErrors whose message names
// both the violated condition and the remediation; missing ids are
// NotFoundErrors. Both support errors.Is/errors.As:
//
//	if errors.Is(err, workunit.ErrValidation) { ... }
var (
	// ErrValidation is the class sentinel for guard failures.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is the class sentinel for missing work units.
	ErrNotFound = errors.New("work unit not found")
)

// ValidationError is a guard failure. Message is the full user-facing text;
// Suggestions carry the remediation steps the CLI renders under the error.
type ValidationError struct {
	Message     string
	Suggestions []string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(message string, suggestions ...string) error {
	return &ValidationError{Message: message, Suggestions: suggestions}
}

// NotFoundError reports a missing work unit id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("work unit %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// LockError reports a failed advisory-lock acquisition. Lock failures are
// fatal and never silently ignored.
type LockError struct {
	Path string
	Err  error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("could not lock %s: %v", e.Path, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }
