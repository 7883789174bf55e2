package game

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrPhaseNotFound      = errors.New("phase not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrProfileNotFound    = errors.New("profile not found")

	// ErrConflict means the transactional store saw a concurrent conflicting
	// write and retries were exhausted; the whole operation must be redone
	// from a fresh read.
	ErrConflict = errors.New("concurrent update conflict")

	ErrInvalidPhase = errors.New("invalid phase for action")
)

// IsNotFound reports whether the error is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrPhaseNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrProfileNotFound)
}

// ValidationError rejects malformed input before any write is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether the error is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransitionError wraps a failed state-transition side effect. The session
// stays at its last persisted state; callers may retry the whole advance.
type TransitionError struct {
	GameCode string
	From     GameState
	To       GameState
	Err      error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("game %s: transition %s -> %s: %v", e.GameCode, e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }
