package prompt

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrTooManyAttempts is returned when a field keeps failing validation
	// past the session's attempt limit.
	ErrTooManyAttempts = errors.New("prompt: too many invalid attempts")
)
