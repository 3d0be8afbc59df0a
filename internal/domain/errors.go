package domain

import "errors"

var (
	// ErrNotAuthenticated is returned when no current user ID is available.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound indicates the lookup target is absent.
	ErrNotFound = errors.New("not found")
	// ErrFetchFailed wraps a store read failure. Always retryable.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrWriteFailed wraps a store write failure. Always retryable.
	ErrWriteFailed = errors.New("write failed")
	// ErrAmbiguousOrInvalid indicates an email resolved to several profiles or the input is unusable.
	ErrAmbiguousOrInvalid = errors.New("ambiguous or invalid")
	// ErrSessionNotFound is returned when a quiz session has not been started.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidState is returned when an operation does not apply to the session state.
	ErrInvalidState = errors.New("invalid quiz session state")
	// ErrInvalidQuestion marks a question whose correct answer is not a candidate.
	ErrInvalidQuestion = errors.New("invalid question")
)

// IsRetryable reports whether err is a store I/O failure the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrFetchFailed) || errors.Is(err, ErrWriteFailed)
}
