package domain

import "errors"

var (
	// ErrMalformedEvent is returned when a message body is not a mission event
	ErrMalformedEvent = errors.New("malformed mission event")

	// ErrInvalidEvent is returned when a mission event fails validation
	ErrInvalidEvent = errors.New("invalid mission event")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// ShouldRequeue reports whether a failed message should go back on the queue.
func ShouldRequeue(err error) bool {
	if errors.Is(err, ErrMalformedEvent) || errors.Is(err, ErrInvalidEvent) {
		return false
	}

	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}
