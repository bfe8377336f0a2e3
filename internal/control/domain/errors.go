package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a submission has no usable artifact.
	ErrInvalidInput = errors.New("invalid input: no source file selected")

	// ErrMissionActive is returned by the display layer when a mission is already in flight.
	ErrMissionActive = errors.New("mission already in progress")

	// ErrMissionNotFound is returned when an archived mission does not exist.
	ErrMissionNotFound = errors.New("mission not found")
)

// DefaultBackendFailure is surfaced when the backend reports failure without detail.
const DefaultBackendFailure = "backend reported failure"

// SubmissionRejectedError is returned when the accept-job endpoint refuses or
// cannot be reached. StatusCode is zero for transport failures.
type SubmissionRejectedError struct {
	StatusCode int
	Err        error
}

func (e *SubmissionRejectedError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("submission rejected: status %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("submission rejected: status %d", e.StatusCode)
	case e.Err != nil:
		return "submission rejected: " + e.Err.Error()
	default:
		return "submission rejected"
	}
}

func (e *SubmissionRejectedError) Unwrap() error {
	return e.Err
}

// TransientPollError wraps a status poll failure that does not end the poll cycle.
type TransientPollError struct {
	JobID string
	Err   error
}

func (e *TransientPollError) Error() string {
	return fmt.Sprintf("transient poll error for job %s: %v", e.JobID, e.Err)
}

func (e *TransientPollError) Unwrap() error {
	return e.Err
}

// BackendFailureError carries the failure text the backend reported for a job.
type BackendFailureError struct {
	JobID   string
	Message string
}

func (e *BackendFailureError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = DefaultBackendFailure
	}
	return msg
}

// IsTransient reports whether err is a recoverable poll failure.
func IsTransient(err error) bool {
	var pollErr *TransientPollError
	return errors.As(err, &pollErr)
}
