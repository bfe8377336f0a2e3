package domain

import (
	"errors"
	"time"
)

// MissionEvent is the message published when a mission reaches a terminal state.
type MissionEvent struct {
	JobID      string    `json:"job_id"`
	Artifact   string    `json:"artifact"`
	State      State     `json:"state"`
	Error      string    `json:"error,omitempty"`
	Result     *Result   `json:"result,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewMissionEvent builds the event for a terminal snapshot.
func NewMissionEvent(s Snapshot) MissionEvent {
	s = s.Clone()
	return MissionEvent{
		JobID:      s.JobID,
		Artifact:   s.Artifact,
		State:      s.State,
		Error:      s.Error,
		Result:     s.Result,
		FinishedAt: s.UpdatedAt.UTC(),
	}
}

// Validate checks that the event describes a finished mission.
func (e MissionEvent) Validate() error {
	if e.JobID == "" {
		return errors.New("job_id is required")
	}
	if !e.State.IsTerminal() {
		return errors.New("state must be completed or failed")
	}
	if e.State == StateCompleted && e.Result == nil {
		return errors.New("completed mission requires a result")
	}
	if e.FinishedAt.IsZero() {
		return errors.New("finished_at is required")
	}
	return nil
}
