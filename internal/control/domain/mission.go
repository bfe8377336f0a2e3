package domain

import (
	"strings"
	"time"
)

// State is the lifecycle state of a mission as seen by the job controller.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateAnalyzing  State = "analyzing"
	StateWriting    State = "writing"
	StateRendering  State = "rendering"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Stage tokens reported by the backend status endpoint.
const (
	TokenAnalyzing = "ANALYZING"
	TokenWriting   = "WRITING"
	TokenRendering = "RENDERING"
	TokenCompleted = "COMPLETED"
	TokenFailed    = "FAILED"
)

// IsTerminal reports whether no further transitions happen without a new submission.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// IsActive reports whether a mission is in flight.
func (s State) IsActive() bool {
	switch s {
	case StateSubmitting, StateAnalyzing, StateWriting, StateRendering:
		return true
	default:
		return false
	}
}

// StageRank orders the pipeline stages. Non-stage states rank zero.
func (s State) StageRank() int {
	switch s {
	case StateAnalyzing:
		return 1
	case StateWriting:
		return 2
	case StateRendering:
		return 3
	default:
		return 0
	}
}

// StateFromToken maps a backend stage token to a local state. The boolean is
// false for tokens the controller does not know.
func StateFromToken(token string) (State, bool) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case TokenAnalyzing:
		return StateAnalyzing, true
	case TokenWriting:
		return StateWriting, true
	case TokenRendering:
		return StateRendering, true
	case TokenCompleted:
		return StateCompleted, true
	case TokenFailed:
		return StateFailed, true
	default:
		return "", false
	}
}

// Snapshot is an immutable view of the controller's current mission.
type Snapshot struct {
	JobID     string    `json:"job_id,omitempty"`
	Artifact  string    `json:"artifact,omitempty"`
	State     State     `json:"state"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no mutable data with s.
func (s Snapshot) Clone() Snapshot {
	if s.Result != nil {
		r := s.Result.Clone()
		s.Result = &r
	}
	return s
}
