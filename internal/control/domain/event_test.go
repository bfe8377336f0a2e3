package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMissionEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	snap := Snapshot{JobID: "job-1", Artifact: "a.mp4", State: StateCompleted, Result: sampleResult(), UpdatedAt: at}

	event := NewMissionEvent(snap)
	require.NoError(t, event.Validate())
	assert.Equal(t, "job-1", event.JobID)
	assert.Equal(t, time.UTC, event.FinishedAt.Location())
	assert.True(t, event.FinishedAt.Equal(at))

	event.Result.Videos[0].URL = "changed"
	assert.Equal(t, "https://cdn.example.com/1.mp4", snap.Result.Videos[0].URL)
}

func TestMissionEvent_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		event     MissionEvent
		errString string
	}{
		{name: "failed", event: MissionEvent{JobID: "j", State: StateFailed, Error: "x", FinishedAt: now}},
		{name: "completed", event: MissionEvent{JobID: "j", State: StateCompleted, Result: sampleResult(), FinishedAt: now}},
		{name: "missing job id", event: MissionEvent{State: StateFailed, FinishedAt: now}, errString: "job_id is required"},
		{name: "active state", event: MissionEvent{JobID: "j", State: StateRendering, FinishedAt: now}, errString: "must be completed or failed"},
		{name: "completed without result", event: MissionEvent{JobID: "j", State: StateCompleted, FinishedAt: now}, errString: "requires a result"},
		{name: "missing finish time", event: MissionEvent{JobID: "j", State: StateFailed}, errString: "finished_at is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.errString == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}
