package dto

import (
	"encoding/json"
	"time"

	"github.com/cuongbtq/mission-control/internal/control/model"
)

type ListMissionsRequest struct {
	State    string `form:"state"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListMissionsResponse struct {
	Missions   []MissionDTO `json:"missions"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type MissionDTO struct {
	JobID           string          `json:"job_id"`
	Artifact        string          `json:"artifact"`
	State           string          `json:"state"`
	Error           string          `json:"error,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	OverallStrategy string          `json:"overall_strategy,omitempty"`
	ClipCount       int             `json:"clip_count"`
	FinishedAt      string          `json:"finished_at"`
	ArchivedAt      string          `json:"archived_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// NewMissionDTO converts an archive row. The result payload is included only
// when withResult is set.
func NewMissionDTO(m model.Mission, withResult bool) MissionDTO {
	out := MissionDTO{
		JobID:           m.JobID,
		Artifact:        m.Artifact,
		State:           m.State,
		Error:           m.Error,
		OverallStrategy: m.OverallStrategy,
		ClipCount:       m.ClipCount,
		FinishedAt:      m.FinishedAt.UTC().Format(time.RFC3339),
		ArchivedAt:      m.ArchivedAt.UTC().Format(time.RFC3339),
	}
	if withResult && m.Result.Valid && len(m.Result.JSONText) > 0 {
		out.Result = json.RawMessage(m.Result.JSONText)
	}
	return out
}
