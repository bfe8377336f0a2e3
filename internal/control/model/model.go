package model

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Mission is a row of the missions archive table.
type Mission struct {
	JobID           string             `db:"job_id"`
	Artifact        string             `db:"artifact"`
	State           string             `db:"state"`
	Error           string             `db:"error"`
	Result          types.NullJSONText `db:"result"`
	OverallStrategy string             `db:"overall_strategy"`
	ClipCount       int                `db:"clip_count"`
	FinishedAt      time.Time          `db:"finished_at"`
	ArchivedAt      time.Time          `db:"archived_at"`
}
