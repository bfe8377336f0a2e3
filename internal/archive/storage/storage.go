package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	control "github.com/cuongbtq/mission-control/internal/control/domain"
	"github.com/cuongbtq/mission-control/internal/control/model"
)

const schema = `
	CREATE TABLE IF NOT EXISTS missions (
		job_id           TEXT PRIMARY KEY,
		artifact         TEXT NOT NULL DEFAULT '',
		state            TEXT NOT NULL,
		error            TEXT NOT NULL DEFAULT '',
		result           JSONB,
		overall_strategy TEXT NOT NULL DEFAULT '',
		clip_count       INTEGER NOT NULL DEFAULT 0,
		finished_at      TIMESTAMPTZ NOT NULL,
		archived_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_missions_finished_at
		ON missions (finished_at DESC, job_id DESC);
`

// Storage is the write side of the mission archive.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the missions table and its index if they are absent.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// UpsertMission stores a finished mission. Redelivered or older events never
// overwrite a row with a later finished_at.
func (s *Storage) UpsertMission(ctx context.Context, event control.MissionEvent) error {
	row, err := NewMissionRow(event)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO missions (
			job_id, artifact, state, error, result,
			overall_strategy, clip_count, finished_at, archived_at
		) VALUES (
			:job_id, :artifact, :state, :error, :result,
			:overall_strategy, :clip_count, :finished_at, NOW()
		)
		ON CONFLICT (job_id) DO UPDATE SET
			artifact = EXCLUDED.artifact,
			state = EXCLUDED.state,
			error = EXCLUDED.error,
			result = EXCLUDED.result,
			overall_strategy = EXCLUDED.overall_strategy,
			clip_count = EXCLUDED.clip_count,
			finished_at = EXCLUDED.finished_at,
			archived_at = NOW()
		WHERE missions.finished_at <= EXCLUDED.finished_at
	`

	result, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to upsert mission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Mission upsert skipped - newer row already archived",
			slog.String("job_id", event.JobID),
		)
		return nil
	}

	s.logger.Info("Mission archived",
		slog.String("job_id", event.JobID),
		slog.String("state", string(event.State)),
	)

	return nil
}

// NewMissionRow flattens an event into a missions row.
func NewMissionRow(event control.MissionEvent) (model.Mission, error) {
	row := model.Mission{
		JobID:      event.JobID,
		Artifact:   event.Artifact,
		State:      string(event.State),
		Error:      event.Error,
		FinishedAt: event.FinishedAt.UTC(),
	}

	if event.Result != nil {
		raw, err := json.Marshal(event.Result)
		if err != nil {
			return model.Mission{}, fmt.Errorf("failed to marshal result: %w", err)
		}
		row.Result = types.NullJSONText{JSONText: types.JSONText(raw), Valid: true}
		row.OverallStrategy = event.Result.Campaign.OverallStrategy
		row.ClipCount = len(event.Result.Videos)
	}

	return row, nil
}
