package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/mission-control/internal/control/domain"
	"github.com/cuongbtq/mission-control/internal/control/model"
	"github.com/cuongbtq/mission-control/shared/postgresql"
)

const missionColumns = `
	job_id, artifact, state, error, result,
	overall_strategy, clip_count, finished_at, archived_at`

// Storage is the read side of the mission archive.
type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// MissionFilter narrows ListMissions.
type MissionFilter struct {
	State    string
	PageSize int
	Cursor   *MissionCursor
}

// MissionCursor is the keyset position of the last row of a page.
type MissionCursor struct {
	FinishedAt time.Time
	JobID      string
}

func (s *Storage) GetMission(ctx context.Context, jobID string) (*model.Mission, error) {
	var mission model.Mission
	query := `SELECT ` + missionColumns + `
		FROM missions
		WHERE job_id = $1
	`

	err := s.db.GetContext(ctx, &mission, query, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}

	return &mission, nil
}

// ListMissions returns up to PageSize+1 missions, newest first, so callers
// can tell whether another page exists.
func (s *Storage) ListMissions(ctx context.Context, filter MissionFilter) ([]model.Mission, error) {
	query := `SELECT ` + missionColumns + `
		FROM missions
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.State != "" {
		query += fmt.Sprintf(" AND state = $%d", argIdx)
		args = append(args, filter.State)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (finished_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.FinishedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY finished_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var missions []model.Mission
	if err := s.db.SelectContext(ctx, &missions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}

	return missions, nil
}
