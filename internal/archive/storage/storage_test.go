package storage

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	control "github.com/cuongbtq/mission-control/internal/control/domain"
)

func sampleEvent() control.MissionEvent {
	return control.MissionEvent{
		JobID:    "job-42",
		Artifact: "keynote.mp4",
		State:    control.StateCompleted,
		Result: &control.Result{
			Campaign: control.Campaign{OverallStrategy: "short clips first"},
			Videos:   []control.Video{{URL: "https://cdn.example/1.mp4"}, {URL: "https://cdn.example/2.mp4"}},
		},
		FinishedAt: time.Date(2026, 6, 1, 9, 30, 0, 0, time.FixedZone("ICT", 7*3600)),
	}
}

func TestNewMissionRow(t *testing.T) {
	t.Run("completed mission", func(t *testing.T) {
		row, err := NewMissionRow(sampleEvent())
		require.NoError(t, err)

		assert.Equal(t, "job-42", row.JobID)
		assert.Equal(t, "completed", row.State)
		assert.Equal(t, "short clips first", row.OverallStrategy)
		assert.Equal(t, 2, row.ClipCount)
		assert.Equal(t, time.UTC, row.FinishedAt.Location())
		require.True(t, row.Result.Valid)

		var result control.Result
		require.NoError(t, json.Unmarshal(row.Result.JSONText, &result))
		assert.Len(t, result.Videos, 2)
	})

	t.Run("failed mission has no result", func(t *testing.T) {
		event := sampleEvent()
		event.State = control.StateFailed
		event.Error = "transcode failed"
		event.Result = nil

		row, err := NewMissionRow(event)
		require.NoError(t, err)

		assert.Equal(t, "failed", row.State)
		assert.Equal(t, "transcode failed", row.Error)
		assert.False(t, row.Result.Valid)
		assert.Zero(t, row.ClipCount)
		assert.Empty(t, row.OverallStrategy)
	})
}

// TestStorage_Postgres runs against a real database when
// ARCHIVE_TEST_DATABASE_DSN is set.
func TestStorage_Postgres(t *testing.T) {
	dsn := os.Getenv("ARCHIVE_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("ARCHIVE_TEST_DATABASE_DSN not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	store := NewStorage(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx), "schema bootstrap must be repeatable")

	event := sampleEvent()
	event.JobID = "storage-test-" + time.Now().Format("150405.000000000")
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM missions WHERE job_id = $1`, event.JobID)
	})

	require.NoError(t, store.UpsertMission(ctx, event))

	older := event
	older.State = control.StateFailed
	older.Result = nil
	older.FinishedAt = event.FinishedAt.Add(-time.Hour)
	require.NoError(t, store.UpsertMission(ctx, older))

	var state string
	var clipCount int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT state, clip_count FROM missions WHERE job_id = $1`, event.JobID,
	).Scan(&state, &clipCount))
	assert.Equal(t, "completed", state)
	assert.Equal(t, 2, clipCount)
}
