package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/mission-control/internal/control/domain"
)

const sampleResult = `{
	"campaign": {
		"overall_strategy": "Lead with the demo, follow with the founder story",
		"clip_strategies": [
			{"clip_index": 1, "duration_seconds": 30, "posts": [
				{"platform": "tiktok", "content": "Watch this", "hashtags": ["demo", "#launch"]}
			]}
		]
	},
	"videos": [{"url": "https://cdn.example/clip-1.mp4", "hook": "You won't believe it"}],
	"analysis": {
		"main_topic": "Product launch",
		"suggested_titles": ["Launch day"],
		"clips": [{"start": "00:10", "end": "00:40", "score": 92}]
	}
}`

type scriptedBackend struct {
	mu      sync.Mutex
	steps   []string
	polls   int
	uploads int
}

func (b *scriptedBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.uploads++
		b.mu.Unlock()
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, `{"detail":"file missing"}`, http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"job_id":"job-1"}`))
	})
	mux.HandleFunc("/status/job-1", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		i := b.polls
		if i >= len(b.steps) {
			i = len(b.steps) - 1
		}
		b.polls++
		_, _ = w.Write([]byte(b.steps[i]))
	})
	return mux
}

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "launch.mp4")
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0o600))
	return path
}

func execute(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSubmitCommand_Completed(t *testing.T) {
	backend := &scriptedBackend{steps: []string{
		`{"status":"ANALYZING"}`,
		`{"status":"WRITING"}`,
		`{"status":"RENDERING"}`,
		`{"status":"COMPLETED","result":` + sampleResult + `}`,
	}}
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	stdout, _, err := execute("submit", writeSource(t), "--backend", srv.URL, "--interval", "5ms")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Submitting launch.mp4")
	for _, label := range []string{"Uploading source material", "Analyzing source material", "Writing campaign copy", "Rendering clips", "Mission complete"} {
		assert.Contains(t, stdout, label)
	}
	assert.Less(t, strings.Index(stdout, "Writing campaign copy"), strings.Index(stdout, "Rendering clips"))
	assert.Contains(t, stdout, "Lead with the demo")
	assert.Contains(t, stdout, "You won't believe it")
	assert.Contains(t, stdout, "92")
	assert.Contains(t, stdout, "#demo #launch")
	assert.Equal(t, 1, backend.uploads)
}

func TestSubmitCommand_Failed(t *testing.T) {
	backend := &scriptedBackend{steps: []string{`{"status":"FAILED","error":"no speech detected"}`}}
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	stdout, _, err := execute("submit", writeSource(t), "--backend", srv.URL, "--interval", "5ms")
	require.ErrorIs(t, err, errMissionFailed)
	assert.Contains(t, stdout, "Mission failed: no speech detected")
}

func TestSubmitCommand_JSON(t *testing.T) {
	backend := &scriptedBackend{steps: []string{`{"status":"COMPLETED","result":` + sampleResult + `}`}}
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	stdout, stderr, err := execute("submit", writeSource(t), "--backend", srv.URL, "--interval", "5ms", "--json")
	require.NoError(t, err)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(stdout), &snap))
	assert.Equal(t, "job-1", snap.JobID)
	assert.Equal(t, domain.StateCompleted, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "Product launch", snap.Result.Analysis.MainTopic)
	assert.Contains(t, stderr, "Mission complete")
}

func TestSubmitCommand_InputErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing argument", args: []string{"submit"}, wantErr: "accepts 1 arg"},
		{name: "missing file", args: []string{"submit", filepath.Join(dir, "nope.mp4")}, wantErr: "file does not exist"},
		{name: "directory", args: []string{"submit", dir}, wantErr: "is a directory"},
		{name: "bad backend", args: []string{"submit", writeSource(t), "--backend", "not a url"}, wantErr: "invalid base url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSubmitCommand_EmptyFile(t *testing.T) {
	backend := &scriptedBackend{steps: []string{`{"status":"ANALYZING"}`}}
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "empty.mp4")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, _, err := execute("submit", path, "--backend", srv.URL, "--interval", "5ms")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "is empty")
	assert.Zero(t, backend.uploads, "empty file must not reach the backend")
}

func TestSubmitCommand_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"unsupported codec"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	stdout, _, err := execute("submit", writeSource(t), "--backend", srv.URL, "--interval", "5ms")
	require.ErrorIs(t, err, errMissionFailed)
	assert.Contains(t, stdout, "unsupported codec")
}

func TestStatusCommand(t *testing.T) {
	backend := &scriptedBackend{steps: []string{`{"status":"WRITING"}`}}
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	stdout, _, err := execute("status", "job-1", "--backend", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Job:    job-1")
	assert.Contains(t, stdout, "WRITING (Writing campaign copy)")

	stdout, _, err = execute("status", "job-1", "--backend", srv.URL, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"WRITING"}`, stdout)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute("version")
	require.NoError(t, err)
	assert.Equal(t, "mission-cli dev\n", stdout)
}

func TestRenderStateLine(t *testing.T) {
	line := renderStateLine(domain.Snapshot{State: domain.StateAnalyzing, JobID: "job-9"}, 0, false)
	assert.Contains(t, line, "Analyzing source material (job job-9)")
	assert.NotContains(t, line, "\x1b[")

	colored := renderStateLine(domain.Snapshot{State: domain.StateFailed, Error: "boom"}, 0, true)
	assert.True(t, strings.HasPrefix(colored, ansiRed))
	assert.Contains(t, colored, "Mission failed: boom")
}

func TestRenderResult_NoClips(t *testing.T) {
	var buf bytes.Buffer
	renderResult(&buf, &domain.Result{Campaign: domain.Campaign{OverallStrategy: "none"}})
	assert.Contains(t, buf.String(), "No clips were produced.")

	buf.Reset()
	renderResult(&buf, nil)
	assert.Empty(t, buf.String())
}
