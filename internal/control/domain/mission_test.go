package domain

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFromToken(t *testing.T) {
	tests := []struct {
		token  string
		want   State
		wantOK bool
	}{
		{token: "ANALYZING", want: StateAnalyzing, wantOK: true},
		{token: "WRITING", want: StateWriting, wantOK: true},
		{token: "RENDERING", want: StateRendering, wantOK: true},
		{token: "COMPLETED", want: StateCompleted, wantOK: true},
		{token: "FAILED", want: StateFailed, wantOK: true},
		{token: " rendering ", want: StateRendering, wantOK: true},
		{token: "QUEUED"},
		{token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := StateFromToken(tt.token)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestState_Predicates(t *testing.T) {
	tests := []struct {
		state    State
		terminal bool
		active   bool
		rank     int
	}{
		{state: StateIdle},
		{state: StateSubmitting, active: true},
		{state: StateAnalyzing, active: true, rank: 1},
		{state: StateWriting, active: true, rank: 2},
		{state: StateRendering, active: true, rank: 3},
		{state: StateCompleted, terminal: true},
		{state: StateFailed, terminal: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
			assert.Equal(t, tt.active, tt.state.IsActive())
			assert.Equal(t, tt.rank, tt.state.StageRank())
		})
	}
}

func sampleResult() *Result {
	return &Result{
		Campaign: Campaign{
			OverallStrategy: "lead with the hook",
			ClipStrategies: []ClipStrategy{
				{
					ClipIndex:       1,
					DurationSeconds: 30,
					Posts: []PlatformPost{
						{Platform: "tiktok", Content: "watch this", Hashtags: []string{"#ai"}},
					},
				},
			},
		},
		Videos: []Video{{URL: "https://cdn.example.com/1.mp4", Hook: "wait for it"}},
		Analysis: Analysis{
			MainTopic:       "rockets",
			SuggestedTitles: []string{"Liftoff"},
			Clips:           []ClipAnalysis{{Start: "00:00", End: "00:30", Score: 92}},
		},
	}
}

func TestSnapshot_Clone(t *testing.T) {
	orig := Snapshot{JobID: "job-1", State: StateCompleted, Result: sampleResult()}
	cp := orig.Clone()

	require.NotNil(t, cp.Result)
	assert.Equal(t, orig, cp)

	cp.Result.Videos[0].URL = "changed"
	cp.Result.Campaign.ClipStrategies[0].Posts[0].Hashtags[0] = "#changed"
	cp.Result.Analysis.Clips[0].Score = 1

	assert.Equal(t, "https://cdn.example.com/1.mp4", orig.Result.Videos[0].URL)
	assert.Equal(t, "#ai", orig.Result.Campaign.ClipStrategies[0].Posts[0].Hashtags[0])
	assert.Equal(t, 92, orig.Result.Analysis.Clips[0].Score)
}

func TestResult_PostsFor(t *testing.T) {
	r := sampleResult()

	posts := r.PostsFor(1)
	require.Len(t, posts, 1)
	assert.Equal(t, "tiktok", posts[0].Platform)

	assert.Nil(t, r.PostsFor(2))

	var nilResult *Result
	assert.Nil(t, nilResult.PostsFor(1))

	score, ok := r.ScoreFor(0)
	assert.True(t, ok)
	assert.Equal(t, 92, score)
	_, ok = r.ScoreFor(3)
	assert.False(t, ok)
}

func TestValidArtifact(t *testing.T) {
	var nilFile *FileArtifact

	tests := []struct {
		name     string
		artifact Artifact
		want     bool
	}{
		{name: "nil interface", artifact: nil},
		{name: "typed nil", artifact: nilFile},
		{name: "empty path", artifact: NewFileArtifact("  ")},
		{name: "named file", artifact: NewFileArtifact("/tmp/source.mp4"), want: true},
		{name: "upload without path", artifact: &UploadArtifact{Filename: "a.mp4"}},
		{name: "upload without name", artifact: &UploadArtifact{Path: "/tmp/x"}},
		{name: "spooled upload", artifact: &UploadArtifact{Filename: "a.mp4", Path: "/tmp/x"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidArtifact(tt.artifact))
		})
	}
}

func TestFileArtifact_Open(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("frames"), 0o600))

	a := NewFileArtifact(path)
	assert.Equal(t, "clip.mp4", a.Name())

	rc, err := a.Open()
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "frames", string(data))
}

func TestUploadArtifact_RemovedAfterRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spool-1")
	require.NoError(t, os.WriteFile(path, []byte("frames"), 0o600))

	a := &UploadArtifact{Filename: "../clip.mp4", Path: path}
	assert.Equal(t, "clip.mp4", a.Name())

	rc, err := a.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "frames", string(data))
	require.NoError(t, rc.Close())

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoError(t, a.Discard())
}

func TestErrors(t *testing.T) {
	cause := errors.New("connection refused")

	rejected := &SubmissionRejectedError{Err: cause}
	assert.ErrorIs(t, rejected, cause)
	assert.Equal(t, "submission rejected: connection refused", rejected.Error())
	assert.Equal(t, "submission rejected: status 500", (&SubmissionRejectedError{StatusCode: 500}).Error())

	transient := &TransientPollError{JobID: "job-1", Err: cause}
	assert.True(t, IsTransient(transient))
	assert.True(t, IsTransient(errors.Join(errors.New("outer"), transient)))
	assert.False(t, IsTransient(cause))

	assert.Equal(t, DefaultBackendFailure, (&BackendFailureError{JobID: "job-1"}).Error())
	assert.Equal(t, "out of credits", (&BackendFailureError{Message: "out of credits"}).Error())
}
