package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/mission-control/internal/control/domain"
)

type fakeBroker struct {
	mu     sync.Mutex
	err    error
	bodies [][]byte
	types  []string
}

func (f *fakeBroker) PublishWithRetry(ctx context.Context, body []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.bodies = append(f.bodies, body)
	f.types = append(f.types, contentType)
	return nil
}

func (f *fakeBroker) published() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.bodies...)
}

func terminal(state domain.State) domain.Snapshot {
	s := domain.Snapshot{JobID: "job-1", Artifact: "a.mp4", State: state, UpdatedAt: time.Now()}
	if state == domain.StateCompleted {
		s.Result = &domain.Result{Campaign: domain.Campaign{OverallStrategy: "s"}}
	} else {
		s.Error = "boom"
	}
	return s
}

func TestPublisher_StateChanged(t *testing.T) {
	tests := []struct {
		name   string
		snap   domain.Snapshot
		queued bool
	}{
		{name: "completed", snap: terminal(domain.StateCompleted), queued: true},
		{name: "failed", snap: terminal(domain.StateFailed), queued: true},
		{name: "active stage", snap: domain.Snapshot{JobID: "job-1", State: domain.StateRendering}},
		{name: "rejected before job id", snap: domain.Snapshot{State: domain.StateFailed, Error: "rejected", UpdatedAt: time.Now()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(&fakeBroker{}, nil, time.Second, 4)
			p.StateChanged(tt.snap)
			p.Completed(tt.snap)

			if tt.queued {
				assert.Len(t, p.queue, 1)
			} else {
				assert.Empty(t, p.queue)
			}
		})
	}
}

func TestPublisher_DropsWhenQueueFull(t *testing.T) {
	p := New(&fakeBroker{}, nil, time.Second, 1)
	p.StateChanged(terminal(domain.StateFailed))
	p.StateChanged(terminal(domain.StateFailed))

	assert.Len(t, p.queue, 1)
}

func TestPublisher_Run(t *testing.T) {
	broker := &fakeBroker{}
	p := New(broker, nil, time.Second, 4)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.StateChanged(terminal(domain.StateCompleted))
	require.Eventually(t, func() bool { return len(broker.published()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	var event domain.MissionEvent
	require.NoError(t, json.Unmarshal(broker.published()[0], &event))
	assert.Equal(t, "job-1", event.JobID)
	assert.Equal(t, domain.StateCompleted, event.State)
	require.NotNil(t, event.Result)
	assert.Equal(t, "s", event.Result.Campaign.OverallStrategy)
	assert.Equal(t, contentTypeJSON, broker.types[0])
}

func TestPublisher_RunFlushesOnShutdown(t *testing.T) {
	broker := &fakeBroker{}
	p := New(broker, nil, time.Second, 4)
	p.StateChanged(terminal(domain.StateFailed))
	p.StateChanged(terminal(domain.StateCompleted))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.NoError(t, p.Run(ctx))

	assert.Len(t, broker.published(), 2)
}

func TestPublisher_Publish(t *testing.T) {
	broker := &fakeBroker{err: errors.New("channel closed")}
	p := New(broker, nil, time.Second, 1)

	err := p.Publish(t.Context(), domain.NewMissionEvent(terminal(domain.StateFailed)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}
