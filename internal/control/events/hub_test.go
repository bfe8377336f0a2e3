package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/mission-control/internal/control/domain"
)

func drain(l *Listener) []Event {
	var out []Event
	for {
		select {
		case e, ok := <-l.C:
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub(8, nil)
	a := hub.Subscribe()
	b := hub.Subscribe()
	require.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, hub.Len())

	hub.StateChanged(domain.Snapshot{State: domain.StateAnalyzing})
	hub.StateChanged(domain.Snapshot{State: domain.StateCompleted})
	hub.Completed(domain.Snapshot{State: domain.StateCompleted, JobID: "job-1"})

	for _, l := range []*Listener{a, b} {
		events := drain(l)
		require.Len(t, events, 3)
		assert.Equal(t, int64(1), events[0].Seq)
		assert.Equal(t, EventTypeState, events[0].Type)
		assert.Equal(t, domain.StateAnalyzing, events[0].Snapshot.State)
		assert.Equal(t, EventTypeCompleted, events[2].Type)
		assert.Equal(t, "job-1", events[2].Snapshot.JobID)
		assert.Equal(t, int64(3), events[2].Seq)
	}
}

func TestHub_SlowListenerDropsOldest(t *testing.T) {
	hub := NewHub(2, nil)
	l := hub.Subscribe()

	hub.StateChanged(domain.Snapshot{State: domain.StateSubmitting})
	hub.StateChanged(domain.Snapshot{State: domain.StateAnalyzing})
	hub.StateChanged(domain.Snapshot{State: domain.StateWriting})
	hub.StateChanged(domain.Snapshot{State: domain.StateRendering})

	events := drain(l)
	require.Len(t, events, 2)
	assert.Equal(t, domain.StateWriting, events[0].Snapshot.State)
	assert.Equal(t, domain.StateRendering, events[1].Snapshot.State)
	assert.Equal(t, int64(4), events[1].Seq)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(4, nil)
	l := hub.Subscribe()
	hub.Unsubscribe(l.ID)
	hub.Unsubscribe(l.ID)

	assert.Zero(t, hub.Len())
	_, ok := <-l.C
	assert.False(t, ok)

	hub.StateChanged(domain.Snapshot{State: domain.StateAnalyzing})
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(4, nil)
	l := hub.Subscribe()

	hub.Close()
	hub.Close()

	_, ok := <-l.C
	assert.False(t, ok)

	late := hub.Subscribe()
	_, ok = <-late.C
	assert.False(t, ok)
	assert.Zero(t, hub.Len())

	hub.Completed(domain.Snapshot{State: domain.StateCompleted})
}
