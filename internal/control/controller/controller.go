package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/mission-control/internal/control/backend"
	"github.com/cuongbtq/mission-control/internal/control/domain"
)

// DefaultPollInterval is the pause between a processed status response and
// the next status request.
const DefaultPollInterval = 2 * time.Second

// Backend is the remote processing service.
type Backend interface {
	Submit(ctx context.Context, artifact domain.Artifact) (string, error)
	Status(ctx context.Context, jobID string) (backend.StatusResponse, error)
}

// Option customizes the controller.
type Option func(*Controller)

// WithPollInterval overrides the poll cadence. Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithPollDeadline fails a job that is still polling after d. Zero disables it.
func WithPollDeadline(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.pollDeadline = d
		}
	}
}

// WithClock overrides the timestamp source for snapshots.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller drives a single job from submission to a terminal state.
type Controller struct {
	client       Backend
	sub          Subscriber
	logger       *slog.Logger
	pollInterval time.Duration
	pollDeadline time.Duration
	now          func() time.Time

	// lifecycle serializes Submit and Teardown.
	lifecycle sync.Mutex

	mu     sync.Mutex
	snap   domain.Snapshot
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs an idle controller.
func New(client Backend, sub Subscriber, logger *slog.Logger, opts ...Option) *Controller {
	if sub == nil {
		sub = SubscriberFuncs{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		client:       client,
		sub:          sub,
		logger:       logger,
		pollInterval: DefaultPollInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.snap = domain.Snapshot{State: domain.StateIdle, UpdatedAt: c.now()}
	return c
}

// Submit starts a new job for artifact. Any previous job is stopped first.
// Invalid input is reported synchronously and leaves the state untouched;
// every other outcome is delivered through the subscriber.
func (c *Controller) Submit(ctx context.Context, artifact domain.Artifact) error {
	if !domain.ValidArtifact(artifact) {
		return domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.stop()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.done = done
	c.snap = domain.Snapshot{
		Artifact:  artifact.Name(),
		State:     domain.StateSubmitting,
		UpdatedAt: c.now(),
	}
	first := c.snap.Clone()
	c.mu.Unlock()

	go c.run(runCtx, gen, artifact, first, done)
	return nil
}

// Snapshot returns the current state of the controller.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Clone()
}

// Wait blocks until the current job settles or the controller is torn down.
func (c *Controller) Wait(ctx context.Context) (domain.Snapshot, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return c.Snapshot(), nil
	}
	select {
	case <-done:
		return c.Snapshot(), nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

// Active reports whether a job's lifecycle is still running. It is false
// once the job settles or is torn down, whatever state the snapshot shows.
func (c *Controller) Active() bool {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil || done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Teardown stops the active job. When it returns no request is in flight and
// no further callbacks fire. It is safe to call more than once.
func (c *Controller) Teardown() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.stop()
}

func (c *Controller) stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Controller) run(ctx context.Context, gen uint64, artifact domain.Artifact, first domain.Snapshot, done chan struct{}) {
	defer close(done)

	c.sub.StateChanged(first)

	jobID, err := c.client.Submit(ctx, artifact)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Error("Mission submission rejected",
			slog.String("artifact", artifact.Name()),
			slog.String("error", err.Error()))
		c.fail(ctx, gen, err.Error())
		return
	}

	c.logger.Info("Mission submitted",
		slog.String("job_id", jobID),
		slog.String("artifact", artifact.Name()))

	_, ok := c.transition(ctx, gen, func(s *domain.Snapshot) bool {
		s.JobID = jobID
		s.State = domain.StateAnalyzing
		return true
	})
	if !ok {
		return
	}
	c.poll(ctx, gen, jobID)
}

// transition applies mutate to the snapshot if gen is still the active job
// and notifies StateChanged when mutate reports a change.
func (c *Controller) transition(ctx context.Context, gen uint64, mutate func(*domain.Snapshot) bool) (domain.Snapshot, bool) {
	c.mu.Lock()
	if ctx.Err() != nil || gen != c.gen || c.snap.State.IsTerminal() {
		c.mu.Unlock()
		return domain.Snapshot{}, false
	}
	next := c.snap
	if !mutate(&next) {
		c.mu.Unlock()
		return domain.Snapshot{}, false
	}
	next.UpdatedAt = c.now()
	c.snap = next
	out := next.Clone()
	c.mu.Unlock()

	c.sub.StateChanged(out)
	return out, true
}

func (c *Controller) fail(ctx context.Context, gen uint64, message string) {
	if message == "" {
		message = domain.DefaultBackendFailure
	}
	snap, ok := c.transition(ctx, gen, func(s *domain.Snapshot) bool {
		s.State = domain.StateFailed
		s.Error = message
		s.Result = nil
		return true
	})
	if ok {
		c.logger.Info("Mission failed",
			slog.String("job_id", snap.JobID),
			slog.String("error", message))
	}
}

func (c *Controller) complete(ctx context.Context, gen uint64, result *domain.Result) {
	snap, ok := c.transition(ctx, gen, func(s *domain.Snapshot) bool {
		s.State = domain.StateCompleted
		s.Result = result
		s.Error = ""
		return true
	})
	if !ok {
		return
	}
	c.logger.Info("Mission completed",
		slog.String("job_id", snap.JobID),
		slog.Int("videos", len(snap.Result.Videos)))
	c.sub.Completed(snap)
}
