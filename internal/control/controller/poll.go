package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/mission-control/internal/control/domain"
)

// ErrPollDeadline is the failure recorded when a job outlives the poll deadline.
var ErrPollDeadline = errors.New("polling deadline exceeded")

// poll queries the status endpoint for jobID until the job settles or ctx ends.
// Each request is issued one interval after the previous response was handled.
func (c *Controller) poll(ctx context.Context, gen uint64, jobID string) {
	var deadline <-chan time.Time
	if c.pollDeadline > 0 {
		timer := time.NewTimer(c.pollDeadline)
		defer timer.Stop()
		deadline = timer.C
	}

	wait := time.NewTimer(c.pollInterval)
	defer wait.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			c.logger.Warn("Mission poll deadline exceeded",
				slog.String("job_id", jobID),
				slog.Duration("deadline", c.pollDeadline))
			c.fail(ctx, gen, ErrPollDeadline.Error())
			return
		case <-wait.C:
		}

		settled, err := c.pollOnce(ctx, gen, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("Mission status poll failed",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
		}
		if settled {
			return
		}
		wait.Reset(c.pollInterval)
	}
}

// pollOnce issues one status request and applies the reported stage. It
// returns true once the job reached a terminal state.
func (c *Controller) pollOnce(ctx context.Context, gen uint64, jobID string) (bool, error) {
	resp, err := c.client.Status(ctx, jobID)
	if err != nil {
		return false, &domain.TransientPollError{JobID: jobID, Err: err}
	}

	state, ok := domain.StateFromToken(resp.Status)
	if !ok {
		return false, &domain.TransientPollError{
			JobID: jobID,
			Err:   fmt.Errorf("unknown stage token %q", resp.Status),
		}
	}

	switch state {
	case domain.StateCompleted:
		if resp.Result == nil {
			return false, &domain.TransientPollError{
				JobID: jobID,
				Err:   errors.New("completed without result"),
			}
		}
		result := resp.Result.Clone()
		c.complete(ctx, gen, &result)
		return true, nil
	case domain.StateFailed:
		failure := &domain.BackendFailureError{JobID: jobID, Message: resp.Error}
		c.fail(ctx, gen, failure.Error())
		return true, nil
	default:
		c.advance(ctx, gen, jobID, state)
		return false, nil
	}
}

// advance moves to a later pipeline stage. Repeats and backward reports are ignored.
func (c *Controller) advance(ctx context.Context, gen uint64, jobID string, next domain.State) {
	c.transition(ctx, gen, func(s *domain.Snapshot) bool {
		if s.State == next {
			return false
		}
		if next.StageRank() < s.State.StageRank() {
			c.logger.Debug("Ignoring backward stage report",
				slog.String("job_id", jobID),
				slog.String("current", string(s.State)),
				slog.String("reported", string(next)))
			return false
		}
		s.State = next
		return true
	})
}
