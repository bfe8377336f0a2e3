package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/mission-control/internal/control/domain"
)

const (
	contentTypeJSON = "application/json"
	defaultTimeout  = 5 * time.Second
	defaultBuffer   = 32
)

// MessagePublisher delivers a message body to the broker.
type MessagePublisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Publisher forwards terminal mission snapshots to the broker. Notifications
// are queued and published by Run so the controller never waits on the broker.
type Publisher struct {
	client  MessagePublisher
	logger  *slog.Logger
	timeout time.Duration
	queue   chan domain.MissionEvent
}

// New creates a publisher. timeout bounds each publish including retries.
func New(client MessagePublisher, logger *slog.Logger, timeout time.Duration, buffer int) *Publisher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client:  client,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan domain.MissionEvent, buffer),
	}
}

func (p *Publisher) StateChanged(s domain.Snapshot) {
	if !s.State.IsTerminal() {
		return
	}

	event := domain.NewMissionEvent(s)
	if err := event.Validate(); err != nil {
		p.logger.Debug("Skipping mission event",
			slog.String("job_id", event.JobID),
			slog.String("reason", err.Error()))
		return
	}

	select {
	case p.queue <- event:
	default:
		p.logger.Warn("Mission event queue full, dropping event",
			slog.String("job_id", event.JobID),
			slog.String("state", string(event.State)))
	}
}

// Completed is a no-op; terminal states are handled in StateChanged.
func (p *Publisher) Completed(domain.Snapshot) {}

// Run publishes queued events until ctx is done, then flushes what is left.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return nil
		case event := <-p.queue:
			p.publish(ctx, event)
		}
	}
}

func (p *Publisher) flush() {
	for {
		select {
		case event := <-p.queue:
			p.publish(context.Background(), event)
		default:
			return
		}
	}
}

func (p *Publisher) publish(ctx context.Context, event domain.MissionEvent) {
	if err := p.Publish(ctx, event); err != nil {
		p.logger.Error("Failed to publish mission event",
			slog.String("job_id", event.JobID),
			slog.String("error", err.Error()))
		return
	}
	p.logger.Info("Mission event published",
		slog.String("job_id", event.JobID),
		slog.String("state", string(event.State)))
}

// Publish encodes and sends a single event.
func (p *Publisher) Publish(ctx context.Context, event domain.MissionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode mission event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.PublishWithRetry(ctx, body, contentTypeJSON); err != nil {
		return fmt.Errorf("failed to publish mission event: %w", err)
	}
	return nil
}
