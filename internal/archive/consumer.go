package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/mission-control/internal/archive/domain"
	control "github.com/cuongbtq/mission-control/internal/control/domain"
)

// setupConsumer starts consuming with the worker ID as consumer tag
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	deliveries, err := w.source.Consume(w.workerID, w.prefetchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	return deliveries, nil
}

// startMessageDispatcher decodes deliveries and hands them to the worker pool.
// It reports whether it stopped because the delivery channel was closed.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) bool {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return false

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return true
			}

			event, err := decodeEvent(delivery.Body)
			if err != nil {
				w.logger.Error("Rejecting mission event",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				// Malformed messages go to the dead-letter exchange, if any.
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			msg := &domain.Message{Event: event, Delivery: delivery}

			select {
			case w.messages <- msg:
				w.logger.Debug("Mission event dispatched to worker pool",
					slog.String("job_id", event.JobID),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching event")
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return false
			}
		}
	}
}

func decodeEvent(body []byte) (control.MissionEvent, error) {
	var event control.MissionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return control.MissionEvent{}, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	if err := event.Validate(); err != nil {
		return control.MissionEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}
	return event, nil
}
