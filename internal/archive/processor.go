package archive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/mission-control/internal/archive/domain"
)

// processMessage writes one mission to the archive. The write outlives a
// canceled ctx so a message taken from the queue is settled either way.
func (w *Worker) processMessage(ctx context.Context, msg *domain.Message) error {
	event := msg.Event

	w.logger.Info("Archiving mission",
		slog.String("job_id", event.JobID),
		slog.String("state", string(event.State)),
		slog.Uint64("delivery_tag", msg.Delivery.DeliveryTag),
	)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.writeTimeout)
	defer cancel()

	if err := w.store.UpsertMission(writeCtx, event); err != nil {
		return domain.NewRetryableError(fmt.Errorf("failed to archive mission %s: %w", event.JobID, err))
	}

	return nil
}
