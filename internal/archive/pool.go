package archive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/mission-control/internal/archive/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned",
		slog.Int("worker_count", w.concurrency),
	)
}

// workerLoop archives messages until the dispatcher closes the channel.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started", slog.String("worker_name", workerName))

	for msg := range w.messages {
		err := w.processMessage(ctx, msg)
		w.settle(workerName, msg, err)
	}

	w.logger.Debug("Worker goroutine stopped", slog.String("worker_name", workerName))
}

// settle ACKs or NACKs the delivery based on the processing result.
func (w *Worker) settle(workerName string, msg *domain.Message, err error) {
	jobID := msg.Event.JobID

	if err == nil {
		if ackErr := msg.Delivery.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK message",
				slog.String("worker_name", workerName),
				slog.String("job_id", jobID),
				slog.String("error", ackErr.Error()),
			)
		}
		return
	}

	requeue := domain.ShouldRequeue(err)
	w.logger.Error("Mission archive failed",
		slog.String("worker_name", workerName),
		slog.String("job_id", jobID),
		slog.Bool("requeue", requeue),
		slog.String("error", err.Error()),
	)

	if nackErr := msg.Delivery.Nack(false, requeue); nackErr != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("worker_name", workerName),
			slog.String("job_id", jobID),
			slog.String("error", nackErr.Error()),
		)
	}
}
