package archive

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/mission-control/internal/archive/domain"
	control "github.com/cuongbtq/mission-control/internal/control/domain"
)

const defaultWriteTimeout = 10 * time.Second

// ErrDeliveriesClosed is returned by Start when the broker closes the
// delivery channel while the worker is still running.
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// DeliverySource starts a manual-ack consumer on the mission queue.
type DeliverySource interface {
	Consume(consumerTag string, prefetchCount int) (<-chan amqp.Delivery, error)
}

// MissionStore persists finished missions.
type MissionStore interface {
	UpsertMission(ctx context.Context, event control.MissionEvent) error
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Store         MissionStore
	Source        DeliverySource
	Concurrency   int
	PrefetchCount int
	WriteTimeout  time.Duration
}

// Worker archives mission events consumed from RabbitMQ.
type Worker struct {
	logger        *slog.Logger
	store         MissionStore
	source        DeliverySource
	workerID      string
	concurrency   int
	prefetchCount int
	writeTimeout  time.Duration
	messages      chan *domain.Message
	wg            sync.WaitGroup
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		logger:        logger,
		store:         cfg.Store,
		source:        cfg.Source,
		workerID:      "archive-" + uuid.NewString(),
		concurrency:   concurrency,
		prefetchCount: cfg.PrefetchCount,
		writeTimeout:  writeTimeout,
		messages:      make(chan *domain.Message),
	}
}

// ID returns the worker's consumer tag.
func (w *Worker) ID() string {
	return w.workerID
}

// Start consumes mission events until ctx is canceled or the broker closes
// the delivery channel. It returns once every in-flight message is settled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting archive worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("write_timeout", w.writeTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)
	closed := w.startMessageDispatcher(ctx, deliveries)

	close(w.messages)
	w.wg.Wait()
	w.logger.Info("Archive worker stopped", slog.String("worker_id", w.workerID))

	if closed {
		return ErrDeliveriesClosed
	}
	return nil
}
