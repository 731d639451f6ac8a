package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/straye-as/enquiry-api/internal/config"
	"go.uber.org/zap"
)

// Deliverer performs one notification delivery
type Deliverer interface {
	Deliver(ctx context.Context, id uuid.UUID) error
}

// Worker consumes delivery tasks
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	deliverer Deliverer
	logger    *zap.Logger
}

func NewWorker(cfg *config.QueueConfig, deliverer Deliverer, logger *zap.Logger) (*Worker, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis address not configured")
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 5
	}

	w := &Worker{
		deliverer: deliverer,
		logger:    logger,
		mux:       asynq.NewServeMux(),
	}
	w.server = asynq.NewServer(RedisClientOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{defaultQueue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Warn("delivery task failed",
				zap.String("task", task.Type()),
				zap.Error(err))
		}),
	})
	w.mux.HandleFunc(TaskDeliverNotification, w.handleDeliver)

	return w, nil
}

func (w *Worker) handleDeliver(ctx context.Context, task *asynq.Task) error {
	id, err := ParseDeliverPayload(task)
	if err != nil {
		// a malformed payload never becomes valid
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := w.deliverer.Deliver(ctx, id); err != nil {
		return fmt.Errorf("failed to deliver notification %s: %w", id, err)
	}
	return nil
}

// Run processes tasks until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("starting delivery worker")
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start delivery worker: %w", err)
	}

	<-ctx.Done()
	w.logger.Info("stopping delivery worker")
	w.server.Shutdown()
	return nil
}
