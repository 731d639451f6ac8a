package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/straye-as/enquiry-api/internal/config"
	"go.uber.org/zap"
)

const (
	defaultQueue = "notifications"
	maxRetry     = 5
	// uniqueFor keeps a notification from being queued twice while a
	// delivery for it is still waiting or retrying
	uniqueFor = 30 * time.Minute
)

// RedisClientOpt builds the asynq connection options from queue config
func RedisClientOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// AsynqQueue enqueues notification deliveries for cmd/worker
type AsynqQueue struct {
	client *asynq.Client
	queue  string
	logger *zap.Logger
}

func NewAsynqQueue(cfg *config.QueueConfig, logger *zap.Logger) (*AsynqQueue, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis address not configured")
	}
	return &AsynqQueue{
		client: asynq.NewClient(RedisClientOpt(cfg)),
		queue:  defaultQueue,
		logger: logger,
	}, nil
}

func (q *AsynqQueue) Close() error {
	if q == nil || q.client == nil {
		return nil
	}
	return q.client.Close()
}

// EnqueueDelivery queues delivery of a notification. A delivery already
// waiting for the same notification counts as success.
func (q *AsynqQueue) EnqueueDelivery(ctx context.Context, id uuid.UUID) error {
	task, err := NewDeliverTask(id)
	if err != nil {
		return err
	}

	_, err = q.client.EnqueueContext(ctx, task,
		asynq.Queue(q.queue),
		asynq.MaxRetry(maxRetry),
		asynq.Unique(uniqueFor),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		q.logger.Debug("delivery already queued", zap.String("notification_id", id.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue delivery: %w", err)
	}
	return nil
}
