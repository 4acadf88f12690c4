package queue

import (
	"context"
	"errors"
	"time"

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/logger"
)

// JobStarter launches exploration jobs. Satisfied by pipeline.Manager.
type JobStarter interface {
	Start(ctx context.Context, cfg domain.JobConfig) (string, error)
}

// Worker drains the request stream and starts an exploration job for each
// request.
type Worker struct {
	consumer *Consumer
	starter  JobStarter
	logger   logger.Interface
}

// NewWorker creates a queue worker.
func NewWorker(consumer *Consumer, starter JobStarter, log logger.Interface) *Worker {
	return &Worker{
		consumer: consumer,
		starter:  starter,
		logger:   log.WithComponent("queue-worker"),
	}
}

// Run processes requests until ctx is cancelled. Read errors are logged
// and retried after a short delay rather than stopping the worker.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.consumer.Initialize(ctx); err != nil {
		return err
	}

	w.logger.Info("Queue worker started",
		"group", w.consumer.ConsumerGroup(),
		"consumer", w.consumer.ConsumerID())

	for {
		if ctx.Err() != nil {
			w.logger.Info("Queue worker stopping")
			return nil
		}

		requests, err := w.consumer.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			w.logger.Error("Failed to read requests", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, request := range requests {
			w.handle(ctx, request)
		}
	}
}

// handle starts one job. Invalid requests are acknowledged and dropped so
// they do not clog the stream.
func (w *Worker) handle(ctx context.Context, request *ConsumedRequest) {
	jobID, err := w.starter.Start(ctx, request.Config)
	if err != nil {
		w.logger.Error("Failed to start job from request",
			"message_id", request.MessageID,
			"seed", request.Config.SeedURL,
			"error", err)
	} else {
		w.logger.Info("Job started from request",
			"message_id", request.MessageID,
			"job_id", jobID,
			"seed", request.Config.SeedURL)
	}

	if ackErr := w.consumer.Acknowledge(ctx, request); ackErr != nil {
		w.logger.Error("Failed to acknowledge request",
			"message_id", request.MessageID,
			"error", ackErr)
	}
}
