package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mirrorlake/dreamforge/internal/logger"
	"github.com/mirrorlake/dreamforge/internal/queue"
)

// Pipeline processes one product task end to end.
type Pipeline interface {
	Process(ctx context.Context, task *queue.ProductTask) error
}

type ProductConfig struct {
	QueueName     string
	PopTimeout    time.Duration
	SleepInterval time.Duration
}

func DefaultProductConfig() ProductConfig {
	return ProductConfig{
		QueueName:     queue.ProductQueue,
		PopTimeout:    time.Second,
		SleepInterval: time.Second,
	}
}

// ProductWorker drains the product queue sequentially. Unlike the upload
// worker it does not fan out: a product submission holds several dependent
// network calls and processing them one at a time keeps commerce API usage
// predictable.
type ProductWorker struct {
	queue    *queue.Queue
	pipeline Pipeline
	cfg      ProductConfig
	running  atomic.Bool
}

func NewProductWorker(q *queue.Queue, pipeline Pipeline, cfg ProductConfig) *ProductWorker {
	return &ProductWorker{
		queue:    q,
		pipeline: pipeline,
		cfg:      cfg,
	}
}

// Start runs the fetch loop until Stop is called or ctx is cancelled. It
// blocks; run it in its own goroutine.
func (w *ProductWorker) Start(ctx context.Context) {
	w.running.Store(true)
	logger.Info("product worker started", "queue", w.cfg.QueueName)

	for w.running.Load() && ctx.Err() == nil {
		if err := w.processNext(ctx); err != nil {
			logger.Error("unexpected error in task loop", "queue", w.cfg.QueueName, "error", err)
			sleep(ctx, time.Second)
		}
	}

	w.running.Store(false)
	logger.Info("product worker stopped", "queue", w.cfg.QueueName)
}

func (w *ProductWorker) processNext(ctx context.Context) error {
	payload, err := w.queue.Pop(ctx, w.cfg.QueueName, w.cfg.PopTimeout)
	if err != nil {
		return fmt.Errorf("pop task: %w", err)
	}
	if payload == nil {
		sleep(ctx, w.cfg.SleepInterval)
		return nil
	}

	task, err := queue.DecodeProductTask(payload)
	if err != nil {
		logger.Error("undecodable task dropped", "queue", w.cfg.QueueName, "error", err)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic processing task", "task_id", task.ID, "panic", r)
		}
	}()

	if err := w.pipeline.Process(ctx, task); err != nil {
		// the pipeline is fail-fast and does not retry; the task is done
		logger.Error("product task failed", "task_id", task.ID, "error", err)
	}

	return nil
}

// Stop clears the running flag; the current iteration finishes and the loop
// exits.
func (w *ProductWorker) Stop() {
	logger.Info("stopping product worker", "queue", w.cfg.QueueName)
	w.running.Store(false)
}

// Running reports whether the fetch loop is active.
func (w *ProductWorker) Running() bool {
	return w.running.Load()
}
