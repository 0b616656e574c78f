// Package worker contains the queue-draining loops: the upload worker, which
// moves generated images into durable storage, and the product worker, which
// feeds queued submissions through the commerce pipeline. Both follow the
// same shape: pop one task, validate, execute, and never let a single task's
// failure kill the loop.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mirrorlake/dreamforge/internal/errs"
	"github.com/mirrorlake/dreamforge/internal/logger"
	"github.com/mirrorlake/dreamforge/internal/queue"
)

// ResultSink receives the durable URL for an uploaded file. The session
// store implements this so convergence polling can observe completion.
type ResultSink interface {
	Resolve(sessionID, fileName, url string) bool
}

type Uploader interface {
	Upload(ctx context.Context, fileName string, data []byte) (string, error)
}

type UploadConfig struct {
	QueueName     string
	PopTimeout    time.Duration
	SleepInterval time.Duration
	MaxRetries    int
	RetryDelay    time.Duration

	// LockTasks guards each execution with the advisory task lock, useful
	// when redelivery across restarts must not double-process. Off by
	// default.
	LockTasks bool
	LockTTL   time.Duration
}

func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		QueueName:     queue.UploadQueue,
		PopTimeout:    30 * time.Second,
		SleepInterval: 30 * time.Second,
		MaxRetries:    3,
		RetryDelay:    5 * time.Second,
		LockTTL:       5 * time.Minute,
	}
}

// UploadWorker drains the image upload queue. Each fetched task runs in its
// own tracked goroutine so a slow upload does not block the next fetch.
type UploadWorker struct {
	queue    *queue.Queue
	uploader Uploader
	sink     ResultSink
	cfg      UploadConfig

	running  atomic.Bool
	wg       sync.WaitGroup
	mu       sync.Mutex
	inflight map[*taskHandle]struct{}
}

type taskHandle struct {
	cancel context.CancelFunc
}

func NewUploadWorker(q *queue.Queue, uploader Uploader, sink ResultSink, cfg UploadConfig) *UploadWorker {
	return &UploadWorker{
		queue:    q,
		uploader: uploader,
		sink:     sink,
		cfg:      cfg,
		inflight: make(map[*taskHandle]struct{}),
	}
}

// Start runs the fetch loop until Stop or Shutdown is called or ctx is
// cancelled. It blocks; run it in its own goroutine.
func (w *UploadWorker) Start(ctx context.Context) {
	w.running.Store(true)
	logger.Info("upload worker started", "queue", w.cfg.QueueName)

	for w.running.Load() && ctx.Err() == nil {
		if err := w.processNext(ctx); err != nil {
			logger.Error("unexpected error in task loop", "queue", w.cfg.QueueName, "error", err)
			sleep(ctx, time.Second) // prevent a tight error loop
		}
	}

	w.running.Store(false)
	logger.Info("upload worker stopped", "queue", w.cfg.QueueName)
}

func (w *UploadWorker) processNext(ctx context.Context) error {
	payload, err := w.queue.Pop(ctx, w.cfg.QueueName, w.cfg.PopTimeout)
	if err != nil {
		return fmt.Errorf("pop task: %w", err)
	}
	if payload == nil {
		logger.Debug("no tasks found", "queue", w.cfg.QueueName, "sleep", w.cfg.SleepInterval)
		sleep(ctx, w.cfg.SleepInterval)
		return nil
	}

	task, err := queue.DecodeUploadTask(payload)
	if err != nil {
		logger.Error("undecodable task dropped", "queue", w.cfg.QueueName, "error", err)
		return nil
	}

	taskCtx, cancel := context.WithCancel(ctx)
	handle := &taskHandle{cancel: cancel}

	w.mu.Lock()
	w.inflight[handle] = struct{}{}
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer cancel()
		defer func() {
			w.mu.Lock()
			delete(w.inflight, handle)
			w.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic processing task", "task_id", task.ID, "panic", r)
			}
		}()

		w.processTask(taskCtx, task)
	}()

	return nil
}

func (w *UploadWorker) processTask(ctx context.Context, task *queue.UploadTask) {
	if err := task.Validate(); err != nil {
		// invalid tasks are dropped, never retried
		logger.Error("task validation failed", "task_id", task.ID, "error", err)
		return
	}

	if w.cfg.LockTasks {
		if !w.queue.AcquireLock(ctx, task.ID, w.cfg.LockTTL) {
			logger.Warn("task already locked, skipping", "task_id", task.ID)
			return
		}
		defer w.queue.ReleaseLock(ctx, task.ID)
	}

	logger.Info("processing upload task", "task_id", task.ID, "file", task.FileName)

	if err := w.uploadWithRetries(ctx, task); err != nil {
		logger.Error("upload task abandoned", "task_id", task.ID, "file", task.FileName, "error", err)
	}
}

func (w *UploadWorker) uploadWithRetries(ctx context.Context, task *queue.UploadTask) error {
	var lastErr error

	for attempt := 1; attempt <= w.cfg.MaxRetries; attempt++ {
		url, err := w.uploader.Upload(ctx, task.FileName, task.ImageContent)
		if err == nil {
			logger.Info("upload succeeded", "task_id", task.ID, "file", task.FileName, "url", url)
			if w.sink != nil {
				w.sink.Resolve(task.SessionID, task.FileName, url)
			}
			return nil
		}

		lastErr = err
		if attempt < w.cfg.MaxRetries {
			logger.Warn("upload attempt failed",
				"task_id", task.ID, "file", task.FileName,
				"attempt", attempt, "retry_in", w.cfg.RetryDelay, "error", err)
			if !sleep(ctx, w.cfg.RetryDelay) {
				return ctx.Err()
			}
		}
	}

	logger.Error("all upload attempts failed", "task_id", task.ID, "file", task.FileName, "error", lastErr)
	return errs.Terminal(errs.CodeUpload, "upload task "+task.ID, lastErr)
}

// Stop clears the running flag; the current iteration finishes and the loop
// exits.
func (w *UploadWorker) Stop() {
	logger.Info("stopping upload worker", "queue", w.cfg.QueueName)
	w.running.Store(false)
}

// Shutdown stops the loop, cancels every tracked in-flight task, and waits
// for them to finish or ctx to expire.
func (w *UploadWorker) Shutdown(ctx context.Context) error {
	w.Stop()

	w.mu.Lock()
	n := len(w.inflight)
	for handle := range w.inflight {
		handle.cancel()
	}
	w.mu.Unlock()

	if n > 0 {
		logger.Info("cancelling in-flight tasks", "count", n)
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("upload worker shutdown complete", "queue", w.cfg.QueueName)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the fetch loop is active.
func (w *UploadWorker) Running() bool {
	return w.running.Load()
}

// sleep waits for d or until ctx is cancelled, returning false on
// cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
