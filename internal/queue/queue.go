// Package queue provides the Redis-backed task queue shared by the command
// layer and the worker loops. Queues are plain Redis lists: RPUSH on produce,
// BLPOP on consume, so a single pop is atomic across consumers. The advisory
// task lock is a SETNX key with a TTL and only protects cooperating callers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mirrorlake/dreamforge/internal/errs"
	"github.com/mirrorlake/dreamforge/internal/logger"
)

const lockKeyPrefix = "task_lock:"

// Well-known queue names.
const (
	UploadQueue  = "image_upload_queue"
	ProductQueue = "shopify_product_queue"
)

type Config struct {
	Host     string
	Port     int
	Password string
}

type Queue struct {
	client *redis.Client
}

func New(cfg Config) *Queue {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
	})
	return &Queue{client: client}
}

// NewWithClient wraps an existing Redis client, used by tests.
func NewWithClient(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Push serializes task to JSON and appends it to the tail of the named queue.
// Binary payloads ride as base64 through encoding/json's []byte handling, so
// the wire format stays text-safe.
func (q *Queue) Push(ctx context.Context, queueName string, task any) error {
	payload, err := json.Marshal(task)
	if err != nil {
		logger.Error("task marshal failed", "queue", queueName, "error", err)
		return errs.Internal("push task", err)
	}

	if err := q.client.RPush(ctx, queueName, payload).Err(); err != nil {
		logger.Error("task push failed", "queue", queueName, "error", err)
		return errs.Transient("push task", err)
	}

	logger.Debug("task pushed", "queue", queueName, "bytes", len(payload))
	return nil
}

// Pop blocks up to timeout waiting for the head of the named queue and
// returns the raw task payload. A nil payload with nil error means the queue
// stayed empty for the full timeout. Store errors are returned as-is so
// callers can surface an outage instead of mistaking it for an empty queue.
func (q *Queue) Pop(ctx context.Context, queueName string, timeout time.Duration) ([]byte, error) {
	vals, err := q.client.BLPop(ctx, timeout, queueName).Result()
	if err == redis.Nil {
		logger.Debug("queue empty", "queue", queueName, "timeout", timeout)
		return nil, nil
	}
	if err != nil {
		logger.Error("task pop failed", "queue", queueName, "error", err)
		return nil, errs.Transient("pop task", err)
	}

	// BLPOP returns [key, value]
	if len(vals) != 2 {
		return nil, errs.Transient("pop task", fmt.Errorf("unexpected BLPOP reply length %d", len(vals)))
	}

	return []byte(vals[1]), nil
}

// Count returns the current length of the named queue, 0 on error.
func (q *Queue) Count(ctx context.Context, queueName string) int64 {
	count, err := q.client.LLen(ctx, queueName).Result()
	if err != nil {
		logger.Error("queue count failed", "queue", queueName, "error", err)
		return 0
	}
	return count
}

// Clear deletes the named queue wholesale. Clearing an empty queue is not an
// error.
func (q *Queue) Clear(ctx context.Context, queueName string) error {
	deleted, err := q.client.Del(ctx, queueName).Result()
	if err != nil {
		logger.Error("queue clear failed", "queue", queueName, "error", err)
		return errs.Transient("clear queue", err)
	}

	if deleted == 0 {
		logger.Debug("queue already empty", "queue", queueName)
	} else {
		logger.Info("queue cleared", "queue", queueName)
	}
	return nil
}

// AcquireLock takes the advisory lock for a task id, returning false if the
// lock is already held or the store is unavailable. The lock expires on its
// own after ttl.
func (q *Queue) AcquireLock(ctx context.Context, taskID string, ttl time.Duration) bool {
	ok, err := q.client.SetNX(ctx, lockKeyPrefix+taskID, "locked", ttl).Result()
	if err != nil {
		logger.Error("lock acquire failed", "task_id", taskID, "error", err)
		return false
	}
	if ok {
		logger.Debug("lock acquired", "task_id", taskID, "ttl", ttl)
	} else {
		logger.Debug("lock already held", "task_id", taskID)
	}
	return ok
}

// ReleaseLock drops the advisory lock for a task id. Releasing an absent lock
// returns false but is harmless.
func (q *Queue) ReleaseLock(ctx context.Context, taskID string) bool {
	deleted, err := q.client.Del(ctx, lockKeyPrefix+taskID).Result()
	if err != nil {
		logger.Error("lock release failed", "task_id", taskID, "error", err)
		return false
	}
	return deleted == 1
}

func (q *Queue) Healthy(ctx context.Context) bool {
	return q.client.Ping(ctx).Err() == nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}
