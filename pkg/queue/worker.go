package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sheetpulse/internal/pkg/logger"
	"sheetpulse/pkg/crawler"
	"sheetpulse/pkg/notifier"
	"sheetpulse/pkg/ratelimiter"

	"github.com/google/uuid"
)

// requestsPerSync approximates the two API calls a sync makes (headers + data),
// spent against the rate limiter before the crawler is ever invoked.
const requestsPerSync = 2.0

const dequeueTimeout = 5 * time.Second

// EventSyncFailed mirrors the crawler's failure event, emitted once a task
// has exhausted its retries rather than per-attempt.
const EventSyncFailed = crawler.EventSyncFailed

// taskQueue is the narrow surface Worker needs from *SyncQueue, declared on
// the consumer side so tests can drive runOnce against a fake queue.
type taskQueue interface {
	Dequeue(ctx context.Context, durableName string, timeout time.Duration) (*Delivery, error)
	Enqueue(ctx context.Context, task SyncTask) error
}

// syncer is the narrow surface Worker needs from *crawler.Service.
type syncer interface {
	SyncSheet(ctx context.Context, connectionID, userID uuid.UUID) (*crawler.SyncResult, error)
	IsSyncable(ctx context.Context, connectionID uuid.UUID) (bool, error)
}

// Worker drains the durable sync queue, serializing attempts per connection
// so two in-flight retries for the same sheet never race each other.
type Worker struct {
	queue       taskQueue
	durableName string
	crawler     syncer
	limiter     *ratelimiter.SheetsRateLimiter
	notifier    notifier.Notifier
	logger      logger.ILogger

	running   bool
	stopCh    chan struct{}
	connLocks sync.Map // connection id string -> *sync.Mutex
}

func NewWorker(q *SyncQueue, durableName string, crawlerSvc *crawler.Service, limiter *ratelimiter.SheetsRateLimiter, notif notifier.Notifier, log logger.ILogger) *Worker {
	return &Worker{
		queue:       q,
		durableName: durableName,
		crawler:     crawlerSvc,
		limiter:     limiter,
		notifier:    notif,
		logger:      log,
		stopCh:      make(chan struct{}),
	}
}

func (w *Worker) connectionLock(connectionID string) *sync.Mutex {
	lock, _ := w.connLocks.LoadOrStore(connectionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Start runs the worker loop until Stop is called or ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.running = true
	w.logger.Info("worker", "sheet sync worker started", nil)

	for w.running {
		select {
		case <-ctx.Done():
			w.running = false
		case <-w.stopCh:
			w.running = false
		default:
			if err := w.runOnce(ctx); err != nil {
				w.logger.Error("worker", "error in worker loop", map[string]interface{}{"error": err.Error()})
				time.Sleep(1 * time.Second)
			}
		}
	}

	w.logger.Info("worker", "sheet sync worker stopped", nil)
}

func (w *Worker) Stop() {
	close(w.stopCh)
}

// runOnce dequeues and processes a single task, returning nil when nothing
// was available within the dequeue timeout.
func (w *Worker) runOnce(ctx context.Context) error {
	delivery, err := w.queue.Dequeue(ctx, w.durableName, dequeueTimeout)
	if err != nil {
		return fmt.Errorf("dequeue: %w", err)
	}
	if delivery == nil {
		return nil
	}

	task := delivery.Task
	lock := w.connectionLock(task.ConnectionId.String())
	lock.Lock()
	defer lock.Unlock()

	w.logger.Info("worker", "processing sync task", map[string]interface{}{
		"connection_id": task.ConnectionId, "retry": task.RetryCount, "max_retries": MaxRetries,
	})

	syncable, err := w.crawler.IsSyncable(ctx, task.ConnectionId)
	if err != nil {
		delivery.Nak()
		return fmt.Errorf("checking connection: %w", err)
	}
	if !syncable {
		if ackErr := delivery.Ack(); ackErr != nil {
			w.logger.Warn("worker", "ack failed", map[string]interface{}{"error": ackErr.Error()})
		}
		return nil
	}

	if err := w.limiter.Acquire(ctx, requestsPerSync); err != nil {
		delivery.Nak()
		return fmt.Errorf("acquiring rate limit tokens: %w", err)
	}

	result, err := w.crawler.SyncSheet(ctx, task.ConnectionId, task.UserId)
	success := err == nil && result != nil && result.Success

	if success {
		if ackErr := delivery.Ack(); ackErr != nil {
			w.logger.Warn("worker", "ack failed", map[string]interface{}{"error": ackErr.Error()})
		}
		return nil
	}

	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	} else if result != nil {
		errMsg = result.ErrorMessage
	}
	w.handleFailedTask(ctx, delivery, task, errMsg)
	return nil
}

func (w *Worker) handleFailedTask(ctx context.Context, delivery *Delivery, task SyncTask, errMsg string) {
	if task.RetryCount < MaxRetries {
		task.RetryCount++
		if err := w.queue.Enqueue(ctx, task); err != nil {
			w.logger.Error("worker", "failed to re-enqueue task", map[string]interface{}{"error": err.Error(), "connection_id": task.ConnectionId})
			delivery.Nak()
			return
		}
		delivery.Ack()
		w.logger.Info("worker", "re-queued task after failure", map[string]interface{}{
			"connection_id": task.ConnectionId, "retry": task.RetryCount, "max_retries": MaxRetries,
		})
		return
	}

	w.logger.Error("worker", "max retries exceeded", map[string]interface{}{"connection_id": task.ConnectionId})
	w.notifier.EmitToUser(task.UserId, EventSyncFailed, map[string]interface{}{
		"connection_id": task.ConnectionId,
		"error":         fmt.Sprintf("sync failed after %d retries: %s", MaxRetries, errMsg),
	})
	delivery.Ack()
}
