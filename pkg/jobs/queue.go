package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by TryEnqueue when the buffer has no room.
var ErrQueueFull = errors.New("queue full")

// ErrQueueStopped is returned when enqueueing into a queue that is not running.
var ErrQueueStopped = errors.New("queue not running")

// Job wraps a payload with delivery bookkeeping.
type Job[T any] struct {
	Payload  T
	Attempt  int
	Enqueued time.Time
}

// Handler processes one payload.
type Handler[T any] func(context.Context, T) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-memory worker pool. Stop drains buffered jobs before returning.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	cfg     QueueConfig
	logger  *zap.Logger

	jobs    chan Job[T]
	workers sync.WaitGroup

	mu      sync.RWMutex
	running bool
	stopped chan struct{}
}

// NewQueue builds a queue; call Start before enqueueing.
func NewQueue[T any](name string, handler Handler[T], cfg QueueConfig) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue[T]{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger,
		jobs:    make(chan Job[T], cfg.BufferSize),
		stopped: make(chan struct{}),
	}
}

// Start launches the workers. ctx is handed to the handler; cancelling it
// does not stop the queue. A stopped queue cannot be restarted.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	select {
	case <-q.stopped:
		return
	default:
	}
	for i := 0; i < q.cfg.Workers; i++ {
		q.workers.Add(1)
		go q.worker(ctx)
	}
	q.running = true
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
}

// Stop refuses new jobs, processes what is buffered and waits for the
// workers to exit.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopped)
	close(q.jobs)
	q.mu.Unlock()

	q.workers.Wait()
	q.logger.Info("queue stopped", zap.String("queue", q.name))
}

// TryEnqueue adds a payload without blocking.
func (q *Queue[T]) TryEnqueue(payload T) error {
	return q.push(Job[T]{Payload: payload, Enqueued: time.Now().UTC()})
}

func (q *Queue[T]) push(job Job[T]) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return fmt.Errorf("%s: %w", q.name, ErrQueueStopped)
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("%s: %w", q.name, ErrQueueFull)
	}
}

func (q *Queue[T]) worker(ctx context.Context) {
	defer q.workers.Done()
	for job := range q.jobs {
		q.process(ctx, job)
	}
}

// process retries inline; once the queue is stopping, retries skip the delay.
func (q *Queue[T]) process(ctx context.Context, job Job[T]) {
	for {
		err := q.handler(ctx, job.Payload)
		if err == nil {
			return
		}
		job.Attempt++
		if job.Attempt > q.cfg.MaxRetries {
			q.logger.Error("job exceeded retries", zap.String("queue", q.name), zap.Int("attempts", job.Attempt), zap.Error(err))
			return
		}
		q.logger.Warn("job failed, retrying", zap.String("queue", q.name), zap.Int("attempt", job.Attempt), zap.Error(err))

		timer := time.NewTimer(q.cfg.RetryDelay)
		select {
		case <-timer.C:
		case <-q.stopped:
		}
		timer.Stop()
	}
}
