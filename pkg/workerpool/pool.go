// Package workerpool provides a bounded worker pool for controlled concurrency.
// Failed tasks are retried with a doubling backoff until they succeed, return a
// non-retryable error or run out of attempts.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned by Submit once the pool is shutting down.
var ErrStopped = errors.New("pool is shutting down")

// Task represents a unit of work to be processed
type Task[T any] struct {
	ID      string
	Payload T
	Context context.Context
}

// Result represents the outcome of task processing
type Result[T any] struct {
	Task     *Task[T]
	Attempts int
	Err      error
}

// Success reports whether the task eventually succeeded.
func (r *Result[T]) Success() bool { return r.Err == nil }

// WorkerFunc processes one task attempt
type WorkerFunc[T any] func(ctx context.Context, task *Task[T]) error

// Config holds worker pool configuration
type Config struct {
	// Workers is the number of concurrent workers
	Workers int
	// QueueSize is the size of the task queue
	QueueSize int
	// MaxRetries is the maximum number of retries for failed tasks
	MaxRetries int
	// RetryDelay is the wait before the first retry. It doubles for each later one.
	RetryDelay time.Duration
	// MaxRetryDelay caps the wait between retries.
	MaxRetryDelay time.Duration
	// Retryable reports whether a failed attempt may be retried. Nil retries every error.
	Retryable func(err error) bool
	// GracefulShutdownTimeout is the timeout for graceful shutdown
	GracefulShutdownTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Workers:                 8,
		QueueSize:               256,
		MaxRetries:              3,
		RetryDelay:              time.Second,
		MaxRetryDelay:           30 * time.Second,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

// Pool manages a pool of workers for concurrent task processing
type Pool[T any] struct {
	config     Config
	workerFunc WorkerFunc[T]
	logger     *zap.Logger

	taskChan   chan *Task[T]
	resultChan chan *Result[T]
	wg         sync.WaitGroup
	stopOnce   sync.Once
	closeMu    sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	retried   atomic.Int64
	queued    atomic.Int64
}

// New creates a new worker pool
func New[T any](cfg Config, fn WorkerFunc[T], logger *zap.Logger) (*Pool[T], error) {
	if fn == nil {
		return nil, fmt.Errorf("worker function is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.GracefulShutdownTimeout <= 0 {
		cfg.GracefulShutdownTimeout = def.GracefulShutdownTimeout
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = def.MaxRetryDelay
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool[T]{
		config:     cfg,
		workerFunc: fn,
		logger:     logger,
		taskChan:   make(chan *Task[T], cfg.QueueSize),
		resultChan: make(chan *Result[T], cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start launches all workers
func (p *Pool[T]) Start() {
	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize))
}

// Submit queues a task, blocking while the queue is full.
func (p *Pool[T]) Submit(ctx context.Context, task *Task[T]) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	select {
	case <-p.ctx.Done():
		return ErrStopped
	default:
	}

	select {
	case p.taskChan <- task:
		p.submitted.Add(1)
		p.queued.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrStopped
	}
}

// Results returns the result channel. It is closed once Stop has drained every worker.
func (p *Pool[T]) Results() <-chan *Result[T] {
	return p.resultChan
}

// Stop stops accepting tasks, drains the queue and closes Results.
func (p *Pool[T]) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("stopping worker pool")
		p.cancel()
		p.closeMu.Lock()
		close(p.taskChan)
		p.closeMu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			close(p.resultChan)
			p.logger.Info("worker pool stopped gracefully")
		case <-time.After(p.config.GracefulShutdownTimeout):
			// workers still running may yet send, so Results stays open
			p.logger.Warn("worker pool shutdown timed out")
		}
	})
}

func (p *Pool[T]) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskChan {
		p.queued.Add(-1)
		result := p.processTask(task)

		if result.Success() {
			p.completed.Add(1)
		} else {
			p.failed.Add(1)
			p.logger.Error("task failed",
				zap.String("task_id", task.ID),
				zap.Int("worker_id", id),
				zap.Int("attempts", result.Attempts),
				zap.Error(result.Err))
		}

		// the receiver may have gone away during shutdown
		select {
		case p.resultChan <- result:
		case <-time.After(p.config.GracefulShutdownTimeout):
			p.logger.Warn("result not consumed, dropping", zap.String("task_id", task.ID))
		}
	}
}

// processTask runs a task with retries. Workers keep draining the queue
// after Stop, so only the task's own context interrupts it.
func (p *Pool[T]) processTask(task *Task[T]) *Result[T] {
	ctx := task.Context
	if ctx == nil {
		ctx = context.Background()
	}

	result := &Result[T]{Task: task}
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}

		result.Attempts++
		err := p.workerFunc(ctx, task)
		if err == nil {
			result.Err = nil
			return result
		}
		result.Err = err

		if attempt >= p.config.MaxRetries {
			result.Err = fmt.Errorf("task failed after %d attempts: %w", result.Attempts, err)
			return result
		}
		if p.config.Retryable != nil && !p.config.Retryable(err) {
			return result
		}

		p.retried.Add(1)
		p.logger.Debug("retrying task",
			zap.String("task_id", task.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		select {
		case <-ctx.Done():
			result.Err = ctx.Err()
			return result
		case <-time.After(p.backoff(attempt)):
		}
	}
}

// backoff is the wait after the given zero-based failed attempt.
func (p *Pool[T]) backoff(attempt int) time.Duration {
	d := p.config.RetryDelay
	for i := 0; i < attempt && d < p.config.MaxRetryDelay; i++ {
		d *= 2
	}
	if d > p.config.MaxRetryDelay {
		d = p.config.MaxRetryDelay
	}
	return d
}

// Stats holds pool counters
type Stats struct {
	TasksSubmitted int64 `json:"tasks_submitted"`
	TasksCompleted int64 `json:"tasks_completed"`
	TasksFailed    int64 `json:"tasks_failed"`
	TasksRetried   int64 `json:"tasks_retried"`
	QueueDepth     int64 `json:"queue_depth"`
	QueueCapacity  int   `json:"queue_capacity"`
	Workers        int   `json:"workers"`
}

// Stats returns current pool statistics
func (p *Pool[T]) Stats() Stats {
	return Stats{
		TasksSubmitted: p.submitted.Load(),
		TasksCompleted: p.completed.Load(),
		TasksFailed:    p.failed.Load(),
		TasksRetried:   p.retried.Load(),
		QueueDepth:     p.queued.Load(),
		QueueCapacity:  p.config.QueueSize,
		Workers:        p.config.Workers,
	}
}

// IsHealthy returns true while the queue is not backing up
func (p *Pool[T]) IsHealthy() bool {
	stats := p.Stats()
	return float64(stats.QueueDepth)/float64(stats.QueueCapacity) < 0.9
}
