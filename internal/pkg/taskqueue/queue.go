// Package taskqueue runs fire-and-forget side effects (audit writes, notifications)
// off the request path.
//
// Delivery is at-most-once: Submit never blocks, a task submitted while the buffer is
// full or after Close is dropped and counted, and a task that fails is logged and counted
// but never retried.
package taskqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantumlab/labtrack/internal/pkg/metrics"
	"github.com/rs/zerolog"
)

// Func is the body of a task. The context carries the per-task timeout.
type Func func(ctx context.Context) error

// Dispatcher accepts tasks for asynchronous execution
type Dispatcher interface {
	Submit(kind string, fn Func) bool
}

// Config controls worker count, buffer size and per-task timeout
type Config struct {
	Workers int
	Buffer  int
	Timeout time.Duration
}

type task struct {
	kind string
	fn   Func
}

// Queue is a bounded worker pool fed by a buffered channel
type Queue struct {
	tasks   chan task
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	timeout time.Duration
	logger  zerolog.Logger
}

// New starts the workers and returns the queue
func New(cfg Config, logger zerolog.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	q := &Queue{
		tasks:   make(chan task, cfg.Buffer),
		timeout: cfg.Timeout,
		logger:  logger.With().Str("component", "taskqueue").Logger(),
	}

	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.worker()
	}

	q.logger.Info().Int("workers", cfg.Workers).Int("buffer", cfg.Buffer).Msg("Task queue started")
	return q
}

// Submit enqueues fn without blocking. It returns false when the task was dropped.
func (q *Queue) Submit(kind string, fn Func) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.TasksDropped.WithLabelValues(kind).Inc()
		q.logger.Warn().Str("kind", kind).Msg("Task submitted after close, dropped")
		return false
	}

	select {
	case q.tasks <- task{kind: kind, fn: fn}:
		return true
	default:
		metrics.TasksDropped.WithLabelValues(kind).Inc()
		q.logger.Warn().Str("kind", kind).Msg("Task queue full, task dropped")
		return false
	}
}

// Close stops accepting tasks and waits for queued ones to finish or ctx to expire.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info().Msg("Task queue drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("task queue drain interrupted: %w", ctx.Err())
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for t := range q.tasks {
		run(t.kind, t.fn, q.timeout, q.logger)
	}
}

func run(kind string, fn Func, timeout time.Duration, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.TasksProcessed.WithLabelValues(kind, "panic").Inc()
			logger.Error().Str("kind", kind).Interface("panic", r).Msg("Task panicked")
		}
	}()

	if err := fn(ctx); err != nil {
		metrics.TasksProcessed.WithLabelValues(kind, "error").Inc()
		logger.Error().Err(err).Str("kind", kind).Msg("Task failed")
		return
	}
	metrics.TasksProcessed.WithLabelValues(kind, "ok").Inc()
}

// Inline runs every task synchronously on the caller's goroutine. Used by one-shot
// CLI commands and tests that need side effects to be visible when a call returns.
type Inline struct {
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Submit runs fn immediately; failures are logged, never returned.
func (i Inline) Submit(kind string, fn Func) bool {
	timeout := i.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	run(kind, fn, timeout, i.Logger)
	return true
}
