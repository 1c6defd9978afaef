package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is one document waiting to be imported.
type Job struct {
	Path        string
	Force       bool // enqueue even if the same path is already queued
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

var (
	ErrQueueFull   = errors.New("import queue is full")
	ErrQueueClosed = errors.New("import queue is closed")
)

// Handler processes one job. Its error is logged; the worker moves on.
type Handler func(ctx context.Context, job Job) error

// WorkerQueue is a bounded in-process queue drained by a fixed set of workers. A path
// that is already queued or running is not queued twice unless the job is forced.
type WorkerQueue struct {
	jobs    chan Job
	handle  Handler
	logger  *slog.Logger
	cancel  context.CancelFunc
	group   *errgroup.Group
	mu      sync.Mutex
	closed  bool
	pending map[string]int // queued or running jobs per path
	onDrop  func(Job)
}

type Option func(*WorkerQueue)

// WithOnDrop is called for every job the workers skip because the queue was cancelled
// before they got to it.
func WithOnDrop(f func(Job)) Option {
	return func(q *WorkerQueue) { q.onDrop = f }
}

// NewWorkerQueue starts workers goroutines that run handle until Shutdown.
func NewWorkerQueue(ctx context.Context, workers, capacity int, handle Handler, logger *slog.Logger, opts ...Option) *WorkerQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = 64
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	q := &WorkerQueue{
		jobs:    make(chan Job, capacity),
		handle:  handle,
		logger:  logger,
		cancel:  cancel,
		group:   g,
		pending: map[string]int{},
	}
	for _, o := range opts {
		o(q)
	}
	for i := 0; i < workers; i++ {
		worker := i
		g.Go(func() error {
			q.run(gctx, worker)
			return nil
		})
	}
	return q
}

func (q *WorkerQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if q.pending[job.Path] > 0 && !job.Force {
		q.logger.Debug("queue.job.deduplicated", "path", job.Path)
		return nil
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		q.pending[job.Path]++
		q.logger.Debug("queue.job.enqueued", "path", job.Path, "trace_id", job.TraceID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *WorkerQueue) run(ctx context.Context, worker int) {
	for job := range q.jobs {
		if ctx.Err() != nil {
			q.done(job)
			q.logger.Warn("queue.job.dropped", "worker", worker, "path", job.Path, "trace_id", job.TraceID)
			if q.onDrop != nil {
				q.onDrop(job)
			}
			continue
		}
		start := time.Now()
		err := q.handle(ctx, job)
		q.done(job)
		if err != nil {
			q.logger.Error("queue.job.failed", "worker", worker, "path", job.Path, "trace_id", job.TraceID, "error", err)
			continue
		}
		q.logger.Info("queue.job.ok",
			"worker", worker,
			"path", job.Path,
			"waited_ms", start.Sub(job.SubmittedAt).Milliseconds(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (q *WorkerQueue) done(job Job) {
	q.mu.Lock()
	if q.pending[job.Path]--; q.pending[job.Path] <= 0 {
		delete(q.pending, job.Path)
	}
	q.mu.Unlock()
}

// Shutdown stops accepting jobs and lets the workers drain the queue. If ctx ends first,
// the remaining jobs are dropped and in-flight handlers see a cancelled context.
func (q *WorkerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = q.group.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		q.cancel()
		<-done
	}
	q.cancel()
}
