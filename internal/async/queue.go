package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
	"github.com/joseph-ayodele/docextract/internal/pipeline"
)

// Job is one document waiting for a worker.
type Job struct {
	Document    *entity.RawDocument
	Options     pipeline.Options
	SubmittedAt time.Time
	RequestID   string
}

// Handler processes one job. Its error is logged; the queue keeps going.
type Handler func(ctx context.Context, job Job) error

// cancelGrace bounds how long Shutdown waits for workers after cancelling them.
const cancelGrace = 5 * time.Second

type Queue struct {
	handle  Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// base parents every job context; Shutdown cancels it when its deadline passes.
	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	stopping chan struct{}
	senders  sync.WaitGroup
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewQueue starts the workers immediately.
func NewQueue(handle Handler, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		handle:   handle,
		logger:   logger,
		workers:  4,
		timeout:  10 * time.Minute,
		ch:       make(chan Job, 64),
		stopping: make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.base, q.cancel = context.WithCancel(context.Background())
	q.start()
	return q
}

// ProcessorHandler adapts a pipeline processor; each result goes to sink.
func ProcessorHandler(p *pipeline.Processor, sink func(pipeline.Result, error)) Handler {
	return func(ctx context.Context, job Job) error {
		res, err := p.Process(ctx, job.Document, job.Options)
		if sink != nil {
			sink(res, err)
		}
		return err
	}
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) run(workerID int, job Job) {
	ctx := q.base
	if ctx.Err() != nil {
		q.logger.Warn("queue.job.dropped", "worker_id", workerID, "filename", job.Document.Filename())
		return
	}
	if job.RequestID != "" {
		ctx = common.WithRequestID(ctx, job.RequestID)
	}
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	log := common.Logger(ctx, q.logger)
	if err := q.handle(ctx, job); err != nil {
		log.Error("queue.job.failed", "worker_id", workerID, "filename", job.Document.Filename(), "error", err)
		return
	}
	log.Info("queue.job.ok",
		"worker_id", workerID,
		"filename", job.Document.Filename(),
		"waited_ms", time.Since(job.SubmittedAt).Milliseconds(),
	)
}

// Enqueue blocks while the buffer is full. It returns ErrInvalidInput for a nil document
// and ErrQueueClosed once Shutdown has started.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.Document == nil {
		return common.NewAppError(common.CodeInvalidInput, "job has no document", common.ErrInvalidInput)
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.RequestID == "" {
		job.RequestID = common.RequestIDFromContext(ctx)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("queue.enqueue.closed", "filename", job.Document.Filename())
		return ErrQueueClosed
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueued", "filename", job.Document.Filename())
		return nil
	default:
	}
	q.logger.Warn("queue.full", "filename", job.Document.Filename())
	select {
	case q.ch <- job:
		return nil
	case <-q.stopping:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs to drain. If ctx ends first, running
// jobs are cancelled, jobs still queued are dropped and ctx.Err() is returned.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.stopping)
	q.mu.Unlock()

	// Blocked senders see stopping and return, so no send can race the close.
	q.senders.Wait()
	close(q.ch)

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-done:
		q.cancel()
		q.logger.Info("queue.shutdown.drained")
		return nil
	case <-ctx.Done():
	}

	q.logger.Warn("queue.shutdown.cancelling", "error", ctx.Err())
	q.cancel()
	select {
	case <-done:
		q.logger.Info("queue.shutdown.cancelled")
	case <-time.After(cancelGrace):
		q.logger.Error("queue.shutdown.abandoned", "grace", cancelGrace)
	}
	return ctx.Err()
}
