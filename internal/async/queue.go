package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/proforma-verifier/internal/common"
	"github.com/joseph-ayodele/proforma-verifier/internal/entity"
	"github.com/joseph-ayodele/proforma-verifier/internal/llm"
)

// ErrQueueClosed is returned by Submit after Shutdown.
var ErrQueueClosed = common.NewAppError(common.CodeUnavailable, "verification queue is shutting down", common.ErrUnavailable)

// Verifier is the work a queue worker performs.
type Verifier interface {
	Verify(ctx context.Context, doc llm.Document) (entity.VerificationResult, error)
}

type outcome struct {
	result entity.VerificationResult
	err    error
}

type job struct {
	ctx         context.Context
	doc         llm.Document
	submittedAt time.Time
	reply       chan outcome
}

// VerifyQueue bounds how many verifications run at once. Callers block in
// Submit until their own job finishes.
type VerifyQueue struct {
	verifier Verifier
	logger   *slog.Logger
	workers  int
	timeout  time.Duration

	ch   chan job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*VerifyQueue)

func WithWorkers(n int) Option {
	return func(q *VerifyQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *VerifyQueue) {
		if n > 0 {
			q.ch = make(chan job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *VerifyQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// OptionsFrom maps the queue config section onto options.
func OptionsFrom(c common.QueueConfig) []Option {
	return []Option{WithWorkers(c.Workers), WithQueueSize(c.Size), WithProcessTimeout(c.Timeout)}
}

func NewVerifyQueue(v Verifier, logger *slog.Logger, opts ...Option) *VerifyQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &VerifyQueue{
		verifier: v,
		logger:   logger,
		workers:  4,
		timeout:  5 * time.Minute,
		ch:       make(chan job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *VerifyQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)

				for j := range q.ch {
					q.process(workerID, j)
				}

				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *VerifyQueue) process(workerID int, j job) {
	rid := common.RequestIDFromContext(j.ctx)
	if err := j.ctx.Err(); err != nil {
		q.logger.Warn("queue.job.abandoned", "worker_id", workerID, "req_id", rid, "error", err)
		j.reply <- outcome{err: common.NewAppError(common.CodeTimeout, "verification abandoned before start", err)}
		return
	}

	q.logger.Info("queue.job.start", "worker_id", workerID, "req_id", rid,
		"waited_ms", time.Since(j.submittedAt).Milliseconds())

	ctx, cancel := common.WithTimeout(j.ctx, q.timeout)
	res, err := q.verifier.Verify(ctx, j.doc)
	cancel()

	if err != nil {
		q.logger.Error("queue.job.failed", "worker_id", workerID, "req_id", rid, "error", err)
	} else {
		q.logger.Info("queue.job.ok", "worker_id", workerID, "req_id", rid, "valid", res.Valid())
	}
	j.reply <- outcome{result: res, err: err}
}

// Submit enqueues doc and waits for its result. A full queue applies
// backpressure until ctx is done.
func (q *VerifyQueue) Submit(ctx context.Context, doc llm.Document) (entity.VerificationResult, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	j := job{ctx: ctx, doc: doc, submittedAt: time.Now(), reply: make(chan outcome, 1)}

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		q.logger.Warn("queue.submit.closed", "req_id", rid)
		return entity.VerificationResult{}, ErrQueueClosed
	}
	select {
	case q.ch <- j:
		q.logger.Debug("queue.submit.ok", "req_id", rid)
	default:
		q.logger.Warn("queue.submit.backpressure", "req_id", rid)
		select {
		case q.ch <- j:
		case <-ctx.Done():
			q.mu.RUnlock()
			return entity.VerificationResult{}, common.NewAppError(common.CodeTimeout, "verification queue is full", ctx.Err())
		}
	}
	q.mu.RUnlock()

	select {
	case out := <-j.reply:
		return out.result, out.err
	case <-ctx.Done():
		return entity.VerificationResult{}, common.NewAppError(common.CodeTimeout, "verification did not finish in time", ctx.Err())
	}
}

// Verify makes the queue usable wherever a Verifier is expected.
func (q *VerifyQueue) Verify(ctx context.Context, doc llm.Document) (entity.VerificationResult, error) {
	return q.Submit(ctx, doc)
}

// Shutdown stops accepting work and waits for queued jobs to drain or ctx to end.
func (q *VerifyQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted", "error", ctx.Err())
	case <-done:
		q.logger.Info("queue.shutdown.complete")
	}
}
