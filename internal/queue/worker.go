package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wolfman30/cannasend/pkg/logging"
)

// HandlerResult is a worker invocation's outcome.
type HandlerResult struct {
	// Blocked marks a terminal business outcome (e.g. a compliance BLOCK).
	// The job is finalized successful from the queue's perspective; it is
	// never retried.
	Blocked bool
	Reasons []string
	// DeferDelayMS, when nonzero, re-enqueues the job with a fresh delay
	// instead of retrying in place or finalizing it. Attempt is not
	// incremented for a defer.
	DeferDelayMS int64
}

// HandlerFunc processes one job. A returned error is treated as a thrown
// exception and triggers the retry/backoff path.
type HandlerFunc func(ctx context.Context, job Job) (HandlerResult, error)

// ErrAttemptsExhausted is logged (not returned to callers) when a job's
// attempts_max has been reached without success.
var ErrAttemptsExhausted = errors.New("queue: attempts exhausted")

// WorkerPoolConfig controls one kind's pool.
type WorkerPoolConfig struct {
	Kind        Kind
	Concurrency int
	// RateLimit and RateBurst configure the token-bucket limiter shared
	// across every worker in the pool, capping dispatched jobs at
	// RateLimit per second (default tuned to upstream carrier limits).
	RateLimit float64
	RateBurst int
	PollTimeout time.Duration
}

// WorkerPool runs Concurrency goroutines pulling jobs of one kind from a
// Queue and invoking a HandlerFunc, bounded by a shared token-bucket limiter.
type WorkerPool struct {
	queue   *Queue
	cfg     WorkerPoolConfig
	limiter *rate.Limiter
	handler HandlerFunc
	logger  *logging.Logger
}

// NewWorkerPool builds a pool. Concurrency, RateLimit, and PollTimeout fall
// back to sane defaults when zero.
func NewWorkerPool(q *Queue, cfg WorkerPoolConfig, handler HandlerFunc, logger *logging.Logger) *WorkerPool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 100
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = int(cfg.RateLimit)
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WorkerPool{
		queue:   q,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		handler: handler,
		logger:  logger,
	}
}

// Run starts Concurrency workers and blocks until ctx is cancelled.
func (p *WorkerPool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.loop(ctx)
		}()
	}
	wg.Wait()
}

func (p *WorkerPool) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, ok, err := p.queue.Dequeue(ctx, p.cfg.Kind, p.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("queue: dequeue failed", "kind", p.cfg.Kind, "error", err)
			continue
		}
		if !ok {
			continue
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
		p.handle(ctx, job)
	}
}

func (p *WorkerPool) handle(ctx context.Context, job Job) {
	result, err := p.handler(ctx, job)
	if err != nil {
		retried, retryErr := p.queue.Retry(ctx, job)
		if retryErr != nil {
			p.logger.Error("queue: retry scheduling failed", "job_id", job.ID, "error", retryErr)
			return
		}
		if !retried {
			p.logger.Warn("queue: job exhausted attempts", "job_id", job.ID, "kind", job.Kind, "attempts", job.Attempt, "error", ErrAttemptsExhausted)
			if delErr := p.queue.Delete(ctx, job.ID); delErr != nil {
				p.logger.Error("queue: delete exhausted job failed", "job_id", job.ID, "error", delErr)
			}
			return
		}
		p.logger.Warn("queue: job retrying", "job_id", job.ID, "attempt", job.Attempt, "error", err)
		return
	}

	if result.DeferDelayMS > 0 {
		if err := p.queue.Reenqueue(ctx, job, result.DeferDelayMS); err != nil {
			p.logger.Error("queue: re-enqueue after defer failed", "job_id", job.ID, "error", err)
		}
		return
	}

	if result.Blocked {
		p.logger.Info("queue: job blocked, finalizing", "job_id", job.ID, "reasons", result.Reasons)
	}
	if err := p.queue.Delete(ctx, job.ID); err != nil {
		p.logger.Error("queue: delete finalized job failed", "job_id", job.ID, "error", err)
	}
}
