// Package queue implements a durable, delayed, at-least-once job queue on
// top of Redis. Ready jobs live in a per-kind list; delayed jobs sit in a
// per-kind sorted set scored by their ready-at Unix timestamp until a
// scheduler promotes them.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/cannasend/pkg/logging"
)

// Kind names a job type. Each kind gets its own ready list and delay set so
// worker pools can be sized independently (10 for sms, 2 for campaign).
type Kind string

const (
	KindSMS      Kind = "sms"
	KindCampaign Kind = "campaign"
)

// Backoff describes a retry backoff curve. Only exponential is implemented.
type Backoff struct {
	Type   string
	BaseMS int64
}

// EnqueueOptions controls delay and retry behavior for a single job.
type EnqueueOptions struct {
	DelayMS     int64
	AttemptsMax int
	Backoff     Backoff
}

// DefaultEnqueueOptions returns the queue's defaults: no delay, 3 attempts,
// exponential backoff with a 5s base.
func DefaultEnqueueOptions() EnqueueOptions {
	return EnqueueOptions{
		AttemptsMax: 3,
		Backoff:     Backoff{Type: "exponential", BaseMS: 5000},
	}
}

// Job is a durable queue record.
type Job struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	AttemptsMax int             `json:"attempts_max"`
	BackoffBase int64           `json:"backoff_base_ms"`
	Attempt     int             `json:"attempt"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

// Queue is the Redis-backed delivery queue.
type Queue struct {
	redis  *redis.Client
	logger *logging.Logger
}

// New builds a Queue over a Redis client.
func New(client *redis.Client, logger *logging.Logger) *Queue {
	if logger == nil {
		logger = logging.Default()
	}
	return &Queue{redis: client, logger: logger}
}

func readyListKey(kind Kind) string { return fmt.Sprintf("cannasend:queue:%s:ready", kind) }
func delaySetKey(kind Kind) string  { return fmt.Sprintf("cannasend:queue:%s:delayed", kind) }
func jobKey(jobID string) string    { return fmt.Sprintf("cannasend:queue:job:%s", jobID) }

// Enqueue persists a job and makes it visible to workers immediately, or
// after opts.DelayMS elapses. Returns the job id.
func (q *Queue) Enqueue(ctx context.Context, kind Kind, payload any, opts EnqueueOptions) (string, error) {
	if opts.AttemptsMax <= 0 {
		opts.AttemptsMax = DefaultEnqueueOptions().AttemptsMax
	}
	if opts.Backoff.BaseMS <= 0 {
		opts.Backoff = DefaultEnqueueOptions().Backoff
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("queue: marshal payload: %w", err)
	}
	job := Job{
		ID:          uuid.New().String(),
		Kind:        kind,
		Payload:     body,
		AttemptsMax: opts.AttemptsMax,
		BackoffBase: opts.Backoff.BaseMS,
		EnqueuedAt:  time.Now(),
	}
	return job.ID, q.store(ctx, job, opts.DelayMS)
}

func (q *Queue) store(ctx context.Context, job Job, delayMS int64) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}
	if err := q.redis.Set(ctx, jobKey(job.ID), encoded, 0).Err(); err != nil {
		return fmt.Errorf("queue: persist job: %w", err)
	}
	if delayMS > 0 {
		readyAt := time.Now().Add(time.Duration(delayMS) * time.Millisecond)
		if err := q.redis.ZAdd(ctx, delaySetKey(job.Kind), redis.Z{
			Score:  float64(readyAt.UnixMilli()),
			Member: job.ID,
		}).Err(); err != nil {
			return fmt.Errorf("queue: schedule delayed job: %w", err)
		}
		return nil
	}
	if err := q.redis.RPush(ctx, readyListKey(job.Kind), job.ID).Err(); err != nil {
		return fmt.Errorf("queue: push ready job: %w", err)
	}
	return nil
}

// PromoteDue moves delayed jobs whose ready-at has elapsed into the ready
// list. A scheduler calls this on a tick; it is safe to call concurrently
// from multiple processes since ZRANGEBYSCORE+ZREM only promotes a job the
// caller itself removed from the set.
func (q *Queue) PromoteDue(ctx context.Context, kind Kind) (int, error) {
	now := float64(time.Now().UnixMilli())
	ids, err := q.redis.ZRangeByScore(ctx, delaySetKey(kind), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: scan due jobs: %w", err)
	}
	promoted := 0
	for _, id := range ids {
		removed, err := q.redis.ZRem(ctx, delaySetKey(kind), id).Result()
		if err != nil {
			return promoted, fmt.Errorf("queue: remove due job: %w", err)
		}
		if removed == 0 {
			continue // another process already promoted this job
		}
		if err := q.redis.RPush(ctx, readyListKey(kind), id).Err(); err != nil {
			return promoted, fmt.Errorf("queue: push promoted job: %w", err)
		}
		promoted++
	}
	return promoted, nil
}

// Dequeue blocks up to timeout for a ready job id of kind, loading and
// returning its full record.
func (q *Queue) Dequeue(ctx context.Context, kind Kind, timeout time.Duration) (Job, bool, error) {
	result, err := q.redis.BLPop(ctx, timeout, readyListKey(kind)).Result()
	if err == redis.Nil {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, fmt.Errorf("queue: blpop: %w", err)
	}
	id := result[1]
	return q.load(ctx, id)
}

func (q *Queue) load(ctx context.Context, id string) (Job, bool, error) {
	raw, err := q.redis.Get(ctx, jobKey(id)).Result()
	if err == redis.Nil {
		q.logger.Warn("queue: job id popped but record missing", "job_id", id)
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, fmt.Errorf("queue: load job: %w", err)
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return Job{}, false, fmt.Errorf("queue: decode job: %w", err)
	}
	return job, true, nil
}

// Reenqueue persists a job back to the delay set with a new delay, used by
// the DEFER path: the worker does not retry in place, it schedules a fresh
// attempt at retry_after without incrementing Attempt.
func (q *Queue) Reenqueue(ctx context.Context, job Job, delayMS int64) error {
	return q.store(ctx, job, delayMS)
}

// Retry schedules a job for another attempt after a thrown error, applying
// exponential backoff base_ms * 2^attempt. Returns false if attempts_max has
// been exhausted.
func (q *Queue) Retry(ctx context.Context, job Job) (bool, error) {
	job.Attempt++
	if job.Attempt >= job.AttemptsMax {
		return false, nil
	}
	delay := job.BackoffBase * (1 << uint(job.Attempt))
	return true, q.store(ctx, job, delay)
}

// Delete removes a job's durable record once it has reached a terminal
// outcome (delivered, blocked, or attempts exhausted).
func (q *Queue) Delete(ctx context.Context, jobID string) error {
	if err := q.redis.Del(ctx, jobKey(jobID)).Err(); err != nil {
		return fmt.Errorf("queue: delete job record: %w", err)
	}
	return nil
}
