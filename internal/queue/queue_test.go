package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	q := New(setupTestRedis(t), nil)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, KindSMS, map[string]string{"to": "+15555550100"}, EnqueueOptions{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	job, ok, err := q.Dequeue(ctx, KindSMS, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if !ok {
		t.Fatalf("expected a job to be ready")
	}
	if job.ID != jobID {
		t.Fatalf("got job id %q, want %q", job.ID, jobID)
	}
	if job.AttemptsMax != DefaultEnqueueOptions().AttemptsMax {
		t.Fatalf("expected default attempts max, got %d", job.AttemptsMax)
	}
}

func TestDequeueTimesOutWhenEmpty(t *testing.T) {
	q := New(setupTestRedis(t), nil)
	ctx := context.Background()

	_, ok, err := q.Dequeue(ctx, KindSMS, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if ok {
		t.Fatalf("expected no job on an empty queue")
	}
}

func TestEnqueueWithDelayIsNotImmediatelyReady(t *testing.T) {
	q := New(setupTestRedis(t), nil)
	ctx := context.Background()

	if _, err := q.Enqueue(ctx, KindSMS, map[string]string{"to": "x"}, EnqueueOptions{DelayMS: 60_000}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	_, ok, err := q.Dequeue(ctx, KindSMS, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if ok {
		t.Fatalf("expected delayed job to stay off the ready list")
	}
}

func TestPromoteDueMovesElapsedDelayedJobs(t *testing.T) {
	q := New(setupTestRedis(t), nil)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, KindSMS, map[string]string{"to": "x"}, EnqueueOptions{DelayMS: 1})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	promoted, err := q.PromoteDue(ctx, KindSMS)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted != 1 {
		t.Fatalf("expected 1 promoted job, got %d", promoted)
	}

	job, ok, err := q.Dequeue(ctx, KindSMS, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if !ok || job.ID != jobID {
		t.Fatalf("expected promoted job to be ready for dequeue")
	}
}

func TestRetryAppliesBackoffAndRespectsAttemptsMax(t *testing.T) {
	q := New(setupTestRedis(t), nil)
	ctx := context.Background()

	job := Job{ID: "job-1", Kind: KindSMS, AttemptsMax: 2, BackoffBase: 5000}
	retried, err := q.Retry(ctx, job)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !retried {
		t.Fatalf("expected first retry to be scheduled")
	}
	if _, ok, err := q.Dequeue(ctx, KindSMS, 50*time.Millisecond); err != nil || ok {
		t.Fatalf("expected retried job to wait out its backoff, ok=%v err=%v", ok, err)
	}

	job.Attempt = 1
	retried, err = q.Retry(ctx, job)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried {
		t.Fatalf("expected attempts_max to stop further retries")
	}
}

func TestReenqueueSchedulesFreshDelayWithoutIncrementingAttempt(t *testing.T) {
	q := New(setupTestRedis(t), nil)
	ctx := context.Background()

	job := Job{ID: "job-1", Kind: KindSMS, Attempt: 0, AttemptsMax: 3, BackoffBase: 5000}
	if err := q.Reenqueue(ctx, job, 60_000); err != nil {
		t.Fatalf("reenqueue: %v", err)
	}

	_, ok, err := q.Dequeue(ctx, KindSMS, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if ok {
		t.Fatalf("expected re-enqueued job to wait out its new delay")
	}

	stored, found, err := q.load(ctx, "job-1")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if stored.Attempt != 0 {
		t.Fatalf("expected attempt to stay 0 after reenqueue, got %d", stored.Attempt)
	}
}
