package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisDelayQueueHoldsJobsUntilDue(t *testing.T) {
	redis := miniredis.RunT(t)
	q, err := NewRedisDelayQueue(redis.Addr(), "", "test:delayq", time.Millisecond)
	if err != nil {
		t.Fatalf("new delay queue: %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()
	job := Job{ID: "j1", Payload: json.RawMessage(`{"k":"v"}`), DueAt: now.Add(time.Minute)}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	early, err := q.PopDue(ctx, now)
	if err != nil {
		t.Fatalf("pop before due: %v", err)
	}
	if len(early) != 0 {
		t.Fatalf("expected no jobs before due time, got %d", len(early))
	}

	due, err := q.PopDue(ctx, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("pop after due: %v", err)
	}
	if len(due) != 1 || due[0].ID != "j1" {
		t.Fatalf("unexpected due jobs: %+v", due)
	}

	// Pop removes: a second pop must return nothing.
	again, err := q.PopDue(ctx, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("second pop: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected job to be consumed, got %+v", again)
	}
}

func TestRedisDelayQueuePopsInDueOrder(t *testing.T) {
	redis := miniredis.RunT(t)
	q, err := NewRedisDelayQueue(redis.Addr(), "", "test:delayq", time.Millisecond)
	if err != nil {
		t.Fatalf("new delay queue: %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()
	for i, id := range []string{"later", "sooner"} {
		due := now.Add(time.Duration(2-i) * time.Minute)
		if err := q.Enqueue(ctx, Job{ID: id, DueAt: due}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	jobs, err := q.PopDue(ctx, now.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("pop due: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "sooner" || jobs[1].ID != "later" {
		t.Fatalf("unexpected order: %+v", jobs)
	}
}

func TestRedisDelayQueueRequiresJobID(t *testing.T) {
	redis := miniredis.RunT(t)
	q, err := NewRedisDelayQueue(redis.Addr(), "", "", 0)
	if err != nil {
		t.Fatalf("new delay queue: %v", err)
	}
	if err := q.Enqueue(context.Background(), Job{}); err == nil {
		t.Fatalf("expected error for missing job id")
	}
}
