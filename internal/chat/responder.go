package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"petwalk/internal/util"
	"petwalk/pkg/domain"
	"petwalk/pkg/queue"
	"petwalk/pkg/store"
)

// DelayQueue is the scheduling backend for deferred walker replies.
type DelayQueue interface {
	Enqueue(ctx context.Context, job queue.Job) error
	Start(ctx context.Context, handler func(context.Context, queue.Job) error)
}

type replyPayload struct {
	RequestID string `json:"requestId"`
	Walker    string `json:"walker"`
}

// Responder simulates the walker side of a transcript: every scheduled
// reply lands after a fixed delay, independently per send.
type Responder struct {
	store store.Store
	queue DelayQueue
	delay time.Duration

	mu     sync.Mutex
	rng    *rand.Rand
	runCtx context.Context
}

// NewResponder builds a responder. A nil delay queue falls back to
// in-process timers owned by the Run context.
func NewResponder(s store.Store, q DelayQueue, delay time.Duration) *Responder {
	if delay <= 0 {
		delay = 2500 * time.Millisecond
	}
	return &Responder{
		store: s,
		queue: q,
		delay: delay,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run starts reply delivery and keeps it bound to ctx. Pending in-process
// timers are dropped on cancellation.
func (r *Responder) Run(ctx context.Context) {
	r.mu.Lock()
	r.runCtx = ctx
	r.mu.Unlock()
	if r.queue != nil {
		r.queue.Start(ctx, r.deliver)
	}
}

// Schedule queues one simulated walker reply for the transcript.
func (r *Responder) Schedule(ctx context.Context, requestID, walker string) error {
	payload, err := json.Marshal(replyPayload{RequestID: requestID, Walker: walker})
	if err != nil {
		return err
	}
	job := queue.Job{
		ID:      util.NewID(),
		Payload: payload,
		DueAt:   time.Now().UTC().Add(r.delay),
	}
	if r.queue != nil {
		return r.queue.Enqueue(ctx, job)
	}

	r.mu.Lock()
	runCtx := r.runCtx
	r.mu.Unlock()
	if runCtx == nil {
		runCtx = context.Background()
	}
	go func() {
		select {
		case <-runCtx.Done():
			return
		case <-time.After(r.delay):
		}
		if err := r.deliver(runCtx, job); err != nil {
			util.LoggerFromContext(runCtx).Warn("simulated reply failed", "request_id", requestID, "err", err)
		}
	}()
	return nil
}

func (r *Responder) deliver(ctx context.Context, job queue.Job) error {
	var payload replyPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode reply job: %w", err)
	}
	msg := domain.ChatMessage{
		ID:        util.NewID(),
		RequestID: payload.RequestID,
		Walker:    payload.Walker,
		Sender:    domain.SenderWalker,
		Text:      r.pickReply(),
		SentAt:    time.Now().UTC(),
	}
	if err := r.store.AppendMessage(msg); err != nil {
		return fmt.Errorf("append reply: %w", err)
	}
	return nil
}

func (r *Responder) pickReply() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RandomReply(r.rng)
}
