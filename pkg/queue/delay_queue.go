package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// popDueScript atomically pops members whose score (due time, unix millis)
// has passed.
var popDueScript = redis.NewScript(`
local jobs = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, ARGV[2])
for i = 1, #jobs do
  redis.call("ZREM", KEYS[1], jobs[i])
end
return jobs
`)

// Job is a deferred unit of work with an opaque JSON payload.
type Job struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
	DueAt   time.Time       `json:"dueAt"`
}

// RedisDelayQueue schedules jobs for future delivery using a Redis sorted
// set scored by due time.
type RedisDelayQueue struct {
	client   *redis.Client
	key      string
	poll     time.Duration
	batchMax int
}

// NewRedisDelayQueue builds a Redis-backed delay queue under the given key.
func NewRedisDelayQueue(addr, password, key string, poll time.Duration) (*RedisDelayQueue, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "petwalk:delayq"
	}
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	return &RedisDelayQueue{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		key:      key,
		poll:     poll,
		batchMax: 100,
	}, nil
}

// Enqueue schedules a job for delivery at job.DueAt.
func (q *RedisDelayQueue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == "" {
		return errors.New("job id required")
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(job.DueAt.UnixMilli()),
		Member: string(raw),
	}).Err()
}

// PopDue atomically removes and returns jobs due at or before now.
func (q *RedisDelayQueue) PopDue(ctx context.Context, now time.Time) ([]Job, error) {
	res, err := popDueScript.Run(ctx, q.client, []string{q.key}, now.UnixMilli(), q.batchMax).StringSlice()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(res))
	for _, raw := range res {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			slog.Warn("delay queue: dropping undecodable job", "err", err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Start polls for due jobs until ctx is cancelled, invoking handler for each.
// Handler errors are logged; delivery is at-most-once.
func (q *RedisDelayQueue) Start(ctx context.Context, handler func(context.Context, Job) error) {
	go func() {
		ticker := time.NewTicker(q.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			jobs, err := q.PopDue(ctx, time.Now().UTC())
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("delay queue: pop due", "err", err)
				}
				continue
			}
			for _, job := range jobs {
				if err := handler(ctx, job); err != nil {
					slog.Warn("delay queue: handler", "job_id", job.ID, "err", err)
				}
			}
		}
	}()
}
