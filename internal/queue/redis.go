package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// pollTimeout bounds each BRPOP so Dequeue notices cancellation and Close.
const pollTimeout = 2 * time.Second

// Redis is a durable FIFO on a Redis list: LPUSH to enqueue, BRPOP to
// dequeue. Jobs survive a restart of the service.
type Redis struct {
	client *redis.Client
	key    string
	closed atomic.Bool
}

var _ Queue = (*Redis)(nil)

func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (r *Redis) Enqueue(ctx context.Context, job Job) error {
	if r.closed.Load() {
		return ErrClosed
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: encoding job %s: %w", job.LogoID, err)
	}
	if err := r.client.LPush(ctx, r.key, payload).Err(); err != nil {
		return fmt.Errorf("queue: pushing job %s: %w", job.LogoID, err)
	}
	return nil
}

func (r *Redis) Dequeue(ctx context.Context) (Job, error) {
	for {
		if r.closed.Load() {
			return Job{}, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}

		res, err := r.client.BRPop(ctx, pollTimeout, r.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			return Job{}, fmt.Errorf("queue: popping job: %w", err)
		}

		// BRPOP replies with [key, value].
		if len(res) != 2 {
			return Job{}, fmt.Errorf("queue: unexpected BRPOP reply of length %d", len(res))
		}
		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return Job{}, fmt.Errorf("queue: decoding job: %w", err)
		}
		return job, nil
	}
}

// Close stops Dequeue; the client itself is owned by the caller.
func (r *Redis) Close() error {
	r.closed.Store(true)
	return nil
}
