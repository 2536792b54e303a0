// Package queue carries generation jobs from request handlers to the worker
// pool, so a request never waits on the image generator.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by Dequeue and Enqueue after Close.
var ErrClosed = errors.New("queue: closed")

// Job asks a worker to run one generation attempt. Version is the record
// version the attempt was started from; a worker that finds a newer version
// drops the job.
type Job struct {
	UserID     string    `json:"user_id"`
	LogoID     string    `json:"logo_id"`
	Version    int64     `json:"version"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Dequeue blocks until a job is available, ctx is done, or the queue is
	// closed.
	Dequeue(ctx context.Context) (Job, error)
	Close() error
}
