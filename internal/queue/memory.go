package queue

import (
	"context"
	"sync"
)

// Memory is an in-process queue backed by a buffered channel. Jobs are lost
// on restart; use Redis when that matters.
type Memory struct {
	jobs      chan Job
	done      chan struct{}
	closeOnce sync.Once
}

var _ Queue = (*Memory)(nil)

func NewMemory(capacity int) *Memory {
	return &Memory{
		jobs: make(chan Job, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue blocks while the buffer is full.
func (m *Memory) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}

	select {
	case m.jobs <- job:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-m.jobs:
		return job, nil
	case <-m.done:
		return Job{}, ErrClosed
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

// Len reports the number of buffered jobs.
func (m *Memory) Len() int {
	return len(m.jobs)
}
