package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryFIFO(t *testing.T) {
	q := NewMemory(4)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, Job{LogoID: id}); err != nil {
			t.Fatalf("Enqueue(%s) error = %v", id, err)
		}
	}
	if q.Len() != 3 {
		t.Errorf("Len() = %d, want 3", q.Len())
	}

	for _, want := range []string{"a", "b", "c"} {
		job, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		if job.LogoID != want {
			t.Errorf("Dequeue() = %s, want %s", job.LogoID, want)
		}
	}
}

func TestMemoryDequeueHonoursContext(t *testing.T) {
	q := NewMemory(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Dequeue() error = %v, want DeadlineExceeded", err)
	}
}

func TestMemoryEnqueueBlocksWhenFull(t *testing.T) {
	q := NewMemory(1)
	q.Enqueue(context.Background(), Job{LogoID: "a"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := q.Enqueue(ctx, Job{LogoID: "b"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Enqueue() on full queue error = %v, want DeadlineExceeded", err)
	}
}

func TestMemoryClose(t *testing.T) {
	q := NewMemory(1)

	errc := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		errc <- err
	}()

	q.Close()
	q.Close() // idempotent

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Dequeue() after Close error = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue() did not return after Close")
	}

	if err := q.Enqueue(context.Background(), Job{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Enqueue() after Close error = %v, want ErrClosed", err)
	}
}
