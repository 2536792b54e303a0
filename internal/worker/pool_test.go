package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sakif/ailogo/internal/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPoolProcessesAllJobs(t *testing.T) {
	q := queue.NewMemory(16)

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	wg.Add(10)
	h := HandlerFunc(func(_ context.Context, job queue.Job) error {
		mu.Lock()
		seen[job.LogoID] = true
		mu.Unlock()
		wg.Done()
		return nil
	})

	p := NewPool(q, h, Config{Size: 3, JobTimeout: time.Second}, testLogger())
	p.Start()
	defer p.Stop()

	for i := 0; i < 10; i++ {
		q.Enqueue(context.Background(), queue.Job{LogoID: string(rune('a' + i))})
	}

	waitOrFail(t, &wg)
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 10 {
		t.Errorf("processed %d distinct jobs, want 10", len(seen))
	}
}

func TestPoolSurvivesErrorsAndPanics(t *testing.T) {
	q := queue.NewMemory(4)

	var calls atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)
	h := HandlerFunc(func(_ context.Context, job queue.Job) error {
		defer wg.Done()
		calls.Add(1)
		switch job.LogoID {
		case "panic":
			panic("boom")
		case "error":
			return errors.New("generator down")
		}
		return nil
	})

	p := NewPool(q, h, Config{Size: 1, JobTimeout: time.Second}, testLogger())
	p.Start()
	defer p.Stop()

	for _, id := range []string{"panic", "error", "ok"} {
		q.Enqueue(context.Background(), queue.Job{LogoID: id})
	}

	waitOrFail(t, &wg)
	if calls.Load() != 3 {
		t.Errorf("handler calls = %d, want 3", calls.Load())
	}
}

func TestPoolStopWaitsForRunningJob(t *testing.T) {
	q := queue.NewMemory(1)

	started := make(chan struct{})
	var finished atomic.Bool
	h := HandlerFunc(func(ctx context.Context, _ queue.Job) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	p := NewPool(q, h, Config{Size: 1, JobTimeout: time.Second}, testLogger())
	p.Start()
	q.Enqueue(context.Background(), queue.Job{LogoID: "slow"})

	<-started
	p.Stop()
	p.Stop() // idempotent

	if !finished.Load() {
		t.Error("Stop() returned before the running job finished")
	}
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for jobs")
	}
}
