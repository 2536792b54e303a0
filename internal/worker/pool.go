// Package worker runs queued generation jobs on a fixed set of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/ailogo/internal/queue"
)

// Handler runs one job. Errors are logged by the pool; the handler is
// responsible for recording the outcome on the job's record.
type Handler interface {
	Handle(ctx context.Context, job queue.Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job queue.Job) error

func (f HandlerFunc) Handle(ctx context.Context, job queue.Job) error {
	return f(ctx, job)
}

type Config struct {
	Size       int           // number of worker goroutines
	JobTimeout time.Duration // upper bound for a single job
}

// DefaultConfig sizes the pool for a single generator API key.
func DefaultConfig() Config {
	return Config{
		Size:       4,
		JobTimeout: 5 * time.Minute,
	}
}

// Pool drains a queue with Config.Size workers.
type Pool struct {
	queue   queue.Queue
	handler Handler
	config  Config
	logger  *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewPool(q queue.Queue, h Handler, cfg Config, logger *slog.Logger) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultConfig().JobTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		queue:   q,
		handler: h,
		config:  cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting generation worker pool", slog.Int("workers", p.config.Size))
		for i := 0; i < p.config.Size; i++ {
			p.wg.Add(1)
			go p.work(i)
		}
	})
}

// Stop stops taking new jobs and waits for running ones to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("shutting down generation worker pool")
		p.cancel()
		p.wg.Wait()
	})
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	log := p.logger.With(slog.Int("worker", id))

	for {
		job, err := p.queue.Dequeue(p.ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || p.ctx.Err() != nil {
				return
			}
			log.Error("dequeue failed", slog.String("error", err.Error()))
			// back off so a broken backend does not spin
			select {
			case <-time.After(time.Second):
				continue
			case <-p.ctx.Done():
				return
			}
		}

		p.run(log, job)
	}
}

// run executes job outside the pool's context: a job that has started is
// allowed to finish during shutdown, bounded by JobTimeout.
func (p *Pool) run(log *slog.Logger, job queue.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	start := time.Now()
	err := p.safeHandle(ctx, job)
	attrs := []any{
		slog.String("logo_id", job.LogoID),
		slog.String("user_id", job.UserID),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		log.Error("job failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	log.Debug("job completed", attrs...)
}

func (p *Pool) safeHandle(ctx context.Context, job queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker: panic handling job %s: %v", job.LogoID, r)
		}
	}()
	return p.handler.Handle(ctx, job)
}
