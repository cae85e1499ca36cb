package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// ErrStopped is returned when a task is scheduled after the pool shut down.
var ErrStopped = errors.New("worker pool stopped")

// Scheduler runs tasks detached from the calling request. Implementations
// must not let a task error or panic escape back to the scheduling caller.
type Scheduler interface {
	Schedule(task func(ctx context.Context)) error
}

// Pool is a bounded background task runner. At most size tasks execute
// concurrently; excess tasks wait on the semaphore instead of fanning out
// against the upstream model API.
type Pool struct {
	sem    *semaphore.Weighted
	logger zerolog.Logger

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a pool executing at most size tasks at once.
func NewPool(size int, logger zerolog.Logger) *Pool {
	if size <= 0 {
		size = 4
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		logger: logger.With().Str("component", "worker_pool").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule hands the task to the pool and returns immediately. The task runs
// once a worker slot frees up. Scheduling only fails when the pool has been
// stopped.
func (p *Pool) Schedule(task func(ctx context.Context)) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopped
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error().Interface("panic", r).Msg("background task panicked")
			}
		}()

		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			p.logger.Warn().Err(err).Msg("task abandoned during shutdown")
			return
		}
		defer p.sem.Release(1)

		// Started tasks run to completion; only the queue is cancellable.
		task(context.Background())
	}()

	return nil
}

// Stop rejects new tasks and waits for started tasks to finish. Tasks still
// queued on the semaphore are abandoned.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	p.logger.Info().Msg("worker pool stopped")
}

// Synchronous runs every task inline on the calling goroutine. It exists so
// tests can drive the pipeline deterministically.
type Synchronous struct{}

// Schedule executes the task immediately.
func (Synchronous) Schedule(task func(ctx context.Context)) error {
	task(context.Background())
	return nil
}
