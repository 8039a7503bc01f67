// Package tasks runs fire-and-forget background work with bounded concurrency.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// ErrRunnerClosed is returned by Submit after Shutdown has been called
var ErrRunnerClosed = errors.New("task runner is shut down")

// Func is a unit of background work
type Func func(ctx context.Context) error

// Config holds runner configuration
type Config struct {
	Workers int
	Timeout time.Duration

	// OnFinish, when set, is called once per task with its final status:
	// "succeeded", "failed" or "panicked".
	OnFinish func(name, status string)
}

// Runner executes submitted tasks on detached contexts. Submit never blocks;
// tasks beyond the worker limit wait for a free slot.
type Runner struct {
	sem      *semaphore.Weighted
	timeout  time.Duration
	onFinish func(name, status string)

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRunner creates a new task runner
func NewRunner(cfg Config) *Runner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Runner{
		sem:      semaphore.NewWeighted(int64(workers)),
		timeout:  cfg.Timeout,
		onFinish: cfg.OnFinish,
	}
}

// Submit schedules fn to run in the background
func (r *Runner) Submit(name string, fn Func) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRunnerClosed
	}

	r.wg.Add(1)
	go r.run(name, fn)
	return nil
}

func (r *Runner) run(name string, fn Func) {
	defer r.wg.Done()

	// Background never cancels, so Acquire only returns once a slot frees up.
	_ = r.sem.Acquire(context.Background(), 1)
	defer r.sem.Release(1)

	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	status := "succeeded"
	defer func() {
		if rec := recover(); rec != nil {
			status = "panicked"
			log.Error().
				Str("task", name).
				Str("panic", fmt.Sprint(rec)).
				Bytes("stack", debug.Stack()).
				Msg("background task panicked")
		}
		if r.onFinish != nil {
			r.onFinish(name, status)
		}
	}()

	if err := fn(ctx); err != nil {
		status = "failed"
		log.Error().Err(err).Str("task", name).Dur("elapsed", time.Since(start)).Msg("background task failed")
		return
	}
	log.Debug().Str("task", name).Dur("elapsed", time.Since(start)).Msg("background task finished")
}

// Shutdown stops accepting tasks and waits for queued and running ones to
// finish or for ctx to expire.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}
