package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner owns the background loops and waits for them on shutdown.
type Runner struct {
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Start launches a named ticker loop. The task runs once immediately,
// then on every tick until the context is cancelled. Per-run failures
// are logged and do not stop the loop.
func (r *Runner) Start(ctx context.Context, name string, interval time.Duration, task func(context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.logger.Info("worker started", "worker", name, "interval", interval.String())

		run := func() {
			if err := task(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("worker run failed", "worker", name, "error", err)
			}
		}
		run()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("worker stopped", "worker", name)
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}

// Wait blocks until every started worker has exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}
