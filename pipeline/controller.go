package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ControllerConfig holds resource limits for a run.
type ControllerConfig struct {
	// MaxWorkers is the maximum number of concurrently processed groups.
	// If 0, defaults to GOMAXPROCS.
	MaxWorkers int

	// IOLimitBytesPerSec caps dataset write throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller bounds worker concurrency and dataset IO for a pipeline run.
type Controller struct {
	maxWorkers int
	workers    *semaphore.Weighted
	ioLimiter  *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.GOMAXPROCS(0)
	}

	c := &Controller{
		maxWorkers: cfg.MaxWorkers,
		workers:    semaphore.NewWeighted(int64(cfg.MaxWorkers)),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// MaxWorkers returns the configured worker bound.
func (c *Controller) MaxWorkers() int {
	if c == nil {
		return runtime.GOMAXPROCS(0)
	}
	return c.maxWorkers
}

// AcquireWorker reserves a worker slot, blocking until one is available or
// ctx is canceled.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workers.Acquire(ctx, 1)
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}
	// WaitN cannot exceed the limiter burst.
	for bytes > 0 {
		n := bytes
		if burst := c.ioLimiter.Burst(); n > burst {
			n = burst
		}
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
