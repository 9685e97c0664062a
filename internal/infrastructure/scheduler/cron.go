package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"PriceNewsScanner/internal/ports"
	"PriceNewsScanner/pkg/logger"
)

// CronScheduler fires the job at a fixed interval. A tick that arrives while
// the previous job is still running is skipped, and job panics are recovered.
type CronScheduler struct {
	interval time.Duration
	location *time.Location
	logger   *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
	done chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler with the given interval. Sub-second
// intervals are rounded up to one second.
func NewCronScheduler(interval time.Duration, loc *time.Location, log *zap.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CronScheduler{interval: interval, location: loc, logger: log}
}

// Start registers the job and begins ticking until Stop or ctx cancellation.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return errors.New("scheduler job is nil")
	}
	if c.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", c.interval)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return errors.New("scheduler already started")
	}

	cronLog := logger.NewCronLogger(c.logger)
	runner := cron.New(
		cron.WithLocation(c.location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := runner.AddFunc("@every "+c.interval.String(), func() {
		job(time.Now().In(c.location))
	}); err != nil {
		return fmt.Errorf("register job: %w", err)
	}

	runner.Start()
	c.cron = runner
	c.done = make(chan struct{})
	c.logger.Info("scheduler started", zap.Duration("interval", c.interval))

	done := c.done
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Stop(context.Background())
		case <-done:
		}
	}()

	return nil
}

// Stop halts ticking and waits for a running job to finish or ctx to expire.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner, done := c.cron, c.done
	c.cron, c.done = nil, nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}
	close(done)

	stopped := runner.Stop()
	select {
	case <-stopped.Done():
		c.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running job: %w", ctx.Err())
	}
}
