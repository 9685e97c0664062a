package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"PriceNewsScanner/internal/domain"
	"PriceNewsScanner/internal/ports"
)

// Runner executes one ingestion pass.
type Runner interface {
	Run(ctx context.Context, mode domain.RunMode) (*domain.RunReport, error)
}

// Scheduler wires the timer driver with the ingestion pipeline.
type Scheduler struct {
	driver     ports.Scheduler
	runner     Runner
	repository ports.ArticleRepository
	logger     *zap.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, runner Runner, repository ports.ArticleRepository, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{driver: driver, runner: runner, repository: repository, logger: logger}
}

// Start backfills an empty store once, then registers the incremental run
// with the driver. A failed backfill is logged; recurring runs still start.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return errors.New("scheduler requires a driver and a runner")
	}

	if err := s.bootstrap(ctx); err != nil {
		s.logger.Error("bootstrap backfill failed", zap.Error(err))
	}

	job := func(trigger time.Time) {
		s.logger.Debug("scheduled run triggered", zap.Time("at", trigger))
		_, err := s.runner.Run(ctx, domain.ModeIncremental)
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			s.logger.Info("previous run still in progress, tick skipped")
		case err != nil:
			s.logger.Error("scheduled run failed", zap.Error(err))
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

func (s *Scheduler) bootstrap(ctx context.Context) error {
	if s.repository == nil {
		return nil
	}
	n, err := s.repository.Count(ctx)
	if err != nil {
		return fmt.Errorf("count stored articles: %w", err)
	}
	if n > 0 {
		s.logger.Info("store already populated, skipping backfill", zap.Int("articles", n))
		return nil
	}

	s.logger.Info("empty store, running backfill")
	_, err = s.runner.Run(ctx, domain.ModeBackfill)
	return err
}
