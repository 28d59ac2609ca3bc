package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"CivilAIScanner/internal/ports"
)

// Collector is the part of Pipeline the scheduler drives.
type Collector interface {
	Run(ctx context.Context) (RunResult, error)
}

// Scheduler wires the cron driver with the collect use case.
type Scheduler struct {
	driver    ports.Scheduler
	collector Collector
	log       *slog.Logger
	running   atomic.Bool
}

// NewScheduler returns a helper to start/stop recurring collect runs.
func NewScheduler(driver ports.Scheduler, collector Collector, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, collector: collector, log: logger}
}

// Start registers the collect run with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.collector == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) { s.runOnce(ctx, trigger) })
}

// runOnce executes one collect run unless the previous one is still going.
func (s *Scheduler) runOnce(ctx context.Context, trigger time.Time) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous collect run still active, skipping", "trigger", trigger)
		return
	}
	defer s.running.Store(false)

	s.log.Info("scheduled collect run", "trigger", trigger)
	result, err := s.collector.Run(ctx)
	if err != nil {
		s.log.Error("scheduled collect run failed", "error", err)
		return
	}
	s.log.Info("scheduled collect run done", "persisted", result.Stats.Persisted, "elapsed", result.Elapsed)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
