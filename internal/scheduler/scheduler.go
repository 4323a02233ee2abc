// Package scheduler runs reconciliation cycles on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"fleetrecon/internal/service"
)

// ErrCycleRunning is returned by Trigger while a cycle is already running in
// this process.
var ErrCycleRunning = errors.New("reconciliation cycle already running")

// CycleRunner runs one reconciliation cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*service.CycleSummary, error)
}

// Scheduler runs cycles one at a time, on a ticker or on demand.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration
	nrApp    *newrelic.Application
	logger   zerolog.Logger

	running atomic.Bool
	last    atomic.Pointer[service.CycleSummary]
}

// New creates a new Scheduler. nrApp may be nil.
func New(runner CycleRunner, interval time.Duration, nrApp *newrelic.Application, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		nrApp:    nrApp,
		logger:   logger,
	}
}

// Run runs a cycle immediately and then every interval until ctx is done.
// Ticks that arrive while a cycle is running are dropped.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.Trigger(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleRunning), errors.Is(err, service.ErrCycleInProgress):
		s.logger.Debug().Err(err).Msg("cycle skipped")
	case ctx.Err() != nil:
	default:
		// The next tick retries.
		s.logger.Error().Err(err).Msg("scheduled cycle failed")
	}
}

// Trigger runs one cycle now and returns its summary.
func (s *Scheduler) Trigger(ctx context.Context) (*service.CycleSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrCycleRunning
	}
	defer s.running.Store(false)

	txn := s.nrApp.StartTransaction("reconcile-cycle")
	defer txn.End()
	ctx = newrelic.NewContext(ctx, txn)

	summary, err := s.runner.RunCycle(ctx)
	if err != nil {
		return nil, err
	}
	s.last.Store(summary)
	return summary, nil
}

// Running reports whether a cycle is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// LastSummary returns the summary of the last successful cycle, or nil.
func (s *Scheduler) LastSummary() *service.CycleSummary {
	return s.last.Load()
}
