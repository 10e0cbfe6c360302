// Package scheduler drives the collect-then-sleep poll loop.
//
// Each tick runs every collector, then waits the full interval. A tick that
// overruns the interval is followed by a full wait, never by a catch-up tick.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/zgpcy/cloud-metrics-exporter/internal/clock"
	"github.com/zgpcy/cloud-metrics-exporter/internal/collector"
	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
)

// ErrAlreadyRunning is returned when Run is called on a running scheduler
var ErrAlreadyRunning = errors.New("scheduler already running")

// State of the poll loop
type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Runner runs one tick. *collector.Registry implements it.
type Runner interface {
	RunAll(ctx context.Context) collector.TickReport
}

// Scheduler calls Runner.RunAll every interval
type Scheduler struct {
	runner   Runner
	interval time.Duration
	clock    clock.Clock
	logger   *logger.Logger

	state atomic.Int32
	ticks atomic.Uint64
}

// New creates an idle scheduler
func New(runner Runner, interval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		clock:    clock.RealClock{},
		logger:   log,
	}
}

// WithClock replaces the clock used for sleeping between ticks
func (s *Scheduler) WithClock(c clock.Clock) *Scheduler {
	s.clock = c
	return s
}

// State returns the current loop state
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Ticks returns how many ticks have completed
func (s *Scheduler) Ticks() uint64 {
	return s.ticks.Load()
}

// Run blocks, ticking until ctx is cancelled. It returns ctx.Err() on
// cancellation and ErrAlreadyRunning if another Run is active.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrAlreadyRunning
	}
	defer s.state.Store(int32(StateIdle))

	s.logger.Info("Poll loop started", "interval_seconds", s.interval.Seconds())

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("Poll loop stopped", "ticks", s.ticks.Load())
			return err
		}

		report := s.runner.RunAll(ctx)
		s.ticks.Add(1)

		if report.Duration > s.interval {
			s.logger.Warn("Tick took longer than the poll interval",
				"tick_id", report.TickID,
				"duration_seconds", report.Duration.Seconds(),
				"interval_seconds", s.interval.Seconds())
		}

		if err := ctx.Err(); err != nil {
			s.logger.Info("Poll loop stopped", "ticks", s.ticks.Load())
			return err
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Poll loop stopped", "ticks", s.ticks.Load())
			return ctx.Err()
		case <-s.clock.After(s.interval):
		}
	}
}
