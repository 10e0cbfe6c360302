package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zgpcy/cloud-metrics-exporter/internal/clock"
	"github.com/zgpcy/cloud-metrics-exporter/internal/collector"
	"github.com/zgpcy/cloud-metrics-exporter/internal/config"
	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
	"github.com/zgpcy/cloud-metrics-exporter/internal/metrics"
)

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", &bytes.Buffer{})
}

func walkConfig() config.Walk {
	return config.DefaultWalks()[0]
}

// countingRunner cancels its context after stopAfter ticks
type countingRunner struct {
	mu        sync.Mutex
	calls     int
	stopAfter int
	cancel    context.CancelFunc
	duration  time.Duration
	states    []State
	sched     *Scheduler
}

func (r *countingRunner) RunAll(ctx context.Context) collector.TickReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.sched != nil {
		r.states = append(r.states, r.sched.State())
	}
	if r.calls >= r.stopAfter {
		r.cancel()
	}
	return collector.TickReport{Duration: r.duration}
}

func (r *countingRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// TestRun_TicksAndSleeps tests that every tick is followed by a full interval wait
func TestRun_TicksAndSleeps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := clock.NewFake(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC))
	runner := &countingRunner{stopAfter: 3, cancel: cancel}
	s := New(runner, 300*time.Second, testLogger()).WithClock(fake)
	runner.sched = s

	err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}

	if runner.Calls() != 3 {
		t.Errorf("ticks: got %d, want 3", runner.Calls())
	}
	if s.Ticks() != 3 {
		t.Errorf("Ticks(): got %d, want 3", s.Ticks())
	}

	sleeps := fake.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("sleeps: got %d, want 2 (no sleep after the cancelling tick)", len(sleeps))
	}
	for i, d := range sleeps {
		if d != 300*time.Second {
			t.Errorf("sleep %d: got %v, want 300s", i, d)
		}
	}

	for i, st := range runner.states {
		if st != StateRunning {
			t.Errorf("state during tick %d: got %s, want running", i, st)
		}
	}
	if s.State() != StateIdle {
		t.Errorf("state after Run: got %s, want idle", s.State())
	}
}

// TestRun_OverrunStillSleepsFullInterval tests the no-drift-correction baseline
func TestRun_OverrunStillSleepsFullInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := clock.NewFake(time.Now())
	runner := &countingRunner{stopAfter: 2, cancel: cancel, duration: 10 * time.Second}
	s := New(runner, 5*time.Second, testLogger()).WithClock(fake)

	_ = s.Run(ctx)

	sleeps := fake.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != 5*time.Second {
		t.Errorf("sleeps: got %v, want [5s]", sleeps)
	}
}

// TestRun_CancelledBeforeStart tests that a cancelled context runs no tick
func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &countingRunner{stopAfter: 1, cancel: func() {}}
	s := New(runner, time.Second, testLogger()).WithClock(clock.NewFake(time.Now()))

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if runner.Calls() != 0 {
		t.Errorf("ticks: got %d, want 0", runner.Calls())
	}
}

// blockingRunner holds the first tick until released
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *blockingRunner) RunAll(ctx context.Context) collector.TickReport {
	r.once.Do(func() { close(r.started) })
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return collector.TickReport{}
}

// TestRun_AlreadyRunning tests that a second Run is rejected
func TestRun_AlreadyRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	s := New(runner, time.Hour, testLogger())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	<-runner.started
	if s.State() != StateRunning {
		t.Errorf("state: got %s, want running", s.State())
	}
	if err := s.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

// TestRun_WithRegistry tests the scheduler driving a real registry
func TestRun_WithRegistry(t *testing.T) {
	store := metrics.NewStore()
	registry, err := collector.NewRegistry(store, testLogger())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	walk, err := collector.NewRandomWalkCollector(store, walkConfig(), nil)
	if err != nil {
		t.Fatalf("NewRandomWalkCollector() error = %v", err)
	}
	if err := registry.Register(walk); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	stopper := &stopAfterRunner{Runner: registry, stopAfter: 4, cancel: cancel}
	s := New(stopper, 5*time.Second, testLogger()).WithClock(clock.NewFake(time.Now()))

	_ = s.Run(ctx)

	if got := walk.Gauges()[0].Updates(); got != 4 {
		t.Errorf("gauge updates: got %d, want 4", got)
	}
	if !registry.IsReady() {
		t.Error("registry should be ready after ticks")
	}
}

type stopAfterRunner struct {
	Runner
	calls     int
	stopAfter int
	cancel    context.CancelFunc
}

func (s *stopAfterRunner) RunAll(ctx context.Context) collector.TickReport {
	report := s.Runner.RunAll(ctx)
	s.calls++
	if s.calls >= s.stopAfter {
		s.cancel()
	}
	return report
}
