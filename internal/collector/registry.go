package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zgpcy/cloud-metrics-exporter/internal/clock"
	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
	"github.com/zgpcy/cloud-metrics-exporter/internal/metrics"
	"github.com/zgpcy/cloud-metrics-exporter/internal/provider"
	"github.com/zgpcy/cloud-metrics-exporter/internal/version"
)

// MetricPrefix namespaces the exporter's own operational metrics
const MetricPrefix = "cloudmetrics_exporter"

// TickReport summarises one RunAll call
type TickReport struct {
	TickID    string
	Started   time.Time
	Duration  time.Duration
	Succeeded int
	Errors    []*CollectError
}

// Option customises a Registry
type Option func(r *Registry)

// WithCollectTimeout bounds every Collect call. Zero disables the bound.
func WithCollectTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.collectTimeout = d
	}
}

// WithClock replaces the wall clock used for tick timestamps
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

// Registry runs an ordered set of collectors against a shared metrics.Store
type Registry struct {
	store          *metrics.Store
	logger         *logger.Logger
	clock          clock.Clock
	collectTimeout time.Duration

	mu         sync.RWMutex
	collectors []Collector
	owners     map[string]string // gauge name -> owning collector
	ticks      int
	lastReport TickReport

	// Operational metrics
	upMetric       *prometheus.GaugeVec
	durationMetric *prometheus.GaugeVec
	errorsTotal    *prometheus.CounterVec
	lastTickMetric prometheus.Gauge
	ticksTotal     prometheus.Counter
	buildInfo      *prometheus.GaugeVec
}

// NewRegistry creates an empty registry and registers its operational
// metrics on the store
func NewRegistry(store *metrics.Store, log *logger.Logger, opts ...Option) (*Registry, error) {
	r := &Registry{
		store:  store,
		logger: log,
		clock:  clock.RealClock{}, // Use real system time by default
		owners: make(map[string]string),
		upMetric: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricPrefix + "_collector_up",
				Help: "Whether the collector succeeded on the last tick (1 = success, 0 = failure)",
			},
			[]string{"collector"},
		),
		durationMetric: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricPrefix + "_collector_duration_seconds",
				Help: "Duration of the collector's last run in seconds",
			},
			[]string{"collector"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPrefix + "_collector_errors_total",
				Help: "Total number of collector failures since startup",
			},
			[]string{"collector", "kind"},
		),
		lastTickMetric: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricPrefix + "_last_tick_timestamp_seconds",
			Help: "Unix timestamp of the last completed tick",
		}),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPrefix + "_ticks_total",
			Help: "Total number of completed ticks",
		}),
		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricPrefix + "_build_info",
				Help: "Build version information",
			},
			version.LabelNames,
		),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.buildInfo.With(version.Labels()).Set(1)

	for _, c := range []prometheus.Collector{
		r.upMetric, r.durationMetric, r.errorsTotal, r.lastTickMetric, r.ticksTotal, r.buildInfo,
	} {
		if err := store.Registerer().Register(c); err != nil {
			return nil, fmt.Errorf("register operational metrics: %w", err)
		}
	}

	return r, nil
}

// Register appends c. It fails with *metrics.DuplicateNameError, leaving the
// registry unchanged, when c's name matches a registered collector or a gauge
// owned by one, or when one of c's gauges is already owned. On failure the
// gauges c created are removed from the store so nothing unowned is exposed.
func (r *Registry) Register(c Collector) error {
	name := c.Name()
	if name == "" {
		return fmt.Errorf("collector name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	gauges := c.Gauges()
	if err := r.checkNames(name, gauges); err != nil {
		r.discard(gauges)
		return err
	}

	for _, g := range gauges {
		r.owners[g.Name()] = name
	}
	r.collectors = append(r.collectors, c)

	r.logger.Info("Registered collector",
		"collector", name,
		"gauges", len(gauges))
	return nil
}

// checkNames must be called with r.mu held
func (r *Registry) checkNames(name string, gauges []*metrics.Gauge) error {
	for _, existing := range r.collectors {
		if existing.Name() == name {
			return &metrics.DuplicateNameError{Kind: "collector", Name: name}
		}
	}
	if _, ok := r.owners[name]; ok {
		return &metrics.DuplicateNameError{Kind: "collector", Name: name}
	}

	for _, g := range gauges {
		if _, ok := r.owners[g.Name()]; ok {
			return &metrics.DuplicateNameError{Kind: "gauge", Name: g.Name()}
		}
		for _, existing := range r.collectors {
			if existing.Name() == g.Name() {
				return &metrics.DuplicateNameError{Kind: "gauge", Name: g.Name()}
			}
		}
	}
	return nil
}

// discard removes the gauges of a rejected collector that no registered
// collector owns. Must be called with r.mu held.
func (r *Registry) discard(gauges []*metrics.Gauge) {
	unowned := make([]*metrics.Gauge, 0, len(gauges))
	for _, g := range gauges {
		if _, ok := r.owners[g.Name()]; !ok {
			unowned = append(unowned, g)
		}
	}
	r.store.Remove(unowned...)
}

// RunAll calls every collector once, in registration order. Failures are
// logged, counted and returned in the report; they never stop the tick.
func (r *Registry) RunAll(ctx context.Context) TickReport {
	r.mu.RLock()
	collectors := make([]Collector, len(r.collectors))
	copy(collectors, r.collectors)
	r.mu.RUnlock()

	report := TickReport{
		TickID:  uuid.NewString(),
		Started: r.clock.Now(),
	}
	log := r.logger.WithFields("tick_id", report.TickID)
	start := time.Now()

	for _, c := range collectors {
		if ctx.Err() != nil {
			log.Warn("Tick interrupted", "error", ctx.Err())
			break
		}

		collectStart := time.Now()
		err := r.collectOne(ctx, c)
		elapsed := time.Since(collectStart)
		r.durationMetric.WithLabelValues(c.Name()).Set(elapsed.Seconds())

		if err != nil {
			cerr := newCollectError(c, err)
			report.Errors = append(report.Errors, cerr)
			r.upMetric.WithLabelValues(c.Name()).Set(0)
			r.errorsTotal.WithLabelValues(c.Name(), string(cerr.Kind)).Inc()
			log.Error("Collector failed",
				"collector", cerr.Collector,
				"source", cerr.Source,
				"kind", cerr.Kind,
				"error", cerr.Cause)
			continue
		}

		report.Succeeded++
		r.upMetric.WithLabelValues(c.Name()).Set(1)
		log.Debug("Collector succeeded",
			"collector", c.Name(),
			"duration_seconds", elapsed.Seconds())
	}

	report.Duration = time.Since(start)

	r.mu.Lock()
	r.ticks++
	r.lastReport = report
	r.mu.Unlock()

	r.ticksTotal.Inc()
	r.lastTickMetric.Set(float64(report.Started.Unix()))

	log.Info("Tick completed",
		"collectors", len(collectors),
		"succeeded", report.Succeeded,
		"failed", len(report.Errors),
		"duration_seconds", report.Duration.Seconds())

	return report
}

// collectOne runs c under the per-collector timeout
func (r *Registry) collectOne(ctx context.Context, c Collector) error {
	if r.collectTimeout <= 0 {
		return c.Collect(ctx)
	}

	cctx, cancel := context.WithTimeout(ctx, r.collectTimeout)
	defer cancel()

	err := c.Collect(cctx)
	if err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return provider.NewError(provider.KindTimeout, fmt.Errorf("exceeded %s: %w", r.collectTimeout, err))
	}
	return err
}

// Collectors returns the registered collectors in order
func (r *Registry) Collectors() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Collector, len(r.collectors))
	copy(out, r.collectors)
	return out
}

// CollectorCount returns the number of registered collectors
func (r *Registry) CollectorCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.collectors)
}

// IsReady returns true once a tick has completed with at least one successful collector
func (r *Registry) IsReady() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ticks > 0 && r.lastReport.Succeeded > 0
}

// LastTickTime returns the start time of the last completed tick
func (r *Registry) LastTickTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastReport.Started
}

// LastErrors returns the errors recorded by the last completed tick
func (r *Registry) LastErrors() []*CollectError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*CollectError, len(r.lastReport.Errors))
	copy(out, r.lastReport.Errors)
	return out
}
