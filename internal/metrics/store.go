package metrics

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ErrNonFinite is returned when a gauge is set to NaN or an infinity
var ErrNonFinite = errors.New("gauge value must be finite")

// DuplicateNameError is returned when a gauge or collector name is already taken
type DuplicateNameError struct {
	Kind string // "gauge" or "collector"
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s name %q", e.Kind, e.Name)
}

// GaugeOpts describes a gauge to create
type GaugeOpts struct {
	Name string
	Help string
}

// Gauge is a named scalar owned by a Store. Set is safe to call while
// scrapes read the value concurrently.
type Gauge struct {
	name    string
	help    string
	gauge   prometheus.Gauge
	bits    atomic.Uint64
	updates atomic.Uint64
}

// Name returns the gauge name
func (g *Gauge) Name() string {
	return g.name
}

// Help returns the gauge help text
func (g *Gauge) Help() string {
	return g.help
}

// Set stores v. Non-finite values are rejected and the previous value is kept.
func (g *Gauge) Set(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s: %w (got %v)", g.name, ErrNonFinite, v)
	}
	g.gauge.Set(v)
	g.bits.Store(math.Float64bits(v))
	g.updates.Add(1)
	return nil
}

// Value returns the last value set, or 0 if the gauge was never set
func (g *Gauge) Value() float64 {
	return math.Float64frombits(g.bits.Load())
}

// Updates returns how many times Set succeeded
func (g *Gauge) Updates() uint64 {
	return g.updates.Load()
}

// Store owns a private Prometheus registry and the gauges registered on it
type Store struct {
	mu       sync.RWMutex
	registry *prometheus.Registry
	gauges   map[string]*Gauge
	order    []string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]*Gauge),
	}
}

// NewGauge creates and registers a single gauge
func (s *Store) NewGauge(name, help string) (*Gauge, error) {
	gauges, err := s.NewGauges(GaugeOpts{Name: name, Help: help})
	if err != nil {
		return nil, err
	}
	return gauges[0], nil
}

// NewGauges creates all gauges or none. A name collision, with the store or
// within opts, returns *DuplicateNameError and leaves the store unchanged.
func (s *Store) NewGauges(opts ...GaugeOpts) ([]*Gauge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(opts))
	for _, o := range opts {
		if o.Name == "" {
			return nil, fmt.Errorf("gauge name cannot be empty")
		}
		if _, ok := s.gauges[o.Name]; ok {
			return nil, &DuplicateNameError{Kind: "gauge", Name: o.Name}
		}
		if _, ok := seen[o.Name]; ok {
			return nil, &DuplicateNameError{Kind: "gauge", Name: o.Name}
		}
		seen[o.Name] = struct{}{}
	}

	created := make([]*Gauge, 0, len(opts))
	for _, o := range opts {
		g := &Gauge{
			name: o.Name,
			help: o.Help,
			gauge: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: o.Name,
				Help: o.Help,
			}),
		}
		if err := s.registry.Register(g.gauge); err != nil {
			// Roll back so the store stays all-or-nothing
			for _, c := range created {
				s.registry.Unregister(c.gauge)
			}
			return nil, fmt.Errorf("register gauge %s: %w", o.Name, err)
		}
		created = append(created, g)
	}

	for _, g := range created {
		s.gauges[g.name] = g
		s.order = append(s.order, g.name)
	}
	return created, nil
}

// Remove unregisters gauges from the store. A gauge that is not the one the
// store holds under its name is ignored.
func (s *Store) Remove(gauges ...*Gauge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range gauges {
		if g == nil || s.gauges[g.name] != g {
			continue
		}
		s.registry.Unregister(g.gauge)
		delete(s.gauges, g.name)
		for i, name := range s.order {
			if name == g.name {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// Gauge looks up a gauge by name
func (s *Store) Gauge(name string) (*Gauge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.gauges[name]
	return g, ok
}

// Names returns gauge names in creation order
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Registerer exposes the underlying registry for operational and runtime collectors
func (s *Store) Registerer() prometheus.Registerer {
	return s.registry
}

// Gatherer exposes the underlying registry for reads
func (s *Store) Gatherer() prometheus.Gatherer {
	return s.registry
}

// Handler serves the store in the Prometheus text exposition format
func (s *Store) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
