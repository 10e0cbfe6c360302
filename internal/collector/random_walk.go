package collector

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/zgpcy/cloud-metrics-exporter/internal/config"
	"github.com/zgpcy/cloud-metrics-exporter/internal/metrics"
	"github.com/zgpcy/cloud-metrics-exporter/internal/provider"
)

// Float64Source yields uniform values in [0, 1). *rand.Rand satisfies it.
type Float64Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// RandomWalkState is the value a RandomWalkCollector advances each tick
type RandomWalkState struct {
	Value float64
	Step  float64
	Min   float64
	Max   float64
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// RandomWalk returns clamp(value + uniform(-step, step), lo, hi). A value
// that starts outside the bounds is pulled back inside.
func RandomWalk(value, step, lo, hi float64, src Float64Source) float64 {
	step = math.Abs(step)
	change := (src.Float64()*2 - 1) * step
	return Clamp(value+change, lo, hi)
}

// Advance moves the state one step and returns the new value
func (s *RandomWalkState) Advance(src Float64Source) float64 {
	s.Value = RandomWalk(s.Value, s.Step, s.Min, s.Max, src)
	return s.Value
}

// RandomWalkCollector publishes one synthetic gauge driven by a random walk
type RandomWalkCollector struct {
	name  string
	state RandomWalkState
	rnd   Float64Source
	gauge *metrics.Gauge
}

// NewRandomWalkCollector creates the collector and its gauge in store.
// The collector is named after the walk with a "random_walk_" prefix.
func NewRandomWalkCollector(store *metrics.Store, walk config.Walk, src Float64Source) (*RandomWalkCollector, error) {
	if walk.Min > walk.Max {
		return nil, fmt.Errorf("random walk %s: min %v exceeds max %v", walk.Name, walk.Min, walk.Max)
	}

	g, err := store.NewGauge(walk.Name, walk.Help)
	if err != nil {
		return nil, fmt.Errorf("random walk %s: %w", walk.Name, err)
	}

	if src == nil {
		src = globalSource{}
	}

	return &RandomWalkCollector{
		name: "random_walk_" + walk.Name,
		state: RandomWalkState{
			Value: walk.Initial,
			Step:  walk.Step,
			Min:   walk.Min,
			Max:   walk.Max,
		},
		rnd:   src,
		gauge: g,
	}, nil
}

// Name implements Collector
func (c *RandomWalkCollector) Name() string {
	return c.name
}

// Source reports the synthetic provider
func (c *RandomWalkCollector) Source() provider.ProviderType {
	return provider.ProviderMock
}

// Gauges implements Collector
func (c *RandomWalkCollector) Gauges() []*metrics.Gauge {
	return []*metrics.Gauge{c.gauge}
}

// State returns a copy of the walk state
func (c *RandomWalkCollector) State() RandomWalkState {
	return c.state
}

// Collect implements Collector
func (c *RandomWalkCollector) Collect(_ context.Context) error {
	return setAll(gaugeValue{c.gauge, c.state.Advance(c.rnd)})
}
