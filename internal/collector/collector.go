package collector

import (
	"context"
	"fmt"

	"github.com/zgpcy/cloud-metrics-exporter/internal/metrics"
	"github.com/zgpcy/cloud-metrics-exporter/internal/provider"
)

// Collector computes gauge values from one upstream source on each tick
type Collector interface {
	// Name identifies the collector in logs, errors and operational metrics
	Name() string

	// Gauges returns the gauges this collector writes
	Gauges() []*metrics.Gauge

	// Collect fetches from the source and sets gauges. On error the gauges
	// keep their last successfully-set values.
	Collect(ctx context.Context) error
}

// CollectError describes one collector failing during a tick
type CollectError struct {
	Collector string
	Source    provider.ProviderType
	Kind      provider.ErrorKind
	Cause     error
}

func (e *CollectError) Error() string {
	return fmt.Sprintf("collector %s (%s): %s: %v", e.Collector, e.Source, e.Kind, e.Cause)
}

func (e *CollectError) Unwrap() error {
	return e.Cause
}

// sourced is implemented by collectors that know which provider they read
type sourced interface {
	Source() provider.ProviderType
}

func newCollectError(c Collector, err error) *CollectError {
	source := provider.ProviderType("unknown")
	if s, ok := c.(sourced); ok {
		source = s.Source()
	}
	return &CollectError{
		Collector: c.Name(),
		Source:    source,
		Kind:      provider.KindOf(err),
		Cause:     err,
	}
}

// setAll sets gauges in order, stopping at the first rejected value
func setAll(pairs ...gaugeValue) error {
	for _, p := range pairs {
		if err := p.gauge.Set(p.value); err != nil {
			return provider.NewError(provider.KindMalformedResponse, err)
		}
	}
	return nil
}

type gaugeValue struct {
	gauge *metrics.Gauge
	value float64
}
