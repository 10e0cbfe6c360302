package collector

import (
	"context"
	"fmt"

	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
	"github.com/zgpcy/cloud-metrics-exporter/internal/metrics"
	"github.com/zgpcy/cloud-metrics-exporter/internal/provider"
)

// ComputeCollector publishes the running-instance count and the number of distinct instance types
type ComputeCollector struct {
	name          string
	source        provider.ComputeSource
	logger        *logger.Logger
	running       *metrics.Gauge
	distinctTypes *metrics.Gauge
}

// NewComputeCollector creates the collector and its gauges in store
func NewComputeCollector(name string, store *metrics.Store, source provider.ComputeSource, log *logger.Logger) (*ComputeCollector, error) {
	created, err := store.NewGauges(
		metrics.GaugeOpts{Name: "aws_ec2_running_instances", Help: "Total number of running EC2 instances"},
		metrics.GaugeOpts{Name: "aws_ec2_instance_types_running", Help: "Number of unique EC2 instance types running"},
	)
	if err != nil {
		return nil, fmt.Errorf("compute collector %s: %w", name, err)
	}

	return &ComputeCollector{
		name:          name,
		source:        source,
		logger:        log.WithFields("collector", name),
		running:       created[0],
		distinctTypes: created[1],
	}, nil
}

// Name implements Collector
func (c *ComputeCollector) Name() string {
	return c.name
}

// Source returns the compute provider
func (c *ComputeCollector) Source() provider.ProviderType {
	return c.source.Name()
}

// Gauges implements Collector
func (c *ComputeCollector) Gauges() []*metrics.Gauge {
	return []*metrics.Gauge{c.running, c.distinctTypes}
}

// Collect implements Collector
func (c *ComputeCollector) Collect(ctx context.Context) error {
	instances, err := c.source.RunningInstances(ctx)
	if err != nil {
		return fmt.Errorf("running instances: %w", err)
	}

	types := make(map[string]struct{}, len(instances))
	for _, inst := range instances {
		types[inst.Type] = struct{}{}
	}

	if err := setAll(
		gaugeValue{c.running, float64(len(instances))},
		gaugeValue{c.distinctTypes, float64(len(types))},
	); err != nil {
		return err
	}

	c.logger.Debug("Compute gauges updated",
		"running", len(instances),
		"instance_types", len(types))
	return nil
}
