package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/zgpcy/cloud-metrics-exporter/internal/clock"
	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
	"github.com/zgpcy/cloud-metrics-exporter/internal/metrics"
	"github.com/zgpcy/cloud-metrics-exporter/internal/provider"
)

// CostGauges names the two gauges a CostCollector writes
type CostGauges struct {
	Daily   metrics.GaugeOpts
	Monthly metrics.GaugeOpts
}

// AWSCostGauges are the gauge names used for AWS Cost Explorer
var AWSCostGauges = CostGauges{
	Daily:   metrics.GaugeOpts{Name: "aws_cost_daily_total_usd", Help: "Total AWS cost for today in USD"},
	Monthly: metrics.GaugeOpts{Name: "aws_cost_monthly_total_usd", Help: "Total AWS cost for this month in USD"},
}

// AzureCostGauges are the gauge names used for Azure Cost Management
var AzureCostGauges = CostGauges{
	Daily:   metrics.GaugeOpts{Name: "azure_cost_daily_total", Help: "Total Azure cost for today in the billing currency"},
	Monthly: metrics.GaugeOpts{Name: "azure_cost_monthly_total", Help: "Total Azure cost for this month in the billing currency"},
}

// CostCollector publishes today's and month-to-date cost
type CostCollector struct {
	name    string
	source  provider.CostSource
	logger  *logger.Logger
	clock   clock.Clock // Time provider for testing
	daily   *metrics.Gauge
	monthly *metrics.Gauge
}

// NewCostCollector creates the collector and its gauges in store
func NewCostCollector(name string, store *metrics.Store, source provider.CostSource, gauges CostGauges, log *logger.Logger) (*CostCollector, error) {
	created, err := store.NewGauges(gauges.Daily, gauges.Monthly)
	if err != nil {
		return nil, fmt.Errorf("cost collector %s: %w", name, err)
	}

	return &CostCollector{
		name:    name,
		source:  source,
		logger:  log.WithFields("collector", name),
		clock:   clock.RealClock{}, // Use real system time by default
		daily:   created[0],
		monthly: created[1],
	}, nil
}

// WithClock replaces the clock used to compute billing windows
func (c *CostCollector) WithClock(clk clock.Clock) *CostCollector {
	c.clock = clk
	return c
}

// Name implements Collector
func (c *CostCollector) Name() string {
	return c.name
}

// Source returns the billing provider
func (c *CostCollector) Source() provider.ProviderType {
	return c.source.Name()
}

// Gauges implements Collector
func (c *CostCollector) Gauges() []*metrics.Gauge {
	return []*metrics.Gauge{c.daily, c.monthly}
}

// Windows returns the day and month-to-date windows for now. Both end at the
// start of tomorrow in now's location; billing timezones are not considered.
func Windows(now time.Time) (day, month provider.CostWindow) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	day = provider.CostWindow{Start: today, End: tomorrow, Granularity: provider.GranularityDaily}
	month = provider.CostWindow{Start: startOfMonth, End: tomorrow, Granularity: provider.GranularityMonthly}
	return day, month
}

// Collect implements Collector. The daily gauge is set before the monthly
// query runs; a monthly failure leaves the fresh daily value in place.
func (c *CostCollector) Collect(ctx context.Context) error {
	day, month := Windows(c.clock.Now())

	dailyAmount, err := c.source.TotalCost(ctx, day)
	if err != nil {
		return fmt.Errorf("daily cost %s: %w", day, err)
	}
	if err := setAll(gaugeValue{c.daily, dailyAmount}); err != nil {
		return err
	}

	monthlyAmount, err := c.source.TotalCost(ctx, month)
	if err != nil {
		return fmt.Errorf("monthly cost %s: %w", month, err)
	}
	if err := setAll(gaugeValue{c.monthly, monthlyAmount}); err != nil {
		return err
	}

	c.logger.Debug("Cost gauges updated",
		"daily", dailyAmount,
		"monthly", monthlyAmount)
	return nil
}
