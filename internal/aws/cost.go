package aws

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/zgpcy/cloud-metrics-exporter/internal/provider"
)

// CostMetric is the Cost Explorer metric the exporter reports
const CostMetric = "UnblendedCost"

// TotalCost sums UnblendedCost over every result period in the window
func (c *Client) TotalCost(ctx context.Context, window provider.CostWindow) (float64, error) {
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(window.Start.Format(provider.DateLayout)),
			End:   aws.String(window.End.Format(provider.DateLayout)),
		},
		Granularity: granularity(window.Granularity),
		Metrics:     []string{CostMetric},
	}

	var (
		total   float64
		results int
	)
	for {
		var out *costexplorer.GetCostAndUsageOutput
		err := c.call(ctx, "GetCostAndUsage", func(ctx context.Context) error {
			var err error
			out, err = c.costExplorer.GetCostAndUsage(ctx, input)
			return err
		})
		if err != nil {
			return 0, err
		}

		for _, r := range out.ResultsByTime {
			amount, err := parseAmount(r)
			if err != nil {
				return 0, err
			}
			total += amount
			results++
		}

		if out.NextPageToken == nil || *out.NextPageToken == "" {
			break
		}
		input.NextPageToken = out.NextPageToken
	}

	if results == 0 {
		return 0, provider.Malformed("no cost results for %s", window)
	}

	c.logger.Debug("Queried Cost Explorer",
		"window", window.String(),
		"periods", results,
		"amount", total)
	return total, nil
}

// parseAmount reads Total.UnblendedCost.Amount from one result period
func parseAmount(r cetypes.ResultByTime) (float64, error) {
	metric, ok := r.Total[CostMetric]
	if !ok || metric.Amount == nil {
		return 0, provider.Malformed("result for %s has no %s amount", periodStart(r), CostMetric)
	}

	amount, err := strconv.ParseFloat(*metric.Amount, 64)
	if err != nil {
		return 0, provider.Malformed("result for %s has unparsable amount %q: %v", periodStart(r), *metric.Amount, err)
	}
	return amount, nil
}

func periodStart(r cetypes.ResultByTime) string {
	if r.TimePeriod == nil {
		return "unknown period"
	}
	return stringValue(r.TimePeriod.Start)
}

func granularity(g provider.Granularity) cetypes.Granularity {
	if g == provider.GranularityMonthly {
		return cetypes.GranularityMonthly
	}
	return cetypes.GranularityDaily
}
