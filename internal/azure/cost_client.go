package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/cenkalti/backoff/v4"
	"github.com/zgpcy/cloud-metrics-exporter/internal/config"
	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
	"github.com/zgpcy/cloud-metrics-exporter/internal/provider"
)

// Azure API retry constants
const (
	// MaxRetryElapsedTime is the maximum time to spend retrying a failed API call
	MaxRetryElapsedTime = 2 * time.Minute

	// InitialRetryInterval is the initial backoff interval for retries
	InitialRetryInterval = 1 * time.Second

	// MaxRetryInterval is the maximum backoff interval between retries
	MaxRetryInterval = 30 * time.Second
)

// costColumns are the aggregate column names Azure uses for the summed cost,
// in order of preference
var costColumns = []string{"Cost", "PreTaxCost"}

// UsageQuerier is the Cost Management query API (useful for testing).
// *armcostmanagement.QueryClient implements it.
type UsageQuerier interface {
	Usage(ctx context.Context, scope string, parameters armcostmanagement.QueryDefinition, options *armcostmanagement.QueryClientUsageOptions) (armcostmanagement.QueryClientUsageResponse, error)
}

// Client sums actual cost across the configured Azure subscriptions and
// implements provider.CostSource
type Client struct {
	querier       UsageQuerier
	subscriptions []config.Subscription
	apiTimeout    time.Duration
	logger        *logger.Logger
	newBackOff    func() backoff.BackOff
}

// Verify that Client implements provider.CostSource
var _ provider.CostSource = (*Client)(nil)

// NewClient creates a new Azure Cost Management client using the default
// Azure credential chain
func NewClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	client, err := armcostmanagement.NewQueryClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cost management client: %w", err)
	}

	return newClient(client, cfg, log), nil
}

func newClient(querier UsageQuerier, cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		querier:       querier,
		subscriptions: cfg.Azure.Subscriptions,
		apiTimeout:    time.Duration(cfg.APITimeout) * time.Second,
		logger:        log.WithFields("provider", provider.ProviderAzure),
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = InitialRetryInterval
			bo.MaxInterval = MaxRetryInterval
			bo.MaxElapsedTime = MaxRetryElapsedTime
			return bo
		},
	}
}

// Name returns the provider type
func (c *Client) Name() provider.ProviderType {
	return provider.ProviderAzure
}

// SubscriptionCount returns the number of Azure subscriptions being summed
func (c *Client) SubscriptionCount() int {
	return len(c.subscriptions)
}

// TotalCost sums actual cost for the window over every subscription.
// Returns the partial sum if some subscriptions fail; fails only when all do.
func (c *Client) TotalCost(ctx context.Context, window provider.CostWindow) (float64, error) {
	if len(c.subscriptions) == 0 {
		return 0, provider.Malformed("no Azure subscriptions configured")
	}

	var (
		total     float64
		succeeded int
		errs      []error
	)

	for _, sub := range c.subscriptions {
		amount, err := c.querySubscription(ctx, sub, window)
		if err != nil {
			c.logger.Warn("Failed to query subscription, continuing with others",
				"subscription_name", sub.Name,
				"subscription_id", sub.ID,
				"error", err)
			errs = append(errs, fmt.Errorf("subscription %s: %w", sub.Name, err))
			continue
		}
		total += amount
		succeeded++
	}

	if succeeded == 0 {
		return 0, fmt.Errorf("all %d subscriptions failed (check Azure credentials and permissions): %w",
			len(c.subscriptions), errors.Join(errs...))
	}

	if len(errs) > 0 {
		c.logger.Warn("Some subscriptions failed, returning partial sum",
			"failed_count", len(errs),
			"total_subscriptions", len(c.subscriptions),
			"window", window.String())
	}

	return total, nil
}

// querySubscription queries one subscription with retry logic
func (c *Client) querySubscription(ctx context.Context, sub config.Subscription, window provider.CostWindow) (float64, error) {
	var result float64

	operation := func() error {
		amount, err := c.querySubscriptionOnce(ctx, sub, window)
		if err != nil {
			switch provider.KindOf(err) {
			case provider.KindAccessDenied, provider.KindMalformedResponse:
				return backoff.Permanent(err)
			}
			c.logger.Debug("Azure API call failed, will retry",
				"subscription_name", sub.Name,
				"subscription_id", sub.ID,
				"error", err)
			return err
		}
		result = amount
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return 0, fmt.Errorf("subscription ID %s: %w", sub.ID, err)
	}

	return result, nil
}

// querySubscriptionOnce performs the actual API call without retry logic
func (c *Client) querySubscriptionOnce(ctx context.Context, sub config.Subscription, window provider.CostWindow) (float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.apiTimeout)
	defer cancel()

	scope := fmt.Sprintf("/subscriptions/%s", sub.ID)
	queryDef := buildQuery(window)

	c.logger.Debug("Querying Azure Cost Management API",
		"subscription", sub.Name,
		"window", window.String())

	resp, err := c.querier.Usage(callCtx, scope, queryDef, nil)
	if err != nil {
		return 0, classify(callCtx, fmt.Errorf("cost query failed for %s: %w", window, err))
	}

	return sumCost(resp.QueryResult)
}

// buildQuery builds an ActualCost query over the window. Azure time periods
// include the end date, so the exclusive window end is moved back one day.
func buildQuery(window provider.CostWindow) armcostmanagement.QueryDefinition {
	from := window.Start
	to := window.End.AddDate(0, 0, -1)
	if to.Before(from) {
		to = from
	}

	queryType := armcostmanagement.ExportTypeActualCost
	timeframe := armcostmanagement.TimeframeTypeCustom
	granularity := armcostmanagement.GranularityTypeDaily

	return armcostmanagement.QueryDefinition{
		Type:      &queryType,
		Timeframe: &timeframe,
		TimePeriod: &armcostmanagement.QueryTimePeriod{
			From: &from,
			To:   &to,
		},
		Dataset: &armcostmanagement.QueryDataset{
			Granularity: &granularity,
			Aggregation: map[string]*armcostmanagement.QueryAggregation{
				"totalCost": {
					Name:     stringPtr("Cost"),
					Function: functionPtr(armcostmanagement.FunctionTypeSum),
				},
			},
		},
	}
}

// classify wraps err as a provider.Error
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return provider.NewError(provider.KindTimeout, err)
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return provider.NewError(provider.KindAccessDenied, err)
		}
	}

	return provider.NewError(provider.KindUpstreamUnavailable, err)
}

// buildColumnMap creates a map of column names to their indices
func buildColumnMap(columns []*armcostmanagement.QueryColumn) map[string]int {
	columnMap := make(map[string]int)
	for i, col := range columns {
		if col.Name != nil {
			columnMap[*col.Name] = i
		}
	}
	return columnMap
}

// getStringFromRow extracts a string value from a row by column name
func getStringFromRow(row []any, columnMap map[string]int, columnName string) string {
	if idx, ok := columnMap[columnName]; ok && len(row) > idx {
		value := fmt.Sprintf("%v", row[idx])
		if value != "" && value != "<nil>" {
			return value
		}
	}
	return ""
}

// parseCost converts a cost cell to float64
func parseCost(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// sumCost adds the cost column of every row. A result with no rows is a
// zero cost; a result without a cost column is malformed.
func sumCost(result armcostmanagement.QueryResult) (float64, error) {
	if result.Properties == nil {
		return 0, provider.Malformed("cost query result has no properties")
	}

	columnMap := buildColumnMap(result.Properties.Columns)

	costIdx := -1
	for _, name := range costColumns {
		if idx, ok := columnMap[name]; ok {
			costIdx = idx
			break
		}
	}
	if costIdx < 0 {
		return 0, provider.Malformed("cost query result has none of the columns %v", costColumns)
	}

	var total float64
	for i, row := range result.Properties.Rows {
		if len(row) <= costIdx {
			return 0, provider.Malformed("row %d has %d columns, cost is column %d", i, len(row), costIdx)
		}
		cost, ok := parseCost(row[costIdx])
		if !ok {
			return 0, provider.Malformed("row %d (%s) has non-numeric cost %v",
				i, getStringFromRow(row, columnMap, "UsageDate"), row[costIdx])
		}
		total += cost
	}

	return total, nil
}

// Helper functions
func stringPtr(s string) *string {
	return &s
}

func functionPtr(f armcostmanagement.FunctionType) *armcostmanagement.FunctionType {
	return &f
}
