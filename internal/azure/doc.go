// Package azure provides the Azure Cost Management cost source.
//
// Client sums actual cost over a window for every configured subscription.
// It handles:
//   - Authentication using Azure Default Credentials
//   - ActualCost queries over a custom timeframe, one per subscription
//   - Partial failure: subscriptions that fail are skipped and logged
//   - Per-call timeouts and exponential backoff retry
//
// The main types are:
//   - Client: implements provider.CostSource
//   - UsageQuerier: the query API the client calls (useful for testing)
//
// Example usage:
//
//	cfg := &config.Config{
//		APITimeout: 30,
//		Azure: config.AzureConfig{
//			Subscriptions: []config.Subscription{
//				{ID: "sub-123", Name: "Production"},
//			},
//		},
//	}
//
//	client, err := azure.NewClient(cfg, log)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	amount, err := client.TotalCost(ctx, window)
package azure
