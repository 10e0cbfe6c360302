// Package collector implements the collection side of the exporter.
//
// A Collector reads one upstream source and sets gauges in a shared
// metrics.Store. The Registry holds collectors in registration order and runs
// them one after another on every tick:
//
//	store := metrics.NewStore()
//	registry, _ := collector.NewRegistry(store, log,
//		collector.WithCollectTimeout(2*time.Minute))
//
//	cost, _ := collector.NewCostCollector("aws_cost", store, awsClient, collector.AWSCostGauges, log)
//	_ = registry.Register(cost)
//
//	report := registry.RunAll(ctx)
//	for _, err := range report.Errors {
//		fmt.Println(err.Collector, err.Kind)
//	}
//
// Available collectors:
//   - CostCollector: today's and month-to-date cost (AWS or Azure)
//   - StorageCollector: bucket count and total bytes, skipping unreadable buckets
//   - ComputeCollector: running instances and distinct instance types
//   - RandomWalkCollector: one synthetic gauge for the mock exporter
//
// A failing collector never stops the tick. Its error is classified as a
// CollectError (upstream_unavailable, access_denied, malformed_response or
// timeout), logged, counted in cloudmetrics_exporter_collector_errors_total,
// and its gauges keep their last good values.
//
// The registry also exposes its own health on the store:
//   - cloudmetrics_exporter_collector_up{collector}
//   - cloudmetrics_exporter_collector_duration_seconds{collector}
//   - cloudmetrics_exporter_collector_errors_total{collector,kind}
//   - cloudmetrics_exporter_last_tick_timestamp_seconds
//   - cloudmetrics_exporter_ticks_total
//   - cloudmetrics_exporter_build_info
package collector
