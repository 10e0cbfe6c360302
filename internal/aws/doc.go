// Package aws reads cost, storage and compute data from an AWS account.
//
// A single Client backs three exporter sources:
//   - TotalCost: Cost Explorer GetCostAndUsage, UnblendedCost summed over the window
//   - ListBuckets and BucketSize: S3 bucket listing and per-bucket object sizes
//   - RunningInstances: EC2 DescribeInstances filtered to the running state
//
// Every API call runs under the configured per-call timeout and is retried
// with exponential backoff. Failures are returned as *provider.Error so the
// collectors can label them; access-denied and malformed responses are not
// retried.
//
// Example usage:
//
//	client, err := aws.NewClient(ctx, cfg, log)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	amount, err := client.TotalCost(ctx, provider.CostWindow{
//		Start:       today,
//		End:         today.AddDate(0, 0, 1),
//		Granularity: provider.GranularityDaily,
//	})
package aws
