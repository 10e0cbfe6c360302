// Package provider defines the upstream source abstraction layer.
//
// Collectors never talk to a cloud SDK directly. They depend on the small
// interfaces in this package, and each cloud-specific package implements
// the ones it can serve:
//
//	type CostSource interface {
//		Name() ProviderType
//		TotalCost(ctx context.Context, window CostWindow) (float64, error)
//	}
//
//	type StorageSource interface {
//		Name() ProviderType
//		ListBuckets(ctx context.Context) ([]string, error)
//		BucketSize(ctx context.Context, bucket string) (int64, error)
//	}
//
//	type ComputeSource interface {
//		Name() ProviderType
//		RunningInstances(ctx context.Context) ([]Instance, error)
//	}
//
// The aws package implements all three; the azure package implements
// CostSource only.
//
// Adapters report failures as *Error so the collector layer can tell an
// access-denied bucket from a malformed billing response or an unreachable
// endpoint:
//
//	if len(out.ResultsByTime) == 0 {
//		return 0, provider.Malformed("no results for %s", window)
//	}
//
// KindOf recovers the kind from any wrapped error chain.
package provider
