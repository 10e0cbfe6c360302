package collector

import (
	"context"
	"fmt"

	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
	"github.com/zgpcy/cloud-metrics-exporter/internal/metrics"
	"github.com/zgpcy/cloud-metrics-exporter/internal/provider"
)

// StorageCollector publishes the bucket count and the bytes stored across all buckets
type StorageCollector struct {
	name        string
	source      provider.StorageSource
	logger      *logger.Logger
	bucketCount *metrics.Gauge
	totalBytes  *metrics.Gauge
}

// NewStorageCollector creates the collector and its gauges in store
func NewStorageCollector(name string, store *metrics.Store, source provider.StorageSource, log *logger.Logger) (*StorageCollector, error) {
	created, err := store.NewGauges(
		metrics.GaugeOpts{Name: "aws_s3_bucket_count", Help: "Total number of S3 buckets"},
		metrics.GaugeOpts{Name: "aws_s3_total_bytes", Help: "Total S3 storage used in bytes"},
	)
	if err != nil {
		return nil, fmt.Errorf("storage collector %s: %w", name, err)
	}

	return &StorageCollector{
		name:        name,
		source:      source,
		logger:      log.WithFields("collector", name),
		bucketCount: created[0],
		totalBytes:  created[1],
	}, nil
}

// Name implements Collector
func (c *StorageCollector) Name() string {
	return c.name
}

// Source returns the storage provider
func (c *StorageCollector) Source() provider.ProviderType {
	return c.source.Name()
}

// Gauges implements Collector
func (c *StorageCollector) Gauges() []*metrics.Gauge {
	return []*metrics.Gauge{c.bucketCount, c.totalBytes}
}

// Collect implements Collector. A bucket that cannot be listed is skipped
// with a warning and contributes nothing to the total. If ctx ends during the
// scan the total is not published and the context error is returned.
func (c *StorageCollector) Collect(ctx context.Context) error {
	buckets, err := c.source.ListBuckets(ctx)
	if err != nil {
		return fmt.Errorf("list buckets: %w", err)
	}
	if err := setAll(gaugeValue{c.bucketCount, float64(len(buckets))}); err != nil {
		return err
	}

	var total int64
	skipped := 0
	for _, bucket := range buckets {
		if ctx.Err() != nil {
			return fmt.Errorf("bucket scan interrupted: %w", ctx.Err())
		}

		size, err := c.source.BucketSize(ctx, bucket)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("bucket scan interrupted at %s: %w", bucket, ctx.Err())
			}
			skipped++
			c.logger.Warn("Skipping bucket",
				"bucket", bucket,
				"kind", provider.KindOf(err),
				"error", err)
			continue
		}
		total += size
	}

	if err := setAll(gaugeValue{c.totalBytes, float64(total)}); err != nil {
		return err
	}

	c.logger.Debug("Storage gauges updated",
		"buckets", len(buckets),
		"skipped_buckets", skipped,
		"total_bytes", total)
	return nil
}
