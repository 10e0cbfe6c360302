package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/zgpcy/cloud-metrics-exporter/internal/provider"
)

// ListBuckets returns the names of all buckets visible to the account and
// remembers the region of each for BucketSize
func (c *Client) ListBuckets(ctx context.Context) ([]string, error) {
	var names []string
	regions := make(map[string]string)

	paginator := s3.NewListBucketsPaginator(c.s3, &s3.ListBucketsInput{
		MaxBuckets: aws.Int32(ListBucketsPageSize),
	})
	for paginator.HasMorePages() {
		var page *s3.ListBucketsOutput
		err := c.call(ctx, "ListBuckets", func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, b := range page.Buckets {
			if b.Name == nil {
				return nil, provider.Malformed("bucket listing contains a bucket without a name")
			}
			names = append(names, *b.Name)
			if region := aws.ToString(b.BucketRegion); region != "" {
				regions[*b.Name] = region
			}
		}
	}

	c.regionsMu.Lock()
	c.bucketRegions = regions
	c.regionsMu.Unlock()

	return names, nil
}

// BucketSize sums the size of every object in bucket. Requests go to the
// bucket's own region when the last ListBuckets reported one.
func (c *Client) BucketSize(ctx context.Context, bucket string) (int64, error) {
	var total int64
	optFns := c.bucketOptions(bucket)

	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	for paginator.HasMorePages() {
		var page *s3.ListObjectsV2Output
		err := c.call(ctx, "ListObjectsV2 "+bucket, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx, optFns...)
			return err
		})
		if err != nil {
			return 0, err
		}

		for _, obj := range page.Contents {
			total += aws.ToInt64(obj.Size)
		}
	}

	return total, nil
}

// bucketOptions pins S3 requests for bucket to its known region
func (c *Client) bucketOptions(bucket string) []func(*s3.Options) {
	c.regionsMu.RLock()
	region, ok := c.bucketRegions[bucket]
	c.regionsMu.RUnlock()
	if !ok {
		return nil
	}
	return []func(*s3.Options){func(o *s3.Options) { o.Region = region }}
}

// RunningInstances returns every instance in the running state
func (c *Client) RunningInstances(ctx context.Context) ([]provider.Instance, error) {
	var instances []provider.Instance

	paginator := ec2.NewDescribeInstancesPaginator(c.ec2, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("instance-state-name"),
				Values: []string{string(ec2types.InstanceStateNameRunning)},
			},
		},
	})
	for paginator.HasMorePages() {
		var page *ec2.DescribeInstancesOutput
		err := c.call(ctx, "DescribeInstances", func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				instances = append(instances, provider.Instance{
					ID:   aws.ToString(inst.InstanceId),
					Type: string(inst.InstanceType),
				})
			}
		}
	}

	return instances, nil
}
