package aws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/zgpcy/cloud-metrics-exporter/internal/config"
	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
	"github.com/zgpcy/cloud-metrics-exporter/internal/provider"
)

// AWS API retry constants
const (
	// MaxRetryElapsedTime is the maximum time to spend retrying a failed API call
	MaxRetryElapsedTime = 1 * time.Minute

	// InitialRetryInterval is the initial backoff interval for retries
	InitialRetryInterval = 1 * time.Second

	// MaxRetryInterval is the maximum backoff interval between retries
	MaxRetryInterval = 15 * time.Second

	// ListBucketsPageSize is the page size for ListBuckets. Paginated
	// listings carry each bucket's region.
	ListBucketsPageSize = 1000
)

// accessDeniedCodes are smithy error codes that retrying will not fix
var accessDeniedCodes = map[string]struct{}{
	"AccessDenied":                {},
	"AccessDeniedException":       {},
	"AllAccessDisabled":           {},
	"AuthFailure":                 {},
	"ExpiredToken":                {},
	"InvalidClientTokenId":        {},
	"UnauthorizedOperation":       {},
	"UnrecognizedClientException": {},
}

// permanentCodes are smithy error codes for requests that fail the same way on every attempt
var permanentCodes = map[string]struct{}{
	"AuthorizationHeaderMalformed":       {},
	"IllegalLocationConstraintException": {},
	"InvalidBucketName":                  {},
	"NoSuchBucket":                       {},
	"PermanentRedirect":                  {},
}

// CostExplorerAPI is the Cost Explorer subset the client uses
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// S3API is the S3 subset the client uses
type S3API interface {
	s3.ListBucketsAPIClient
	s3.ListObjectsV2APIClient
}

// EC2API is the EC2 subset the client uses
type EC2API interface {
	ec2.DescribeInstancesAPIClient
}

// Client reads cost, storage and compute data from one AWS account and region.
// It implements provider.CostSource, provider.StorageSource and provider.ComputeSource.
type Client struct {
	costExplorer CostExplorerAPI
	s3           S3API
	ec2          EC2API
	logger       *logger.Logger
	apiTimeout   time.Duration
	newBackOff   func() backoff.BackOff

	regionsMu     sync.RWMutex
	bucketRegions map[string]string
}

// Verify that Client implements the provider interfaces
var (
	_ provider.CostSource    = (*Client)(nil)
	_ provider.StorageSource = (*Client)(nil)
	_ provider.ComputeSource = (*Client)(nil)
)

// NewClient loads the shared AWS configuration for the configured region and
// profile and creates the service clients
func NewClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return newClient(
		costexplorer.NewFromConfig(awsCfg),
		s3.NewFromConfig(awsCfg),
		ec2.NewFromConfig(awsCfg),
		time.Duration(cfg.APITimeout)*time.Second,
		log,
	), nil
}

func newClient(ce CostExplorerAPI, s3Client S3API, ec2Client EC2API, apiTimeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		costExplorer:  ce,
		s3:            s3Client,
		ec2:           ec2Client,
		logger:        log.WithFields("provider", provider.ProviderAWS),
		apiTimeout:    apiTimeout,
		bucketRegions: make(map[string]string),
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
	return provider.ProviderAWS
}

// call runs fn under the per-call timeout, retrying transient failures with
// exponential backoff. Errors that retryable rejects fail on the first attempt.
func (c *Client) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	attempt := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.apiTimeout)
		defer cancel()

		err := classify(callCtx, fn(callCtx))
		if err == nil {
			return nil
		}

		if !retryable(err) {
			return backoff.Permanent(err)
		}

		c.logger.Debug("AWS API call failed, will retry",
			"operation", operation,
			"error", err)
		return err
	}

	if err := backoff.Retry(attempt, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

// classify wraps err as a provider.Error so callers can tell failures apart
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var perr *provider.Error
	if errors.As(err, &perr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return provider.NewError(provider.KindTimeout, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, denied := accessDeniedCodes[apiErr.ErrorCode()]; denied {
			return provider.NewError(provider.KindAccessDenied, err)
		}
	}

	return provider.NewError(provider.KindUpstreamUnavailable, err)
}

// retryable reports whether another attempt could succeed. Throttling, 408,
// 5xx and transport failures are retried. Access denied, malformed responses
// and the remaining 3xx and 4xx responses are not.
func retryable(err error) bool {
	switch provider.KindOf(err) {
	case provider.KindAccessDenied, provider.KindMalformedResponse:
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if _, ok := retry.DefaultThrottleErrorCodes[code]; ok {
			return true
		}
		if _, ok := permanentCodes[code]; ok {
			return false
		}
	}

	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		status := statusErr.HTTPStatusCode()
		switch {
		case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
			return true
		case status >= 300 && status < 500:
			return false
		}
	}

	return true
}

// stringValue dereferences s for logs and error messages
func stringValue(s *string) string {
	return aws.ToString(s)
}
