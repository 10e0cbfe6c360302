package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProviderType represents an upstream metrics source
type ProviderType string

// Supported providers
const (
	ProviderAWS   ProviderType = "aws"
	ProviderAzure ProviderType = "azure"
	ProviderMock  ProviderType = "mock"
)

// Granularity is the bucket size requested from a billing API
type Granularity string

const (
	GranularityDaily   Granularity = "DAILY"
	GranularityMonthly Granularity = "MONTHLY"
)

// CostWindow is a half-open date range [Start, End) in the caller's local calendar
type CostWindow struct {
	Start       time.Time
	End         time.Time
	Granularity Granularity
}

// DateLayout is the YYYY-MM-DD layout billing APIs expect
const DateLayout = "2006-01-02"

// String formats the window for logs
func (w CostWindow) String() string {
	return fmt.Sprintf("[%s, %s) %s", w.Start.Format(DateLayout), w.End.Format(DateLayout), w.Granularity)
}

// CostSource returns the total unblended cost over a window
type CostSource interface {
	Name() ProviderType
	TotalCost(ctx context.Context, window CostWindow) (float64, error)
}

// StorageSource lists object-storage buckets and the bytes stored in each one
type StorageSource interface {
	Name() ProviderType
	ListBuckets(ctx context.Context) ([]string, error)
	BucketSize(ctx context.Context, bucket string) (int64, error)
}

// Instance is a running compute instance
type Instance struct {
	ID   string
	Type string
}

// ComputeSource lists running compute instances
type ComputeSource interface {
	Name() ProviderType
	RunningInstances(ctx context.Context) ([]Instance, error)
}

// ErrorKind classifies why an upstream call failed
type ErrorKind string

const (
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindAccessDenied        ErrorKind = "access_denied"
	KindMalformedResponse   ErrorKind = "malformed_response"
	KindTimeout             ErrorKind = "timeout"
)

// Error is returned by source adapters when they can tell what went wrong
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Malformed builds a KindMalformedResponse error from a format string
func Malformed(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedResponse, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind of err. Deadline errors are timeouts and anything
// unrecognised is treated as the upstream being unavailable.
func KindOf(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUpstreamUnavailable
}
