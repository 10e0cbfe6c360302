package collector

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
	"github.com/zgpcy/cloud-metrics-exporter/internal/metrics"
	"github.com/zgpcy/cloud-metrics-exporter/internal/provider"
)

// testLogger creates a logger for testing (error level to suppress test output)
func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", &bytes.Buffer{})
}

// capturingLogger returns a logger writing to a buffer so tests can count log lines
func capturingLogger(level string) (*logger.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return logger.NewWithWriter(level, buf), buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// countLevel counts JSON log lines at the given slog level (e.g. "ERROR")
func (b *syncBuffer) countLevel(level string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), `"level":"`+level+`"`)
}

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *metrics.Store) {
	t.Helper()
	store := metrics.NewStore()
	r, err := NewRegistry(store, testLogger(), opts...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r, store
}

// mockCostSource returns a fixed amount per granularity and records the windows it saw
type mockCostSource struct {
	mu      sync.Mutex
	amounts map[provider.Granularity]float64
	err     error
	windows []provider.CostWindow
}

func (m *mockCostSource) Name() provider.ProviderType { return provider.ProviderAWS }

func (m *mockCostSource) TotalCost(ctx context.Context, window provider.CostWindow) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append(m.windows, window)
	if m.err != nil {
		return 0, m.err
	}
	return m.amounts[window.Granularity], nil
}

func (m *mockCostSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// mockStorageSource serves bucket sizes from a map; buckets in errs fail and
// buckets in slow block until ctx ends
type mockStorageSource struct {
	buckets []string
	sizes   map[string][]int64
	errs    map[string]error
	slow    map[string]bool
	listErr error
}

func (m *mockStorageSource) Name() provider.ProviderType { return provider.ProviderAWS }

func (m *mockStorageSource) ListBuckets(ctx context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.buckets, nil
}

func (m *mockStorageSource) BucketSize(ctx context.Context, bucket string) (int64, error) {
	if m.slow[bucket] {
		<-ctx.Done()
		return 0, provider.NewError(provider.KindTimeout, ctx.Err())
	}
	if err, ok := m.errs[bucket]; ok {
		return 0, err
	}
	var total int64
	for _, s := range m.sizes[bucket] {
		total += s
	}
	return total, nil
}

type mockComputeSource struct {
	instances []provider.Instance
	err       error
}

func (m *mockComputeSource) Name() provider.ProviderType { return provider.ProviderAWS }

func (m *mockComputeSource) RunningInstances(ctx context.Context) ([]provider.Instance, error) {
	return m.instances, m.err
}

// stubCollector sets its single gauge to value, or fails with err
type stubCollector struct {
	name  string
	gauge *metrics.Gauge
	value float64
	err   error
	calls int
	block bool // wait for ctx to end before returning
}

func newStubCollector(t *testing.T, store *metrics.Store, name string) *stubCollector {
	t.Helper()
	g, err := store.NewGauge(name+"_value", "stub gauge for "+name)
	if err != nil {
		t.Fatalf("NewGauge() error = %v", err)
	}
	return &stubCollector{name: name, gauge: g, value: 1}
}

func (s *stubCollector) Name() string             { return s.name }
func (s *stubCollector) Gauges() []*metrics.Gauge { return []*metrics.Gauge{s.gauge} }

func (s *stubCollector) Collect(ctx context.Context) error {
	s.calls++
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.err != nil {
		return s.err
	}
	return s.gauge.Set(s.value)
}

// fixedSource always returns the same uniform sample
type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }
