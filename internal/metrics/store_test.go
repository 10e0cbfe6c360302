package metrics

import (
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewGauge_SetAndRead(t *testing.T) {
	store := NewStore()

	g, err := store.NewGauge("aws_s3_bucket_count", "Total number of S3 buckets")
	if err != nil {
		t.Fatalf("NewGauge() error = %v", err)
	}

	if err := g.Set(7); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if g.Value() != 7 {
		t.Errorf("Value: got %v, want 7", g.Value())
	}
	if g.Updates() != 1 {
		t.Errorf("Updates: got %d, want 1", g.Updates())
	}
	if got := testutil.ToFloat64(g.gauge); got != 7 {
		t.Errorf("exported value: got %v, want 7", got)
	}
}

func TestNewGauges_DuplicateLeavesStoreUnchanged(t *testing.T) {
	store := NewStore()
	if _, err := store.NewGauge("a", "first"); err != nil {
		t.Fatalf("NewGauge() error = %v", err)
	}

	_, err := store.NewGauges(
		GaugeOpts{Name: "b", Help: "fresh"},
		GaugeOpts{Name: "a", Help: "collides"},
	)

	var dup *DuplicateNameError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateNameError, got %v", err)
	}
	if dup.Name != "a" || dup.Kind != "gauge" {
		t.Errorf("DuplicateNameError: got %+v", dup)
	}

	if names := store.Names(); len(names) != 1 || names[0] != "a" {
		t.Errorf("store mutated by failed NewGauges: %v", names)
	}
	if _, ok := store.Gauge("b"); ok {
		t.Error("gauge b should not exist after failed NewGauges")
	}
}

func TestNewGauges_DuplicateWithinCall(t *testing.T) {
	store := NewStore()

	_, err := store.NewGauges(GaugeOpts{Name: "x"}, GaugeOpts{Name: "x"})

	var dup *DuplicateNameError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateNameError, got %v", err)
	}
	if len(store.Names()) != 0 {
		t.Errorf("store should be empty, got %v", store.Names())
	}
}

func TestRemove_FreesName(t *testing.T) {
	store := NewStore()
	created, err := store.NewGauges(GaugeOpts{Name: "a"}, GaugeOpts{Name: "b"})
	if err != nil {
		t.Fatalf("NewGauges() error = %v", err)
	}

	store.Remove(created[0])

	if names := store.Names(); len(names) != 1 || names[0] != "b" {
		t.Errorf("names after Remove: got %v, want [b]", names)
	}
	if _, ok := store.Gauge("a"); ok {
		t.Error("gauge a should be gone after Remove")
	}
	count, err := testutil.GatherAndCount(store.Gatherer(), "a")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("gauge a still gathered: got %d series", count)
	}
	if _, err := store.NewGauge("a", "again"); err != nil {
		t.Errorf("NewGauge after Remove: %v", err)
	}
}

func TestRemove_IgnoresStaleGauge(t *testing.T) {
	store := NewStore()
	stale, _ := store.NewGauge("a", "first")
	store.Remove(stale)
	current, _ := store.NewGauge("a", "second")

	store.Remove(stale, nil)

	if g, ok := store.Gauge("a"); !ok || g != current {
		t.Error("Remove of a stale gauge must not drop the current one")
	}
}

func TestGaugeSet_RejectsNonFinite(t *testing.T) {
	store := NewStore()
	g, _ := store.NewGauge("mock_system_cpu_percent", "cpu")
	_ = g.Set(42)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := g.Set(v); !errors.Is(err, ErrNonFinite) {
			t.Errorf("Set(%v): got %v, want ErrNonFinite", v, err)
		}
	}

	if g.Value() != 42 {
		t.Errorf("Value after rejected sets: got %v, want 42", g.Value())
	}
	if g.Updates() != 1 {
		t.Errorf("Updates: got %d, want 1", g.Updates())
	}
}

func TestHandler_ServesGauges(t *testing.T) {
	store := NewStore()
	g, _ := store.NewGauge("aws_ec2_running_instances", "Total number of running EC2 instances")
	_ = g.Set(3)

	srv := httptest.NewServer(store.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "aws_ec2_running_instances 3") {
		t.Errorf("exposition missing gauge, got:\n%s", body)
	}
	if !strings.Contains(string(body), "# HELP aws_ec2_running_instances Total number of running EC2 instances") {
		t.Errorf("exposition missing help text, got:\n%s", body)
	}
}
