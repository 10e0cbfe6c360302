package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestLabels_MatchLabelNames(t *testing.T) {
	labels := Labels()
	if len(labels) != len(LabelNames) {
		t.Fatalf("Labels() has %d entries, want %d", len(labels), len(LabelNames))
	}
	for _, name := range LabelNames {
		if _, ok := labels[name]; !ok {
			t.Errorf("Labels() missing %q", name)
		}
	}
	if labels["go_version"] != runtime.Version() {
		t.Errorf("go_version: got %q, want %q", labels["go_version"], runtime.Version())
	}
}

func TestString(t *testing.T) {
	s := String()
	for _, want := range []string{Version, GitCommit, runtime.GOOS} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, should contain %q", s, want)
		}
	}
}
