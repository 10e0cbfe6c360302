package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriter_FiltersAndAddsFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf).WithFields("collector", "aws_cost")

	log.Info("dropped")
	log.Warn("kept", "kind", "timeout")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["level"] != "WARN" {
		t.Errorf("entry: got %v", entry)
	}
	if entry["collector"] != "aws_cost" || entry["kind"] != "timeout" {
		t.Errorf("fields: got %v", entry)
	}
}
