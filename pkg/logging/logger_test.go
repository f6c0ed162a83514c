package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{" Error ", slog.LevelError},
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tc := range cases {
		if got := ParseLevel(tc.level); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.level, got, tc.want)
		}
	}
}

func TestNewWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "info")

	logger.Info("booking stored", "booking_id", "cs_test_1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if record["msg"] != "booking stored" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["booking_id"] != "cs_test_1" {
		t.Errorf("booking_id = %v", record["booking_id"])
	}
}

func TestNewWriterLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "warn")

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("records below warn leaked: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestWithCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "info").With("component", "worker")

	logger.Info("tick")

	if !strings.Contains(buf.String(), `"component":"worker"`) {
		t.Errorf("attribute missing: %s", buf.String())
	}
}
