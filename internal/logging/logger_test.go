package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(LevelWarn, &buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["severity"] != "WARN" {
		t.Errorf("first severity = %v, want WARN", entries[0]["severity"])
	}
	if entries[1]["message"] != "error message" {
		t.Errorf("second message = %v, want %q", entries[1]["message"], "error message")
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(LevelDebug, &buf)

	logger.Info("loaded catalog",
		WithField("category", "phone"),
		WithFields(map[string]interface{}{
			"count":  12,
			"source": "static",
		}),
	)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e["category"] != "phone" {
		t.Errorf("category = %v, want phone", e["category"])
	}
	if e["count"] != float64(12) {
		t.Errorf("count = %v, want 12", e["count"])
	}
	if e["source"] != "static" {
		t.Errorf("source = %v, want static", e["source"])
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(LevelInfo, &buf).With(WithField("component", "chat"))

	logger.Info("message sent")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["component"] != "chat" {
		t.Errorf("expected component field on child logger, got %v", entries)
	}
}
