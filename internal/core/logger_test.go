package core

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Invalid log line %q: %v", line, err)
		}
		lines = append(lines, entry)
	}
	return lines
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", name, want, got)
		}
	}
}

func TestLoggerFeatureAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerOptions{Level: "debug", Format: "json", Writer: &buf})

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	logger.ForFeature("rss").WithContext(ctx).Info("Feed added", "feed_id", "1")
	logger.WithContext(context.Background()).Debug("No request")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}
	if lines[0]["feature"] != "rss" || lines[0]["request_id"] != "req-1" || lines[0]["feed_id"] != "1" {
		t.Errorf("Unexpected attributes: %v", lines[0])
	}
	if _, ok := lines[1]["request_id"]; ok {
		t.Errorf("Expected no request id without one in the context: %v", lines[1])
	}
}

func TestLoggerSetLevelAppliesToChildren(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerOptions{Level: "info", Format: "json", Writer: &buf})
	child := logger.ForFeature("rss").With("feed_id", "1")

	child.Debug("hidden")
	logger.SetLevel(slog.LevelDebug)
	child.Debug("shown")
	logger.LogFeatureEvent("rss", "restored", "feeds", 2)

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}
	if lines[0]["msg"] != "shown" {
		t.Errorf("Expected debug line after SetLevel, got %v", lines[0])
	}
	if lines[1]["event"] != "restored" || lines[1]["feature"] != "rss" {
		t.Errorf("Unexpected feature event: %v", lines[1])
	}
}
