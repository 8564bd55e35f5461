package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func parseEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}
	return entry
}

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, slog.LevelInfo)

	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	l.Info("test message", slog.String("key", "value"))

	entry := parseEntry(t, &buf)
	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
	if entry["service"] != ServiceName {
		t.Errorf("service = %q, want %q", entry["service"], ServiceName)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in JSON log output")
	}
}

func TestSetup_IncludesLevelField(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, nil)

	l.Warn("warning test")

	entry := parseEntry(t, &buf)
	if entry["level"] != "WARN" {
		t.Errorf("level = %q, want %q", entry["level"], "WARN")
	}
}

func TestSetup_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, slog.LevelWarn)

	l.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info log written at warn level: %s", buf.String())
	}

	l.Error("kept")
	if buf.Len() == 0 {
		t.Error("error log not written")
	}
}

func TestSetup_MultipleAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, slog.LevelInfo)

	l.Info("startup created",
		slog.String("startup_id", "0123456789abcdef"),
		slog.String("owner", "alice"),
		slog.Int("fields", 2),
	)

	entry := parseEntry(t, &buf)
	if entry["startup_id"] != "0123456789abcdef" {
		t.Errorf("startup_id = %q", entry["startup_id"])
	}
	if entry["owner"] != "alice" {
		t.Errorf("owner = %q", entry["owner"])
	}
	if entry["fields"] != float64(2) {
		t.Errorf("fields = %v, want 2", entry["fields"])
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupDefault(&buf, slog.LevelInfo)

	slog.Default().Info("global test", slog.String("test_key", "test_val"))

	entry := parseEntry(t, &buf)
	if entry["msg"] != "global test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "global test")
	}
	if entry["test_key"] != "test_val" {
		t.Errorf("test_key = %q, want %q", entry["test_key"], "test_val")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
