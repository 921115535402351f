package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
		Level(99): "UNKNOWN",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
}

func TestNewWritesJSONLogFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{
		Level:      INFO,
		LogDir:     dir,
		EnableFile: true,
		EnableJSON: true,
		Component:  "nerve-test",
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer l.Close()

	l.Info("engine started")

	matches, err := filepath.Glob(filepath.Join(dir, "nerve-*.jsonl"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected exactly one jsonl file, got %v (err=%v)", matches, err)
	}

	raw, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	line := strings.TrimSpace(string(raw))
	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("Unmarshal() error = %v, line=%q", err, line)
	}
	if entry.Level != "INFO" {
		t.Errorf("entry.Level = %q, want INFO", entry.Level)
	}
	if entry.Message != "engine started" {
		t.Errorf("entry.Message = %q, want %q", entry.Message, "engine started")
	}
	if entry.Component != "nerve-test" {
		t.Errorf("entry.Component = %q, want nerve-test", entry.Component)
	}
}

func TestLoggerSuppressesBelowLevel(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{
		Level:      WARN,
		LogDir:     dir,
		EnableJSON: true,
		Component:  "nerve-test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer l.Close()

	l.Debug("should not appear")
	l.Info("should not appear either")
	l.Warn("should appear")

	matches, _ := filepath.Glob(filepath.Join(dir, "nerve-*.jsonl"))
	if len(matches) != 1 {
		t.Fatalf("expected one jsonl file, got %v", matches)
	}
	raw, _ := os.ReadFile(matches[0])
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line past the WARN floor, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "should appear") {
		t.Errorf("unexpected log line: %s", lines[0])
	}
}

func TestWithComponentPreservesFileHandles(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{Level: INFO, LogDir: dir, EnableJSON: true, Component: "base"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer l.Close()

	scoped := l.WithComponent("scorer")
	scoped.Info("scoped message")

	matches, _ := filepath.Glob(filepath.Join(dir, "nerve-*.jsonl"))
	raw, _ := os.ReadFile(matches[0])
	var entry LogEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &entry); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if entry.Component != "scorer" {
		t.Errorf("entry.Component = %q, want scorer", entry.Component)
	}
}

func TestWithFieldsExtractsKnownFields(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{Level: INFO, LogDir: dir, EnableJSON: true, Component: "base"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer l.Close()

	l.WithFields(Fields{"region": "francecentral", "duration_ms": 42.5}).Info("simulate completed")

	matches, _ := filepath.Glob(filepath.Join(dir, "nerve-*.jsonl"))
	raw, _ := os.ReadFile(matches[0])
	var entry LogEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &entry); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if entry.Region != "francecentral" {
		t.Errorf("entry.Region = %q, want francecentral", entry.Region)
	}
	if entry.DurationMs != 42.5 {
		t.Errorf("entry.DurationMs = %v, want 42.5", entry.DurationMs)
	}
}
