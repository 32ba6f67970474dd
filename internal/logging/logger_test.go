package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	t.Run("creates log file in directory", func(t *testing.T) {
		dir := t.TempDir()

		logger, err := NewLogger(dir, LevelDebug)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("log file was not created: %v", err)
		}
	})

	t.Run("writes to stderr when dir is empty", func(t *testing.T) {
		logger, err := NewLogger("", LevelInfo)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		if logger.file != nil {
			t.Error("expected no file when dir is empty")
		}
		if err := logger.Close(); err != nil {
			t.Errorf("Close on stderr logger returned %v", err)
		}
	})
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelWarn)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at WARN, got %d", len(entries))
	}
	if entries[0]["msg"] != "warn" || entries[1]["msg"] != "error" {
		t.Errorf("unexpected messages: %v, %v", entries[0]["msg"], entries[1]["msg"])
	}
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "loud")

	logger.Debug("hidden")
	logger.Info("shown")

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 1 || entries[0]["msg"] != "shown" {
		t.Fatalf("expected only the info entry, got %v", entries)
	}
}

func TestWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, LevelDebug)

	child := base.WithView("work-packages").WithComponent("guard")
	child.Info("registered", "rows", 3)
	base.Info("plain")

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first["view"] != "work-packages" {
		t.Errorf("view = %v, want work-packages", first["view"])
	}
	if first["component"] != "guard" {
		t.Errorf("component = %v, want guard", first["component"])
	}
	if first["rows"] != float64(3) {
		t.Errorf("rows = %v, want 3", first["rows"])
	}

	if _, ok := entries[1]["view"]; ok {
		t.Error("parent logger must not inherit child attributes")
	}
}

func TestWithIgnoresNonStringKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelInfo).With(42, "value", "ok", true)
	logger.Info("msg")

	entries := decodeLines(t, buf.Bytes())
	if entries[0]["ok"] != true {
		t.Errorf("expected ok attribute, got %v", entries[0])
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Error("discarded")
	if err := logger.Close(); err != nil {
		t.Errorf("Close returned %v", err)
	}
}

func TestValidLevels(t *testing.T) {
	levels := ValidLevels()
	if len(levels) != 4 {
		t.Fatalf("expected 4 levels, got %d", len(levels))
	}
}
