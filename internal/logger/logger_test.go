package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"webdetect/internal/config"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := NewLogger(&config.Config{LogDirectory: filepath.Join(t.TempDir(), "logs")})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	t.Cleanup(l.Close)
	return l
}

func readLog(t *testing.T, l *Logger, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(l.Dir(), name))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestNewLogger_CreatesFiles(t *testing.T) {
	l := newTestLogger(t)

	for level, name := range l.Files() {
		if _, err := os.Stat(filepath.Join(l.Dir(), name)); err != nil {
			t.Errorf("Expected %s log file %s: %v", level, name, err)
		}
	}
}

func TestLogger_LevelsGoToTheirFiles(t *testing.T) {
	l := newTestLogger(t)

	l.Info("model loaded from %s", "best.onnx")
	l.Warning("model missing")
	l.Error("inference failed: %d", 42)

	if got := readLog(t, l, InfoFile); !strings.Contains(got, "model loaded from best.onnx") {
		t.Errorf("Unexpected info log %q", got)
	}
	if got := readLog(t, l, WarningFile); !strings.Contains(got, "model missing") || strings.Contains(got, "best.onnx") {
		t.Errorf("Unexpected warning log %q", got)
	}
	if got := readLog(t, l, ErrorFile); !strings.Contains(got, "inference failed: 42") {
		t.Errorf("Unexpected error log %q", got)
	}
}

func TestLogger_ReportsCallerFile(t *testing.T) {
	l := newTestLogger(t)
	l.Info("where am I")

	if got := readLog(t, l, InfoFile); !strings.Contains(got, "logger_test.go") {
		t.Errorf("Expected caller file in log line, got %q", got)
	}
}

func TestLogger_CleanLogs(t *testing.T) {
	l := newTestLogger(t)
	l.Warning("old warning")

	if err := l.CleanLogs(WarningFile); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}
	if got := readLog(t, l, WarningFile); got != "" {
		t.Errorf("Expected empty warning log, got %q", got)
	}

	l.Warning("new warning")
	if got := readLog(t, l, WarningFile); !strings.Contains(got, "new warning") {
		t.Errorf("Expected logging to continue after clearing, got %q", got)
	}
}

func TestLogger_CleanLogsMissingFile(t *testing.T) {
	l := newTestLogger(t)

	if err := l.CleanLogs("debug.log"); err == nil {
		t.Error("Expected error for a missing log file")
	}
}
