package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"webdetect/internal/logger"
)

func TestShowLogsHandler(t *testing.T) {
	log := newTestLogger(t)
	log.Info("hello from the test")

	rec := httptest.NewRecorder()
	ShowLogsHandler(log, logger.InfoFile)(rec, httptest.NewRequest(http.MethodGet, "/logs/info", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hello from the test") {
		t.Errorf("Expected log line in body, got %q", rec.Body.String())
	}
}

func TestShowLogsHandler_MissingFile(t *testing.T) {
	log := newTestLogger(t)

	rec := httptest.NewRecorder()
	ShowLogsHandler(log, "debug.log")(rec, httptest.NewRequest(http.MethodGet, "/logs/debug", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestClearLogsHandler(t *testing.T) {
	log := newTestLogger(t)
	log.Error("something broke")

	rec := httptest.NewRecorder()
	ClearLogsHandler(log, logger.ErrorFile)(rec, httptest.NewRequest(http.MethodPost, "/logs/error/clear", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rec.Code)
	}

	data, err := os.ReadFile(filepath.Join(log.Dir(), logger.ErrorFile))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected empty log file, got %q", data)
	}
}

func TestClearLogsHandler_MethodNotAllowed(t *testing.T) {
	log := newTestLogger(t)

	rec := httptest.NewRecorder()
	ClearLogsHandler(log, logger.ErrorFile)(rec, httptest.NewRequest(http.MethodGet, "/logs/error/clear", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}
