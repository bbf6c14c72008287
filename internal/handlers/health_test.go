package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"webdetect/internal/dto"
)

type fakeModelStatus struct {
	available bool
	backend   string
}

func (f fakeModelStatus) Available() bool     { return f.available }
func (f fakeModelStatus) BackendName() string { return f.backend }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		status fakeModelStatus
	}{
		{"loaded", fakeModelStatus{available: true, backend: "opencv"}},
		{"not loaded", fakeModelStatus{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			HealthHandler(tt.status)(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", rec.Code)
			}

			var resp dto.HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != "ok" {
				t.Errorf("Expected status ok, got %s", resp.Status)
			}
			if resp.ModelLoaded != tt.status.available || resp.Backend != tt.status.backend {
				t.Errorf("Unexpected response %+v", resp)
			}
		})
	}
}
