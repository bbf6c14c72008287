package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"webdetect/internal/config"
	"webdetect/internal/dto"
	"webdetect/internal/logger"
	"webdetect/internal/middleware"
	"webdetect/internal/models"
	"webdetect/internal/services/ai"
	"webdetect/internal/services/imagedata"
)

type stubDetector struct {
	loaded bool
}

func (s stubDetector) DetectObjects(img image.Image) ([]models.Detection, error) {
	if !s.loaded {
		return nil, ai.ErrModelNotLoaded
	}
	return []models.Detection{{BBox: models.BoundingBox{1, 2, 3, 4}, Class: "cat", Score: 0.5}}, nil
}

func (s stubDetector) Available() bool     { return s.loaded }
func (s stubDetector) BackendName() string { return "stub" }

func detectPayload(t *testing.T) []byte {
	t.Helper()
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	body, err := json.Marshal(dto.DetectRequest{Image: mustJSON(t, imagedata.EncodeDataURL("image/png", img.Bytes()))})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	return body
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal %v: %v", v, err)
	}
	return data
}

const testAdminToken = "s3cret-token"

func setupRouterWithToken(t *testing.T, loaded bool, token string) (http.Handler, *logger.Logger) {
	t.Helper()
	cfg := &config.Config{LogDirectory: t.TempDir(), MaxBodyBytes: 1 << 20, AdminToken: token}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(log.Close)
	return SetupRoutes(stubDetector{loaded: loaded}, nil, nil, nil, cfg, log), log
}

func setupRouter(t *testing.T, loaded bool) http.Handler {
	t.Helper()
	router, _ := setupRouterWithToken(t, loaded, testAdminToken)
	return router
}

// ========================================
// Routing Tests
// ========================================

func TestSetupRoutes(t *testing.T) {
	router := setupRouter(t, true)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/static/app.js", http.StatusOK},
		{http.MethodGet, "/static/style.css", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/detect", http.StatusMethodNotAllowed},
		{http.MethodOptions, "/detect", http.StatusOK},
		{http.MethodGet, "/api/history", http.StatusNotFound},
		{http.MethodGet, "/api/history/stats", http.StatusNotFound},
		{http.MethodGet, "/logs/info", http.StatusOK},
		{http.MethodPost, "/logs/warning/clear", http.StatusNoContent},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(tt.method, tt.path, nil)
		req.Header.Set("Authorization", "Bearer "+testAdminToken)
		router.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.status, rec.Code)
		}
	}
}

func TestSetupRoutes_Detect(t *testing.T) {
	router := setupRouter(t, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/detect", bytes.NewReader(detectPayload(t))))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS headers on API responses")
	}

	var got []models.Detection
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(got) != 1 || got[0].Class != "cat" {
		t.Errorf("Unexpected detections %+v", got)
	}
}

func TestSetupRoutes_HealthWithoutModel(t *testing.T) {
	router := setupRouter(t, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp dto.HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if rec.Code != http.StatusOK || resp.ModelLoaded {
		t.Errorf("Expected 200 with model_loaded=false, got %d %+v", rec.Code, resp)
	}

	home := httptest.NewRecorder()
	router.ServeHTTP(home, httptest.NewRequest(http.MethodGet, "/", nil))
	if home.Code != http.StatusOK || !strings.Contains(home.Body.String(), "<html") {
		t.Errorf("Expected the front end without a model, got %d", home.Code)
	}
}

// ========================================
// Operator Endpoint Tests
// ========================================

type failingDetector struct{ stubDetector }

func (failingDetector) DetectObjects(img image.Image) ([]models.Detection, error) {
	return nil, errors.New("tensor mismatch: INTERNAL_DETAIL")
}

func TestSetupRoutes_OperatorEndpointsRequireToken(t *testing.T) {
	cfg := &config.Config{LogDirectory: t.TempDir(), MaxBodyBytes: 1 << 20, AdminToken: testAdminToken}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(log.Close)
	router := SetupRoutes(failingDetector{stubDetector{loaded: true}}, nil, nil, nil, cfg, log)

	// Put an internal error detail into the error log.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/detect", bytes.NewReader(detectPayload(t))))
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "INTERNAL_DETAIL") {
		t.Fatalf("Expected generic 500, got %d %s", rec.Code, rec.Body.String())
	}

	tests := []struct {
		name   string
		auth   string
		cookie string
		status int
	}{
		{"anonymous", "", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", "", http.StatusUnauthorized},
		{"not bearer", "Basic " + testAdminToken, "", http.StatusUnauthorized},
		{"bearer token", "Bearer " + testAdminToken, "", http.StatusOK},
		{"cookie", "", testAdminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/logs/error", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: middleware.AdminCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, rec.Code)
			}
			leaked := strings.Contains(rec.Body.String(), "INTERNAL_DETAIL")
			if tt.status != http.StatusOK && leaked {
				t.Error("Error log served to an unauthenticated client")
			}
			if tt.status == http.StatusOK && !leaked {
				t.Errorf("Expected the error log for the operator, got %q", rec.Body.String())
			}
		})
	}

	// Clearing needs the token too.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logs/error/clear", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected anonymous clear to be refused, got %d", rec.Code)
	}
}

func TestSetupRoutes_OperatorEndpointsDisabledWithoutToken(t *testing.T) {
	router, _ := setupRouterWithToken(t, true, "")

	for _, path := range []string{"/logs/info", "/logs/error", "/api/history", "/api/history/stats"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer ")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("%s: expected status 403, got %d", path, rec.Code)
		}
	}

	// Detection and the front end stay public.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected /health to stay public, got %d", rec.Code)
	}
}
