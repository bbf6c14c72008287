package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"webdetect/internal/config"
	"webdetect/internal/logger"
	"webdetect/internal/models"
	"webdetect/internal/services/imagedata"
)

// ========================================
// Test Setup Helpers
// ========================================

type fakeDetector struct {
	detections []models.Detection
	err        error
	panicWith  interface{}
	calls      int
	lastSize   image.Point
}

func (f *fakeDetector) DetectObjects(img image.Image) ([]models.Detection, error) {
	f.calls++
	f.lastSize = img.Bounds().Size()
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.detections, f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []models.RequestLog
}

func (f *fakeRecorder) Record(entry models.RequestLog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

func (f *fakeRecorder) Entries() []models.RequestLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RequestLog(nil), f.entries...)
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(log.Close)
	return log
}

func testConfig() *config.Config {
	return &config.Config{
		MaxBodyBytes: 1 << 20,
	}
}

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return imagedata.EncodeDataURL("image/png", buf.Bytes())
}

func detectBody(t *testing.T, dataURL string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]string{"image": dataURL})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	return body
}

func sampleDetections() []models.Detection {
	return []models.Detection{
		{BBox: models.BoundingBox{10, 20, 30, 40}, Class: "person", Score: 0.91},
		{BBox: models.BoundingBox{100, 50, 60, 25}, Class: "car", Score: 0.42},
	}
}
