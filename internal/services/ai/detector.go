package ai

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"webdetect/internal/config"
	"webdetect/internal/logger"
	"webdetect/internal/models"
)

// ErrModelNotLoaded is returned by DetectObjects when the model failed to load
// at startup. It is distinct from an empty result, which means no objects.
var ErrModelNotLoaded = errors.New("model not loaded")

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// Output is the raw tensor produced by one forward pass.
type Output struct {
	Data  []float32
	Shape []int
}

// Backend runs a forward pass of a YOLOv8-style network on one image.
// Implementations may reuse buffers between calls; DetectorService
// serializes access.
type Backend interface {
	Name() string
	// InputSize reports the square input side baked into the model, or 0 if
	// the backend cannot tell.
	InputSize() int
	Forward(img image.Image, frame Frame) (Output, error)
	Close() error
}

// OpenFunc opens a backend for the model file at modelPath.
type OpenFunc func(modelPath string) (Backend, error)

// Options controls pre- and post-processing.
type Options struct {
	InputSize           int
	ConfidenceThreshold float64
	IoUThreshold        float64
	MaxDetections       int
	Labels              []string
}

// OptionsFromConfig builds Options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		InputSize:           cfg.InputSize,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		IoUThreshold:        cfg.IoUThreshold,
		MaxDetections:       cfg.MaxDetections,
		Labels:              COCOLabels,
	}
}

// DetectorService holds the single detection model of the process.
// stateMu guards backend for the status getters; inferMu serializes forward
// passes. Close holds both.
type DetectorService struct {
	backend   Backend
	opts      Options
	modelPath string
	loadErr   error
	stateMu   sync.RWMutex
	inferMu   sync.Mutex
	logger    *logger.Logger
}

// NewDetectorService loads the model described by config using open.
// A load failure does not abort startup: the failure is logged and the
// returned service reports ErrModelNotLoaded for every detection.
func NewDetectorService(config *config.Config, logger *logger.Logger, open OpenFunc) *DetectorService {
	service := &DetectorService{
		opts:      OptionsFromConfig(config),
		modelPath: config.ModelPath,
		logger:    logger,
	}

	if err := service.initializeModel(config.LabelsPath, open); err != nil {
		service.loadErr = err
		service.logger.Warning("Could not load detection model %s: %v", config.ModelPath, err)
		return service
	}

	return service
}

// initializeModel reads the labels and opens the backend.
func (s *DetectorService) initializeModel(labelsPath string, open OpenFunc) error {
	if labelsPath != "" {
		labels, err := LoadLabels(labelsPath)
		if err != nil {
			return err
		}
		s.opts.Labels = labels
	}

	if _, err := os.Stat(s.modelPath); err != nil {
		return fmt.Errorf("model file not found: %s: %w", s.modelPath, err)
	}

	if open == nil {
		return errors.New("no model backend configured")
	}

	backend, err := open(s.modelPath)
	if err != nil {
		return fmt.Errorf("failed to open model: %w", err)
	}

	if size := backend.InputSize(); size > 0 {
		s.opts.InputSize = size
	}
	if s.opts.InputSize <= 0 {
		backend.Close()
		return fmt.Errorf("invalid model input size %d", s.opts.InputSize)
	}

	s.backend = backend
	s.logger.Info("Detection model %s loaded (%s backend, input %dx%d, %d classes)",
		s.modelPath, backend.Name(), s.opts.InputSize, s.opts.InputSize, len(s.opts.Labels))
	return nil
}

// Available reports whether the model loaded successfully.
func (s *DetectorService) Available() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.backend != nil
}

// LoadError returns the reason the model is unavailable, or nil.
func (s *DetectorService) LoadError() error {
	return s.loadErr
}

// BackendName returns the name of the loaded backend, or "" if none.
func (s *DetectorService) BackendName() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.backend == nil {
		return ""
	}
	return s.backend.Name()
}

// DetectObjects runs the model on img and returns every detection whose score
// exceeds the confidence threshold, after non-maximum suppression.
func (s *DetectorService) DetectObjects(img image.Image) ([]models.Detection, error) {
	if !s.Available() {
		return nil, ErrModelNotLoaded
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, ErrEmptyImage
	}

	frame := NewFrame(bounds.Dx(), bounds.Dy(), s.opts.InputSize)

	s.inferMu.Lock()
	if s.backend == nil {
		// Closed while the request was in flight.
		s.inferMu.Unlock()
		return nil, ErrModelNotLoaded
	}
	output, err := s.backend.Forward(img, frame)
	s.inferMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	detections, err := DecodeYOLOv8(output, frame, s.opts)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Detected %d objects.", len(detections))
	return detections, nil
}

// Close waits for a running forward pass and releases the backend.
func (s *DetectorService) Close() error {
	s.inferMu.Lock()
	defer s.inferMu.Unlock()

	s.stateMu.Lock()
	backend := s.backend
	s.backend = nil
	s.stateMu.Unlock()

	if backend == nil {
		return nil
	}
	return backend.Close()
}
