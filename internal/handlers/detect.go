package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"
	"webdetect/internal/config"
	"webdetect/internal/dto"
	"webdetect/internal/logger"
	"webdetect/internal/models"
	"webdetect/internal/services/ai"
	"webdetect/internal/services/imagedata"
)

// Client-facing messages. Internal error details never appear in them.
const (
	MsgMethodRequired  = "POST method required."
	MsgMissingImage    = "Missing 'image' key in request."
	MsgDetectionFailed = "An error occurred during detection."
	MsgModelNotLoaded  = "Model not loaded"
	MsgBodyTooLarge    = "Request body too large."
)

// Outcomes stored in the request history.
const (
	OutcomeOK               = "ok"
	OutcomeMissingImage     = "missing_image"
	OutcomeInvalidBody      = "invalid_body"
	OutcomeMalformedDataURL = "malformed_data_url"
	OutcomeInvalidBase64    = "invalid_base64"
	OutcomeUndecodableImage = "undecodable_image"
	OutcomeModelNotLoaded   = "model_not_loaded"
	OutcomeInferenceError   = "inference_error"
	OutcomePanic            = "panic"
	OutcomeBodyTooLarge     = "body_too_large"
)

// ObjectDetector is the model host used by the detection endpoints.
type ObjectDetector interface {
	DetectObjects(img image.Image) ([]models.Detection, error)
}

// HistoryRecorder receives one entry per detection request.
type HistoryRecorder interface {
	Record(entry models.RequestLog)
}

// detectResult is the reply to one detection request.
type detectResult struct {
	status     int
	body       interface{}
	detections []models.Detection
	outcome    string
}

// DetectHandler handles POST /detect with a JSON body {"image": "<data URL>"}.
func DetectHandler(detector ObjectDetector, recorder HistoryRecorder, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, MsgMethodRequired, http.StatusMethodNotAllowed)
			return
		}

		start := time.Now()

		var result detectResult
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes))
		if err != nil {
			result = readErrorResult(err, logger)
		} else {
			result = runDetection(detector, cfg, logger, body)
		}

		respondJSON(w, result.body, result.status)
		record(recorder, models.SourceHTTP, start, result)
	}
}

func readErrorResult(err error, logger *logger.Logger) detectResult {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		logger.Warning("Detection request body exceeds %d bytes", maxBytesErr.Limit)
		return errorResult(http.StatusRequestEntityTooLarge, MsgBodyTooLarge, OutcomeBodyTooLarge)
	}
	logger.Error("Error reading detection request body: %v", err)
	return errorResult(http.StatusInternalServerError, MsgDetectionFailed, OutcomeInvalidBody)
}

// runDetection decodes the payload, runs the model and shapes the reply.
// A panic anywhere below is converted to the generic 500 reply.
func runDetection(detector ObjectDetector, cfg *config.Config, logger *logger.Logger, payload []byte) (result detectResult) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Panic during detection: %v", rec)
			result = errorResult(http.StatusInternalServerError, MsgDetectionFailed, OutcomePanic)
		}
	}()

	req, err := dto.ParseDetectRequest(payload)
	if err != nil {
		logger.Error("Error processing detection request: invalid JSON body: %v", err)
		return errorResult(http.StatusInternalServerError, MsgDetectionFailed, OutcomeInvalidBody)
	}

	if !req.HasImage() {
		return errorResult(http.StatusBadRequest, MsgMissingImage, OutcomeMissingImage)
	}

	var dataURL string
	if err := json.Unmarshal(req.Image, &dataURL); err != nil {
		logger.Error("Error processing detection request: 'image' is not a string: %v", err)
		return errorResult(http.StatusInternalServerError, MsgDetectionFailed, OutcomeInvalidBody)
	}

	img, format, err := imagedata.DecodeDataURL(dataURL)
	if err != nil {
		return decodeErrorResult(err, logger)
	}
	logger.Info("Decoded %s image %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())

	detections, err := detector.DetectObjects(img)
	switch {
	case errors.Is(err, ai.ErrModelNotLoaded):
		status := http.StatusOK
		if cfg.StrictModelStatus {
			status = http.StatusServiceUnavailable
		}
		return detectResult{
			status:  status,
			body:    []dto.ErrorResponse{{Error: MsgModelNotLoaded}},
			outcome: OutcomeModelNotLoaded,
		}
	case err != nil:
		logger.Error("Error processing detection request: inference failed: %v", err)
		return errorResult(http.StatusInternalServerError, MsgDetectionFailed, OutcomeInferenceError)
	}

	if detections == nil {
		detections = []models.Detection{}
	}
	return detectResult{
		status:     http.StatusOK,
		body:       detections,
		detections: detections,
		outcome:    OutcomeOK,
	}
}

func decodeErrorResult(err error, logger *logger.Logger) detectResult {
	outcome := OutcomeUndecodableImage
	switch {
	case errors.Is(err, imagedata.ErrMalformedDataURL):
		outcome = OutcomeMalformedDataURL
	case errors.Is(err, imagedata.ErrInvalidBase64):
		outcome = OutcomeInvalidBase64
	case errors.Is(err, imagedata.ErrUndecodableImage):
		outcome = OutcomeUndecodableImage
	}
	logger.Error("Error processing detection request (%s): %v", outcome, err)
	return errorResult(http.StatusInternalServerError, MsgDetectionFailed, outcome)
}

func errorResult(status int, message, outcome string) detectResult {
	return detectResult{
		status:  status,
		body:    dto.ErrorResponse{Error: message},
		outcome: outcome,
	}
}

func record(recorder HistoryRecorder, source string, start time.Time, result detectResult) {
	if recorder == nil {
		return
	}

	labels := make([]string, 0, len(result.detections))
	for _, d := range result.detections {
		labels = append(labels, d.Class)
	}

	recorder.Record(models.RequestLog{
		Timestamp:  start.UTC(),
		Source:     source,
		Status:     result.status,
		Objects:    len(result.detections),
		Labels:     labels,
		DurationMs: time.Since(start).Milliseconds(),
		Outcome:    result.outcome,
	})
}

// String is used in log lines.
func (r detectResult) String() string {
	return fmt.Sprintf("%d %s (%d objects)", r.status, r.outcome, len(r.detections))
}
