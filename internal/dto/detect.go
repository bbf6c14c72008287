package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"webdetect/internal/models"
)

// ErrNotAnObject is returned for bodies that are valid JSON but cannot hold
// keys at all (null, numbers, booleans).
var ErrNotAnObject = errors.New("request body is not a JSON object")

// DetectRequest is the body of POST /detect and of every websocket frame.
// Image stays raw so a missing key can be told apart from a non-string value.
type DetectRequest struct {
	Image json.RawMessage `json:"image"`
}

// HasImage reports whether the "image" key was present.
func (r DetectRequest) HasImage() bool {
	return len(r.Image) > 0
}

// ParseDetectRequest decodes payload and looks the "image" key up by its
// exact name. Arrays and strings are accepted but never carry the key.
func ParseDetectRequest(payload []byte) (DetectRequest, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return DetectRequest{}, err
	}

	raw = bytes.TrimSpace(raw)
	switch raw[0] {
	case '{':
		// Struct decoding would also match "Image" or "IMAGE".
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return DetectRequest{}, err
		}
		return DetectRequest{Image: fields["image"]}, nil
	case '[', '"':
		return DetectRequest{}, nil
	default:
		return DetectRequest{}, ErrNotAnObject
	}
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Backend     string `json:"backend,omitempty"`
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Entries []models.RequestLog `json:"entries"`
	Limit   int                 `json:"limit"`
}
