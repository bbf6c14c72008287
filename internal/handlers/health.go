package handlers

import (
	"net/http"
	"webdetect/internal/dto"
)

// ModelStatus reports the state of the model host.
type ModelStatus interface {
	Available() bool
	BackendName() string
}

// HealthHandler always answers 200; the body tells whether the model loaded.
func HealthHandler(model ModelStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, dto.HealthResponse{
			Status:      "ok",
			ModelLoaded: model.Available(),
			Backend:     model.BackendName(),
		}, http.StatusOK)
	}
}
