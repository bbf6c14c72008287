package handlers

import (
	"net/http"
	"strconv"
	"webdetect/internal/dto"
	"webdetect/internal/logger"
	"webdetect/internal/models"
	"webdetect/internal/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

const msgHistoryDisabled = "History is disabled."

// GetHistoryHandler lists the most recent detection requests, newest first.
// Query: ?limit=N (default 50, max 500).
func GetHistoryHandler(repo repository.RequestLogRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			respondError(w, msgHistoryDisabled, http.StatusNotFound)
			return
		}

		limit := atoiDefault(r.URL.Query().Get("limit"), defaultHistoryLimit)
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}

		entries, err := repo.GetRecent(limit)
		if err != nil {
			logger.Error("Error reading request history: %v", err)
			respondError(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []models.RequestLog{}
		}

		respondJSON(w, dto.HistoryResponse{Entries: entries, Limit: limit}, http.StatusOK)
	}
}

// GetStatsHandler returns aggregate request and per-class object counts.
func GetStatsHandler(repo repository.RequestLogRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			respondError(w, msgHistoryDisabled, http.StatusNotFound)
			return
		}

		stats, err := repo.GetStats()
		if err != nil {
			logger.Error("Error reading history stats: %v", err)
			respondError(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		respondJSON(w, stats, http.StatusOK)
	}
}

// atoiDefault parses a positive integer, returning def otherwise.
func atoiDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
