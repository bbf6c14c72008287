package repository

import (
	"webdetect/internal/models"
)

// RequestLogRepository defines the interface for request history operations.
type RequestLogRepository interface {
	// Create operations
	Insert(entry *models.RequestLog) (int64, error)
	InsertBatch(entries []models.RequestLog) error

	// Read operations
	GetRecent(limit int) ([]models.RequestLog, error)
	GetStats() (*models.HistoryStats, error)

	// Delete operations
	DeleteAll() error
}
