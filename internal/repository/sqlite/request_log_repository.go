package sqlite

import (
	"database/sql"
	"fmt"

	"webdetect/internal/models"
)

// RequestLogRepository implements repository.RequestLogRepository for SQLite.
type RequestLogRepository struct {
	db *DB
}

// NewRequestLogRepository creates a new SQLite request log repository.
func NewRequestLogRepository(db *DB) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

// Insert adds a single request record with its labels.
func (r *RequestLogRepository) Insert(entry *models.RequestLog) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := insertRequest(tx, entry)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit request: %w", err)
	}
	return id, nil
}

// InsertBatch adds multiple request records in a single transaction.
func (r *RequestLogRepository) InsertBatch(entries []models.RequestLog) error {
	if len(entries) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range entries {
		if _, err := insertRequest(tx, &entries[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertRequest(tx *sql.Tx, entry *models.RequestLog) (int64, error) {
	result, err := tx.Exec(`
		INSERT INTO requests (timestamp, source, status, objects, duration_ms, outcome)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.Timestamp, entry.Source, entry.Status, entry.Objects, entry.DurationMs, entry.Outcome)
	if err != nil {
		return 0, fmt.Errorf("failed to insert request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read request id: %w", err)
	}

	for _, label := range entry.Labels {
		if _, err := tx.Exec(`INSERT INTO request_labels (request_id, label) VALUES (?, ?)`, id, label); err != nil {
			return 0, fmt.Errorf("failed to insert label: %w", err)
		}
	}
	return id, nil
}

// GetRecent retrieves the newest request records, newest first.
func (r *RequestLogRepository) GetRecent(limit int) ([]models.RequestLog, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, timestamp, source, status, objects, duration_ms, outcome
		FROM requests ORDER BY timestamp DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}

	var entries []models.RequestLog
	for rows.Next() {
		var e models.RequestLog
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Source, &e.Status, &e.Objects, &e.DurationMs, &e.Outcome); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate requests: %w", err)
	}
	// Single connection: rows must be closed before the next query.
	rows.Close()

	for i := range entries {
		labels, err := r.labelsByRequestID(entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Labels = labels
	}

	return entries, nil
}

// labelsByRequestID expects the caller to hold the lock.
func (r *RequestLogRepository) labelsByRequestID(requestID int64) ([]string, error) {
	rows, err := r.db.Conn().Query(`
		SELECT label FROM request_labels WHERE request_id = ? ORDER BY id
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// GetStats returns aggregate numbers over all stored requests.
func (r *RequestLogRepository) GetStats() (*models.HistoryStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &models.HistoryStats{
		PerStatus:    make(map[int]int),
		ObjectCounts: make(map[string]int),
	}

	err := r.db.Conn().QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(objects), 0), COALESCE(AVG(duration_ms), 0)
		FROM requests
	`).Scan(&stats.TotalRequests, &stats.TotalObjects, &stats.AverageMs)
	if err != nil {
		return nil, fmt.Errorf("failed to get totals: %w", err)
	}

	rows, err := r.db.Conn().Query(`SELECT status, COUNT(*) FROM requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to get status counts: %w", err)
	}
	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.PerStatus[status] = count
		if status != 200 {
			stats.FailedRequests += count
		}
	}
	rows.Close()

	rows, err = r.db.Conn().Query(`SELECT label, COUNT(*) FROM request_labels GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to get object counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan object count: %w", err)
		}
		stats.ObjectCounts[label] = count
	}

	return stats, rows.Err()
}

// DeleteAll removes every request record.
func (r *RequestLogRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM requests`); err != nil {
		return fmt.Errorf("failed to delete requests: %w", err)
	}
	return nil
}
