package models

import "time"

// Request sources.
const (
	SourceHTTP      = "http"
	SourceWebsocket = "websocket"
)

// RequestLog records the outcome of a single detection request.
type RequestLog struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
	Status     int       `json:"status"`
	Objects    int       `json:"objects"`
	Labels     []string  `json:"labels"`
	DurationMs int64     `json:"duration_ms"`
	Outcome    string    `json:"outcome"`
}

// HistoryStats contains aggregate numbers over the request history.
type HistoryStats struct {
	TotalRequests  int            `json:"total_requests"`
	FailedRequests int            `json:"failed_requests"`
	TotalObjects   int            `json:"total_objects"`
	AverageMs      float64        `json:"average_ms"`
	PerStatus      map[int]int    `json:"per_status"`
	ObjectCounts   map[string]int `json:"object_counts"`
}
