package routes

import (
	"net/http"
	"webdetect/internal/config"
	"webdetect/internal/handlers"
	"webdetect/internal/logger"
	"webdetect/internal/middleware"
	"webdetect/internal/repository"
	"webdetect/web"
)

// Detector is what the routes need from the model host.
type Detector interface {
	handlers.ObjectDetector
	handlers.ModelStatus
}

// SetupRoutes registers the front end, the detection API, history and log
// endpoints, and wraps the mux with recovery, logging and CORS middleware.
// recorder and historyRepo may be nil when history is disabled; hub may be nil
// when websockets need not be tracked.
func SetupRoutes(detector Detector, recorder handlers.HistoryRecorder, historyRepo repository.RequestLogRepository,
	hub handlers.ConnectionTracker, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	static := web.Static()

	// Front end
	mux.Handle("/static/", handlers.StaticHandler(static))

	// Detection API
	mux.HandleFunc("/detect", handlers.DetectHandler(detector, recorder, cfg, logger))
	mux.HandleFunc("/ws/detect", handlers.DetectWebsocketHandler(detector, recorder, hub, cfg, logger))
	mux.HandleFunc("/health", handlers.HealthHandler(detector))

	// Operator endpoints, token protected
	operator := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(cfg.AdminToken, h)
	}

	// History endpoints
	mux.Handle("/api/history", operator(handlers.GetHistoryHandler(historyRepo, logger)))
	mux.Handle("/api/history/stats", operator(handlers.GetStatsHandler(historyRepo, logger)))

	// Log endpoints
	for level, file := range logger.Files() {
		mux.Handle("/logs/"+level, operator(handlers.ShowLogsHandler(logger, file)))
		mux.Handle("/logs/"+level+"/clear", operator(handlers.ClearLogsHandler(logger, file)))
	}

	// "/" -> index.html, /name -> name.html
	mux.HandleFunc("/", handlers.HomeHandler(static))

	var handler http.Handler = mux
	handler = middleware.RecoveryMiddleware(logger, handler)
	handler = middleware.LoggingMiddleware(logger, handler)
	return middleware.CORSMiddleware(handler)
}
