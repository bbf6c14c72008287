package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"webdetect/internal/config"
	"webdetect/internal/handlers"
	"webdetect/internal/logger"
	"webdetect/internal/repository"
	"webdetect/internal/repository/sqlite"
	"webdetect/internal/routes"
	"webdetect/internal/services/ai"
	"webdetect/internal/services/ai/onnx"
	"webdetect/internal/services/ai/opencv"
	"webdetect/internal/services/storage"
	"webdetect/internal/services/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config          *config.Config
	logger          *logger.Logger
	detectorService *ai.DetectorService
	historyDB       *sqlite.DB
	historyRepo     *sqlite.RequestLogRepository
	bufferService   *storage.BufferService
	hubService      *websocket.HubService
	server          *http.Server
}

// NewApp loads the configuration, the model and the optional history store.
// A model that fails to load leaves the app running in degraded mode.
func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	open, err := backendOpener(cfg)
	if err != nil {
		log.Close()
		return nil, err
	}
	detector := ai.NewDetectorService(cfg, log, open)

	a := &App{
		config:          cfg,
		logger:          log,
		detectorService: detector,
	}

	if cfg.HistoryDBPath != "" {
		if err := a.openHistory(); err != nil {
			// History is optional; detection keeps working without it.
			log.Warning("Request history disabled: %v", err)
		}
	}

	var recorder handlers.HistoryRecorder
	var repo repository.RequestLogRepository
	if a.bufferService != nil {
		recorder = a.bufferService
		repo = a.historyRepo
	}

	a.hubService = websocket.NewHubService(log)

	router := routes.SetupRoutes(detector, recorder, repo, a.hubService, cfg, log)
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown does not track hijacked connections.
	a.server.RegisterOnShutdown(a.hubService.CloseAll)

	return a, nil
}

// backendOpener picks the inference backend named in the config.
func backendOpener(cfg *config.Config) (ai.OpenFunc, error) {
	switch cfg.ModelBackend {
	case config.BackendOpenCV:
		return opencv.Open, nil
	case config.BackendOnnxRuntime:
		return onnx.Opener(cfg.OnnxRuntimeLibrary, cfg.InputSize), nil
	default:
		return nil, fmt.Errorf("unknown model backend %q (want %q or %q)",
			cfg.ModelBackend, config.BackendOpenCV, config.BackendOnnxRuntime)
	}
}

func (a *App) openHistory() error {
	if err := os.MkdirAll(filepath.Dir(a.config.HistoryDBPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlite.New(a.config.HistoryDBPath)
	if err != nil {
		return err
	}

	a.historyDB = db
	a.historyRepo = sqlite.NewRequestLogRepository(db)
	a.bufferService = storage.NewBufferService(a.historyRepo, a.config.HistoryBufferLimit, a.logger)
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a.bufferService != nil {
		go a.bufferService.Run(a.config.HistoryFlushInterval)
	}

	fmt.Printf("🚀 Object Detection Server\n")
	fmt.Printf("📍 URL: http://%s\n", a.server.Addr)
	fmt.Printf("🤖 AI Model: %s (%s)\n", a.config.ModelPath, a.config.ModelBackend)
	if !a.detectorService.Available() {
		fmt.Printf("⚠️  Model not loaded: %v\n", a.detectorService.LoadError())
	}
	if a.historyDB != nil {
		fmt.Printf("🗄️  History: %s\n", a.config.HistoryDBPath)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		a.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Error during shutdown: %v", err)
		}
		a.hubService.CloseAll()
		if err := a.hubService.Wait(shutdownCtx); err != nil {
			a.logger.Warning("Websocket clients still open at shutdown: %v", err)
		}
	}

	a.close()
	return serveErr
}

// close releases the model, history and log files.
func (a *App) close() {
	if a.bufferService != nil {
		a.bufferService.Stop()
	}
	if a.historyDB != nil {
		if err := a.historyDB.Close(); err != nil {
			a.logger.Error("Error closing history database: %v", err)
		}
	}
	if err := a.detectorService.Close(); err != nil {
		a.logger.Error("Error releasing model: %v", err)
	}
	a.logger.Info("🛑 Server stopped")
	a.logger.Close()
}
