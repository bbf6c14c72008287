package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Host                 string
	Port                 int
	ModelPath            string
	ModelBackend         string // "opencv" albo "onnxruntime"
	LabelsPath           string
	OnnxRuntimeLibrary   string
	InputSize            int
	ConfidenceThreshold  float64
	IoUThreshold         float64
	MaxDetections        int
	StrictModelStatus    bool  // 503 zamiast 200 gdy model nie jest załadowany
	MaxBodyBytes         int64 // Maksymalny rozmiar body requestu /detect
	LogDirectory         string
	HistoryDBPath        string // Pusty = historia wyłączona
	HistoryBufferLimit   int
	HistoryFlushInterval int    // Sekundy
	AdminToken           string // Pusty = /logs i /api/history wyłączone
}

const (
	BackendOpenCV      = "opencv"
	BackendOnnxRuntime = "onnxruntime"
)

// Load reads an optional .env file and then the environment.
func Load() *Config {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	return &Config{
		Host:                 getEnv("HOST", "0.0.0.0"),
		Port:                 getEnvAsInt("PORT", 5000),
		ModelPath:            getEnv("MODEL_PATH", "best.onnx"),
		ModelBackend:         getEnv("MODEL_BACKEND", BackendOpenCV),
		LabelsPath:           getEnv("LABELS_PATH", ""),
		OnnxRuntimeLibrary:   getEnv("ONNXRUNTIME_LIB", ""),
		InputSize:            getEnvAsInt("INPUT_SIZE", 640),
		ConfidenceThreshold:  getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.25),
		IoUThreshold:         getEnvAsFloat("IOU_THRESHOLD", 0.7),
		MaxDetections:        getEnvAsInt("MAX_DETECTIONS", 300),
		StrictModelStatus:    getEnvAsBool("STRICT_MODEL_STATUS", false),
		MaxBodyBytes:         getEnvAsInt64("MAX_BODY_BYTES", 20<<20),
		LogDirectory:         getEnv("LOG_DIR", filepath.Join(".", "logs")),
		HistoryDBPath:        getEnvAllowEmpty("HISTORY_DB", filepath.Join(".", "data", "history.db")),
		HistoryBufferLimit:   getEnvAsInt("HISTORY_BUFFER_LIMIT", 100),
		HistoryFlushInterval: getEnvAsInt("HISTORY_FLUSH_INTERVAL", 5),
		AdminToken:           getEnv("ADMIN_TOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty keeps an explicitly empty value.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
