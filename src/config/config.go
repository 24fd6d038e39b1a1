package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port     string
	LogLevel string

	// Upload limits. A single configured ceiling applies to every upload
	// entry point; do not duplicate per-handler constants.
	MaxUploadSizeBytes int64
	AllowedUploadTypes []string
	UploadConcurrency  int64

	// Object storage collaborator.
	StorageEndpoint string
	StorageBucket   string
	StorageFolder   string
	StorageRegion   string
	StorageAPIKey   string

	// Report backend collaborator.
	GraphQLEndpoint string
	GraphQLAPIKey   string

	// How long to wait before promoting a stored file from processing to
	// success when the backend offers no completion signal.
	ProcessingDelay time.Duration

	ReportCacheExpiry  time.Duration
	ReportCacheCleanup time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	uploadConcurrency := int64(getEnvAsInt("UPLOAD_CONCURRENCY", 4))
	if uploadConcurrency < 1 {
		log.Printf("WARNING: UPLOAD_CONCURRENCY must be at least 1, got %d. Using 1.", uploadConcurrency)
		uploadConcurrency = 1
	}

	allowedTypesStr := getEnv("ALLOWED_UPLOAD_TYPES",
		"application/pdf,application/json,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/vnd.ms-excel,text/csv")
	allowedTypes := strings.Split(allowedTypesStr, ",")
	for i := range allowedTypes {
		allowedTypes[i] = strings.TrimSpace(strings.ToLower(allowedTypes[i]))
	}

	Cfg = &AppConfig{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MaxUploadSizeBytes: maxUploadSizeBytes,
		AllowedUploadTypes: allowedTypes,
		UploadConcurrency:  uploadConcurrency,

		StorageEndpoint: getEnv("STORAGE_ENDPOINT", ""),
		StorageBucket:   getEnv("STORAGE_BUCKET", ""),
		StorageFolder:   getEnv("STORAGE_FOLDER", "financial-statements"),
		StorageRegion:   getEnv("STORAGE_REGION", "af-south-1"),
		StorageAPIKey:   getEnv("STORAGE_API_KEY", ""),

		GraphQLEndpoint: getEnv("GRAPHQL_ENDPOINT", ""),
		GraphQLAPIKey:   getEnv("GRAPHQL_API_KEY", ""),

		ProcessingDelay: getEnvAsDuration("PROCESSING_DELAY", 2*time.Second),

		ReportCacheExpiry:  getEnvAsDuration("REPORT_CACHE_EXPIRY", 15*time.Minute),
		ReportCacheCleanup: getEnvAsDuration("REPORT_CACHE_CLEANUP", 30*time.Minute),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, MaxUploadSizeBytes=%d, UploadConcurrency=%d",
		Cfg.Port, Cfg.LogLevel, Cfg.MaxUploadSizeBytes, Cfg.UploadConcurrency)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
