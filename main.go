package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/RendaniXcode/moneypro/src/config"
	"github.com/RendaniXcode/moneypro/src/graphql"
	"github.com/RendaniXcode/moneypro/src/handlers"
	"github.com/RendaniXcode/moneypro/src/logger"
	"github.com/RendaniXcode/moneypro/src/services"
	"github.com/RendaniXcode/moneypro/src/storage"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("MoneyPro reporting server starting...")

	logger.L.Info("Initializing report cache...")
	reportCache := cache.New(config.Cfg.ReportCacheExpiry, config.Cfg.ReportCacheCleanup)
	logger.L.Info("Report cache initialized.")

	logger.L.Info("Initializing collaborator clients...")
	backend := graphql.NewHTTPClient(config.Cfg.GraphQLEndpoint, config.Cfg.GraphQLAPIKey)
	store := storage.NewHTTPStore(
		config.Cfg.StorageEndpoint,
		config.Cfg.StorageBucket,
		config.Cfg.StorageRegion,
		config.Cfg.StorageAPIKey,
	)

	logger.L.Info("Initializing services and handlers...")
	reportService := services.NewReportService(backend, reportCache)
	uploadService := services.NewUploadService(
		store,
		config.Cfg.MaxUploadSizeBytes,
		config.Cfg.AllowedUploadTypes,
		config.Cfg.StorageFolder,
		config.Cfg.UploadConcurrency,
		config.Cfg.ProcessingDelay,
	)

	uploadHandler := handlers.NewUploadHandler(uploadService)
	reportHandler := handlers.NewReportHandler(reportService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/upload", uploadHandler.HandleUpload)
	apiRouter.HandleFunc("GET /api/upload/files", uploadHandler.HandleListFiles)
	apiRouter.HandleFunc("DELETE /api/upload/files/{id}", uploadHandler.HandleRemoveFile)
	apiRouter.HandleFunc("POST /api/upload/reset", uploadHandler.HandleResetSession)

	apiRouter.HandleFunc("GET /api/reports", reportHandler.HandleGetReport)
	apiRouter.HandleFunc("GET /api/reports/list", reportHandler.HandleListReports)
	apiRouter.HandleFunc("POST /api/reports", reportHandler.HandleCreateReport)
	apiRouter.HandleFunc("PUT /api/reports", reportHandler.HandleUpdateReport)
	apiRouter.HandleFunc("DELETE /api/reports", reportHandler.HandleDeleteReport)
	apiRouter.HandleFunc("GET /api/companies", reportHandler.HandleListCompanies)
	apiRouter.HandleFunc("GET /api/analytics/ratio-summary", reportHandler.HandleRatioSummary)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "MoneyPro reporting backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  5 * time.Minute, // uploads can be slow on poor links
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
