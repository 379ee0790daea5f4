package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mgoubin/screendrop/internal/cleanup"
	"github.com/mgoubin/screendrop/internal/config"
	"github.com/mgoubin/screendrop/internal/database"
	"github.com/mgoubin/screendrop/internal/handlers"
	"github.com/mgoubin/screendrop/internal/middleware"
	"github.com/mgoubin/screendrop/internal/storage"
	"github.com/mgoubin/screendrop/internal/storage/local"
	"github.com/mgoubin/screendrop/internal/storage/s3"
)

func main() {
	// A .env file is optional, real env vars win either way
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("starting screendrop",
		"port", cfg.Port,
		"upload_dir", cfg.UploadDir,
		"expiry_days", cfg.ExpiryDays,
		"s3_enabled", cfg.UseS3Storage,
	)

	db, err := database.Initialize(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("database initialized", "path", cfg.DBPath)

	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		slog.Error("failed to create upload directory", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var backend storage.Backend
	if cfg.UseS3Storage {
		backend, err = s3.NewS3Storage(ctx, s3.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			PathStyle:       cfg.S3PathStyle,
		})
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
	} else {
		backend = local.NewLocalStorage()
	}

	mux := http.NewServeMux()
	userAuth := middleware.UserAuth(db)

	prefix := cfg.APIPrefix

	mux.HandleFunc(prefix+"/upload", func(w http.ResponseWriter, r *http.Request) {
		userAuth(handlers.UploadChunkHandler(db, cfg, backend)).ServeHTTP(w, r)
	})

	// Token-addressed serving is public, the token is the credential
	mux.HandleFunc(prefix+"/download/", handlers.DownloadHandler(db, cfg, backend))
	mux.HandleFunc(prefix+"/view/", handlers.ViewHandler(db, cfg, backend))

	mux.HandleFunc(prefix+"/files", func(w http.ResponseWriter, r *http.Request) {
		userAuth(handlers.ListFilesHandler(db, cfg)).ServeHTTP(w, r)
	})

	mux.HandleFunc(prefix+"/files/", func(w http.ResponseWriter, r *http.Request) {
		var h http.Handler
		if r.Method == http.MethodPost {
			h = handlers.ToggleExpirationHandler(db, cfg)
		} else {
			h = handlers.DeleteFileHandler(db, cfg, backend)
		}
		userAuth(h).ServeHTTP(w, r)
	})

	mux.HandleFunc(prefix+"/storage-info", func(w http.ResponseWriter, r *http.Request) {
		userAuth(handlers.StorageInfoHandler(db)).ServeHTTP(w, r)
	})

	mux.HandleFunc(prefix+"/cron-jobs", handlers.CronHandler(db, cfg, backend))
	mux.HandleFunc("/health", handlers.HealthHandler(db))
	mux.Handle("/metrics", promhttp.Handler())

	handler := middleware.RecoveryMiddleware(
		middleware.LoggingMiddleware(mux),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go cleanup.StartCleanupWorker(ctx, db, backend, cfg.UploadDir, cfg.CleanupIntervalMinutes, cfg.StagingMaxAgeHours)

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "address", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		slog.Error("server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		slog.Info("shutdown signal received", "signal", sig)

		cancel()

		// Give outstanding requests 10 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				slog.Error("server close failed", "error", err)
			}
			os.Exit(1)
		}

		slog.Info("server shutdown complete")
	}
}
