package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/hakconsole/internal/api"
	"github.com/timmy/hakconsole/internal/api/middleware"
	"github.com/timmy/hakconsole/internal/client"
	"github.com/timmy/hakconsole/internal/config"
	"github.com/timmy/hakconsole/internal/jobview"
	"github.com/timmy/hakconsole/internal/logger"
	"github.com/timmy/hakconsole/internal/repository"
	"github.com/timmy/hakconsole/internal/service"
	"github.com/timmy/hakconsole/internal/storage"
)

const sweepInterval = 10 * time.Minute

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	sessionRepo := repository.NewSessionRepository(db, cfg.Session.TTL)

	loc, err := cfg.Display.Location()
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid display timezone")
	}

	backend := client.New(&client.Config{
		BaseURL:   cfg.Backend.BaseURL,
		APIPrefix: cfg.Backend.APIPrefix,
		Timeout:   cfg.Backend.Timeout,
		UserAgent: cfg.Backend.UserAgent,
	})

	manager := service.NewConsoleManager(sessionRepo, backend, jobview.NewFormatter(loc), &service.ManagerConfig{
		SessionTTL: cfg.Session.TTL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Artifact archive (MinIO, R2, S3), optional
	var artifactStore storage.ArtifactStore
	if cfg.Storage.Enabled {
		s3Storage, err := storage.New(&cfg.Storage)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize storage")
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
		}
		artifactStore = s3Storage
		appLogger.WithField("bucket", cfg.Storage.Bucket).Info("Artifact archive enabled")
	}
	archive := service.NewArchiveService(artifactStore, &service.ArchiveConfig{Prefix: cfg.Storage.Prefix})

	router, err := api.SetupRouter(manager, archive, api.RouterConfig{
		Mode:     cfg.Server.Mode,
		PageSize: cfg.Display.PageSize,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		Session: middleware.SessionConfig{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.Secure,
		},
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to set up router")
	}

	go manager.Run(ctx, sweepInterval)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":    cfg.Server.Port,
			"mode":    cfg.Server.Mode,
			"backend": cfg.Backend.BaseURL,
		}).Info("Starting console server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
