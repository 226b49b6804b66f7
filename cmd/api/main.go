package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/automaxprocs/maxprocs"

	"investtrack/internal/blob"
	"investtrack/internal/config"
	"investtrack/internal/csc"
	"investtrack/internal/database"
	"investtrack/internal/logger"
	"investtrack/internal/mail"
	"investtrack/internal/metrics"
	"investtrack/internal/server"
	"investtrack/internal/services"
	"investtrack/internal/telemetry"
	"investtrack/internal/tokenstore"
)

// @title           InvestTrack API
// @version         1.0
// @description     InvestTrack keeps track of broker and investor firms, their people, coverage calls, meetings and events.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	if _, err := maxprocs.Set(maxprocs.Logger(log.Infof)); err != nil {
		log.Warnf("failed to set GOMAXPROCS: %v", err)
	}

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, appConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Warnf("tracer shutdown error: %v", err)
		}
	}()

	// Create database manager
	dbManager, err := database.NewManager(appConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(database.DefaultMigrationsPath); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	db := dbManager.DB()

	var revoker tokenstore.Revoker = tokenstore.NewMemory()
	if appConfig.RedisURL != "" {
		if revoker, err = tokenstore.NewRedis(ctx, appConfig.RedisURL); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
	}
	defer revoker.Close()

	m := metrics.New()

	store, err := blob.New(ctx, appConfig, db)
	if err != nil {
		return fmt.Errorf("failed to open %s blob store: %w", appConfig.BlobBackend, err)
	}
	blobs := blob.WithMetrics(store, appConfig.BlobBackend, m)
	defer blobs.Close()

	dir, err := csc.Default()
	if err != nil {
		return fmt.Errorf("failed to load country directory: %w", err)
	}

	mailer, err := mail.New(appConfig)
	if err != nil {
		return fmt.Errorf("failed to configure mailer: %w", err)
	}

	router := server.NewRouter(server.Deps{
		Config:  appConfig,
		DB:      db,
		Blobs:   blobs,
		Revoker: revoker,
		Mailer:  mailer,
		Metrics: m,
		CSC:     dir,
	})

	go services.NewTokenPurger(db, appConfig.TokenPurgeInterval).Run(ctx)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting InvestTrack backend server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
