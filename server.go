package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careplanner/backend/internal/ai"
	"github.com/careplanner/backend/internal/audit"
	"github.com/careplanner/backend/internal/azure"
	"github.com/careplanner/backend/internal/chat"
	"github.com/careplanner/backend/internal/config"
	"github.com/careplanner/backend/internal/handler"
	"github.com/careplanner/backend/internal/metrics"
	"github.com/careplanner/backend/internal/middleware"
	"github.com/careplanner/backend/internal/pdf"
	"github.com/careplanner/backend/internal/service"
	"github.com/careplanner/backend/pkg/api"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func runServer(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	// Storage and domain store
	storage, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	careStore := openStore(ctx, cfg, storage, logger)

	// AI provider
	provider, err := ai.NewProvider(cfg, logger)
	if err != nil {
		return err
	}
	aiService := ai.NewService(provider, cfg.AI.RequestsPerMin, cfg.AI.Timeout, logger)

	transcript := chat.Open(ctx, storage, logger)
	chatSession := chat.NewSession(transcript, aiService, logger)

	// Audit trail
	auditor, closeAudit, err := audit.Open(ctx, cfg.Audit.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer closeAudit()

	// Reports are archived only when a report container is configured
	var reportBlobs azure.BlobStorage
	if cfg.Azure.Storage.ReportContainer != "" {
		client, err := newBlobClient(ctx, cfg, cfg.Azure.Storage.ReportContainer, logger)
		if err != nil {
			return err
		}
		reportBlobs = client
	}
	reportService := service.NewReportService(careStore, reportBlobs, pdf.NewPDFGenerator(logger), logger)

	apiHandler := &handler.APIHandler{
		System:       handler.NewSystemHandler(storage, cfg.Storage.Driver, aiService.ProviderName(), logger),
		Session:      handler.NewSessionHandler(careStore, auditor, logger),
		Patients:     handler.NewPatientHandler(careStore, aiService, auditor, logger),
		Appointments: handler.NewAppointmentHandler(careStore, auditor, time.Now, logger),
		Admin:        handler.NewAdminHandler(careStore, auditor, logger),
		Chat:         handler.NewChatHandler(chatSession, careStore, auditor, logger),
		Reports:      handler.NewReportHandler(reportService, auditor, logger),
	}

	doc, err := api.GetSwagger()
	if err != nil {
		return err
	}
	validator, err := middleware.OpenAPIValidator(doc, logger)
	if err != nil {
		return err
	}

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add recovery middleware (must be first)
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: !allowsAnyOrigin(cfg.Server.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.SessionMiddleware(careStore))
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))
	r.Use(middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst).Middleware(logger))
	r.Use(validator)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api.RegisterHandlers(r, apiHandler)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		logger.Error("Failed to start server", zap.Error(err))
		return err
	case <-quit:
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
