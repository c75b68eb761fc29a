package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/facecam/internal/api"
	"github.com/saturnino-fabrica-de-software/facecam/internal/audit"
	"github.com/saturnino-fabrica-de-software/facecam/internal/camera"
	"github.com/saturnino-fabrica-de-software/facecam/internal/config"
	"github.com/saturnino-fabrica-de-software/facecam/internal/face"
	"github.com/saturnino-fabrica-de-software/facecam/internal/facedb"
	"github.com/saturnino-fabrica-de-software/facecam/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/facecam/internal/provider"
	"github.com/saturnino-fabrica-de-software/facecam/internal/service"
	"github.com/saturnino-fabrica-de-software/facecam/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting facecam",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.ProviderType),
		slog.String("detector", cfg.DetectorType),
		slog.String("camera", cfg.CameraDriver),
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Face database
	store, err := facedb.New(cfg.FaceDatabase, logger)
	if err != nil {
		return fmt.Errorf("failed to open face database: %w", err)
	}
	unlock, err := store.Lock()
	if err != nil {
		return fmt.Errorf("failed to lock face database: %w", err)
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Warn("failed to release database lock", slog.Any("error", err))
		}
	}()

	unknownStore, err := facedb.NewUnknownStore(cfg.UnknownDir, logger)
	if err != nil {
		return fmt.Errorf("failed to open unknown face store: %w", err)
	}

	// Providers
	extractor, err := face.NewExtractor(cfg)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}
	detector, err := face.NewDetector(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}

	rec, err := face.NewRecognizer(cfg, store, extractor, detector, logger)
	if err != nil {
		return fmt.Errorf("failed to create recognizer: %w", err)
	}

	// Warm the descriptor cache without holding up the listener
	go func() {
		if _, err := rec.Warm(ctx); err != nil {
			logger.Warn("descriptor warm-up failed", slog.Any("error", err))
		}
	}()

	// Camera
	opener, err := camera.NewOpener(camera.Config{
		Driver:  cfg.CameraDriver,
		Device:  cfg.CameraDevice,
		URL:     cfg.CameraURL,
		Width:   cfg.FrameWidth,
		Height:  cfg.FrameHeight,
		Timeout: cfg.RecognitionTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to configure camera: %w", err)
	}
	session := camera.NewSession(opener, cfg.RecognitionEnabled, logger)
	defer func() {
		if err := session.Stop(); err != nil {
			logger.Warn("failed to release camera", slog.Any("error", err))
		}
	}()

	// Frame pipeline
	auditLog := audit.NewSlogLogger(logger)
	hub := ws.NewHub(logger)
	pipelineOpts := []pipeline.Option{pipeline.WithPublisher(hub)}
	if cfg.UnknownCaptureEnabled {
		recorder := pipeline.NewUnknownRecorder(unknownStore, pipeline.UnknownConfig{
			Interval:    cfg.UnknownCaptureInterval,
			MaxDistance: cfg.UnknownDedupDistance,
		}, logger, pipeline.WithRecorderAudit(auditLog))
		pipelineOpts = append(pipelineOpts, pipeline.WithUnknownRecorder(recorder))
	}
	pipe := pipeline.New(session, detector, rec, pipeline.Config{
		Width:              cfg.FrameWidth,
		Height:             cfg.FrameHeight,
		Mirror:             cfg.Mirror,
		RecognitionTimeout: cfg.RecognitionTimeout,
	}, logger, pipelineOpts...)

	faceService := service.NewFaceService(store, unknownStore, session, pipe, hub, logger,
		service.WithAuditLogger(auditLog))

	var pinger provider.Pinger
	if p, ok := extractor.(provider.Pinger); ok {
		pinger = p
	}

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Service:            faceService,
		Processor:          pipe,
		Hub:                hub,
		Pinger:             pinger,
		Host:               fmt.Sprintf("localhost:%d", cfg.Port),
		UploadMaxBytes:     cfg.UploadMaxBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		StreamInterval:     cfg.StreamInterval,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() {
		done <- router.Shutdown()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}
