package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/capture"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/config"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/metrics"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/playback"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/server"
	"github.com/aiamplify/Link2Social-Studio-App-sub002/internal/studio"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "narration-engine"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("surface_width", cfg.Render.Width),
		slog.Int("surface_height", cfg.Render.Height),
		slog.Int("frame_rate", cfg.Capture.FrameRate),
		slog.String("ffmpeg_path", cfg.Capture.FFmpegPath),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize the studio session coordinator
	st, err := studio.New(studio.Options{
		Playback: playback.Config{
			FallbackFloor: cfg.Playback.GetFallbackFloor(),
			PerWord:       cfg.Playback.GetPerWord(),
			CharsPerWord:  cfg.Playback.CharsPerWord,
		},
		Sink:       playback.NewRealtimeSink(),
		Width:      cfg.Render.Width,
		Height:     cfg.Render.Height,
		Background: cfg.Render.GetBackgroundColor(),
		FrameRate:  cfg.Capture.FrameRate,
		Prober:     &capture.FFmpegProber{Path: cfg.Capture.FFmpegPath},
		Containers: cfg.Capture.GetContainers(),
		Recorder:   capture.NewFFmpegRecorderFactory(cfg.Capture.FFmpegPath),
		Logger:     logger,
		Metrics:    appMetrics,
	})
	if err != nil {
		logger.Error("Failed to create studio", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Studio initialized",
		slog.Int("surface_width", cfg.Render.Width),
		slog.Int("surface_height", cfg.Render.Height),
	)

	// Initialize HTTP API server
	httpServer := server.NewHTTPServer(cfg.HTTP, logger, cfg, st, appMetrics)
	logger.Info("HTTP API server initialized",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Start HTTP server
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Halt any live playback so pacing goroutines wind down
	if err := st.StopPlayback(); err != nil && !errors.Is(err, studio.ErrNoScript) {
		logger.Error("Error stopping playback", slog.String("error", err.Error()))
	}

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
