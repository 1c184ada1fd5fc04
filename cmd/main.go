package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"contenteditor/internal/api"
	"contenteditor/internal/clipboard"
	"contenteditor/internal/config"
	"contenteditor/internal/media"
	"contenteditor/internal/metrics"
	"contenteditor/internal/resource"
	"contenteditor/internal/surface"
	"contenteditor/pkg/plugin"

	// Bundled plugin types register themselves in init().
	_ "contenteditor/internal/plugins/shape"
	_ "contenteditor/internal/plugins/stage"
	_ "contenteditor/internal/plugins/text"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	// Initialize logger
	logger, err := newLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	configDir := os.Getenv("EDITOR_CONFIG_DIR")
	if configDir == "" {
		configDir = "./configs"
	}

	// Load editor config and plugin manifests
	loader := config.NewLoader(configDir, logger)
	if err := loader.LoadAll(); err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	cfg := loader.GetEditorConfig()
	applied := loader.ApplyManifests(plugin.Global())

	port := cfg.Server.Port
	if v := os.Getenv("EDITOR_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			logger.Fatal("EDITOR_PORT must be a number", zap.String("value", v))
		}
		port = p
	}

	logger.Info("Starting Content Editor",
		zap.String("config_dir", configDir),
		zap.String("plugins_root", cfg.Plugins.Root),
		zap.Int("port", port),
		zap.Strings("types", plugin.IDs()),
		zap.Int("manifests_applied", applied))

	// Document-wide media
	mediaRegistry := media.NewRegistry(logger)
	for _, d := range cfg.Media {
		if err := mediaRegistry.Add(d); err != nil {
			logger.Fatal("Failed to register media", zap.Error(err))
		}
	}

	// Plugin file loader
	resources, err := resource.NewLoader(cfg.Plugins.Root, cfg.Plugins.Workers, logger)
	if err != nil {
		logger.Fatal("Failed to create resource loader", zap.Error(err))
	}
	defer resources.Close()

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	editorMetrics := metrics.New(promRegistry)

	// Session
	canvas := surface.NewCanvas(logger)
	session := plugin.NewSession(plugin.Options{
		Registry:  plugin.Global(),
		Canvas:    canvas,
		Media:     mediaRegistry,
		Resources: resources,
		Metrics:   editorMetrics,
		Logger:    logger,
	})
	if err := session.Activate(); err != nil {
		logger.Fatal("Failed to activate plugin types", zap.Error(err))
	}

	if cfg.Document != "" {
		if err := loadDocument(session, mediaRegistry, cfg.Document); err != nil {
			logger.Warn("Document loaded with errors", zap.String("path", cfg.Document), zap.Error(err))
		}
		logger.Info("Document loaded",
			zap.String("path", cfg.Document),
			zap.Int("instances", session.Directory().Len()),
			zap.String("stage", session.CurrentStage()))
	}

	// Start HTTP API server
	server := api.NewServer(api.Options{
		Session:   session,
		Clipboard: clipboard.New(logger),
		Media:     mediaRegistry,
		Gateway:   surface.NewGateway(canvas, logger),
		Gatherer:  promRegistry,
		Logger:    logger,
		Port:      port,
	})
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start HTTP API server", zap.Error(err))
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Error("Failed to stop HTTP API server", zap.Error(err))
		}
	}()

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Application running. Press Ctrl+C to exit.")

	// Run the session loop until shutdown
	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Session loop failed", zap.Error(err))
	}

	logger.Info("Shutting down gracefully...")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

func loadDocument(session *plugin.Session, registry *media.Registry, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	var doc api.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	// Media from the editor config stay registered alongside the document's.
	doc.Media = append(registry.All(), doc.Media...)
	return api.LoadDocument(session, registry, doc)
}
