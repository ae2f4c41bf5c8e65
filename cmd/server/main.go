package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/mcoot/callclock/internal/api"
	"github.com/mcoot/callclock/internal/config"
	"github.com/mcoot/callclock/internal/factory"
	"github.com/mcoot/callclock/internal/web"
)

const (
	hubSweepInterval = time.Minute
	hubIdleTimeout   = 10 * time.Minute
)

func main() {
	// Bootstrap logger until the configured level is known
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	configPath := os.Getenv("PUTP_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	fs := afero.NewOsFs()
	cfg, err := config.Load(fs, configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("path", configPath), slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	level, _ := cfg.LogLevel()
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Create application factory
	app, err := factory.New(factory.Config{
		Config: cfg,
		Fs:     fs,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.LoadCaptions(ctx); err != nil {
		logger.Error("failed to load captions", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Views wait on the fonts-ready signal, so pages can be served meanwhile
	go func() {
		if err := app.FontLoader.Load(); err != nil {
			logger.Warn("could not load fonts", slog.String("error", err.Error()))
		}
	}()

	// Pages nobody has watched for a while give up their hub
	go app.HubManager.Sweep(ctx, hubSweepInterval, hubIdleTimeout)

	captionWatcher, err := app.NewCaptionWatcher()
	if err != nil {
		logger.Warn("could not watch caption files", slog.String("error", err.Error()))
	} else if captionWatcher != nil {
		go func() {
			if err := captionWatcher.Run(ctx); err != nil {
				logger.Error("caption watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	// Create API router
	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Clock:          app.Clock,
		DialService:    app.DialService,
		CaptionService: app.CaptionService,
		FontLoader:     app.FontLoader,
		ViewManager:    app.ViewManager,
		Broadcaster:    app.Broadcaster,
		AdminTokenHash: cfg.Admin.TokenHash,
	})

	// Create web router
	webRouter := web.NewRouter(web.RouterConfig{
		Logger:         logger,
		Clock:          app.Clock,
		DialService:    app.DialService,
		CaptionService: app.CaptionService,
		FontLoader:     app.FontLoader,
		ViewManager:    app.ViewManager,
		Snapshots:      app.Snapshots,
		HubManager:     app.HubManager,
		StaticDir:      findStaticDir(cfg.Server.StaticDir),
		BaseURL:        cfg.Server.BaseURL,
	})

	// Combine routers
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", webRouter)

	server := api.NewServer(mux, api.ServerConfigFrom(cfg), logger)
	// Unmount every view first so their streams say goodbye before the drain
	server.OnShutdown(func() {
		if err := app.Shutdown(context.Background()); err != nil {
			logger.Error("app shutdown error", slog.String("error", err.Error()))
		}
	})

	if err := server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// findStaticDir looks for the static files directory
func findStaticDir(configured string) string {
	candidates := []string{
		configured,
		"internal/web/static",
		filepath.Join(os.Getenv("PWD"), "internal/web/static"),
	}

	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}

	// Default to relative path
	return "internal/web/static"
}
