package factory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/mcoot/callclock/internal/config"
	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/services/dial"
	"github.com/mcoot/callclock/internal/services/fonts"
	"github.com/mcoot/callclock/internal/services/snapshot"
	"github.com/mcoot/callclock/internal/services/view"
	"github.com/mcoot/callclock/internal/storage"
	"github.com/mcoot/callclock/internal/storage/memory"
	redisstorage "github.com/mcoot/callclock/internal/storage/redis"
	"github.com/mcoot/callclock/internal/watcher"
	"github.com/mcoot/callclock/internal/web/sse"
)

// shutdownGrace is how long Shutdown waits for refresh events to reach clients
const shutdownGrace = 100 * time.Millisecond

// App contains all wired application components
type App struct {
	Config *config.Config

	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock
	Fs    afero.Fs

	// Services
	DialService    *dial.Service
	CaptionService *caption.Service
	FontLoader     *fonts.Loader
	ViewManager    *view.Manager
	Snapshots      *snapshot.Renderer
	HubManager     *sse.HubManager
	Broadcaster    *sse.Broadcaster

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Config is the server configuration (optional)
	// If nil, config.DefaultConfig() is used
	Config *config.Config
	// Fs is the filesystem caption files are read from (optional)
	// If nil, the OS filesystem is used
	Fs afero.Fs
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = config.DefaultConfig()
	}
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	var store storage.Storage
	switch appCfg.Storage.Type {
	case config.StorageTypeMemory, "":
		store = memory.New()
	case config.StorageTypeRedis:
		redisStore, err := redisstorage.New(redisstorage.Config{
			URL:          appCfg.Storage.RedisURL,
			PoolSize:     appCfg.Storage.PoolSize,
			MinIdleConns: appCfg.Storage.MinIdleConns,
			KeyPrefix:    appCfg.Storage.KeyPrefix,
			CaptionTTL:   appCfg.CaptionTTL(),
		})
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, fmt.Errorf("invalid storage type %q: must be %q or %q",
			appCfg.Storage.Type, config.StorageTypeMemory, config.StorageTypeRedis)
	}

	viewCfg, err := ViewConfig(appCfg)
	if err != nil {
		return nil, err
	}

	return newWithDependencies(appCfg, viewCfg, store, clock.New(), fs, logger), nil
}

// ViewConfig derives the per-view engine settings from the server configuration
func ViewConfig(cfg *config.Config) (view.Config, error) {
	loc, err := cfg.Location()
	if err != nil {
		return view.Config{}, err
	}
	return view.Config{
		FrameInterval: cfg.FrameInterval(),
		Fixed:         cfg.FixedTime(),
		Location:      loc,
		Rotator: caption.RotatorConfig{
			Period:     cfg.Period(),
			Transition: cfg.Transition(),
		}.Normalized(),
	}, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(cfg *config.Config, viewCfg view.Config, store storage.Storage, clk clock.Clock, fs afero.Fs, logger *slog.Logger) *App {
	dialService := dial.New(dial.DefaultGeometry(), logger)
	captionService := caption.New(store, fs, clk, logger)
	fontLoader := fonts.NewLoader(logger)
	viewManager := view.NewManager(clk, captionService, fontLoader, viewCfg, logger)
	snapshots := snapshot.New(dialService, fontLoader, logger)
	hubManager := sse.NewHubManagerWithClock(clk, logger)

	return &App{
		Config:         cfg,
		Storage:        store,
		Clock:          clk,
		Fs:             fs,
		DialService:    dialService,
		CaptionService: captionService,
		FontLoader:     fontLoader,
		ViewManager:    viewManager,
		Snapshots:      snapshots,
		HubManager:     hubManager,
		Broadcaster:    sse.NewBroadcaster(hubManager, logger),
		logger:         logger,
	}
}

// LoadCaptions loads every configured caption file, then seeds the clock page
// with the built-in captions if nothing was loaded for it
func (a *App) LoadCaptions(ctx context.Context) error {
	for page, path := range a.Config.Captions.Files {
		if _, err := a.CaptionService.LoadFromFile(ctx, model.Page(page), path); err != nil {
			return fmt.Errorf("page %q: %w", page, err)
		}
	}
	return a.CaptionService.Seed(ctx, model.PageClock, caption.DefaultCaptions)
}

// ReloadCaptions reloads a page's caption file and tells its viewers to refresh
func (a *App) ReloadCaptions(ctx context.Context, page model.Page, path string) error {
	if _, err := a.CaptionService.LoadFromFile(ctx, page, path); err != nil {
		return err
	}
	a.Broadcaster.BroadcastRefresh(page, "captions updated")
	return nil
}

// NewCaptionWatcher watches the configured caption files and reloads them on change.
// Returns nil if watching is disabled or no files are configured.
func (a *App) NewCaptionWatcher() (*watcher.CaptionWatcher, error) {
	if !a.Config.Captions.Watch || len(a.Config.Captions.Files) == 0 {
		return nil, nil
	}
	files := make(map[model.Page]string, len(a.Config.Captions.Files))
	for page, path := range a.Config.Captions.Files {
		files[model.Page(page)] = path
	}
	return watcher.New(files, a.Clock, watcher.DefaultDebounce, a.ReloadCaptions, a.logger)
}

// Shutdown tells every viewer to reconnect, unmounts all views and closes the hubs
func (a *App) Shutdown(ctx context.Context) error {
	a.Broadcaster.BroadcastRefreshAll("server shutting down")

	// Give hubs a moment to flush the refresh before clients are dropped
	flushed := make(chan struct{})
	timer := a.Clock.AfterFunc(shutdownGrace, func() { close(flushed) })
	select {
	case <-ctx.Done():
		timer.Stop()
	case <-flushed:
	}

	a.ViewManager.UnmountAll()
	a.HubManager.CloseAll()

	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
