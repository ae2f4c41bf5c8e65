package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/services/dial"
	"github.com/mcoot/callclock/internal/services/fonts"
	"github.com/mcoot/callclock/internal/services/snapshot"
	"github.com/mcoot/callclock/internal/services/view"
	"github.com/mcoot/callclock/internal/web/handler"
	"github.com/mcoot/callclock/internal/web/middleware"
	"github.com/mcoot/callclock/internal/web/sse"
)

// staticMaxAge is how long browsers may cache static assets
const staticMaxAge = time.Hour

// RouterConfig holds configuration for the web router
type RouterConfig struct {
	Logger         *slog.Logger
	Clock          clock.Clock
	DialService    *dial.Service
	CaptionService *caption.Service
	FontLoader     *fonts.Loader
	ViewManager    *view.Manager
	Snapshots      *snapshot.Renderer
	HubManager     *sse.HubManager
	StaticDir      string // Path to static files directory
	BaseURL        string // Absolute site URL for OpenGraph metadata
}

// NewRouter creates a new web router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger, cfg.BaseURL))
	r.Use(middleware.Logging(cfg.Logger))

	hubManager := cfg.HubManager
	if hubManager == nil {
		hubManager = sse.NewHubManager(cfg.Logger)
	}

	clockHandler := handler.NewClockHandler(handler.ClockHandlerConfig{
		Clock:      cfg.Clock,
		Dial:       cfg.DialService,
		Captions:   cfg.CaptionService,
		Fonts:      cfg.FontLoader,
		Views:      cfg.ViewManager,
		Snapshots:  cfg.Snapshots,
		HubManager: hubManager,
		BaseURL:    cfg.BaseURL,
		Logger:     cfg.Logger,
	})

	if cfg.StaticDir != "" {
		static := r.PathPrefix("/static/").Subrouter()
		static.Use(middleware.CacheControl(staticMaxAge))
		static.PathPrefix("/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	}

	r.HandleFunc("/", clockHandler.Home).Methods(http.MethodGet)
	r.HandleFunc("/clock", clockHandler.View).Methods(http.MethodGet)
	r.HandleFunc("/clock/events", clockHandler.Events).Methods(http.MethodGet)
	r.HandleFunc("/clock/snapshot.png", clockHandler.Snapshot).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(clockHandler.NotFound)

	return r
}
