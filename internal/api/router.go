package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/callclock/internal/api/handler"
	"github.com/mcoot/callclock/internal/api/middleware"
	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/services/dial"
	"github.com/mcoot/callclock/internal/services/fonts"
	"github.com/mcoot/callclock/internal/services/view"
	"github.com/mcoot/callclock/internal/web/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	Clock          clock.Clock
	DialService    *dial.Service
	CaptionService *caption.Service
	FontLoader     *fonts.Loader
	ViewManager    *view.Manager
	Broadcaster    *sse.Broadcaster
	AdminTokenHash string // bcrypt hash; empty disables write routes
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	healthHandler := handler.NewHealthHandler(cfg.Clock, cfg.ViewManager, cfg.FontLoader)
	clockHandler := handler.NewClockHandler(cfg.Clock, cfg.DialService, cfg.ViewManager.Config())
	captionHandler := handler.NewCaptionHandler(cfg.CaptionService, cfg.Broadcaster)
	viewHandler := handler.NewViewHandler(cfg.ViewManager)

	// Create middleware
	adminMiddleware := middleware.AdminAuth(cfg.AdminTokenHash, cfg.Logger)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	// Clock routes (public)
	api.HandleFunc("/clock", clockHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/clock/geometry", clockHandler.Geometry).Methods(http.MethodGet)
	api.HandleFunc("/clock/schedule", clockHandler.Schedule).Methods(http.MethodGet)

	// Caption routes (reads public, writes require the admin token)
	api.HandleFunc("/captions", captionHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/captions/{page}", captionHandler.Get).Methods(http.MethodGet)
	api.Handle("/captions/{page}", adminMiddleware(http.HandlerFunc(captionHandler.Put))).Methods(http.MethodPut)
	api.Handle("/captions/{page}", adminMiddleware(http.HandlerFunc(captionHandler.Delete))).Methods(http.MethodDelete)

	// View routes
	api.HandleFunc("/views", viewHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/views/{id}", viewHandler.Get).Methods(http.MethodGet)
	api.Handle("/views/{id}", adminMiddleware(http.HandlerFunc(viewHandler.Delete))).Methods(http.MethodDelete)

	return r
}
