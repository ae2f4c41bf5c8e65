package handler

import (
	"net/http"

	"github.com/mcoot/callclock/internal/api/response"
	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/services/fonts"
	"github.com/mcoot/callclock/internal/services/view"
)

// HealthHandler reports server status
type HealthHandler struct {
	clock clock.Clock
	views *view.Manager
	fonts *fonts.Loader
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(clk clock.Clock, views *view.Manager, loader *fonts.Loader) *HealthHandler {
	return &HealthHandler{clock: clk, views: views, fonts: loader}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{
		Status:      "ok",
		Time:        h.clock.Now(),
		Views:       h.views.Count(),
		FontsLoaded: h.fonts.Loaded(),
	})
}
