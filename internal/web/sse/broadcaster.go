package sse

import (
	"log/slog"

	"github.com/mcoot/callclock/internal/model"
)

// Broadcaster handles broadcasting page-wide updates to SSE clients
type Broadcaster struct {
	hubManager *HubManager
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// BroadcastRefresh tells every viewer of a page to reload it.
// Sent when the page's captions change or the server is going away.
func (b *Broadcaster) BroadcastRefresh(page model.Page, reason string) {
	hub := b.hubManager.GetHub(page)
	if hub == nil {
		return
	}
	b.logger.Info("broadcasting refresh",
		slog.String("page", string(page)),
		slog.String("reason", reason),
		slog.Int("clients", hub.ClientCount()))
	hub.BroadcastEvent(EventRefresh, reason)
}

// BroadcastRefreshAll sends a refresh to every page with viewers
func (b *Broadcaster) BroadcastRefreshAll(reason string) {
	for _, page := range b.hubManager.Pages() {
		b.BroadcastRefresh(page, reason)
	}
}
