package sse

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/model"
)

// HubManager owns one hub per page with viewers
type HubManager struct {
	clock  clock.Clock
	logger *slog.Logger

	mu   sync.RWMutex
	hubs map[model.Page]*Hub
}

// NewHubManager creates a HubManager on the system clock
func NewHubManager(logger *slog.Logger) *HubManager {
	return NewHubManagerWithClock(clock.New(), logger)
}

// NewHubManagerWithClock creates a HubManager that measures idle hubs on clk
func NewHubManagerWithClock(clk clock.Clock, logger *slog.Logger) *HubManager {
	return &HubManager{
		clock:  clk,
		logger: logger.With(slog.String("component", "sse")),
		hubs:   make(map[model.Page]*Hub),
	}
}

// GetOrCreateHub returns the hub for a page, creating it if needed.
// An existing empty hub starts a fresh idle period so a sweep does not
// close it under the caller.
func (m *HubManager) GetOrCreateHub(page model.Page) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[page]; ok {
		hub.touch()
		return hub
	}
	hub := newHub(page, m.clock, m.logger)
	m.hubs[page] = hub
	return hub
}

// GetHub returns the hub for a page, or nil
func (m *HubManager) GetHub(page model.Page) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[page]
}

// Pages returns the pages with a hub, sorted
func (m *HubManager) Pages() []model.Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pages := make([]model.Page, 0, len(m.hubs))
	for page := range m.hubs {
		pages = append(pages, page)
	}
	slices.Sort(pages)
	return pages
}

// RemoveHub removes and closes a hub
func (m *HubManager) RemoveHub(page model.Page) {
	m.mu.Lock()
	hub, ok := m.hubs[page]
	delete(m.hubs, page)
	m.mu.Unlock()

	if ok {
		hub.Close()
		m.logger.Info("sse hub removed", slog.String("page", string(page)))
	}
}

// RemoveIdleHubs closes hubs that have had no clients for at least idle
// and returns how many went
func (m *HubManager) RemoveIdleHubs(idle time.Duration) int {
	now := m.clock.Now()

	m.mu.Lock()
	var removed []*Hub
	for page, hub := range m.hubs {
		if d, empty := hub.idleFor(now); empty && d >= idle {
			delete(m.hubs, page)
			removed = append(removed, hub)
		}
	}
	m.mu.Unlock()

	for _, hub := range removed {
		hub.Close()
	}
	if len(removed) > 0 {
		m.logger.Info("sse idle hubs removed", slog.Int("removed", len(removed)))
	}
	return len(removed)
}

// Sweep removes hubs idle for longer than idle every interval until ctx ends
func (m *HubManager) Sweep(ctx context.Context, interval, idle time.Duration) {
	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.RemoveIdleHubs(idle)
		}
	}
}

// CloseAll closes every hub, disconnecting all clients
func (m *HubManager) CloseAll() {
	m.mu.Lock()
	hubs := make([]*Hub, 0, len(m.hubs))
	for page, hub := range m.hubs {
		hubs = append(hubs, hub)
		delete(m.hubs, page)
	}
	m.mu.Unlock()

	for _, hub := range hubs {
		hub.Close()
	}
}
