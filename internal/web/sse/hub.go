package sse

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/model"
)

// Hub holds the SSE clients viewing one page, for page-wide events such as refresh.
// Frames bypass it: each client's own view delivers those.
type Hub struct {
	clock  clock.Clock
	logger *slog.Logger

	mu        sync.RWMutex
	clients   map[*Client]struct{}
	closed    bool
	idleSince time.Time // zero while any client is connected
}

// NewHub creates a new Hub for a page
func NewHub(page model.Page, logger *slog.Logger) *Hub {
	return newHub(page, clock.New(), logger)
}

func newHub(page model.Page, clk clock.Clock, logger *slog.Logger) *Hub {
	return &Hub{
		clock:     clk,
		logger:    logger.With(slog.String("page", string(page))),
		clients:   make(map[*Client]struct{}),
		idleSince: clk.Now(),
	}
}

// Register adds a client. A closed hub closes the client instead.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.close()
		return
	}
	h.clients[client] = struct{}{}
	h.idleSince = time.Time{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("sse client registered",
		slog.String("view_id", string(client.ViewID())),
		slog.Int("total_clients", count))
}

// Unregister removes and closes a client; unknown clients are ignored
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	client.close()
	count := len(h.clients)
	if count == 0 {
		h.idleSince = h.clock.Now()
	}
	h.mu.Unlock()

	h.logger.Info("sse client unregistered",
		slog.String("view_id", string(client.ViewID())),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", count))
}

// Broadcast queues message on every client and returns how many took it.
// Clients with full buffers miss it.
func (h *Hub) Broadcast(message []byte) int {
	h.mu.RLock()
	sent, dropped := 0, 0
	for client := range h.clients {
		if client.Deliver(message) {
			sent++
		} else {
			dropped++
		}
	}
	h.mu.RUnlock()

	if dropped > 0 {
		h.logger.Warn("sse broadcast partial failure",
			slog.Int("sent", sent),
			slog.Int("dropped", dropped))
	}
	return sent
}

// BroadcastEvent sends a named event to every client
func (h *Hub) BroadcastEvent(eventName, data string) int {
	return h.Broadcast(formatSSEMessage(eventName, data))
}

// Close disconnects every client; safe to call more than once
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	count := len(h.clients)
	for client := range h.clients {
		client.close()
	}
	clear(h.clients)
	h.mu.Unlock()

	h.logger.Info("sse hub stopped", slog.Int("disconnected_clients", count))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// touch restarts the idle period of a hub nobody is connected to
func (h *Hub) touch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		h.idleSince = h.clock.Now()
	}
}

// idleFor reports how long the hub has had no clients, and false if it has some
func (h *Hub) idleFor(now time.Time) (time.Duration, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) > 0 {
		return 0, false
	}
	return now.Sub(h.idleSince), true
}

// formatSSEMessage formats an SSE message with event name and data.
// Each line of data gets its own "data: " prefix.
func formatSSEMessage(eventName, data string) []byte {
	var sb strings.Builder
	sb.WriteString("event: " + eventName + "\n")
	for _, line := range splitLines(data) {
		sb.WriteString("data: " + line + "\n")
	}
	sb.WriteString("\n")
	return []byte(sb.String())
}

// splitLines splits on newlines, dropping carriage returns and one trailing newline
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
