package sse

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/mcoot/callclock/internal/model"
)

const (
	// Time between keepalive pings
	pingPeriod = 15 * time.Second

	// Buffer size for outgoing messages; frames beyond it are dropped
	// and other events wait for room
	sendBufferSize = 256
)

// Client is one SSE connection, backed by one mounted view
type Client struct {
	hub         *Hub
	connectedAt time.Time

	mu     sync.Mutex
	viewID model.ViewID
	send   chan []byte
	closed bool
}

// NewClient creates a new SSE client
func NewClient(hub *Hub) *Client {
	return &Client{
		hub:         hub,
		connectedAt: time.Now(),
		send:        make(chan []byte, sendBufferSize),
	}
}

// SetViewID records the mounted view streaming through this client
func (c *Client) SetViewID(id model.ViewID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewID = id
}

// ViewID returns the mounted view streaming through this client
func (c *Client) ViewID() model.ViewID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewID
}

// Deliver queues a message without blocking. It reports false if the
// client is closed or its buffer is full.
func (c *Client) Deliver(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// DeliverWait queues a message, waiting up to timeout for buffer space.
// It reports false if the client is closed, ctx ends or the wait times out.
func (c *Client) DeliverWait(ctx context.Context, message []byte, timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case c.send <- message:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// DeliverEvent formats and queues a named event
func (c *Client) DeliverEvent(eventName, data string) bool {
	return c.Deliver(formatSSEMessage(eventName, data))
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type connectedData struct {
	Status string       `json:"status"`
	ViewID model.ViewID `json:"view_id"`
}

// ServeSSE streams the client's messages until the request ends or the hub closes the client
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, client *Client) {
	// Check if SSE is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	hub.Register(client)
	defer hub.Unregister(client)

	// Browsers reconnect after this many milliseconds
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	connected, _ := json.Marshal(connectedData{Status: "connected", ViewID: client.ViewID()})
	_, _ = w.Write(formatSSEMessage("connected", string(connected)))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				// Hub closed the client
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
