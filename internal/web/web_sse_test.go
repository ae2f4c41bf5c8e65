package web_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/caption"
)

// streamFor serves one SSE request until the context expires and returns the recorded response
func (ts *webTestServer) streamFor(path string, d time.Duration) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// TestSSE_EndpointHeaders verifies the SSE endpoint returns correct headers
func TestSSE_EndpointHeaders(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.streamFor("/clock/events", 100*time.Millisecond)

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rr.Header().Get("Connection"))
	assert.Equal(t, "no", rr.Header().Get("X-Accel-Buffering"))
}

// TestSSE_InitialEvents verifies the stream opens with retry, connected, the first frame and ready
func TestSSE_InitialEvents(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.streamFor("/clock/events", 200*time.Millisecond)
	body := rr.Body.String()

	assert.Contains(t, body, "retry: 3000", "Expected retry header in SSE response")
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, `data: {"status":"connected","view_id":"`)

	// The mock clock sits at noon, so every hand points straight up
	assert.Contains(t, body, "event: frame\n")
	assert.Contains(t, body, `data: {"seq":1,"hour":0,"minute":0,"second":0}`)

	assert.Contains(t, body, "event: ready\n")
	assert.Contains(t, body, `"pill_width":`)

	// connected always comes first
	assert.Less(t, strings.Index(body, "event: connected"), strings.Index(body, "event: frame"))
}

// TestSSE_DisconnectUnmountsView verifies the view mounted for a connection goes away with it
func TestSSE_DisconnectUnmountsView(t *testing.T) {
	ts := newWebTestServer(t)

	assert.Nil(t, ts.app.HubManager.GetHub(model.PageClock), "Hub should not exist before SSE connection")

	ts.streamFor("/clock/events", 100*time.Millisecond)

	hub := ts.app.HubManager.GetHub(model.PageClock)
	require.NotNil(t, hub, "Hub should exist after SSE connection")
	assert.Equal(t, 0, ts.app.ViewManager.Count())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

// TestSSE_PageParameter verifies each page gets its own hub and captions
func TestSSE_PageParameter(t *testing.T) {
	ts := newWebTestServer(t)
	_, err := ts.app.CaptionService.Save(context.Background(), "lobby", []string{"dialing out"})
	require.NoError(t, err)

	rr := ts.streamFor("/clock/events?page=lobby", 200*time.Millisecond)

	assert.NotNil(t, ts.app.HubManager.GetHub("lobby"))
	assert.Nil(t, ts.app.HubManager.GetHub(model.PageClock))
	assert.Contains(t, rr.Body.String(), `"caption":"dialing out"`)
}

// TestSSE_UnknownPage verifies a page without captions is not mounted
func TestSSE_UnknownPage(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.streamFor("/clock/events?page=nowhere", 200*time.Millisecond)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Nil(t, ts.app.HubManager.GetHub("nowhere"))
	assert.Equal(t, 0, ts.app.ViewManager.Count())
	assert.Empty(t, ts.app.HubManager.Pages())
}

// TestSSE_MultipleClients verifies concurrent connections each mount their own view
func TestSSE_MultipleClients(t *testing.T) {
	ts := newWebTestServer(t)

	done := make(chan string, 2)
	for range 2 {
		go func() {
			done <- ts.streamFor("/clock/events", 200*time.Millisecond).Body.String()
		}()
	}

	viewID := func(body string) string {
		_, rest, _ := strings.Cut(body, `"view_id":"`)
		id, _, _ := strings.Cut(rest, `"`)
		return id
	}
	a, b := viewID(<-done), viewID(<-done)
	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 0, ts.app.ViewManager.Count())
}

// sseReader reads events from a live stream
type sseReader struct {
	t      *testing.T
	reader *bufio.Reader
}

// next returns the name and data of the next event, skipping comments and retry lines
func (r *sseReader) next() (string, string) {
	r.t.Helper()
	var event string
	var data []string
	for {
		line, err := r.reader.ReadString('\n')
		require.NoError(r.t, err)
		line = strings.TrimSuffix(line, "\n")
		switch {
		case line == "":
			if event != "" {
				return event, strings.Join(data, "\n")
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
	}
}

// until reads events until one named name arrives and returns its data
func (r *sseReader) until(name string) string {
	r.t.Helper()
	for {
		event, data := r.next()
		if event == name {
			return data
		}
	}
}

// collect reads events until every named event has arrived and returns the first data of each
func (r *sseReader) collect(names ...string) map[string]string {
	r.t.Helper()
	got := make(map[string]string, len(names))
	for len(got) < len(names) {
		event, data := r.next()
		for _, name := range names {
			if _, seen := got[name]; !seen && event == name {
				got[name] = data
			}
		}
	}
	return got
}

// TestSSE_LiveStream drives a mounted view through a caption change and a server refresh
func TestSSE_LiveStream(t *testing.T) {
	ts := newWebTestServer(t)
	server := httptest.NewServer(ts.handler)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/clock/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := &sseReader{t: t, reader: bufio.NewReader(resp.Body)}
	r.until("connected")
	r.until("ready")
	require.Equal(t, 1, ts.app.ViewManager.Count())

	// Frame ticker plus caption timer; the caption slides out 200ms before 12:00:05
	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	require.NoError(t, ts.app.MockClock.WaitForTimers(waitCtx, 2))
	ts.app.MockClock.Advance(4800 * time.Millisecond)

	// The ticker and the caption timer fire in either order
	got := r.collect("caption", "frame")
	assert.Contains(t, got["caption"], `hx-swap-oob="true"`)
	assert.Contains(t, got["caption"], "caption-out")
	assert.Contains(t, got["caption"], caption.DefaultCaptions[0])
	assert.Contains(t, got["frame"], `"second":24}`)

	ts.app.Broadcaster.BroadcastRefresh(model.PageClock, "captions updated")
	assert.Equal(t, "captions updated", r.until("refresh"))
}
