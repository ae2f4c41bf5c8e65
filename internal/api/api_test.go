package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/callclock/internal/api"
	"github.com/mcoot/callclock/internal/api/apierr"
	"github.com/mcoot/callclock/internal/api/response"
	"github.com/mcoot/callclock/internal/config"
	"github.com/mcoot/callclock/internal/factory"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/testutil"
)

const adminToken = "let-me-in"

// testServer creates a test server with all dependencies
type testServer struct {
	t       *testing.T
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithConfig(t, config.DefaultConfig())
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()

	if cfg.Admin.TokenHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
		require.NoError(t, err)
		cfg.Admin.TokenHash = string(hash)
	}

	app := factory.NewTestAppWithConfig(cfg)
	require.NoError(t, app.SeedCaptions())
	t.Cleanup(app.ViewManager.UnmountAll)

	router := api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		Clock:          app.Clock,
		DialService:    app.DialService,
		CaptionService: app.CaptionService,
		FontLoader:     app.FontLoader,
		ViewManager:    app.ViewManager,
		Broadcaster:    app.Broadcaster,
		AdminTokenHash: cfg.Admin.TokenHash,
	})

	return &testServer{t: t, handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func assertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rr.Code)
	resp := decode[apierr.ErrorResponse](t, rr)
	assert.Equal(t, code, resp.Error.Code)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	health := decode[response.Health](t, rr)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 0, health.Views)
	assert.False(t, health.FontsLoaded)
	assert.True(t, factory.TestEpoch.Equal(health.Time))

	require.NoError(t, ts.app.FontLoader.Load())
	health = decode[response.Health](t, ts.request(http.MethodGet, "/api/v1/health", nil, ""))
	assert.True(t, health.FontsLoaded)
}

func TestGetClock(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockClock.Advance(10*time.Hour + 10*time.Minute + 30*time.Second)

	rr := ts.request(http.MethodGet, "/api/v1/clock", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	clk := decode[response.Clock](t, rr)
	assert.Equal(t, 10, clk.Hour)
	assert.Equal(t, 10, clk.Minute)
	assert.Equal(t, 30, clk.Second)
	assert.Empty(t, clk.Fixed)
	assert.InDelta(t, 305.25, clk.Angles.Hour, 1e-9)
	assert.InDelta(t, 63.0, clk.Angles.Minute, 1e-9)
	assert.Equal(t, 180.0, clk.Angles.Second)
}

func TestGetClockFixedTime(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Clock.FixedTime = "10:10"
	ts := newTestServerWithConfig(t, cfg)
	ts.app.MockClock.Advance(42 * time.Second)

	clk := decode[response.Clock](t, ts.request(http.MethodGet, "/api/v1/clock", nil, ""))
	assert.Equal(t, "10:10", clk.Fixed)
	assert.Equal(t, 0, clk.Second)
	assert.Equal(t, 305.0, clk.Angles.Hour)
	assert.Equal(t, 60.0, clk.Angles.Minute)
	assert.Equal(t, 0.0, clk.Angles.Second)
}

func TestGetClockAt(t *testing.T) {
	ts := newTestServer(t)

	clk := decode[response.Clock](t, ts.request(http.MethodGet, "/api/v1/clock?at=03:00", nil, ""))
	assert.Equal(t, "03:00", clk.Fixed)
	assert.Equal(t, 90.0, clk.Angles.Hour)
	assert.Equal(t, 0.0, clk.Angles.Minute)

	rr := ts.request(http.MethodGet, "/api/v1/clock?at=25:00", nil, "")
	assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeInvalidTime)
}

func TestGetGeometry(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/clock/geometry", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	layout := decode[response.Geometry](t, rr)
	assert.Equal(t, 400.0, layout.Geometry.Size)
	assert.Len(t, layout.Markers, 12)
	assert.Len(t, layout.Ticks, 60)

	major := 0
	for _, tick := range layout.Ticks {
		if tick.Major {
			major++
		}
	}
	assert.Equal(t, 12, major)
}

func TestGetSchedule(t *testing.T) {
	ts := newTestServer(t)
	ts.app.MockClock.Advance(1300 * time.Millisecond)

	rr := ts.request(http.MethodGet, "/api/v1/clock/schedule", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	sched := decode[response.Schedule](t, rr)
	assert.True(t, factory.TestEpoch.Add(5*time.Second).Equal(sched.NextChange))
	assert.Equal(t, int64(3500), sched.DelayMS)
	assert.Equal(t, int64(5000), sched.PeriodMS)
	assert.Equal(t, int64(200), sched.LeadMS)
	assert.True(t, factory.TestEpoch.Add(4800*time.Millisecond).Equal(sched.SlideOutAt))
}

func TestGetScheduleMatchesRotatorTiming(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Clock.Period = "2s"
	cfg.Clock.Transition = "1s"
	ts := newTestServerWithConfig(t, cfg)
	ts.app.MockClock.Advance(500 * time.Millisecond)

	rr := ts.request(http.MethodGet, "/api/v1/clock/schedule", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	// A transition of half the period leaves no room for both slides, so the rotator shortens it
	sched := decode[response.Schedule](t, rr)
	assert.Equal(t, int64(2000), sched.PeriodMS)
	assert.Equal(t, int64(200), sched.LeadMS)
	assert.Equal(t, int64(1300), sched.DelayMS)
	assert.Equal(t, ts.app.ViewManager.Config().Rotator.Transition.Milliseconds(), sched.LeadMS)
}

func TestGetCaptions(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/captions/clock", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	set := decode[response.Captions](t, rr)
	assert.Equal(t, "clock", set.Page)
	assert.Equal(t, caption.DefaultCaptions, set.Captions)

	pages := decode[map[string][]string](t, ts.request(http.MethodGet, "/api/v1/captions", nil, ""))
	assert.Equal(t, []string{"clock"}, pages["pages"])
}

func TestGetCaptionsNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/captions/missing", nil, "")
	assertErrorCode(t, rr, http.StatusNotFound, apierr.CodeCaptionsNotFound)
}

func TestPutCaptions(t *testing.T) {
	ts := newTestServer(t)

	body := map[string][]string{"captions": {"  cold calling  ", "", "following up"}}
	rr := ts.request(http.MethodPut, "/api/v1/captions/clock", body, adminToken)
	require.Equal(t, http.StatusOK, rr.Code)

	set := decode[response.Captions](t, rr)
	assert.Equal(t, []string{"cold calling", "following up"}, set.Captions)
	assert.Equal(t, []string{"cold calling", "following up"}, ts.app.CaptionService.Captions(context.Background(), model.PageClock))
}

func TestPutCaptionsValidation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPut, "/api/v1/captions/clock", map[string][]string{"captions": {" ", ""}}, adminToken)
	assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeEmptyCaptions)

	rr = ts.request(http.MethodPut, "/api/v1/captions/clock", "{not json", adminToken)
	assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)

	// Unchanged
	assert.Equal(t, caption.DefaultCaptions, ts.app.CaptionService.Captions(context.Background(), model.PageClock))
}

func TestPutCaptionsRequiresAdminToken(t *testing.T) {
	ts := newTestServer(t)
	body := map[string][]string{"captions": {"hijacked"}}

	rr := ts.request(http.MethodPut, "/api/v1/captions/clock", body, "")
	assertErrorCode(t, rr, http.StatusUnauthorized, apierr.CodeUnauthorized)

	rr = ts.request(http.MethodPut, "/api/v1/captions/clock", body, "wrong-token")
	assertErrorCode(t, rr, http.StatusUnauthorized, apierr.CodeUnauthorized)

	assert.Equal(t, caption.DefaultCaptions, ts.app.CaptionService.Captions(context.Background(), model.PageClock))
}

func TestAdminRoutesDisabledWithoutHash(t *testing.T) {
	cfg := config.DefaultConfig()
	app := factory.NewTestAppWithConfig(cfg)
	router := api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		Clock:          app.Clock,
		DialService:    app.DialService,
		CaptionService: app.CaptionService,
		FontLoader:     app.FontLoader,
		ViewManager:    app.ViewManager,
	})
	ts := &testServer{t: t, handler: router, app: app}

	rr := ts.request(http.MethodPut, "/api/v1/captions/clock", map[string][]string{"captions": {"x"}}, adminToken)
	assertErrorCode(t, rr, http.StatusForbidden, apierr.CodeForbidden)
}

func TestDeleteCaptions(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodDelete, "/api/v1/captions/clock", nil, adminToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/captions/clock", nil, "")
	assertErrorCode(t, rr, http.StatusNotFound, apierr.CodeCaptionsNotFound)

	// Rotation falls back to the single placeholder caption
	assert.Equal(t, []string{caption.FallbackCaption}, ts.app.CaptionService.Captions(context.Background(), model.PageClock))
}

func TestViews(t *testing.T) {
	ts := newTestServer(t)

	list := decode[response.ViewList](t, ts.request(http.MethodGet, "/api/v1/views", nil, ""))
	assert.Equal(t, 0, list.Count)
	assert.Empty(t, list.Views)

	session, err := ts.app.ViewManager.Mount(context.Background(), model.PageClock, func(model.Event) {})
	require.NoError(t, err)

	list = decode[response.ViewList](t, ts.request(http.MethodGet, "/api/v1/views", nil, ""))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, string(session.ID()), list.Views[0].ID)
	assert.Equal(t, "clock", list.Views[0].Page)
	assert.Equal(t, caption.DefaultCaptions[0], list.Views[0].Caption)

	rr := ts.request(http.MethodGet, "/api/v1/views/"+string(session.ID()), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	v := decode[response.View](t, rr)
	assert.Equal(t, string(model.PhaseIdle), v.Phase)
	assert.True(t, factory.TestEpoch.Equal(v.MountedAt))
}

func TestViewNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/views/nope", nil, "")
	assertErrorCode(t, rr, http.StatusNotFound, apierr.CodeViewNotFound)

	rr = ts.request(http.MethodDelete, "/api/v1/views/nope", nil, adminToken)
	assertErrorCode(t, rr, http.StatusNotFound, apierr.CodeViewNotFound)
}

func TestDeleteView(t *testing.T) {
	ts := newTestServer(t)
	session, err := ts.app.ViewManager.Mount(context.Background(), model.PageClock, func(model.Event) {})
	require.NoError(t, err)

	rr := ts.request(http.MethodDelete, "/api/v1/views/"+string(session.ID()), nil, "")
	assertErrorCode(t, rr, http.StatusUnauthorized, apierr.CodeUnauthorized)
	assert.Equal(t, 1, ts.app.ViewManager.Count())

	rr = ts.request(http.MethodDelete, "/api/v1/views/"+string(session.ID()), nil, adminToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, 0, ts.app.ViewManager.Count())
	<-session.Done()
}

func TestServerConfigFrom(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9090
	cfg.Server.ReadTimeout = "5s"

	sc := api.ServerConfigFrom(cfg)
	assert.Equal(t, "127.0.0.1", sc.Host)
	assert.Equal(t, 9090, sc.Port)
	assert.Equal(t, 5*time.Second, sc.ReadTimeout)
	assert.Equal(t, time.Duration(0), sc.WriteTimeout)

	srv := api.NewServer(http.NotFoundHandler(), sc, testutil.NopLogger())
	assert.Equal(t, "127.0.0.1:9090", srv.Addr())
}

func TestServerRunEndsStreamsOnShutdown(t *testing.T) {
	streaming := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/stream" {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			close(streaming)
			<-r.Context().Done()
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := api.NewServer(handler, api.ServerConfig{Host: "127.0.0.1", ShutdownTimeout: 5 * time.Second}, testutil.NopLogger())
	ln, err := srv.Listen()
	require.NoError(t, err)
	assert.Equal(t, ln.Addr().String(), srv.Addr())

	var shutdownHooks atomic.Int32
	srv.OnShutdown(func() { shutdownHooks.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	base := "http://" + srv.Addr()
	resp, err := http.Get(base + "/ping")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	stream, err := http.Get(base + "/stream")
	require.NoError(t, err)
	defer func() { _ = stream.Body.Close() }()
	<-streaming

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown waited on the open stream")
	}
	assert.Equal(t, int32(1), shutdownHooks.Load())
}

func TestServerRunFailsOnBusyPort(t *testing.T) {
	first := api.NewServer(http.NotFoundHandler(), api.ServerConfig{Host: "127.0.0.1"}, testutil.NopLogger())
	ln, err := first.Listen()
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	n, err := strconv.Atoi(port)
	require.NoError(t, err)

	second := api.NewServer(http.NotFoundHandler(), api.ServerConfig{Host: "127.0.0.1", Port: n}, testutil.NopLogger())
	assert.ErrorContains(t, second.Run(context.Background()), "listen")
}
