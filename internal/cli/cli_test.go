package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/callclock/internal/api"
	"github.com/mcoot/callclock/internal/factory"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/testutil"
)

const testToken = "let-me-in"

func newAPIServer(t *testing.T) (*httptest.Server, *factory.TestApp) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testToken), bcrypt.MinCost)
	require.NoError(t, err)

	app := factory.NewTestApp()
	require.NoError(t, app.SeedCaptions())

	router := api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		Clock:          app.Clock,
		DialService:    app.DialService,
		CaptionService: app.CaptionService,
		FontLoader:     app.FontLoader,
		ViewManager:    app.ViewManager,
		Broadcaster:    app.Broadcaster,
		AdminTokenHash: string(hash),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, app
}

// execute runs the CLI with args against serverURL and returns stdout
func execute(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PUTP_TOKEN", "")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{
		"--server", serverURL,
		"--token-file", filepath.Join(t.TempDir(), "token"),
	}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestHealthText(t *testing.T) {
	server, _ := newAPIServer(t)

	out, err := execute(t, server.URL, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: ok")
	assert.Contains(t, out, "Mounted views: 0")
	assert.Contains(t, out, "Fonts loaded: no")
}

func TestClockText(t *testing.T) {
	server, _ := newAPIServer(t)

	out, err := execute(t, server.URL, "clock")
	require.NoError(t, err)
	assert.Contains(t, out, "Time: 12:00:00")
	assert.Contains(t, out, "Hour hand:     0.000°")
}

func TestClockJSON(t *testing.T) {
	server, app := newAPIServer(t)
	app.MockClock.Advance(10*time.Hour + 10*time.Minute)

	out, err := execute(t, server.URL, "--output", "json", "clock")
	require.NoError(t, err)

	var result ClockResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 10, result.Hour)
	assert.Equal(t, 10, result.Minute)
	assert.InDelta(t, 305.0, result.Angles.Hour, 1e-9)
	assert.InDelta(t, 60.0, result.Angles.Minute, 1e-9)
}

func TestClockAt(t *testing.T) {
	server, _ := newAPIServer(t)

	out, err := execute(t, server.URL, "--output", "json", "clock", "--at", "10:10")
	require.NoError(t, err)
	var result ClockResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "10:10", result.Fixed)
	assert.InDelta(t, 305.0, result.Angles.Hour, 1e-9)

	_, err = execute(t, server.URL, "clock", "--at", "noon")
	assert.ErrorContains(t, err, "INVALID_TIME")
}

func TestGeometryText(t *testing.T) {
	server, _ := newAPIServer(t)

	out, err := execute(t, server.URL, "geometry")
	require.NoError(t, err)
	assert.Contains(t, out, "Dial: 400px")
	assert.Contains(t, out, "Markers (12):")
	assert.Contains(t, out, "Ticks: 60 (12 major)")
}

func TestScheduleText(t *testing.T) {
	server, _ := newAPIServer(t)

	out, err := execute(t, server.URL, "schedule")
	require.NoError(t, err)
	assert.Contains(t, out, "Next caption change: 12:00:05.000")
	assert.Contains(t, out, "Slide out starts in: 4800ms")
	assert.Contains(t, out, "Period: 5000ms, lead: 200ms")
}

func TestCaptionsGetText(t *testing.T) {
	server, _ := newAPIServer(t)

	out, err := execute(t, server.URL, "captions", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "Page: clock (5 captions")
	assert.Contains(t, out, "1. Stop scrolling Linkedin")
}

func TestCaptionsSetRequiresToken(t *testing.T) {
	server, _ := newAPIServer(t)

	_, err := execute(t, server.URL, "captions", "set", "doomscrolling")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNAUTHORIZED")
}

func TestCaptionsSetAndDelete(t *testing.T) {
	server, app := newAPIServer(t)

	out, err := execute(t, server.URL, "--token", testToken, "--output", "json",
		"captions", "set", "--page", "lobby", "waiting around", "stalling")
	require.NoError(t, err)

	var result Captions
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "lobby", result.Page)
	assert.Equal(t, []string{"waiting around", "stalling"}, result.Captions)

	stored, err := app.CaptionService.Get(context.Background(), model.Page("lobby"))
	require.NoError(t, err)
	assert.Equal(t, result.Captions, stored.Captions)

	out, err = execute(t, server.URL, "captions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "lobby")

	out, err = execute(t, server.URL, "--token", testToken, "captions", "delete", "lobby")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted captions of page lobby")

	_, err = app.CaptionService.Get(context.Background(), model.Page("lobby"))
	assert.ErrorIs(t, err, model.ErrCaptionsNotFound)
}

func TestCaptionsSetArgumentErrors(t *testing.T) {
	server, _ := newAPIServer(t)

	_, err := execute(t, server.URL, "--token", testToken, "captions", "set")
	assert.ErrorContains(t, err, "no captions given")

	_, err = execute(t, server.URL, "--token", testToken, "captions", "set", "--file", "x.txt", "extra")
	assert.ErrorContains(t, err, "not both")
}

func TestViewsText(t *testing.T) {
	server, app := newAPIServer(t)

	session, err := app.ViewManager.Mount(context.Background(), model.PageClock, func(model.Event) {})
	require.NoError(t, err)
	t.Cleanup(session.Unmount)

	out, err := execute(t, server.URL, "views", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Mounted views (1):")
	assert.Contains(t, out, string(session.ID()))

	out, err = execute(t, server.URL, "views", "get", string(session.ID()))
	require.NoError(t, err)
	assert.Contains(t, out, "Page: clock")
	assert.Contains(t, out, "Caption: scrolling Linkedin [idle]")

	_, err = execute(t, server.URL, "--token", testToken, "views", "unmount", string(session.ID()))
	require.NoError(t, err)
	<-session.Done()
}

func TestTokenHash(t *testing.T) {
	out, err := execute(t, "http://unused", "token", "hash", "s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("s3cret")))
}

func TestTokenSaveThenLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := &Config{TokenFile: "/home/someone/.putp/token", Fs: fs}
	require.NoError(t, c.SaveToken(" abc\n"))
	assert.Equal(t, "abc", c.Token)

	info, err := fs.Stat("/home/someone/.putp/token")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded := &Config{TokenFile: "/home/someone/.putp/token", Fs: fs}
	require.NoError(t, loaded.LoadToken())
	assert.Equal(t, "abc", loaded.Token)

	missing := &Config{TokenFile: "/nowhere/token", Fs: fs}
	assert.NoError(t, missing.LoadToken())
	assert.Empty(t, missing.Token)

	assert.Error(t, c.SaveToken("  "))
}

func TestTokenFlagWinsOverFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/token", []byte("from-file"), 0o600))

	c := &Config{Token: "from-flag", TokenFile: "/token", Fs: fs}
	require.NoError(t, c.LoadToken())
	assert.Equal(t, "from-flag", c.Token)
}

func TestClientErrorsCarryStatus(t *testing.T) {
	server, _ := newAPIServer(t)
	c := NewClient(server.URL+"/", "")

	err := c.Get(context.Background(), "/api/v1/captions/nowhere", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "CAPTIONS_NOT_FOUND", apiErr.Code)
	assert.True(t, IsNotFound(err))

	err = c.Put(context.Background(), "/api/v1/captions/clock", map[string]any{"captions": []string{"x"}}, nil)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.False(t, IsNotFound(err))
}

func TestClientPlainErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	err := NewClient(server.URL, "").Get(context.Background(), "/api/v1/health", nil)
	assert.EqualError(t, err, "HTTP 502: bad gateway")
}

func TestClientSendsUserAgent(t *testing.T) {
	var agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	require.NoError(t, NewClient(server.URL, "").Delete(context.Background(), "/x"))
	assert.Equal(t, "putp", agent)
}

func TestVerboseLogsRequests(t *testing.T) {
	server, _ := newAPIServer(t)
	t.Setenv("PUTP_TOKEN", "")

	root := NewRootCmd()
	var stderr bytes.Buffer
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&stderr)
	root.SetArgs([]string{"--server", server.URL, "--token-file", filepath.Join(t.TempDir(), "token"), "-v", "clock"})
	require.NoError(t, root.Execute())

	assert.Contains(t, stderr.String(), "api request")
	assert.Contains(t, stderr.String(), "path=/api/v1/clock")
	assert.Contains(t, stderr.String(), "status=200")
}

func TestHealthWaitPollsUntilUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"code":"STARTING","message":"starting"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","views":0,"fonts_loaded":true}`))
	}))
	t.Cleanup(server.Close)

	out, err := execute(t, server.URL, "health", "--wait", "10s")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: ok")
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestHealthWaitGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	_, err := execute(t, server.URL, "health", "--wait", "600ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not healthy after 600ms")
}

func TestParseSSE(t *testing.T) {
	stream := "retry: 3000\n\n" +
		"event: connected\ndata: {\"status\":\"connected\"}\n\n" +
		": keepalive\n\n" +
		"event: caption\ndata: <div>\ndata: </div>\n\n" +
		"event: frame\ndata: {\"seq\":1}\n\n" +
		"event: frame\ndata: {\"seq\":2}\n\n"

	type got struct{ event, data string }
	var events []got
	err := parseSSE(strings.NewReader(stream), func(event, data string) bool {
		events = append(events, got{event, data})
		return event != "frame"
	})
	require.NoError(t, err)
	assert.Equal(t, []got{
		{"connected", `{"status":"connected"}`},
		{"caption", "<div>\n</div>"},
		{"frame", `{"seq":1}`},
	}, events)
}

func TestStreamEventsStopsAfterFrames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/clock/events", r.URL.Path)
		assert.Equal(t, "lobby", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: connected\ndata: {}\n\n" +
			"event: frame\ndata: {\"seq\":1}\n\n" +
			"event: frame\ndata: {\"seq\":2}\n\n" +
			"event: frame\ndata: {\"seq\":3}\n\n"))
	}))
	t.Cleanup(server.Close)
	client = NewClient(server.URL, "")

	var out bytes.Buffer
	require.NoError(t, streamEvents(context.Background(), &out, eventsOptions{Page: "lobby", Frames: 2, JSON: true}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	var last SSEEvent
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	assert.Equal(t, "frame", last.Event)
	assert.Equal(t, `{"seq":2}`, last.Data)
}

func TestStreamEventsOnlyFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: connected\ndata: {\"view_id\":\"v1\"}\n\n" +
			"event: caption\ndata: <div id=\"caption-slot\" hx-swap-oob=\"true\"><span class=\"caption caption-in\" data-index=\"1\">reading emails</span></div>\n\n" +
			"event: frame\ndata: {\"seq\":1}\n\n"))
	}))
	t.Cleanup(server.Close)
	client = NewClient(server.URL, "")

	var out bytes.Buffer
	require.NoError(t, streamEvents(context.Background(), &out, eventsOptions{Page: "clock", Frames: 1, Only: []string{"caption"}}))

	text := out.String()
	assert.Contains(t, text, `caption: "reading emails" (in)`)
	assert.NotContains(t, text, "connected:")
	assert.NotContains(t, text, "frame:")
	assert.Contains(t, text, "Disconnected")
}

func TestEventsRejectsUnknownFilter(t *testing.T) {
	_, err := execute(t, "http://unused", "events", "--only", "tick")
	assert.ErrorContains(t, err, `unknown event "tick"`)
}

func TestDescribeEvent(t *testing.T) {
	tests := []struct {
		event, data, want string
	}{
		{"connected", `{"status":"connected","view_id":"abc"}`, "view abc"},
		{"frame", `{"seq":7,"hour":305,"minute":60,"second":0}`, "#7 hour 305.00° minute 60.00° second 0.00°"},
		{"ready", `{"pill_width":212,"caption":"scrolling Linkedin"}`, `pill 212px, widest "scrolling Linkedin"`},
		{"caption", `<span class="caption caption-out">reading emails</span>`, `"reading emails" (out)`},
		{"refresh", "captions updated", "captions updated"},
		{"frame", "not json", "not json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describeEvent(tt.event, tt.data), "%s %s", tt.event, tt.data)
	}
}

func TestParseSSEFieldsWithoutSpace(t *testing.T) {
	stream := "id: 4\nevent:frame\ndata:{\"seq\":4}\n\n" + "data: bare\n\n"

	var events []string
	require.NoError(t, parseSSE(strings.NewReader(stream), func(event, data string) bool {
		events = append(events, event+"="+data)
		return true
	}))
	assert.Equal(t, []string{`frame={"seq":4}`, "message=bare"}, events)
}

func TestWatchModelFromFile(t *testing.T) {
	app := factory.NewTestApp()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/captions.txt", []byte("# mine\nfiling expenses\nbooking rooms\n"), 0o644))

	m, err := newWatchModel(context.Background(), fs, app.MockClock, watchOptions{
		CaptionsFile: "/captions.txt",
		Fixed:        "10:10",
		Page:         "clock",
	})
	require.NoError(t, err)

	assert.Equal(t, "filing expenses", m.Caption().Caption)
	assert.InDelta(t, 305.0, m.Frame().Angles.Hour, 1e-9)
	assert.InDelta(t, 60.0, m.Frame().Angles.Minute, 1e-9)
}

func TestWatchModelDefaults(t *testing.T) {
	app := factory.NewTestApp()

	m, err := newWatchModel(context.Background(), afero.NewMemMapFs(), app.MockClock, watchOptions{Page: "clock"})
	require.NoError(t, err)
	assert.Equal(t, "scrolling Linkedin", m.Caption().Caption)
}

func TestWatchModelRemote(t *testing.T) {
	server, app := newAPIServer(t)
	_, err := app.CaptionService.Save(context.Background(), model.PageClock, []string{"remote one", "remote two"})
	require.NoError(t, err)
	client = NewClient(server.URL, "")

	m, err := newWatchModel(context.Background(), afero.NewMemMapFs(), app.MockClock, watchOptions{Remote: true, Page: "clock"})
	require.NoError(t, err)
	assert.Equal(t, "remote one", m.Caption().Caption)
}

func TestWatchModelRemoteFallsBackToDefaults(t *testing.T) {
	server, app := newAPIServer(t)
	require.NoError(t, app.CaptionService.Delete(context.Background(), model.PageClock))
	client = NewClient(server.URL, "")

	m, err := newWatchModel(context.Background(), afero.NewMemMapFs(), app.MockClock, watchOptions{Remote: true, Page: "clock"})
	require.NoError(t, err)
	assert.Equal(t, "scrolling Linkedin", m.Caption().Caption)
}

func TestWatchModelRejectsBadFixedTime(t *testing.T) {
	app := factory.NewTestApp()
	_, err := newWatchModel(context.Background(), afero.NewMemMapFs(), app.MockClock, watchOptions{Fixed: "25:00"})
	assert.ErrorIs(t, err, model.ErrInvalidFixedTime)
}
