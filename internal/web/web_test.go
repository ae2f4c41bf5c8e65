package web_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/callclock/internal/config"
	"github.com/mcoot/callclock/internal/factory"
	"github.com/mcoot/callclock/internal/testutil"
	"github.com/mcoot/callclock/internal/web"
)

// webTestServer provides a test server for web interface testing
type webTestServer struct {
	t       *testing.T
	handler http.Handler
	app     *factory.TestApp
}

// newWebTestServer creates a new test server with all dependencies wired
func newWebTestServer(t *testing.T) *webTestServer {
	t.Helper()
	return newWebTestServerWithConfig(t, config.DefaultConfig(), "")
}

// newWebTestServerWithConfig creates a test server from a server configuration,
// serving static files from staticDir if set
func newWebTestServerWithConfig(t *testing.T, cfg *config.Config, staticDir string) *webTestServer {
	t.Helper()

	app := factory.NewTestAppWithConfig(cfg)
	require.NoError(t, app.SeedCaptions())
	require.NoError(t, app.FontLoader.Load())
	t.Cleanup(func() {
		app.ViewManager.UnmountAll()
		app.HubManager.CloseAll()
	})

	router := web.NewRouter(web.RouterConfig{
		Logger:         testutil.NopLogger(),
		Clock:          app.Clock,
		DialService:    app.DialService,
		CaptionService: app.CaptionService,
		FontLoader:     app.FontLoader,
		ViewManager:    app.ViewManager,
		Snapshots:      app.Snapshots,
		HubManager:     app.HubManager,
		StaticDir:      staticDir,
		BaseURL:        "https://pickupthephone.club",
	})

	return &webTestServer{
		t:       t,
		handler: router,
		app:     app,
	}
}

// get makes a GET request and returns the response
func (ts *webTestServer) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// getPage fetches path and parses it, requiring a 200
func (ts *webTestServer) getPage(path string) *goquery.Document {
	ts.t.Helper()
	rr := ts.get(path)
	require.Equal(ts.t, http.StatusOK, rr.Code)
	return parseHTML(rr.Body)
}

// parseHTML parses the response body as HTML
func parseHTML(r io.Reader) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		panic(err)
	}
	return doc
}

// Assertion helpers

// assertContainsElement asserts that the document contains an element matching the selector
func assertContainsElement(t *testing.T, doc *goquery.Document, selector string) {
	t.Helper()
	if doc.Find(selector).Length() == 0 {
		t.Errorf("Expected to find element matching %q, but none found", selector)
	}
}

// assertContainsText asserts that the element matching the selector contains the text
func assertContainsText(t *testing.T, doc *goquery.Document, selector, text string) {
	t.Helper()
	el := doc.Find(selector)
	if el.Length() == 0 {
		t.Errorf("Expected to find element matching %q, but none found", selector)
		return
	}
	if !strings.Contains(el.Text(), text) {
		t.Errorf("Expected element %q to contain %q, but got %q", selector, text, el.Text())
	}
}

// metaContent returns the content of the meta tag matching selector
func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).Attr("content")
	return content
}
