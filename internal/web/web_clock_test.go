package web_test

import (
	"bytes"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/callclock/internal/config"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/services/snapshot"
)

func TestHomeRedirectsToClock(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.get("/")

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/clock", rr.Header().Get("Location"))
}

func TestClockPageMetadata(t *testing.T) {
	ts := newWebTestServer(t)
	doc := ts.getPage("/clock")

	assert.Equal(t, "Call Clock: Pick Up The Phone.", doc.Find("title").Text())
	assert.Equal(t, "https://pickupthephone.club/clock", metaContent(doc, `meta[property="og:url"]`))
	assert.Equal(t, "https://pickupthephone.club/clock/snapshot.png", metaContent(doc, `meta[property="og:image"]`))
	assert.Equal(t, "1200", metaContent(doc, `meta[property="og:image:width"]`))
	assert.Equal(t, "630", metaContent(doc, `meta[property="og:image:height"]`))
	assert.Equal(t, "summary_large_image", metaContent(doc, `meta[name="twitter:card"]`))
	assert.NotEmpty(t, metaContent(doc, `meta[name="description"]`))
}

func TestClockPageDial(t *testing.T) {
	ts := newWebTestServer(t)
	doc := ts.getPage("/clock")

	assert.Equal(t, 60, doc.Find("line.tick").Length())
	markers := doc.Find("text.marker")
	assert.Equal(t, 12, markers.Length())
	markers.Each(func(_ int, s *goquery.Selection) {
		assert.Equal(t, "CALL", s.Text())
	})

	assertContainsElement(t, doc, "#hour-hand")
	assertContainsElement(t, doc, "#minute-hand")
	assertContainsElement(t, doc, "#second-hand")

	// The mock clock starts at noon
	transform, _ := doc.Find("#hour-hand").Attr("transform")
	assert.Equal(t, "rotate(0, 200, 200)", transform)
}

func TestClockPageChrome(t *testing.T) {
	ts := newWebTestServer(t)
	doc := ts.getPage("/clock")

	assertContainsText(t, doc, ".presents", "PICK UP THE PHONE CLUB")
	assertContainsText(t, doc, ".stop-label", "Stop")
	assertContainsText(t, doc, ".start-label", "Start dialing.")
	assertContainsText(t, doc, ".tagline", "Pick up the phone.")
	assertContainsText(t, doc, "footer", "Created by")
	assertContainsText(t, doc, "#share-tooltip", "Link copied")
	assertContainsElement(t, doc, `script[src="/static/js/clock.js"]`)

	main := doc.Find("main.clock")
	events, _ := main.Attr("data-events")
	assert.Equal(t, "/clock/events?page=clock", events)
}

func TestClockPageShowsFirstCaption(t *testing.T) {
	ts := newWebTestServer(t)
	doc := ts.getPage("/clock")

	slot := doc.Find("#caption-slot .caption")
	assert.Equal(t, caption.DefaultCaptions[0], slot.Text())
	index, _ := slot.Attr("data-index")
	assert.Equal(t, "0", index)

	// Fonts are loaded, so the pill is sized for the widest caption
	m, err := ts.app.FontLoader.MeasureWidest(caption.DefaultCaptions)
	require.NoError(t, err)
	style, _ := doc.Find("#caption-pill").Attr("style")
	assert.Equal(t, "width:"+strconv.Itoa(m.PillWidth)+"px;", style)
}

func TestClockPageFixedTime(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Clock.FixedTime = "10:10"
	ts := newWebTestServerWithConfig(t, cfg, "")
	doc := ts.getPage("/clock")

	fixed, _ := doc.Find("main.clock").Attr("data-fixed")
	assert.Equal(t, "10:10", fixed)

	hour, _ := doc.Find("#hour-hand").Attr("transform")
	assert.Equal(t, "rotate(305, 200, 200)", hour)
	minute, _ := doc.Find("#minute-hand").Attr("transform")
	assert.Equal(t, "rotate(60, 200, 200)", minute)
}

func TestSnapshot(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.get("/clock/snapshot.png")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age")

	img, err := png.Decode(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, snapshot.DefaultSize, img.Bounds().Dx())
}

func TestSnapshotOptions(t *testing.T) {
	ts := newWebTestServer(t)

	rr := ts.get("/clock/snapshot.png?at=03:45&size=240")
	require.Equal(t, http.StatusOK, rr.Code)
	img, err := png.Decode(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 240, img.Bounds().Dx())
}

func TestSnapshotRejectsBadQuery(t *testing.T) {
	ts := newWebTestServer(t)

	tests := []string{
		"/clock/snapshot.png?at=25:00",
		"/clock/snapshot.png?at=noon",
		"/clock/snapshot.png?size=-1",
		"/clock/snapshot.png?size=big",
		"/clock/snapshot.png?size=100000",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			rr := ts.get(path)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "css", "clock.css"), []byte(".clock{}"), 0o644))
	ts := newWebTestServerWithConfig(t, config.DefaultConfig(), dir)

	rr := ts.get("/static/css/clock.css")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, ".clock{}", rr.Body.String())
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}
