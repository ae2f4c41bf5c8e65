package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/services/dial"
	"github.com/mcoot/callclock/internal/services/fonts"
	"github.com/mcoot/callclock/internal/services/frame"
	"github.com/mcoot/callclock/internal/services/snapshot"
	"github.com/mcoot/callclock/internal/services/view"
	"github.com/mcoot/callclock/internal/web/sse"
	"github.com/mcoot/callclock/internal/web/templates/layout"
	"github.com/mcoot/callclock/internal/web/templates/pages"
)

// How long a caption or ready event waits for room in a client's buffer
const eventDeliveryTimeout = 2 * time.Second

// SnapshotTime is the pose of the OpenGraph image unless overridden
var SnapshotTime = frame.FixedTime{Hour: 10, Minute: 10}

// ClockHandler serves the clock page, its event stream and its snapshot image
type ClockHandler struct {
	clock      clock.Clock
	dial       *dial.Service
	captions   *caption.Service
	fonts      *fonts.Loader
	views      *view.Manager
	snapshots  *snapshot.Renderer
	hubManager *sse.HubManager
	renderer   *sse.Renderer
	baseURL    string
	logger     *slog.Logger
}

// ClockHandlerConfig holds the dependencies of a ClockHandler
type ClockHandlerConfig struct {
	Clock      clock.Clock
	Dial       *dial.Service
	Captions   *caption.Service
	Fonts      *fonts.Loader
	Views      *view.Manager
	Snapshots  *snapshot.Renderer
	HubManager *sse.HubManager
	BaseURL    string
	Logger     *slog.Logger
}

// NewClockHandler creates a new ClockHandler
func NewClockHandler(cfg ClockHandlerConfig) *ClockHandler {
	return &ClockHandler{
		clock:      cfg.Clock,
		dial:       cfg.Dial,
		captions:   cfg.Captions,
		fonts:      cfg.Fonts,
		views:      cfg.Views,
		snapshots:  cfg.Snapshots,
		hubManager: cfg.HubManager,
		renderer:   sse.NewRenderer(),
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:     cfg.Logger.With(slog.String("component", "clock-handler")),
	}
}

// Home redirects to the clock
func (h *ClockHandler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/clock", http.StatusFound)
}

// View renders the clock page with the hands at the current time
func (h *ClockHandler) View(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg := h.views.Config()

	sampler := frame.NewSampler(h.clock, cfg.Fixed)
	if cfg.Location != nil {
		sampler = sampler.In(cfg.Location)
	}

	captions := h.captions.Captions(ctx, model.PageClock)
	data := pages.ClockData{
		PageData: layout.PageData{Meta: layout.DefaultMeta(h.baseURL)},
		Page:     model.PageClock,
		Layout:   h.dial.Layout(),
		Angles:   dial.Angles(sampler.Sample()),
		Caption: model.CaptionState{
			Caption: captions[0],
			Phase:   model.PhaseIdle,
		},
	}
	if cfg.Fixed != nil {
		data.Fixed = cfg.Fixed.String()
	}
	if m, err := h.fonts.MeasureWidest(captions); err == nil {
		data.PillWidth = m.PillWidth
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.Clock(data).Render(ctx, w); err != nil {
		h.logger.Error("failed to render clock page", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// Events mounts a view for the connection and streams it over SSE.
// The view is unmounted when the client goes away.
func (h *ClockHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := model.Page(r.URL.Query().Get("page"))
	if page == "" {
		page = model.PageClock
	}
	if page != model.PageClock {
		ok, err := h.captions.Exists(ctx, page)
		if err != nil {
			h.logger.Error("failed to look up page", slog.String("page", string(page)), slog.String("error", err.Error()))
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
	}

	hub := h.hubManager.GetOrCreateHub(page)
	client := sse.NewClient(hub)

	session, err := h.views.Mount(ctx, page, func(e model.Event) {
		msg, err := h.renderer.RenderViewEvent(ctx, e)
		if err != nil {
			h.logger.Error("failed to render view event",
				slog.String("type", string(e.Type)),
				slog.String("error", err.Error()))
			return
		}
		// Slow clients drop frames rather than stall the view
		if e.Type == model.EventFrame {
			client.Deliver(msg)
			return
		}
		if !client.DeliverWait(ctx, msg, eventDeliveryTimeout) {
			h.logger.Warn("dropped view event",
				slog.String("type", string(e.Type)),
				slog.String("page", string(page)))
		}
	})
	if err != nil {
		if !errors.Is(err, ctx.Err()) {
			h.logger.Error("failed to mount view", slog.String("error", err.Error()))
		}
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	defer session.Unmount()
	client.SetViewID(session.ID())

	// An unmount from elsewhere ends the stream
	go func() {
		select {
		case <-session.Done():
			hub.Unregister(client)
		case <-ctx.Done():
		}
	}()

	sse.ServeSSE(w, r, hub, client)
}

// Snapshot renders the dial as a PNG. ?at=HH:MM picks the time and ?size= the side in pixels.
func (h *ClockHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	at := SnapshotTime
	if q := r.URL.Query().Get("at"); q != "" {
		ft, err := frame.ParseFixedTime(q)
		if err != nil {
			http.Error(w, "invalid time, expected HH:MM", http.StatusBadRequest)
			return
		}
		at = *ft
	}

	opts := snapshot.Options{}
	if q := r.URL.Query().Get("size"); q != "" {
		size, err := strconv.Atoi(q)
		if err != nil || size <= 0 {
			http.Error(w, "invalid size", http.StatusBadRequest)
			return
		}
		opts.Size = size
	}

	captions := h.captions.Captions(r.Context(), model.PageClock)
	opts.Caption = captions[0]
	if m, err := h.fonts.MeasureWidest(captions); err == nil {
		opts.PillWidth = m.PillWidth
	}

	angles := dial.Angles(model.Sample{Hour: at.Hour % 12, Minute: at.Minute})

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	if err := h.snapshots.WritePNG(w, angles, opts); err != nil {
		h.logger.Error("failed to render snapshot", slog.String("error", err.Error()))
		http.Error(w, "Bad Request", http.StatusBadRequest)
	}
}

// NotFound renders the 404 page
func (h *ClockHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_ = pages.NotFound(layout.DefaultMeta(h.baseURL)).Render(r.Context(), w)
}
