package handler

import (
	"net/http"

	"github.com/mcoot/callclock/internal/api/apierr"
	"github.com/mcoot/callclock/internal/api/response"
	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/services/dial"
	"github.com/mcoot/callclock/internal/services/frame"
	"github.com/mcoot/callclock/internal/services/view"
)

// ClockHandler handles clock and dial endpoints
type ClockHandler struct {
	clock  clock.Clock
	dial   *dial.Service
	config view.Config
}

// NewClockHandler creates a new clock handler
func NewClockHandler(clk clock.Clock, dialService *dial.Service, cfg view.Config) *ClockHandler {
	return &ClockHandler{
		clock:  clk,
		dial:   dialService,
		config: cfg,
	}
}

// Get handles GET /api/v1/clock. ?at=HH:MM poses the hands at that time instead.
func (h *ClockHandler) Get(w http.ResponseWriter, r *http.Request) {
	fixedTime := h.config.Fixed
	if at := r.URL.Query().Get("at"); at != "" {
		ft, err := frame.ParseFixedTime(at)
		if err != nil {
			apierr.WriteError(w, err)
			return
		}
		if ft != nil {
			fixedTime = ft
		}
	}

	sampler := frame.NewSampler(h.clock, fixedTime)
	if h.config.Location != nil {
		sampler = sampler.In(h.config.Location)
	}

	s := sampler.Sample()
	fixed := ""
	if fixedTime != nil {
		fixed = fixedTime.String()
	}
	response.JSON(w, http.StatusOK, response.ClockFromSample(s, dial.Angles(s), fixed))
}

// Geometry handles GET /api/v1/clock/geometry
func (h *ClockHandler) Geometry(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.dial.Layout())
}

// Schedule handles GET /api/v1/clock/schedule
func (h *ClockHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	rot := h.config.Rotator.Normalized()
	period, lead := rot.Period, rot.Transition

	now := h.clock.Now()
	delay := caption.NextDelay(now, period, lead)
	response.JSON(w, http.StatusOK, response.Schedule{
		Now:        now,
		NextChange: caption.NextChange(now, period),
		SlideOutAt: now.Add(delay),
		DelayMS:    delay.Milliseconds(),
		PeriodMS:   period.Milliseconds(),
		LeadMS:     lead.Milliseconds(),
	})
}
