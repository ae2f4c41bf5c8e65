package pages

import (
	"net/url"

	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/web/templates/layout"
)

// ClockData is everything the clock page renders on first paint
type ClockData struct {
	layout.PageData
	Page      model.Page
	Layout    model.Layout
	Angles    model.HandAngles
	Caption   model.CaptionState
	PillWidth int // zero until measured
	Fixed     string
}

func eventsURL(page model.Page) string {
	return "/clock/events?page=" + url.QueryEscape(string(page))
}
