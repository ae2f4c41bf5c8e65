package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/web/templates/components"
)

// Event names on the clock stream
const (
	EventConnected = "connected"
	EventFrame     = "frame"
	EventCaption   = "caption"
	EventReady     = "ready"
	EventRefresh   = "refresh"
)

// Renderer converts view events to SSE messages
type Renderer struct{}

// NewRenderer creates a new Renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// FrameData is the JSON payload of a frame event
type FrameData struct {
	Seq    uint64  `json:"seq"`
	Hour   float64 `json:"hour"`
	Minute float64 `json:"minute"`
	Second float64 `json:"second"`
}

// ReadyData is the JSON payload of a ready event
type ReadyData struct {
	PillWidth int    `json:"pill_width"`
	Caption   string `json:"caption"`
}

// RenderCaption renders the caption fragment as HTML
func (r *Renderer) RenderCaption(ctx context.Context, state model.CaptionState) (string, error) {
	var buf bytes.Buffer
	if err := components.Caption(state).Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WrapForOOBSwap wraps HTML in a div with hx-swap-oob for out-of-band swaps
func WrapForOOBSwap(id, html string) string {
	return `<div id="` + id + `" hx-swap-oob="true">` + html + `</div>`
}

// RenderViewEvent converts a view event to a formatted SSE message
func (r *Renderer) RenderViewEvent(ctx context.Context, event model.Event) ([]byte, error) {
	switch p := event.Payload.(type) {
	case model.FramePayload:
		a := p.Frame.Angles
		data, err := json.Marshal(FrameData{Seq: p.Frame.Seq, Hour: a.Hour, Minute: a.Minute, Second: a.Second})
		if err != nil {
			return nil, err
		}
		return formatSSEMessage(EventFrame, string(data)), nil

	case model.CaptionPayload:
		html, err := r.RenderCaption(ctx, p.State)
		if err != nil {
			return nil, err
		}
		return formatSSEMessage(EventCaption, WrapForOOBSwap(components.CaptionSlotID, html)), nil

	case model.ReadyPayload:
		data, err := json.Marshal(ReadyData{PillWidth: p.PillWidth, Caption: p.Caption})
		if err != nil {
			return nil, err
		}
		return formatSSEMessage(EventReady, string(data)), nil
	}
	return nil, fmt.Errorf("unsupported view event %q", event.Type)
}
