package model

import "time"

// ViewID identifies one mounted view of a page
type ViewID string

// EventType identifies the type of event
type EventType string

const (
	EventFrame   EventType = "frame"
	EventCaption EventType = "caption"
	EventReady   EventType = "ready"
)

// Event is emitted by a mounted view
type Event struct {
	Type      EventType
	Timestamp time.Time
	ViewID    ViewID
	Page      Page
	Payload   any // Type-specific data
}

// FramePayload contains data for frame events
type FramePayload struct {
	Frame Frame
}

// CaptionPayload contains data for caption events
type CaptionPayload struct {
	State CaptionState
}

// ReadyPayload contains data for ready events
type ReadyPayload struct {
	PillWidth int
	Caption   string // widest caption, used for sizing
}
