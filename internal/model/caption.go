package model

import "time"

// Page names a page that shows a rotating caption
type Page string

// PageClock is the call clock page
const PageClock Page = "clock"

// Phase is the animation phase of the caption pill
type Phase string

const (
	PhaseIdle Phase = "idle"
	PhaseOut  Phase = "out" // current caption sliding out
	PhaseIn   Phase = "in"  // next caption sliding in
)

// CaptionState is the current state of a caption rotation
type CaptionState struct {
	Index     int       `json:"index"`
	Caption   string    `json:"caption"`
	Phase     Phase     `json:"phase"`
	Cycle     int       `json:"cycle"` // completed rotations since mount
	ChangedAt time.Time `json:"changed_at"`
}

// CaptionSet is the caption list configured for a page
type CaptionSet struct {
	Page      Page      `json:"page"`
	Captions  []string  `json:"captions"`
	UpdatedAt time.Time `json:"updated_at"`
}
