package frame

import (
	"context"
	"time"

	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/dial"
)

// DefaultRate is the default number of frames per second
const DefaultRate = 60

// IntervalForRate converts a frame rate to a tick interval.
// Non-positive rates fall back to DefaultRate.
func IntervalForRate(fps int) time.Duration {
	if fps <= 0 {
		fps = DefaultRate
	}
	return time.Second / time.Duration(fps)
}

// Loop is the continuous redraw loop of a mounted view.
// Each frame samples the time and derives fresh hand angles.
type Loop struct {
	clock    clock.Clock
	sampler  *Sampler
	interval time.Duration
	onFrame  func(model.Frame)

	seq uint64
}

// NewLoop creates a new Loop that calls onFrame once per tick
func NewLoop(clk clock.Clock, sampler *Sampler, interval time.Duration, onFrame func(model.Frame)) *Loop {
	if interval <= 0 {
		interval = IntervalForRate(DefaultRate)
	}
	return &Loop{
		clock:    clk,
		sampler:  sampler,
		interval: interval,
		onFrame:  onFrame,
	}
}

// Run draws a frame immediately and then one per interval until ctx is cancelled.
// The ticker is released on return; no frame is drawn after Run returns.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	l.draw()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			// A tick and a cancellation can be ready together
			if ctx.Err() != nil {
				return nil
			}
			l.draw()
		}
	}
}

// Interval returns the time between frames
func (l *Loop) Interval() time.Duration {
	return l.interval
}

func (l *Loop) draw() {
	l.seq++
	sample := l.sampler.Sample()
	l.onFrame(model.Frame{
		Seq:    l.seq,
		Sample: sample,
		Angles: dial.Angles(sample),
	})
}
