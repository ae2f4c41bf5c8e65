package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Timer is a one-shot timer created by a Clock
type Timer = clockwork.Timer

// Ticker delivers ticks at a fixed interval until stopped
type Ticker = clockwork.Ticker

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time

	// AfterFunc runs f in its own goroutine once d has elapsed
	AfterFunc(d time.Duration, f func()) Timer

	// NewTicker returns a ticker firing every d
	NewTicker(d time.Duration) Ticker
}

// New creates a Clock backed by the system clock
func New() Clock {
	return clockwork.NewRealClock()
}
