package mocks

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcoot/callclock/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Time only moves when Advance is called; timers and tickers fire as it passes their deadlines.
type MockClock struct {
	*clockwork.FakeClock
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{FakeClock: clockwork.NewFakeClockAt(t)}
}

// WaitForTimers blocks until exactly n timers or tickers are pending on the clock
func (c *MockClock) WaitForTimers(ctx context.Context, n int) error {
	return c.BlockUntilContext(ctx, n)
}
