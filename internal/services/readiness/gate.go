package readiness

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mcoot/callclock/internal/model"
)

// Signal names one precondition of the entrance animation
type Signal string

const (
	SignalFonts    Signal = "fonts"    // caption typeface parsed
	SignalMeasured Signal = "measured" // pill width computed
	SignalTime     Signal = "time"     // first time sample taken
)

// DefaultSignals are the signals a mounted clock view waits for
var DefaultSignals = []Signal{SignalFonts, SignalMeasured, SignalTime}

// Gate joins a fixed set of one-shot signals and fires once when all are marked
type Gate struct {
	mu      sync.Mutex
	pending map[Signal]struct{}
	known   map[Signal]struct{}
	onReady []func()
	opened  bool // set by the one Mark that empties pending
	done    chan struct{}
}

// NewGate creates a gate waiting on the given signals.
// With no signals the gate is ready immediately.
func NewGate(signals ...Signal) *Gate {
	g := &Gate{
		pending: make(map[Signal]struct{}, len(signals)),
		known:   make(map[Signal]struct{}, len(signals)),
		done:    make(chan struct{}),
	}
	for _, s := range signals {
		g.pending[s] = struct{}{}
		g.known[s] = struct{}{}
	}
	if len(g.pending) == 0 {
		g.opened = true
		close(g.done)
	}
	return g
}

// Mark records that a signal has occurred. Marking twice is a no-op.
func (g *Gate) Mark(s Signal) error {
	g.mu.Lock()
	if _, ok := g.known[s]; !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: %q", model.ErrUnknownSignal, s)
	}
	delete(g.pending, s)
	if len(g.pending) > 0 || g.opened {
		g.mu.Unlock()
		return nil
	}
	g.opened = true
	callbacks := g.onReady
	g.onReady = nil
	g.mu.Unlock()

	close(g.done)
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// OnReady registers fn to run once when the gate opens.
// If the gate is already open fn runs immediately on the caller's goroutine.
func (g *Gate) OnReady(fn func()) {
	g.mu.Lock()
	if !g.opened {
		g.onReady = append(g.onReady, fn)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	<-g.done
	fn()
}

// Ready reports whether every signal has been marked
func (g *Gate) Ready() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once the gate opens
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// Wait blocks until the gate opens or ctx is done
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the signals not yet marked, sorted
func (g *Gate) Pending() []Signal {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Signal, 0, len(g.pending))
	for s := range g.pending {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}
