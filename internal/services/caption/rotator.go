package caption

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/model"
)

// Default rotation timing
const (
	DefaultPeriod     = 5 * time.Second
	DefaultTransition = 200 * time.Millisecond
)

// RotatorConfig controls rotation timing.
// Transition is both the slide-out lead before a boundary and the slide-in after it,
// so the caption changes exactly on the boundary.
type RotatorConfig struct {
	Period     time.Duration
	Transition time.Duration
}

// DefaultRotatorConfig returns the standard 5s rotation with 200ms slides
func DefaultRotatorConfig() RotatorConfig {
	return RotatorConfig{
		Period:     DefaultPeriod,
		Transition: DefaultTransition,
	}
}

// Normalized fills in defaults for unusable values. A transition must leave
// room for both slides within one period.
func (c RotatorConfig) Normalized() RotatorConfig {
	if c.Period <= 0 {
		c.Period = DefaultPeriod
	}
	if c.Transition <= 0 || 2*c.Transition >= c.Period {
		c.Transition = min(DefaultTransition, c.Period/4)
	}
	return c
}

// NextDelay returns how long to wait from now before starting the slide-out
// so that the caption changes on the next wall-clock multiple of period.
// Clamped at zero when the boundary is closer than lead.
func NextDelay(now time.Time, period, lead time.Duration) time.Duration {
	elapsed := now.Sub(now.Truncate(period))
	until := period - elapsed
	return max(0, until-lead)
}

// NextChange returns the wall-clock time of the next period boundary after now
func NextChange(now time.Time, period time.Duration) time.Time {
	return now.Truncate(period).Add(period)
}

// Rotator cycles through captions phase-locked to the wall clock.
// Every cycle is re-armed from fresh wall time so timer lateness never accumulates.
// At most one timer is pending at any time.
type Rotator struct {
	clock  clock.Clock
	config RotatorConfig
	logger *slog.Logger

	mu       sync.Mutex
	captions []string
	state    model.CaptionState
	onChange []func(model.CaptionState)
	timer    clock.Timer
	started  bool
	stopped  bool
}

// NewRotator creates a rotator positioned on the first caption.
// An empty list is a configuration error; the rotator falls back to a single static caption.
func NewRotator(clk clock.Clock, captions []string, cfg RotatorConfig, logger *slog.Logger) *Rotator {
	logger = logger.With(slog.String("component", "caption_rotator"))

	cleaned := Clean(captions)
	if len(cleaned) == 0 {
		logger.Warn("no captions configured, using fallback",
			slog.String("error", model.ErrEmptyCaptions.Error()),
			slog.String("fallback", FallbackCaption),
		)
		cleaned = []string{FallbackCaption}
	}

	return &Rotator{
		clock:    clk,
		config:   cfg.Normalized(),
		logger:   logger,
		captions: cleaned,
		state: model.CaptionState{
			Index:   0,
			Caption: cleaned[0],
			Phase:   model.PhaseIdle,
		},
	}
}

// OnChange registers fn to be called on every state transition.
// fn runs with the rotator locked and must not call back into it.
func (r *Rotator) OnChange(fn func(model.CaptionState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// Start arms the first slide-out. It is a no-op if already started or stopped,
// and with a single caption no timer is ever armed.
func (r *Rotator) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started || r.stopped {
		return
	}
	r.started = true
	r.state.ChangedAt = r.clock.Now()

	if len(r.captions) < 2 {
		r.logger.Debug("single caption, rotation disabled")
		return
	}
	r.arm()
}

// Stop cancels the pending timer. A stopped rotator never changes state again,
// even when a timer callback is already running.
func (r *Rotator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// State returns a snapshot of the rotation state
func (r *Rotator) State() model.CaptionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Captions returns the captions being rotated
func (r *Rotator) Captions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.captions)
}

// Config returns the effective timing
func (r *Rotator) Config() RotatorConfig {
	return r.config
}

// arm schedules the next slide-out. Caller must hold mu.
func (r *Rotator) arm() {
	delay := NextDelay(r.clock.Now(), r.config.Period, r.config.Transition)
	r.timer = r.clock.AfterFunc(delay, r.slideOut)
}

func (r *Rotator) slideOut() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	r.state.Phase = model.PhaseOut
	r.notify()
	r.timer = r.clock.AfterFunc(r.config.Transition, r.slideIn)
}

func (r *Rotator) slideIn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	r.state.Index = (r.state.Index + 1) % len(r.captions)
	r.state.Caption = r.captions[r.state.Index]
	r.state.Phase = model.PhaseIn
	r.state.Cycle++
	r.state.ChangedAt = r.clock.Now()
	r.notify()
	r.timer = r.clock.AfterFunc(r.config.Transition, r.settle)
}

func (r *Rotator) settle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	r.state.Phase = model.PhaseIdle
	r.notify()
	r.arm()
}

// notify must be called with mu held
func (r *Rotator) notify() {
	for _, fn := range r.onChange {
		fn(r.state)
	}
}
