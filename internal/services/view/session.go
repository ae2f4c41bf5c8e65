package view

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/services/fonts"
	"github.com/mcoot/callclock/internal/services/frame"
	"github.com/mcoot/callclock/internal/services/readiness"
)

// Emitter receives the events of a mounted view.
// It is called from several goroutines, one event at a time.
type Emitter func(model.Event)

// Info describes a mounted view
type Info struct {
	ID        model.ViewID       `json:"id"`
	Page      model.Page         `json:"page"`
	MountedAt time.Time          `json:"mounted_at"`
	Ready     bool               `json:"ready"`
	Pending   []readiness.Signal `json:"pending,omitempty"`
	Caption   model.CaptionState `json:"caption"`
	Frames    uint64             `json:"frames"`
	PillWidth int                `json:"pill_width"`
}

// Session is one mounted view: a frame loop, a caption rotator and a readiness gate.
// It stops emitting as soon as Unmount returns.
type Session struct {
	id        model.ViewID
	page      model.Page
	mountedAt time.Time
	manager   *Manager
	logger    *slog.Logger

	gate    *readiness.Gate
	rotator *caption.Rotator
	loop    *frame.Loop

	cancel context.CancelFunc
	group  *errgroup.Group

	emitMu sync.Mutex
	emit   Emitter
	closed bool

	drawn       atomic.Uint64
	lastAngles  model.HandAngles // loop goroutine only
	measurement atomic.Pointer[fonts.Measurement]

	unmountOnce sync.Once
	done        chan struct{}
}

// ID returns the view's identifier
func (s *Session) ID() model.ViewID {
	return s.id
}

// Page returns the page the view is showing
func (s *Session) Page() model.Page {
	return s.page
}

// Ready reports whether the entrance animation may start
func (s *Session) Ready() bool {
	return s.gate.Ready()
}

// ReadyDone returns a channel closed once the view is ready
func (s *Session) ReadyDone() <-chan struct{} {
	return s.gate.Done()
}

// Caption returns the current caption rotation state
func (s *Session) Caption() model.CaptionState {
	return s.rotator.State()
}

// Measurement returns the pill sizing, or nil before it has been measured
func (s *Session) Measurement() *fonts.Measurement {
	return s.measurement.Load()
}

// Done returns a channel closed once the view is unmounted
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Info returns a snapshot of the view
func (s *Session) Info() Info {
	info := Info{
		ID:        s.id,
		Page:      s.page,
		MountedAt: s.mountedAt,
		Ready:     s.gate.Ready(),
		Pending:   s.gate.Pending(),
		Caption:   s.rotator.State(),
		Frames:    s.drawn.Load(),
	}
	if m := s.measurement.Load(); m != nil {
		info.PillWidth = m.PillWidth
	}
	return info
}

// Unmount stops the rotator, cancels the frame loop and waits for every goroutine.
// Safe to call more than once.
func (s *Session) Unmount() {
	s.unmountOnce.Do(func() {
		s.rotator.Stop()
		s.cancel()
		if err := s.group.Wait(); err != nil {
			s.logger.Warn("view exited with error", slog.String("error", err.Error()))
		}

		s.emitMu.Lock()
		s.closed = true
		s.emitMu.Unlock()

		s.manager.remove(s.id)
		close(s.done)
		s.logger.Info("view unmounted", slog.Uint64("frames", s.drawn.Load()))
	})
}

func (s *Session) start(ctx context.Context, captions []string) {
	g, gctx := errgroup.WithContext(ctx)
	s.group = g

	g.Go(func() error {
		return s.loop.Run(gctx)
	})
	g.Go(func() error {
		return s.measure(gctx, captions)
	})

	s.rotator.Start()
}

// measure waits for the typeface, sizes the pill and marks the font signals
func (s *Session) measure(ctx context.Context, captions []string) error {
	loader := s.manager.fonts

	var m fonts.Measurement
	if err := loader.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("font unavailable, estimating pill width", slog.String("error", err.Error()))
		m = fonts.EstimateWidest(captions)
	} else if m, err = loader.MeasureWidest(captions); err != nil {
		s.logger.Warn("measure failed, estimating pill width", slog.String("error", err.Error()))
		m = fonts.EstimateWidest(captions)
	}

	s.measurement.Store(&m)
	if err := s.gate.Mark(readiness.SignalFonts); err != nil {
		return err
	}
	return s.gate.Mark(readiness.SignalMeasured)
}

func (s *Session) onFrame(f model.Frame) {
	n := s.drawn.Add(1)
	if n > 1 && f.Angles == s.lastAngles {
		return
	}
	s.lastAngles = f.Angles

	s.send(model.EventFrame, model.FramePayload{Frame: f})
	if n == 1 {
		if err := s.gate.Mark(readiness.SignalTime); err != nil {
			s.logger.Error("mark time signal", slog.String("error", err.Error()))
		}
	}
}

func (s *Session) onCaption(state model.CaptionState) {
	s.send(model.EventCaption, model.CaptionPayload{State: state})
}

func (s *Session) onReady() {
	payload := model.ReadyPayload{}
	if m := s.measurement.Load(); m != nil {
		payload.PillWidth = m.PillWidth
		payload.Caption = m.Caption
	}
	s.logger.Debug("view ready", slog.Int("pill_width", payload.PillWidth))
	s.send(model.EventReady, payload)
}

func (s *Session) send(typ model.EventType, payload any) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.closed {
		return
	}
	s.emit(model.Event{
		Type:      typ,
		Timestamp: s.manager.clock.Now(),
		ViewID:    s.id,
		Page:      s.page,
		Payload:   payload,
	})
}
