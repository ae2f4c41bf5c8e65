package view

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/services/fonts"
	"github.com/mcoot/callclock/internal/services/frame"
	"github.com/mcoot/callclock/internal/services/readiness"
)

// Config holds per-view engine settings
type Config struct {
	FrameInterval time.Duration
	Fixed         *frame.FixedTime
	Location      *time.Location // nil reads the clock's own zone
	Rotator       caption.RotatorConfig
}

// DefaultConfig returns 60fps frames and the standard caption rotation
func DefaultConfig() Config {
	return Config{
		FrameInterval: frame.IntervalForRate(frame.DefaultRate),
		Rotator:       caption.DefaultRotatorConfig(),
	}
}

// Manager mounts views and tracks the active ones
type Manager struct {
	clock    clock.Clock
	captions *caption.Service
	fonts    *fonts.Loader
	config   Config
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[model.ViewID]*Session
}

// NewManager creates a new view Manager
func NewManager(clk clock.Clock, captions *caption.Service, loader *fonts.Loader, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		clock:    clk,
		captions: captions,
		fonts:    loader,
		config:   cfg,
		logger:   logger.With(slog.String("component", "view")),
		sessions: make(map[model.ViewID]*Session),
	}
}

// Mount starts a view of page that reports to emit until it is unmounted.
// emit may be called before Mount returns.
func (m *Manager) Mount(ctx context.Context, page model.Page, emit Emitter) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := model.ViewID(uuid.NewString())
	captions := m.captions.Captions(ctx, page)
	logger := m.logger.With(
		slog.String("view_id", string(id)),
		slog.String("page", string(page)),
	)

	runCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:        id,
		page:      page,
		mountedAt: m.clock.Now(),
		manager:   m,
		logger:    logger,
		gate:      readiness.NewGate(readiness.DefaultSignals...),
		rotator:   caption.NewRotator(m.clock, captions, m.config.Rotator, logger),
		cancel:    cancel,
		emit:      emit,
		done:      make(chan struct{}),
	}
	sampler := frame.NewSampler(m.clock, m.config.Fixed)
	if m.config.Location != nil {
		sampler = sampler.In(m.config.Location)
	}
	s.loop = frame.NewLoop(m.clock, sampler, m.config.FrameInterval, s.onFrame)
	s.gate.OnReady(s.onReady)
	s.rotator.OnChange(s.onCaption)

	s.start(runCtx, captions)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	logger.Info("view mounted", slog.Int("captions", len(captions)))
	return s, nil
}

// Get returns a mounted view
func (m *Manager) Get(id model.ViewID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, model.ErrViewNotFound
	}
	return s, nil
}

// Unmount unmounts a view by ID
func (m *Manager) Unmount(id model.ViewID) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.Unmount()
	return nil
}

// UnmountAll unmounts every active view
func (m *Manager) UnmountAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Unmount()
	}
}

// List returns every active view, oldest first
func (m *Manager) List() []Info {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	slices.SortFunc(infos, func(a, b Info) int {
		if c := a.MountedAt.Compare(b.MountedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return infos
}

// Count returns the number of active views
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Config returns the engine settings views are mounted with
func (m *Manager) Config() Config {
	return m.config
}

func (m *Manager) remove(id model.ViewID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
