package factory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/callclock/internal/config"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/web/sse"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	cfg := config.DefaultConfig()
	cfg.Captions.Files = map[string]string{"clock": "/captions/clock.txt"}

	viewCfg, err := ViewConfig(cfg)
	s.Require().NoError(err)
	// Keep the frame ticker out of the way of caption timing
	viewCfg.FrameInterval = time.Hour

	s.app = newTestApp(cfg, viewCfg)
	s.ctx = context.Background()
	s.Require().NoError(s.app.FontLoader.Load())
}

func (s *IntegrationSuite) writeCaptions(content string) {
	s.Require().NoError(afero.WriteFile(s.app.MemFs, "/captions/clock.txt", []byte(content), 0o644))
}

func (s *IntegrationSuite) waitForTimers(n int) {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	s.Require().NoError(s.app.MockClock.WaitForTimers(ctx, n))
}

// recorder collects events emitted by a mounted view
type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) emit(e model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) captions() []model.CaptionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.CaptionState
	for _, e := range r.events {
		if p, ok := e.Payload.(model.CaptionPayload); ok {
			out = append(out, p.State)
		}
	}
	return out
}

func (s *IntegrationSuite) TestLoadCaptionsFromFile() {
	s.writeCaptions("# sales floor\nreading emails\n\n  updating the CRM  \n")

	s.Require().NoError(s.app.LoadCaptions(s.ctx))

	s.Equal([]string{"reading emails", "updating the CRM"}, s.app.CaptionService.Captions(s.ctx, model.PageClock))
}

func (s *IntegrationSuite) TestLoadCaptionsFailsForMissingFile() {
	err := s.app.LoadCaptions(s.ctx)
	s.Require().Error(err)
	s.Contains(err.Error(), `page "clock"`)
}

func (s *IntegrationSuite) TestLoadCaptionsSeedsDefaults() {
	s.app.Config.Captions.Files = nil

	s.Require().NoError(s.app.LoadCaptions(s.ctx))

	s.Equal(caption.DefaultCaptions, s.app.CaptionService.Captions(s.ctx, model.PageClock))
}

// Test: A mounted view rotates captions on 5s boundaries of the shared clock
func (s *IntegrationSuite) TestMountedViewRotatesCaptions() {
	s.writeCaptions("first\nsecond\n")
	s.Require().NoError(s.app.LoadCaptions(s.ctx))

	out := &recorder{}
	session, err := s.app.ViewManager.Mount(s.ctx, model.PageClock, out.emit)
	s.Require().NoError(err)
	defer session.Unmount()

	s.Equal("first", session.Caption().Caption)

	// Frame ticker plus caption timer
	s.waitForTimers(2)
	s.app.MockClock.Advance(4800 * time.Millisecond)
	s.waitForTimers(2)
	s.app.MockClock.Advance(200 * time.Millisecond)
	s.waitForTimers(2)

	s.Eventually(func() bool {
		return session.Caption().Caption == "second"
	}, 2*time.Second, 5*time.Millisecond)
	s.Equal(TestEpoch.Add(5*time.Second), session.Caption().ChangedAt)
	s.NotEmpty(out.captions())
	s.Equal(1, s.app.ViewManager.Count())
}

func (s *IntegrationSuite) TestReloadCaptionsBroadcastsRefresh() {
	s.writeCaptions("first\n")
	s.Require().NoError(s.app.LoadCaptions(s.ctx))

	hub := s.app.HubManager.GetOrCreateHub(model.PageClock)
	client := sse.NewClient(hub)
	hub.Register(client)
	s.Eventually(func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	s.writeCaptions("first\nsecond\nthird\n")
	s.Require().NoError(s.app.ReloadCaptions(s.ctx, model.PageClock, "/captions/clock.txt"))

	s.Len(s.app.CaptionService.Captions(s.ctx, model.PageClock), 3)
	s.app.HubManager.CloseAll()
}

func (s *IntegrationSuite) TestReloadCaptionsRejectsEmptyFile() {
	s.writeCaptions("first\n")
	s.Require().NoError(s.app.LoadCaptions(s.ctx))

	s.writeCaptions("# nothing left\n")
	err := s.app.ReloadCaptions(s.ctx, model.PageClock, "/captions/clock.txt")
	s.ErrorIs(err, model.ErrEmptyCaptions)

	// The previous set stays live
	s.Equal([]string{"first"}, s.app.CaptionService.Captions(s.ctx, model.PageClock))
}

func (s *IntegrationSuite) TestCaptionWatcherDisabledByDefault() {
	w, err := s.app.NewCaptionWatcher()
	s.Require().NoError(err)
	s.Nil(w)
}

func (s *IntegrationSuite) TestShutdownUnmountsViews() {
	s.Require().NoError(s.app.SeedCaptions())
	for range 3 {
		_, err := s.app.ViewManager.Mount(s.ctx, model.PageClock, (&recorder{}).emit)
		s.Require().NoError(err)
	}
	s.Equal(3, s.app.ViewManager.Count())
	hub := s.app.HubManager.GetOrCreateHub(model.PageClock)

	// Already expired; skip the flush grace period
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	s.Require().NoError(s.app.Shutdown(ctx))

	s.Equal(0, s.app.ViewManager.Count())
	s.Nil(s.app.HubManager.GetHub(model.PageClock))
	s.Equal(0, hub.ClientCount())
}

func TestViewConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Clock.FrameRate = 30
	cfg.Clock.FixedTime = "10:10"
	cfg.Clock.Period = "10s"
	cfg.Clock.Transition = "500ms"
	cfg.Clock.Timezone = "UTC"

	vc, err := ViewConfig(cfg)
	require.NoError(t, err)
	require.NotNil(t, vc.Fixed)
	assert.Equal(t, "10:10", vc.Fixed.String())
	assert.Equal(t, 10*time.Second, vc.Rotator.Period)
	assert.Equal(t, 500*time.Millisecond, vc.Rotator.Transition)
	assert.Equal(t, time.UTC, vc.Location)
	assert.Equal(t, time.Second/30, vc.FrameInterval)
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Type = "sqlite"

	_, err := New(Config{Config: cfg, Fs: afero.NewMemMapFs()})
	assert.Error(t, err)
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.DefaultConfig()
	cfg.Storage.Type = config.StorageTypeRedis
	cfg.Storage.RedisURL = "redis://" + mr.Addr()

	app, err := New(Config{Config: cfg, Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	require.NoError(t, app.LoadCaptions(context.Background()))
	assert.Equal(t, caption.DefaultCaptions, app.CaptionService.Captions(context.Background(), model.PageClock))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, app.Shutdown(ctx))
}
