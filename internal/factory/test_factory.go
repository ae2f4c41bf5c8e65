package factory

import (
	"context"
	"time"

	"github.com/spf13/afero"

	"github.com/mcoot/callclock/internal/config"
	"github.com/mcoot/callclock/internal/dependencies/mocks"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/services/view"
	"github.com/mcoot/callclock/internal/storage/memory"
	"github.com/mcoot/callclock/internal/testutil"
)

// TestEpoch is where the mock clock of a TestApp starts: noon on a caption boundary
var TestEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MemFs     afero.Fs
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Views run at the configured frame rate against the mock clock.
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(config.DefaultConfig())
}

// NewTestAppWithConfig creates a TestApp from the given server configuration
func NewTestAppWithConfig(cfg *config.Config) *TestApp {
	viewCfg, err := ViewConfig(cfg)
	if err != nil {
		panic(err)
	}
	return newTestApp(cfg, viewCfg)
}

func newTestApp(cfg *config.Config, viewCfg view.Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(TestEpoch)
	fs := afero.NewMemMapFs()

	app := newWithDependencies(cfg, viewCfg, store, mockClock, fs, testutil.NopLogger())

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MemFs:     fs,
	}
}

// SeedCaptions stores the built-in captions for the clock page
func (t *TestApp) SeedCaptions() error {
	return t.CaptionService.Seed(context.Background(), model.PageClock, caption.DefaultCaptions)
}
