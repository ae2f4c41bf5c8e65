package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/services/dial"
	"github.com/mcoot/callclock/internal/services/frame"
	"github.com/mcoot/callclock/internal/storage/memory"
	"github.com/mcoot/callclock/internal/tui"
)

// watchOptions configures the terminal clock
type watchOptions struct {
	CaptionsFile string
	Fixed        string
	Rate         int
	Remote       bool
	Page         string
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the call clock in the terminal",
		Long: `Run the call clock in the terminal with the same dial and caption
rotation as the web page. Captions come from --captions-file, from the
server with --remote, or the built-in list.

Press q to quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newWatchModel(cmd.Context(), afero.NewOsFs(), clock.New(), opts)
			if err != nil {
				return err
			}
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringVar(&opts.CaptionsFile, "captions-file", "", "Read captions from a file")
	cmd.Flags().StringVar(&opts.Fixed, "fixed", "", "Pin the clock at HH:MM")
	cmd.Flags().IntVar(&opts.Rate, "rate", tui.DefaultRate, "Redraws per second")
	cmd.Flags().BoolVar(&opts.Remote, "remote", false, "Fetch captions from the server")
	cmd.Flags().StringVar(&opts.Page, "page", "clock", "Page whose captions to show")

	return cmd
}

// newWatchModel wires a local clock engine: captions on in-memory storage,
// a sampler, the dial and a rotator
func newWatchModel(ctx context.Context, fs afero.Fs, clk clock.Clock, opts watchOptions) (tui.Model, error) {
	// Log lines would tear the alternate screen
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fixed, err := frame.ParseFixedTime(opts.Fixed)
	if err != nil {
		return tui.Model{}, err
	}

	page := model.Page(opts.Page)
	if page == "" {
		page = model.PageClock
	}

	captions := caption.New(memory.New(), fs, clk, logger)
	switch {
	case opts.CaptionsFile != "":
		if _, err := captions.LoadFromFile(ctx, page, opts.CaptionsFile); err != nil {
			return tui.Model{}, fmt.Errorf("failed to load captions: %w", err)
		}
	case opts.Remote:
		var remote Captions
		err := client.Get(ctx, captionsPath(string(page)), &remote)
		switch {
		case IsNotFound(err) && page == model.PageClock:
			// Fall through to the default captions
		case err != nil:
			return tui.Model{}, fmt.Errorf("failed to fetch captions: %w", err)
		default:
			if _, err := captions.Save(ctx, page, remote.Captions); err != nil {
				return tui.Model{}, err
			}
		}
	}
	if page == model.PageClock {
		if err := captions.Seed(ctx, page, caption.DefaultCaptions); err != nil {
			return tui.Model{}, err
		}
	}

	sampler := frame.NewSampler(clk, fixed)
	rotator := caption.NewRotator(clk, captions.Captions(ctx, page), caption.DefaultRotatorConfig(), logger)
	return tui.New(sampler, dial.New(dial.DefaultGeometry(), logger), rotator, opts.Rate), nil
}
