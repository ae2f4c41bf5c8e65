package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"
)

// Event names on the clock stream
var streamEventNames = []string{"connected", "ready", "frame", "caption", "refresh"}

type eventsOptions struct {
	Page   string
	Frames int
	Only   []string
	JSON   bool
}

func newEventsCmd() *cobra.Command {
	var opts eventsOptions

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Mount a clock view and stream its events",
		Long: `Connect to the clock's event stream, which mounts a view for the
connection, and print its events as they arrive.

  connected  view mounted, carries its view_id
  ready      fonts loaded and the caption pill measured
  frame      hand angles for one redraw
  caption    caption slot update
  refresh    the server asks the page to reload

Frames arrive many times a second; --frames stops after that many and
--only picks which events to print. Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range opts.Only {
				if !slices.Contains(streamEventNames, name) {
					return fmt.Errorf("unknown event %q, expected one of %s", name, strings.Join(streamEventNames, ", "))
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return streamEvents(ctx, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Page, "page", "clock", "Page whose captions the view rotates")
	cmd.Flags().IntVar(&opts.Frames, "frames", 0, "Disconnect after this many frames (0 streams forever)")
	cmd.Flags().StringSliceVar(&opts.Only, "only", nil, "Print only these events, e.g. --only caption,ready")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output events as JSON lines")

	return cmd
}

// SSEEvent is one event as printed by --json
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

func streamEvents(ctx context.Context, w io.Writer, opts eventsOptions) error {
	// The stream is served by the site, not under /api
	u := client.BaseURL() + "/clock/events?page=" + url.QueryEscape(opts.Page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", userAgent)

	// The shared client's timeout would cut the stream
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if !opts.JSON {
		fmt.Fprintf(w, "Connected to %s view\n", opts.Page)
	}

	seen := 0
	err = parseSSE(resp.Body, func(event, data string) bool {
		if len(opts.Only) == 0 || slices.Contains(opts.Only, event) {
			printEvent(w, time.Now(), event, data, opts.JSON)
		}
		if event == "frame" {
			seen++
			if opts.Frames > 0 && seen >= opts.Frames {
				return false
			}
		}
		return true
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}

	if !opts.JSON {
		fmt.Fprintln(w, "Disconnected")
	}
	return nil
}

// parseSSE reads events from r and hands each to fn until fn returns false or r ends.
// Comments, id and retry fields are skipped; events without a name are "message".
func parseSSE(r io.Reader, fn func(event, data string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		event   string
		data    []string
		hasData bool
	)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if event != "" || hasData {
				if event == "" {
					event = "message"
				}
				if !fn(event, strings.Join(data, "\n")) {
					return nil
				}
			}
			event, data, hasData = "", nil, false
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
			hasData = true
		}
	}
	return scanner.Err()
}

func printEvent(w io.Writer, at time.Time, event, data string, jsonOutput bool) {
	if jsonOutput {
		line, _ := json.Marshal(SSEEvent{Time: at, Event: event, Data: data})
		fmt.Fprintln(w, string(line))
		return
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", at.Format("15:04:05.000"), event, describeEvent(event, data))
}

// describeEvent summarises an event's payload for text output
func describeEvent(event, data string) string {
	switch event {
	case "connected":
		var v struct {
			ViewID string `json:"view_id"`
		}
		if json.Unmarshal([]byte(data), &v) == nil && v.ViewID != "" {
			return "view " + v.ViewID
		}
	case "frame":
		var f struct {
			Seq    uint64  `json:"seq"`
			Hour   float64 `json:"hour"`
			Minute float64 `json:"minute"`
			Second float64 `json:"second"`
		}
		if json.Unmarshal([]byte(data), &f) == nil {
			return fmt.Sprintf("#%d hour %.2f° minute %.2f° second %.2f°", f.Seq, f.Hour, f.Minute, f.Second)
		}
	case "ready":
		var r struct {
			PillWidth int    `json:"pill_width"`
			Caption   string `json:"caption"`
		}
		if json.Unmarshal([]byte(data), &r) == nil {
			return fmt.Sprintf("pill %dpx, widest %q", r.PillWidth, r.Caption)
		}
	case "caption":
		if text, phase, ok := captionFromFragment(data); ok {
			return fmt.Sprintf("%q (%s)", text, phase)
		}
	}
	return truncate(strings.ReplaceAll(data, "\n", " "), 100)
}

// captionFromFragment pulls the caption text and slide phase out of a caption fragment
func captionFromFragment(html string) (text, phase string, ok bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", false
	}
	span := doc.Find("span.caption").First()
	if span.Length() == 0 {
		return "", "", false
	}
	class, _ := span.Attr("class")
	for _, c := range strings.Fields(class) {
		if p, found := strings.CutPrefix(c, "caption-"); found {
			phase = p
		}
	}
	return strings.TrimSpace(span.Text()), phase, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
