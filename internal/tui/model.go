package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/caption"
	"github.com/mcoot/callclock/internal/services/dial"
	"github.com/mcoot/callclock/internal/services/frame"
)

// DefaultRate is the terminal redraw rate; terminals gain nothing from 60fps
const DefaultRate = 10

// DefaultRows is the dial height used until the terminal reports its size
const DefaultRows = 21

type tickMsg time.Time

type captionMsg struct{}

// Model is the bubbletea model of the terminal clock.
// It runs the same sampler, dial and rotator as a mounted view.
type Model struct {
	sampler  *frame.Sampler
	dial     *dial.Service
	rotator  *caption.Rotator
	changes  chan struct{}
	interval time.Duration
	styles   Styles

	frame    model.Frame
	caption  model.CaptionState
	width    int
	height   int
	quitting bool
}

// New creates a terminal clock model. Quitting stops the rotator.
func New(sampler *frame.Sampler, dialSvc *dial.Service, rotator *caption.Rotator, rate int) Model {
	if rate <= 0 {
		rate = DefaultRate
	}
	changes := make(chan struct{}, 1)
	rotator.OnChange(func(model.CaptionState) {
		select {
		case changes <- struct{}{}:
		default:
			// A change is already queued; the state is read on delivery
		}
	})

	m := Model{
		sampler:  sampler,
		dial:     dialSvc,
		rotator:  rotator,
		changes:  changes,
		interval: frame.IntervalForRate(rate),
		styles:   DefaultStyles(),
		caption:  rotator.State(),
	}
	m.frame = m.nextFrame()
	return m
}

// Init starts the rotation and the redraw ticks
func (m Model) Init() tea.Cmd {
	m.rotator.Start()
	return tea.Batch(m.tick(), m.waitForCaption())
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			m.rotator.Stop()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		m.frame = m.nextFrame()
		return m, m.tick()

	case captionMsg:
		if m.quitting {
			return m, nil
		}
		m.caption = m.rotator.State()
		return m, m.waitForCaption()
	}
	return m, nil
}

// View renders the dial, the caption pill and a help line
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	grid := NewGrid(m.dial.Layout(), m.frame.Angles, m.rows())

	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render("PICK UP THE PHONE CLUB PRESENTS"))
	sb.WriteString("\n\n")
	sb.WriteString(grid.Render(m.styles))
	sb.WriteString("\n")

	pill := lipgloss.JoinHorizontal(lipgloss.Center,
		m.styles.Label.Render("Stop "),
		m.styles.Pill.Render(m.captionText()),
	)
	sb.WriteString(lipgloss.PlaceHorizontal(grid.Cols, lipgloss.Center, pill))
	sb.WriteString("\n")
	sb.WriteString(lipgloss.PlaceHorizontal(grid.Cols, lipgloss.Center, m.styles.Label.Render("Start dialing.")))
	sb.WriteString("\n\n")

	s := m.frame.Sample
	sb.WriteString(m.styles.Help.Render(fmt.Sprintf("%02d:%02d:%02d  q to quit", s.Time.Hour(), s.Minute, s.Second)))
	return sb.String()
}

// Frame returns the most recent frame
func (m Model) Frame() model.Frame {
	return m.frame
}

// Caption returns the caption state last delivered
func (m Model) Caption() model.CaptionState {
	return m.caption
}

func (m Model) nextFrame() model.Frame {
	sample := m.sampler.Sample()
	return model.Frame{
		Seq:    m.frame.Seq + 1,
		Sample: sample,
		Angles: dial.Angles(sample),
	}
}

// captionText blanks the pill while the caption slides out
func (m Model) captionText() string {
	if m.caption.Phase == model.PhaseOut {
		return strings.Repeat(" ", len([]rune(m.caption.Caption)))
	}
	return m.caption.Caption
}

// rows fits the dial to the terminal, leaving room for the header and pill
func (m Model) rows() int {
	if m.height == 0 {
		return DefaultRows
	}
	rows := m.height - 9
	if m.width > 0 {
		rows = min(rows, (m.width+1)/2)
	}
	return max(rows, 9)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) waitForCaption() tea.Cmd {
	return func() tea.Msg {
		<-m.changes
		return captionMsg{}
	}
}
