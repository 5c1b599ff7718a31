package tui

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/beltline/internal/render"
	"github.com/vovakirdan/beltline/internal/scenario"
)

// Tick rate bounds for the viewer's +/- keys.
const (
	MinTickRate = 1
	MaxTickRate = 240
)

// EventLogSize is how many world events the viewer lists under the map.
// Scenarios built for a viewer pass host.WithEventLog(EventLogSize).
const EventLogSize = 5

// ViewerOptions configures a ViewerModel.
type ViewerOptions struct {
	TickRate int   // Steps per second
	Seed     int64 // Seeds the teleport flicker
	Paused   bool  // Start paused

	// OnStep, if set, sees every step report.
	OnStep func(scenario.Report)
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	pausedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	eventStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// ViewerModel is the Bubble Tea model that steps and draws a scenario.
type ViewerModel struct {
	sc       *scenario.Scenario
	viewport render.Viewport
	screen   *render.Screen
	keys     ViewerKeyMap
	help     help.Model
	rng      *rand.Rand
	onStep   func(scenario.Report)

	rate     int
	paused   bool
	last     scenario.Report
	width    int
	quitting bool
}

// NewViewerModel creates a viewer for sc. The viewer owns sc from here on.
func NewViewerModel(sc *scenario.Scenario, opts ViewerOptions) ViewerModel {
	rate := opts.TickRate
	if rate < MinTickRate {
		rate = 20
	}
	vp := render.ViewportFor(sc.Sim, sc.World)
	cols, rows := vp.Size()

	h := help.New()
	h.ShowAll = false

	return ViewerModel{
		sc:       sc,
		viewport: vp,
		screen:   render.NewScreen(cols, rows),
		keys:     DefaultViewerKeyMap(),
		help:     h,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		onStep:   opts.OnStep,
		rate:     min(rate, MaxTickRate),
		paused:   opts.Paused,
	}
}

// Init starts the tick loop.
func (m ViewerModel) Init() tea.Cmd {
	return tickCmd(m.rate)
}

// Update handles messages and updates the model state.
func (m ViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		if !m.paused {
			m.step()
		}
		return m, tickCmd(m.rate)
	}

	return m, nil
}

func (m ViewerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
	case key.Matches(msg, m.keys.Step):
		if m.paused {
			m.step()
		}
	case key.Matches(msg, m.keys.Faster):
		m.rate = min(m.rate*2, MaxTickRate)
	case key.Matches(msg, m.keys.Slower):
		m.rate = max(m.rate/2, MinTickRate)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *ViewerModel) step() {
	m.last = m.sc.Step()
	if m.onStep != nil {
		m.onStep(m.last)
	}
}

// View renders the scenario, a status line and the key help.
func (m ViewerModel) View() string {
	if m.quitting {
		return ""
	}

	m.screen.Clear()
	render.Draw(m.screen, 0, 0, m.viewport, m.sc.Sim, m.sc.World, m.rng)

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	b.WriteString(render.Styled(m.screen))
	b.WriteString("\n\n")
	b.WriteString(statusStyle.Render(m.status()))
	b.WriteString("\n")
	for _, ev := range m.sc.World.Events() {
		b.WriteString(eventStyle.Render("  " + ev.String()))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m ViewerModel) header() string {
	name := m.sc.Layout.Name
	if name == "" {
		name = m.sc.Layout.ID
	}
	h := titleStyle.Render("beltline · "+name) +
		fmt.Sprintf("  tick %d  %d/s", m.sc.Sim.Ticks(), m.rate)
	if m.paused {
		h += "  " + pausedStyle.Render("PAUSED")
	}
	return h
}

func (m ViewerModel) status() string {
	t := m.sc.Totals()
	return fmt.Sprintf("on belts %d  delivered %d  teleports %d  stalls %d  senders %d/%d paired  %.1f/1k ticks",
		t.Resident, t.Delivered, t.Teleports, t.StallCount(), t.Paired, t.Paired+t.Unpaired, t.Throughput())
}

// Paused reports whether stepping is paused.
func (m ViewerModel) Paused() bool {
	return m.paused
}

// Rate returns the current steps per second.
func (m ViewerModel) Rate() int {
	return m.rate
}

// Scenario returns the scenario being viewed.
func (m ViewerModel) Scenario() *scenario.Scenario {
	return m.sc
}

// RunViewer starts the Bubble Tea program for sc and returns the final
// model once the user quits.
func RunViewer(sc *scenario.Scenario, opts ViewerOptions) (ViewerModel, error) {
	p := tea.NewProgram(
		NewViewerModel(sc, opts),
		tea.WithAltScreen(),
	)

	final, err := p.Run()
	if err != nil {
		return ViewerModel{}, err
	}
	m, _ := final.(ViewerModel)
	return m, nil
}
