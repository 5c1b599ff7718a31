package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/beltline/internal/storage"
)

const maxHistoryRuns = 100

// HistoryModel is the Bubble Tea model for browsing recorded runs.
type HistoryModel struct {
	layouts []string
	cursor  int
	store   *storage.Store
	runs    []storage.RunSummary
	best    float64
	table   table.Model
	help    help.Model
	keys    HistoryKeyMap
	width   int
	height  int
	err     error
	quit    bool
}

// NewHistoryModel creates a history browser starting at layoutID. Every
// layout with recorded runs can be reached with tab.
func NewHistoryModel(store *storage.Store, layoutID string, width, height int) HistoryModel {
	h := help.New()
	h.ShowAll = false

	m := HistoryModel{
		store:  store,
		keys:   DefaultHistoryKeyMap(),
		help:   h,
		width:  width,
		height: height,
	}

	if stats, err := store.GetAllLayoutStats(); err == nil {
		for id := range stats {
			m.layouts = append(m.layouts, id)
		}
	} else {
		m.err = err
	}
	if layoutID != "" && !contains(m.layouts, layoutID) {
		m.layouts = append(m.layouts, layoutID)
	}
	sort.Strings(m.layouts)
	for i, id := range m.layouts {
		if id == layoutID {
			m.cursor = i
		}
	}

	m.table = m.createTable()
	if len(m.layouts) > 0 {
		m.loadRuns(m.layouts[m.cursor])
	}
	return m
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (m *HistoryModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "When", Width: 13},
		{Title: "Ticks", Width: 8},
		{Title: "Delivered", Width: 9},
		{Title: "Teleports", Width: 9},
		{Title: "Stalls", Width: 7},
		{Title: "Per 1k", Width: 7},
		{Title: "Seed", Width: 6},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(max(m.height-8, 3)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

func (m *HistoryModel) loadRuns(layoutID string) {
	runs, err := m.store.RecentRuns(layoutID, maxHistoryRuns)
	if err != nil {
		m.err = err
		runs = nil
	}
	m.runs = runs
	m.best, _ = m.store.BestThroughput(layoutID)

	rows := make([]table.Row, len(m.runs))
	for i, r := range m.runs {
		seed := fmt.Sprintf("%d", r.Seed)
		if r.Resumed {
			seed += "*"
		}
		rows[i] = table.Row{
			r.CreatedAt.Format("Jan 02 15:04"),
			fmt.Sprintf("%d", r.Ticks),
			fmt.Sprintf("%d", r.Delivered),
			fmt.Sprintf("%d", r.Teleports),
			fmt.Sprintf("%d", r.StallCount()),
			fmt.Sprintf("%.1f", r.Throughput),
			seed,
		}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Init initializes the history model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the history browser.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quit = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.NextLayout):
			if len(m.layouts) > 0 {
				m.cursor = (m.cursor + 1) % len(m.layouts)
				m.loadRuns(m.layouts[m.cursor])
			}
			return m, nil

		case key.Matches(msg, m.keys.PrevLayout):
			if len(m.layouts) > 0 {
				m.cursor = (m.cursor - 1 + len(m.layouts)) % len(m.layouts)
				m.loadRuns(m.layouts[m.cursor])
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(m.height-8, 3))
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the history browser.
func (m HistoryModel) View() string {
	if m.quit {
		return ""
	}

	var b strings.Builder

	title := "RUN HISTORY"
	if id := m.Layout(); id != "" {
		title = fmt.Sprintf("RUN HISTORY - %s  (best %.1f/1k ticks)", id, m.best)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	tableStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	switch {
	case m.err != nil:
		b.WriteString(pausedStyle.Render("Error: " + m.err.Error()))
	case len(m.runs) == 0:
		emptyStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true).
			Padding(1, 2)
		b.WriteString(tableStyle.Render(emptyStyle.Render("No runs recorded yet.\nUse `beltline run --record` to add one.")))
	default:
		b.WriteString(tableStyle.Render(m.table.View()))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

// Layout returns the layout whose runs are shown.
func (m HistoryModel) Layout() string {
	if len(m.layouts) == 0 {
		return ""
	}
	return m.layouts[m.cursor]
}

// Runs returns the runs currently shown.
func (m HistoryModel) Runs() []storage.RunSummary {
	return m.runs
}

// RunHistory runs the history browser.
func RunHistory(store *storage.Store, layoutID string, width, height int) error {
	p := tea.NewProgram(
		NewHistoryModel(store, layoutID, width, height),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
