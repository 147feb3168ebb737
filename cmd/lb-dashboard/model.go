package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lbbandit/lbbandit/internal/metrics"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// model is the root tea.Model: the SSE subscriber goroutine feeds it
// snapshotMsg values, which drive a table of per-arm stats and a status
// line of global derived metrics. There is no timer tick.
type model struct {
	addr     string
	table    table.Model
	snapshot metrics.Snapshot
	lastErr  error
	received bool
}

func newModel(addr string) *model {
	columns := []table.Column{
		{Title: "Port", Width: 8},
		{Title: "Successes", Width: 10},
		{Title: "Failures", Width: 10},
		{Title: "Rate-limited", Width: 13},
		{Title: "Success rate", Width: 13},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(12),
	)
	return &model{addr: addr, table: t}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case snapshotMsg:
		m.snapshot = metrics.Snapshot(msg)
		m.received = true
		m.lastErr = nil
		m.table.SetRows(rowsFor(m.snapshot))
	case connErrMsg:
		m.lastErr = msg.err
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func rowsFor(snap metrics.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(snap.Arms))
	for _, arm := range snap.Arms {
		rows = append(rows, table.Row{
			strconv.Itoa(arm.Port),
			strconv.FormatInt(arm.Successes, 10),
			strconv.FormatInt(arm.Failures, 10),
			strconv.FormatInt(arm.RateLimited, 10),
			fmt.Sprintf("%.1f%%", arm.SuccessRate*100),
		})
	}
	return rows
}

func (m *model) View() string {
	title := headerStyle.Render(fmt.Sprintf("lb-dashboard  strategy=%s tier=%s", m.snapshot.Strategy, m.snapshot.Tier))

	status := statusStyle.Render(fmt.Sprintf(
		"requests=%d success=%d failure=%d regret=%d best_guess_score=%d p50=%.1fms p99=%.1fms",
		m.snapshot.TotalRequests, m.snapshot.TotalSuccess, m.snapshot.TotalFailure,
		m.snapshot.GlobalRegret, m.snapshot.BestGuessScore,
		m.snapshot.LatencyP50Ms, m.snapshot.LatencyP99Ms,
	))

	body := m.table.View()

	footer := statusStyle.Render("q to quit")
	if !m.received {
		footer = statusStyle.Render("waiting for first event from "+m.addr+" ... (q to quit)")
	}
	if m.lastErr != nil {
		footer = errorStyle.Render(fmt.Sprintf("connection error: %v (retrying)", m.lastErr))
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", status, footer)
}
