package main

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// counters are bumped by workers and sampled by the UI on every tick.
type counters struct {
	turns atomic.Int64
	games atomic.Int64
}

type gameUpdate struct {
	Worker int
	Winner string
	Turns  int32
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForUpdate(updates <-chan gameUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return tea.Quit()
		}
		return u
	}
}

type model struct {
	stats   *counters
	updates <-chan gameUpdate
	start   time.Time

	turns  int64
	games  int
	wins   map[string]int
	draws  int
	recent []string
}

func newModel(stats *counters, updates <-chan gameUpdate) model {
	return model{
		stats:   stats,
		updates: updates,
		start:   time.Now(),
		wins:    make(map[string]int),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		m.turns = m.stats.turns.Load()
		return m, tickCmd()
	case gameUpdate:
		m.games++
		winner := msg.Winner
		if winner == "" {
			m.draws++
			winner = "draw"
		} else {
			m.wins[winner]++
		}
		line := fmt.Sprintf("worker %d: %s after %d turns", msg.Worker, winner, msg.Turns)
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > 10 {
			m.recent = m.recent[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	elapsed := time.Since(m.start)
	var gamesPerSec, turnsPerSec float64
	if s := elapsed.Seconds(); s >= 1 {
		gamesPerSec = float64(m.games) / s
		turnsPerSec = float64(m.turns) / s
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Games:     %d (%.2f/s)\n", m.games, gamesPerSec)
	fmt.Fprintf(&b, "Turns:     %d (%.1f/s)\n", m.turns, turnsPerSec)
	fmt.Fprintf(&b, "Elapsed:   %s\n\n", elapsed.Round(time.Second))

	names := make([]string, 0, len(m.wins))
	for n := range m.wins {
		names = append(names, n)
	}
	sort.Strings(names)
	b.WriteString("Wins:\n")
	for _, n := range names {
		fmt.Fprintf(&b, "  %-12s %d\n", n, m.wins[n])
	}
	fmt.Fprintf(&b, "  %-12s %d\n\n", "draw", m.draws)

	b.WriteString("Recent:\n")
	for _, l := range m.recent {
		b.WriteString(l + "\n")
	}
	b.WriteString("\nPress q to quit.\n")
	return b.String()
}
