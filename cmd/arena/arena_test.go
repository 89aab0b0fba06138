package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/store"
)

func gameRows(id string, winner string) []store.ArchiveTurnRow {
	state := &game.GameState{
		Width:  5,
		Height: 5,
		Snakes: []game.Snake{
			{Id: "a", Health: 100, Body: []game.Point{{X: 1, Y: 1}}},
			{Id: "b", Health: 100, Body: []game.Point{{X: 3, Y: 3}}},
		},
	}
	row := store.RowFromState(id, "arena", state, map[string]string{"a": "alpha", "b": "beta"})
	for i := range row.Snakes {
		if row.Snakes[i].Name == winner {
			row.Snakes[i].Value = 1
		} else {
			row.Snakes[i].Value = -1
		}
	}
	return []store.ArchiveTurnRow{row}
}

func TestWriterLoop_FlushesInBatches(t *testing.T) {
	dir := t.TempDir()
	in := make(chan []store.ArchiveTurnRow, 8)
	in <- gameRows("g1", "alpha")
	in <- nil
	in <- gameRows("g2", "alpha")
	in <- gameRows("g3", "beta")
	close(in)

	files := writerLoop(dir, 2, in, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if len(files) != 2 {
		t.Fatalf("files=%v, want one full batch and one final flush", files)
	}
	total := 0
	for _, f := range files {
		rows, err := store.ReadArchive(f)
		if err != nil {
			t.Fatal(err)
		}
		total += len(rows)
	}
	if total != 3 {
		t.Fatalf("rows=%d", total)
	}

	var out bytes.Buffer
	if err := printSummary(context.Background(), &out, dir); err != nil {
		t.Fatalf("printSummary: %v", err)
	}
	if !strings.Contains(out.String(), "alpha") || !strings.Contains(out.String(), "beta") {
		t.Fatalf("summary:\n%s", out.String())
	}
}

func TestWriterLoop_NothingToWrite(t *testing.T) {
	in := make(chan []store.ArchiveTurnRow)
	close(in)
	if files := writerLoop(t.TempDir(), 0, in, slog.New(slog.NewTextHandler(io.Discard, nil))); len(files) != 0 {
		t.Fatalf("files=%v", files)
	}
}

func TestModel(t *testing.T) {
	stats := &counters{}
	stats.turns.Add(42)
	updates := make(chan gameUpdate)

	var m tea.Model = newModel(stats, updates)
	m, _ = m.Update(gameUpdate{Worker: 1, Winner: "alpha", Turns: 30})
	m, _ = m.Update(gameUpdate{Worker: 2, Turns: 12})
	m, cmd := m.Update(tickMsg{})
	if cmd == nil {
		t.Fatalf("tick should schedule the next tick")
	}

	view := m.View()
	for _, want := range []string{"Games:     2", "Turns:     42", "alpha        1", "draw         1", "worker 2: draw after 12 turns"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); cmd == nil {
		t.Fatalf("q should quit")
	}
}

func TestRun_RejectsBoardTooSmallForPlayers(t *testing.T) {
	err := run([]string{"-size", "1", "-tui=false", "-out-dir", t.TempDir()})
	if !errors.Is(err, game.ErrInvalidBoard) {
		t.Fatalf("err=%v want ErrInvalidBoard", err)
	}
}
