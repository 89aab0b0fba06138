package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/brensch/snekab/api"
	"github.com/brensch/snekab/config"
	"github.com/brensch/snekab/engine"
	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/rules"
	"github.com/brensch/snekab/search"
)

func TestDecideRequest(t *testing.T) {
	state := &game.GameState{
		Width:  11,
		Height: 11,
		Snakes: []game.Snake{{Id: "me", Health: 50, Body: []game.Point{{X: 5, Y: 5}, {X: 5, Y: 4}, {X: 5, Y: 3}}}},
		Food:   []game.Point{{X: 5, Y: 8}},
	}
	raw, err := json.Marshal(api.FromGameState("g1", state, "me", rules.Standard, 500))
	if err != nil {
		t.Fatal(err)
	}

	eng := engine.New(engine.Options{
		Search: search.Config{MaxDepth: 5},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	var out bytes.Buffer
	if err := decideRequest(context.Background(), bytes.NewReader(raw), &out, eng, config.Default()); err != nil {
		t.Fatalf("decideRequest: %v", err)
	}
	t.Log("\n" + out.String())
	for _, want := range []string{"game g1 turn 0", "Size=11x11", "move up (", "fallback false"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestDecideRequest_BadInput(t *testing.T) {
	eng := engine.New(engine.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err := decideRequest(context.Background(), strings.NewReader("{"), io.Discard, eng, config.Default()); err == nil {
		t.Fatalf("expected a decode error")
	}

	var out bytes.Buffer
	if err := decideRequest(context.Background(), strings.NewReader(`{"game":{"id":"g"},"board":{"width":0,"height":0}}`), &out, eng, config.Default()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "invalid board") || !strings.Contains(out.String(), "move up") {
		t.Fatalf("output:\n%s", out.String())
	}
}
