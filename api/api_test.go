package api

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/rules"
)

const moveRequest = `{
  "game": {"id": "g-123", "timeout": 500, "ruleset": {"name": "royale", "settings": {"hazardDamagePerTurn": 16}}},
  "turn": 7,
  "board": {
    "height": 11,
    "width": 11,
    "food": [{"x": 5, "y": 8}, {"x": 5, "y": 8}],
    "hazards": [{"x": 0, "y": 0}, {"x": 0, "y": 1}, {"x": 0, "y": 0}],
    "snakes": [
      {"id": "me", "health": 54, "body": [{"x": 5, "y": 5}, {"x": 5, "y": 4}, {"x": 5, "y": 3}], "head": {"x": 5, "y": 5}, "length": 3},
      {"id": "them", "health": 90, "body": [{"x": 1, "y": 9}, {"x": 1, "y": 8}], "head": {"x": 1, "y": 9}, "length": 2}
    ]
  },
  "you": {"id": "me", "health": 54, "body": [{"x": 5, "y": 5}, {"x": 5, "y": 4}, {"x": 5, "y": 3}]}
}`

func TestToGameState(t *testing.T) {
	var req GameRequest
	if err := json.Unmarshal([]byte(moveRequest), &req); err != nil {
		t.Fatal(err)
	}
	state := req.ToGameState()

	if state.Width != 11 || state.Height != 11 || state.Turn != 7 || state.YouId != "me" {
		t.Fatalf("header wrong: %+v", state)
	}
	if !reflect.DeepEqual(state.Food, []game.Point{{X: 5, Y: 8}}) {
		t.Fatalf("food not deduped: %v", state.Food)
	}
	if !reflect.DeepEqual(state.Hazards, []game.Point{{X: 0, Y: 0}, {X: 0, Y: 1}}) {
		t.Fatalf("hazards not deduped: %v", state.Hazards)
	}
	if len(state.Snakes) != 2 || state.Snakes[0].Health != 54 || state.Snakes[1].Length() != 2 {
		t.Fatalf("snakes wrong: %+v", state.Snakes)
	}
	if err := state.Validate("me"); err != nil {
		t.Fatalf("converted state invalid: %v", err)
	}
}

func TestRules(t *testing.T) {
	var req GameRequest
	if err := json.Unmarshal([]byte(moveRequest), &req); err != nil {
		t.Fatal(err)
	}
	if got := req.Rules(rules.Standard); got.HazardDamage != 16 || got.MaxHealth != 100 {
		t.Fatalf("rules %+v", got)
	}
	req.Game.Ruleset.Settings.HazardDamagePerTurn = 0
	if got := req.Rules(rules.Standard); got != rules.Standard {
		t.Fatalf("zero damage should keep base, got %+v", got)
	}
}

func TestFromGameStateRoundTrip(t *testing.T) {
	var req GameRequest
	if err := json.Unmarshal([]byte(moveRequest), &req); err != nil {
		t.Fatal(err)
	}
	state := req.ToGameState()

	back := FromGameState("g-123", state, "me", rules.Standard, 500)
	if back.You.ID != "me" || back.You.Head != (Coord{X: 5, Y: 5}) || back.You.Length != 3 {
		t.Fatalf("you wrong: %+v", back.You)
	}
	if !reflect.DeepEqual(back.ToGameState(), state) {
		t.Fatalf("round trip changed the state")
	}
}
