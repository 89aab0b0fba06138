// Package api holds the Battlesnake HTTP JSON types and their conversion to
// game types.
package api

import (
	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/rules"
)

type InfoResponse struct {
	APIVersion string `json:"apiversion"`
	Author     string `json:"author,omitempty"`
	Color      string `json:"color,omitempty"`
	Head       string `json:"head,omitempty"`
	Tail       string `json:"tail,omitempty"`
	Version    string `json:"version,omitempty"`
}

type GameRequest struct {
	Game  Game        `json:"game"`
	Turn  int         `json:"turn"`
	Board Board       `json:"board"`
	You   Battlesnake `json:"you"`
}

type Game struct {
	ID      string  `json:"id"`
	Ruleset Ruleset `json:"ruleset"`
	Map     string  `json:"map"`
	Timeout int     `json:"timeout"`
	Source  string  `json:"source"`
}

type Ruleset struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Settings RulesetSettings `json:"settings"`
}

type RulesetSettings struct {
	FoodSpawnChance     int `json:"foodSpawnChance"`
	MinimumFood         int `json:"minimumFood"`
	HazardDamagePerTurn int `json:"hazardDamagePerTurn"`
}

type Board struct {
	Height  int           `json:"height"`
	Width   int           `json:"width"`
	Food    []Coord       `json:"food"`
	Hazards []Coord       `json:"hazards"`
	Snakes  []Battlesnake `json:"snakes"`
}

type Battlesnake struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Health         int            `json:"health"`
	Body           []Coord        `json:"body"`
	Latency        string         `json:"latency"`
	Head           Coord          `json:"head"`
	Length         int            `json:"length"`
	Shout          string         `json:"shout"`
	Squad          string         `json:"squad"`
	Customizations Customizations `json:"customizations"`
}

type Customizations struct {
	Color string `json:"color"`
	Head  string `json:"head"`
	Tail  string `json:"tail"`
}

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type MoveResponse struct {
	Move  string `json:"move"`
	Shout string `json:"shout,omitempty"`
}

// ToGameState converts a request board into a game state. Duplicate food and
// hazard cells (stacked hazards are common in royale maps) are collapsed.
func (req *GameRequest) ToGameState() *game.GameState {
	state := &game.GameState{
		Width:  int32(req.Board.Width),
		Height: int32(req.Board.Height),
		YouId:  req.You.ID,
		Turn:   int32(req.Turn),
	}

	state.Food = game.Dedupe(points(req.Board.Food))
	state.Hazards = game.Dedupe(points(req.Board.Hazards))

	state.Snakes = make([]game.Snake, len(req.Board.Snakes))
	for i, s := range req.Board.Snakes {
		state.Snakes[i] = game.Snake{
			Id:     s.ID,
			Health: int32(s.Health),
			Body:   points(s.Body),
		}
	}
	return state
}

// Rules maps the request's ruleset settings onto base. A zero hazard damage
// in the request keeps base's value; royale and wrapped games always send it.
func (req *GameRequest) Rules(base rules.Ruleset) rules.Ruleset {
	r := base
	if d := req.Game.Ruleset.Settings.HazardDamagePerTurn; d > 0 {
		r.HazardDamage = int32(d)
	}
	return r
}

func points(cs []Coord) []game.Point {
	out := make([]game.Point, len(cs))
	for i, c := range cs {
		out[i] = game.Point{X: int32(c.X), Y: int32(c.Y)}
	}
	return out
}

// FromGameState builds a request for youID from a state, the inverse of
// ToGameState. The viewer uses it to export archived turns as move requests.
func FromGameState(gameID string, state *game.GameState, youID string, r rules.Ruleset, timeoutMs int) GameRequest {
	req := GameRequest{
		Game: Game{
			ID:      gameID,
			Timeout: timeoutMs,
			Ruleset: Ruleset{Name: "standard", Settings: RulesetSettings{HazardDamagePerTurn: int(r.HazardDamage)}},
		},
		Turn: int(state.Turn),
		Board: Board{
			Width:   int(state.Width),
			Height:  int(state.Height),
			Food:    coords(state.Food),
			Hazards: coords(state.Hazards),
		},
	}
	for i := range state.Snakes {
		s := &state.Snakes[i]
		if !s.Alive() {
			continue
		}
		bs := Battlesnake{
			ID:     s.Id,
			Name:   s.Id,
			Health: int(s.Health),
			Body:   coords(s.Body),
			Head:   coords(s.Body[:1])[0],
			Length: len(s.Body),
		}
		req.Board.Snakes = append(req.Board.Snakes, bs)
		if s.Id == youID {
			req.You = bs
		}
	}
	return req
}

func coords(ps []game.Point) []Coord {
	out := make([]Coord, len(ps))
	for i, p := range ps {
		out[i] = Coord{X: int(p.X), Y: int(p.Y)}
	}
	return out
}
