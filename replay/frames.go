package replay

import (
	"github.com/brensch/snekab/api"
	"github.com/brensch/snekab/game"
)

const defaultSize = 11

// Size returns the board dimensions, preferring the game info and falling
// back to the first frame that carries them, then to 11x11.
func (g *Game) Size() (int32, int32) {
	w, h := g.Info.Game.Width, g.Info.Game.Height
	for i := 0; (w <= 0 || h <= 0) && i < len(g.Frames); i++ {
		w, h = g.Frames[i].Board.Width, g.Frames[i].Board.Height
	}
	if w <= 0 || h <= 0 {
		return defaultSize, defaultSize
	}
	return int32(w), int32(h)
}

// Snake finds a snake by id or, failing that, by name.
func (g *Game) Snake(key string) (SnakeData, bool) {
	for _, f := range g.Frames {
		for _, s := range f.Snakes {
			if s.ID == key {
				return s, true
			}
		}
	}
	for _, f := range g.Frames {
		for _, s := range f.Snakes {
			if s.Name == key {
				return s, true
			}
		}
	}
	return SnakeData{}, false
}

// State converts the frame to a board. Dead snakes are kept with an empty
// body so indices stay stable across frames. Hazards may appear at either
// the frame or board level; both are merged.
func (f *FrameData) State(width, height int32, youID string) *game.GameState {
	state := &game.GameState{
		Width:  width,
		Height: height,
		Turn:   int32(f.Turn),
		YouId:  youID,
		Food:   game.Dedupe(points(f.Food)),
	}
	hazards := append(points(f.Hazards), points(f.Board.Hazards)...)
	state.Hazards = game.Dedupe(hazards)

	for _, sd := range f.Snakes {
		s := game.Snake{Id: sd.ID}
		if sd.Alive() {
			s.Health = int32(sd.Health)
			s.Body = points(sd.Body)
		}
		state.Snakes = append(state.Snakes, s)
	}
	return state
}

// PlayedMove derives the move snake id made between two consecutive frames
// from its head delta.
func PlayedMove(cur, next *FrameData, id string) (game.Move, bool) {
	from, ok := head(cur, id)
	if !ok {
		return 0, false
	}
	to, ok := head(next, id)
	if !ok {
		return 0, false
	}
	return game.MoveBetween(from, to)
}

func head(f *FrameData, id string) (game.Point, bool) {
	for _, s := range f.Snakes {
		if s.ID == id && len(s.Body) > 0 {
			return game.Point{X: int32(s.Body[0].X), Y: int32(s.Body[0].Y)}, true
		}
	}
	return game.Point{}, false
}

func points(cs []api.Coord) []game.Point {
	if len(cs) == 0 {
		return nil
	}
	out := make([]game.Point, len(cs))
	for i, c := range cs {
		out[i] = game.Point{X: int32(c.X), Y: int32(c.Y)}
	}
	return out
}
