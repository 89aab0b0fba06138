// Package game defines the core board types for Battlesnake.
//
// These types are the single source of truth for rules evaluation and search.
// The state is designed to be mutated in place during search (with undo
// records kept by the rules package) and deep-cloned only where a branch needs
// its own isolated copy.
package game

import (
	"errors"
	"fmt"
)

// MaxHealth is the canonical starting and post-meal health.
const MaxHealth int32 = 100

// MaxCells bounds Width*Height. Validate rejects larger boards.
const MaxCells = 1 << 16

var (
	ErrInvalidBoard  = errors.New("invalid board")
	ErrUnknownSnake  = errors.New("unknown snake")
	ErrEmptyBody     = errors.New("snake has empty body")
	ErrDuplicateHead = errors.New("snakes share a head")
)

// Snake is one agent on the board. A dead snake keeps its slot in
// GameState.Snakes with an empty body and zero health so that index-based
// turn order stays stable.
type Snake struct {
	Id     string
	Health int32
	Body   []Point
}

// Alive reports whether the snake still occupies the board.
func (s *Snake) Alive() bool {
	return len(s.Body) > 0 && s.Health > 0
}

// Length is the body length; used as the head-to-head tie-break.
func (s *Snake) Length() int {
	return len(s.Body)
}

// Head returns body[0]. Callers must check Alive first.
func (s *Snake) Head() Point {
	return s.Body[0]
}

// Kill clears the body and zeroes health.
func (s *Snake) Kill() {
	s.Health = 0
	s.Body = nil
}

// GameState is the complete board snapshot for one tick.
// YouId selects the controlled snake.
type GameState struct {
	Width   int32
	Height  int32
	Snakes  []Snake
	Food    []Point
	Hazards []Point
	YouId   string
	Turn    int32
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := &GameState{
		Width:  s.Width,
		Height: s.Height,
		YouId:  s.YouId,
		Turn:   s.Turn,
	}

	if len(s.Food) > 0 {
		out.Food = make([]Point, len(s.Food))
		copy(out.Food, s.Food)
	}
	if len(s.Hazards) > 0 {
		out.Hazards = make([]Point, len(s.Hazards))
		copy(out.Hazards, s.Hazards)
	}

	if len(s.Snakes) > 0 {
		out.Snakes = make([]Snake, len(s.Snakes))
		for i := range s.Snakes {
			out.Snakes[i] = Snake{Id: s.Snakes[i].Id, Health: s.Snakes[i].Health}
			if len(s.Snakes[i].Body) > 0 {
				// One spare slot so the first meal in search does not reallocate.
				out.Snakes[i].Body = make([]Point, len(s.Snakes[i].Body), len(s.Snakes[i].Body)+1)
				copy(out.Snakes[i].Body, s.Snakes[i].Body)
			}
		}
	}

	return out
}

// InBounds reports whether p lies on the grid.
func (s *GameState) InBounds(p Point) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

// IndexOf returns the slot of the snake with the given id, or -1.
func (s *GameState) IndexOf(id string) int {
	for i := range s.Snakes {
		if s.Snakes[i].Id == id {
			return i
		}
	}
	return -1
}

// LiveCount returns the number of living snakes.
func (s *GameState) LiveCount() int {
	n := 0
	for i := range s.Snakes {
		if s.Snakes[i].Alive() {
			n++
		}
	}
	return n
}

// FoodIndex returns the index of p in Food, or -1.
func (s *GameState) FoodIndex(p Point) int {
	for i, f := range s.Food {
		if f == p {
			return i
		}
	}
	return -1
}

// IsHazard reports whether p is a hazard cell.
func (s *GameState) IsHazard(p Point) bool {
	for _, h := range s.Hazards {
		if h == p {
			return true
		}
	}
	return false
}

// Validate checks the snapshot before a decision. youID must name a living
// snake with a non-empty body.
func (s *GameState) Validate(youID string) error {
	if s == nil {
		return fmt.Errorf("%w: nil state", ErrInvalidBoard)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidBoard, s.Width, s.Height)
	}
	if int64(s.Width)*int64(s.Height) > MaxCells {
		return fmt.Errorf("%w: %dx%d exceeds %d cells", ErrInvalidBoard, s.Width, s.Height, MaxCells)
	}

	idx := s.IndexOf(youID)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownSnake, youID)
	}
	if len(s.Snakes[idx].Body) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyBody, youID)
	}
	if s.Snakes[idx].Health <= 0 {
		return fmt.Errorf("%w: snake %q has health %d", ErrInvalidBoard, youID, s.Snakes[idx].Health)
	}

	heads := make(map[Point]string, len(s.Snakes))
	for i := range s.Snakes {
		sn := &s.Snakes[i]
		if !sn.Alive() {
			continue
		}
		for _, p := range sn.Body {
			if !s.InBounds(p) {
				return fmt.Errorf("%w: snake %q segment (%d,%d) off board", ErrInvalidBoard, sn.Id, p.X, p.Y)
			}
		}
		if other, ok := heads[sn.Head()]; ok {
			return fmt.Errorf("%w: %q and %q at (%d,%d)", ErrDuplicateHead, other, sn.Id, sn.Head().X, sn.Head().Y)
		}
		heads[sn.Head()] = sn.Id
	}

	if err := checkUnique("food", s.Food); err != nil {
		return err
	}
	return checkUnique("hazard", s.Hazards)
}

func checkUnique(kind string, pts []Point) error {
	seen := make(map[Point]struct{}, len(pts))
	for _, p := range pts {
		if _, ok := seen[p]; ok {
			return fmt.Errorf("%w: duplicate %s at (%d,%d)", ErrInvalidBoard, kind, p.X, p.Y)
		}
		seen[p] = struct{}{}
	}
	return nil
}

// Dedupe returns pts without repeated coordinates, preserving first-seen order.
func Dedupe(pts []Point) []Point {
	if len(pts) == 0 {
		return pts
	}
	seen := make(map[Point]struct{}, len(pts))
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
