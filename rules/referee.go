package rules

import (
	"math/rand"

	"github.com/brensch/snekab/game"
)

// Elimination causes, matching the strings the Battlesnake engine reports.
const (
	CauseOutOfBounds    = "wall-collision"
	CauseOutOfHealth    = "out-of-health"
	CauseSelfCollision  = "snake-self-collision"
	CauseSnakeCollision = "snake-collision"
	CauseHeadCollision  = "head-collision"
)

// Elimination records one snake removed during a simultaneous round.
type Elimination struct {
	ID    string
	Cause string
	By    string
}

// NextStateSimultaneous advances a full round with every living snake moving
// at once, the way the game server does. Snakes missing from moves go
// game.DefaultMove.
//
// Order: move heads and drop tails, starve one point, take hazard damage,
// feed (health reset and grow by duplicating the tail), spawn food, then
// eliminate. Eliminations are decided against the post-move board before
// anyone is removed, so two snakes can take each other out.
func (r Ruleset) NextStateSimultaneous(state *game.GameState, moves map[string]game.Move, rng *rand.Rand, food FoodSettings) (*game.GameState, []Elimination) {
	next := state.Clone()
	next.Turn++

	for i := range next.Snakes {
		s := &next.Snakes[i]
		if !s.Alive() {
			continue
		}
		m, ok := moves[s.Id]
		if !ok {
			m = game.DefaultMove
		}
		head := s.Head().Step(m)
		copy(s.Body[1:], s.Body[:len(s.Body)-1])
		s.Body[0] = head
		s.Health--
		if r.Hazards && r.HazardDamage > 0 && next.IsHazard(head) {
			s.Health -= r.HazardDamage
		}
	}

	eaten := make(map[game.Point]bool)
	for i := range next.Snakes {
		s := &next.Snakes[i]
		if !s.Alive() && len(s.Body) == 0 {
			continue
		}
		if next.FoodIndex(s.Head()) >= 0 {
			eaten[s.Head()] = true
			s.Health = r.maxHealth()
			s.Body = append(s.Body, s.Body[len(s.Body)-1])
		}
	}
	if len(eaten) > 0 {
		remaining := next.Food[:0]
		for _, f := range next.Food {
			if !eaten[f] {
				remaining = append(remaining, f)
			}
		}
		next.Food = remaining
	}

	ApplyFoodSettings(next, rng, food)

	elims := eliminate(next)
	for _, e := range elims {
		next.Snakes[next.IndexOf(e.ID)].Kill()
	}
	return next, elims
}

func eliminate(state *game.GameState) []Elimination {
	var out []Elimination
	for i := range state.Snakes {
		s := &state.Snakes[i]
		if len(s.Body) == 0 {
			continue
		}
		if s.Health <= 0 {
			out = append(out, Elimination{ID: s.Id, Cause: CauseOutOfHealth})
			continue
		}
		if !state.InBounds(s.Head()) {
			out = append(out, Elimination{ID: s.Id, Cause: CauseOutOfBounds})
			continue
		}
		if e, ok := collision(state, i); ok {
			out = append(out, e)
		}
	}
	return out
}

func collision(state *game.GameState, idx int) (Elimination, bool) {
	s := &state.Snakes[idx]
	head := s.Head()

	for _, p := range s.Body[1:] {
		if p == head {
			return Elimination{ID: s.Id, Cause: CauseSelfCollision, By: s.Id}, true
		}
	}

	for i := range state.Snakes {
		if i == idx {
			continue
		}
		o := &state.Snakes[i]
		if len(o.Body) == 0 || o.Health <= 0 || !state.InBounds(o.Head()) {
			continue
		}
		for _, p := range o.Body[1:] {
			if p == head {
				return Elimination{ID: s.Id, Cause: CauseSnakeCollision, By: o.Id}, true
			}
		}
	}

	for i := range state.Snakes {
		if i == idx {
			continue
		}
		o := &state.Snakes[i]
		if len(o.Body) == 0 || o.Health <= 0 {
			continue
		}
		if o.Head() == head && s.Length() <= o.Length() {
			return Elimination{ID: s.Id, Cause: CauseHeadCollision, By: o.Id}, true
		}
	}

	return Elimination{}, false
}

// Winner returns the id of the sole survivor, or "" for a draw or an
// unfinished game.
func Winner(state *game.GameState) string {
	winner := ""
	for i := range state.Snakes {
		if state.Snakes[i].Alive() {
			if winner != "" {
				return ""
			}
			winner = state.Snakes[i].Id
		}
	}
	return winner
}

// IsGameOver returns true when at most one snake is left (or none, for a
// single-snake game).
func IsGameOver(state *game.GameState) bool {
	live := state.LiveCount()
	if len(state.Snakes) == 1 {
		return live == 0
	}
	return live <= 1
}
