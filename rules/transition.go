package rules

import (
	"github.com/brensch/snekab/game"
)

// Ruleset carries the per-game constants the transition functions consume.
type Ruleset struct {
	MaxHealth    int32
	HazardDamage int32
	Hazards      bool
}

// Standard matches the public Battlesnake standard ruleset.
var Standard = Ruleset{MaxHealth: game.MaxHealth, HazardDamage: 14, Hazards: true}

func (r Ruleset) maxHealth() int32 {
	if r.MaxHealth <= 0 {
		return game.MaxHealth
	}
	return r.MaxHealth
}

type casualty struct {
	idx    int
	body   []game.Point
	health int32
}

// Undo records everything Apply changed so Revert can restore it exactly.
// It is a value type; keeping it on the stack keeps the search allocation-free.
type Undo struct {
	idx        int
	applied    bool
	prevBody   []game.Point
	prevHealth int32

	// moved is the body after the head was pushed; nil when the mover died
	// before advancing.
	moved []game.Point
	ate   bool
	tail  game.Point

	foodIdx int
	food    game.Point

	victim    casualty
	hasVictim bool
}

// Apply moves snake idx one step in direction m, in place, resolving walls,
// body hits, head-to-head, food, hazards and starvation in that order.
//
// Eating pushes the new head and keeps the tail, so length grows by one.
// Health is reset by food first, then hazard damage is taken, then the
// starvation tick applies when nothing was eaten. Health reaching zero at any
// of those points kills the mover.
//
// Apply must only be called for a living snake; a dead snake yields a no-op
// Undo.
func (r Ruleset) Apply(state *game.GameState, idx int, m game.Move) Undo {
	u := Undo{idx: idx, foodIdx: -1}
	s := &state.Snakes[idx]
	if !s.Alive() {
		return u
	}
	u.applied = true
	u.prevBody = s.Body
	u.prevHealth = s.Health

	p := s.Head().Step(m)

	if !state.InBounds(p) {
		s.Kill()
		return u
	}

	for i := range state.Snakes {
		o := &state.Snakes[i]
		if !o.Alive() {
			continue
		}
		for _, bp := range o.Body[1:] {
			if bp == p {
				s.Kill()
				return u
			}
		}
	}

	for i := range state.Snakes {
		if i == idx {
			continue
		}
		o := &state.Snakes[i]
		if !o.Alive() || o.Head() != p {
			continue
		}
		u.victim = casualty{idx: i, body: o.Body, health: o.Health}
		switch {
		case s.Length() > o.Length():
			u.hasVictim = true
			o.Kill()
		case s.Length() < o.Length():
			s.Kill()
			return u
		default:
			u.hasVictim = true
			o.Kill()
			s.Kill()
			return u
		}
		break
	}

	n := len(s.Body)
	if fi := state.FoodIndex(p); fi >= 0 {
		u.ate = true
		u.foodIdx = fi
		u.food = p
		state.Food = removePoint(state.Food, fi)

		body := append(s.Body, s.Body[n-1])
		copy(body[1:], body[:n])
		body[0] = p
		s.Body = body
		s.Health = r.maxHealth()
	} else {
		u.tail = s.Body[n-1]
		copy(s.Body[1:], s.Body[:n-1])
		s.Body[0] = p
	}
	u.moved = s.Body

	if r.Hazards && r.HazardDamage > 0 && state.IsHazard(p) {
		s.Health -= r.HazardDamage
	}
	if !u.ate {
		s.Health--
	}
	if s.Health <= 0 {
		s.Kill()
	}
	return u
}

// Revert restores the board to exactly what it was before the matching Apply.
// Undos must be reverted in reverse order of application.
func (u *Undo) Revert(state *game.GameState) {
	if !u.applied {
		return
	}
	s := &state.Snakes[u.idx]

	if m := u.moved; m != nil {
		if u.ate {
			n := len(m) - 1
			copy(m[:n], m[1:])
			state.Food = insertPoint(state.Food, u.foodIdx, u.food)
		} else {
			n := len(m)
			copy(m[:n-1], m[1:])
			m[n-1] = u.tail
		}
	}
	s.Body = u.prevBody
	s.Health = u.prevHealth

	if u.hasVictim {
		v := &state.Snakes[u.victim.idx]
		v.Body = u.victim.body
		v.Health = u.victim.health
	}
}

func removePoint(pts []game.Point, i int) []game.Point {
	copy(pts[i:], pts[i+1:])
	return pts[:len(pts)-1]
}

func insertPoint(pts []game.Point, i int, p game.Point) []game.Point {
	pts = append(pts, game.Point{})
	copy(pts[i+1:], pts[i:])
	pts[i] = p
	return pts
}
