// Package eval scores a board from one snake's point of view.
package eval

import (
	"sync"

	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/rules"
)

// Terminal scores. Heuristic scores of non-terminal boards stay well inside
// this range.
const (
	WinScore  = 1_000_000
	LoseScore = -1_000_000
)

// Evaluator is safe for concurrent use.
type Evaluator struct {
	W Weights
	// MaxHealth is the ruleset's full health. Zero means game.MaxHealth.
	MaxHealth int32
}

func New(w Weights) *Evaluator {
	return &Evaluator{W: w, MaxHealth: game.MaxHealth}
}

func (e *Evaluator) maxHealth() int32 {
	if e.MaxHealth <= 0 {
		return game.MaxHealth
	}
	return e.MaxHealth
}

// Score returns the desirability of state for snake idx. It is defined for
// every board: a dead snake scores LoseScore and the sole survivor of a
// multi-snake board scores WinScore.
func (e *Evaluator) Score(state *game.GameState, idx int) int {
	if idx < 0 || idx >= len(state.Snakes) {
		return LoseScore
	}
	you := &state.Snakes[idx]
	if !you.Alive() {
		return LoseScore
	}
	if len(state.Snakes) > 1 && state.LiveCount() == 1 {
		return WinScore
	}

	w := &e.W
	head := you.Head()
	score := 0

	full := e.maxHealth()
	satiation := w.Satiation
	if satiation <= 0 {
		satiation = full
	}
	score += w.Health * int(min(you.Health, satiation))
	score += w.Length * you.Length()

	if d, ok := nearestFood(state, head); ok {
		missing := max(int(full-you.Health), 0)
		score -= w.Hunger * d * missing / int(full)
	}

	grid := occupancy(state)
	defer grid.release()

	if w.FreeNeighbors != 0 {
		free := 0
		for _, n := range head.Neighbors() {
			if state.InBounds(n) && !grid.blocked(n) {
				free++
			}
		}
		score += w.FreeNeighbors * free
	}

	if w.Space != 0 && w.SpaceCap > 0 {
		score += w.Space * grid.floodFill(head, w.SpaceCap)
	}

	if w.Threat != 0 && w.ThreatRadius > 0 {
		score -= w.Threat * threat(state, idx, w.ThreatRadius)
	}

	return score
}

// nearestFood returns the Manhattan distance from p to the closest food.
func nearestFood(state *game.GameState, p game.Point) (int, bool) {
	best, ok := 0, false
	for _, f := range state.Food {
		d := game.Manhattan(p, f)
		if !ok || d < best {
			best, ok = d, true
		}
	}
	return best, ok
}

// PredictGreedy guesses a rival's next head: the legal step that gets closest
// to its own nearest food. With no food or no legal step the head stays put.
func PredictGreedy(state *game.GameState, idx int) game.Point {
	s := &state.Snakes[idx]
	head := s.Head()
	if len(state.Food) == 0 {
		return head
	}
	best, bestDist := head, -1
	for _, m := range game.Moves {
		if !rules.IsLegal(state, idx, m) {
			continue
		}
		p := head.Step(m)
		d, _ := nearestFood(state, p)
		if bestDist < 0 || d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

// threat sums how far inside radius each rival that could win a head-on
// meeting is predicted to be.
func threat(state *game.GameState, idx, radius int) int {
	you := &state.Snakes[idx]
	head := you.Head()
	total := 0
	for i := range state.Snakes {
		if i == idx {
			continue
		}
		o := &state.Snakes[i]
		if !o.Alive() || o.Length() < you.Length() {
			continue
		}
		d := game.Manhattan(PredictGreedy(state, i), head)
		if d < radius {
			total += radius - d
		}
	}
	return total
}

type grid struct {
	w, h  int32
	cells []bool
	queue []game.Point
}

var gridPool = sync.Pool{New: func() any { return new(grid) }}

// occupancy marks every live body segment. The head is included.
func occupancy(state *game.GameState) *grid {
	g := gridPool.Get().(*grid)
	g.w, g.h = state.Width, state.Height
	n := int(state.Width) * int(state.Height)
	if cap(g.cells) < n {
		g.cells = make([]bool, n)
	} else {
		g.cells = g.cells[:n]
		clear(g.cells)
	}
	for i := range state.Snakes {
		s := &state.Snakes[i]
		if !s.Alive() {
			continue
		}
		for _, p := range s.Body {
			if state.InBounds(p) {
				g.cells[p.Y*g.w+p.X] = true
			}
		}
	}
	return g
}

func (g *grid) release() { gridPool.Put(g) }

func (g *grid) blocked(p game.Point) bool { return g.cells[p.Y*g.w+p.X] }

// floodFill counts free cells reachable from start, stopping at limit. It
// marks visited cells, so call it last.
func (g *grid) floodFill(start game.Point, limit int) int {
	g.queue = append(g.queue[:0], start)
	count := 0
	for len(g.queue) > 0 && count < limit {
		p := g.queue[len(g.queue)-1]
		g.queue = g.queue[:len(g.queue)-1]
		for _, n := range p.Neighbors() {
			if n.X < 0 || n.Y < 0 || n.X >= g.w || n.Y >= g.h || g.blocked(n) {
				continue
			}
			g.cells[n.Y*g.w+n.X] = true
			count++
			g.queue = append(g.queue, n)
		}
	}
	return min(count, limit)
}
