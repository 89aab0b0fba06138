// Package rules implements Battlesnake move legality and state transitions.
//
// Two transition models live here. Ruleset.Apply moves a single snake in place
// and returns an Undo record; the search uses it to walk one shared board with
// snakes taking turns. Ruleset.NextStateSimultaneous resolves a full round the
// way the real game server does and is used by the local arena as its referee.
package rules

import (
	"github.com/brensch/snekab/game"
)

// IsLegal reports whether moving snake idx in direction m is not immediately
// fatal against the current geometry.
//
// Own-body policy is conservative: every current segment occludes, including
// the tail that may vacate this turn. Moving onto a rival head is illegal only
// when the mover is strictly shorter; equal lengths stay legal so the search
// can weigh a double elimination.
func IsLegal(state *game.GameState, idx int, m game.Move) bool {
	if idx < 0 || idx >= len(state.Snakes) {
		return false
	}
	you := &state.Snakes[idx]
	if !you.Alive() {
		return false
	}

	p := you.Head().Step(m)
	if !state.InBounds(p) {
		return false
	}

	for i := range state.Snakes {
		s := &state.Snakes[i]
		if !s.Alive() {
			continue
		}
		for j, bp := range s.Body {
			if bp != p {
				continue
			}
			if j == 0 && i != idx {
				if you.Length() < s.Length() {
					return false
				}
				continue
			}
			return false
		}
	}

	return true
}

// LegalMoves returns the legal directions for snake idx in game.Moves order.
func LegalMoves(state *game.GameState, idx int) []game.Move {
	moves := make([]game.Move, 0, 4)
	for _, m := range game.Moves {
		if IsLegal(state, idx, m) {
			moves = append(moves, m)
		}
	}
	return moves
}
