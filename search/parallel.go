package search

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/snekab/eval"
	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/rules"
)

// rootParallel searches every root move on its own goroutine. Each branch owns
// a clone of the board; nothing mutable is shared. Branches search with a full
// window, so results are picked in root order to keep ties deterministic.
func (s *Searcher) rootParallel(ctx context.Context, state *game.GameState, me, depth int, prev game.Move, hasPrev bool) iteration {
	moves := orderRoot(rules.LegalMoves(state, me), prev, hasPrev)
	if len(moves) == 0 {
		return iteration{score: eval.LoseScore, complete: true}
	}

	type branch struct {
		score   int
		nodes   int64
		stopped bool
	}
	out := make([]branch, len(moves))
	next := (me + 1) % len(state.Snakes)

	var g errgroup.Group
	for i, m := range moves {
		i, m := i, m
		board := state.Clone()
		g.Go(func() error {
			w := walker{rules: s.Rules, eval: s.Eval, state: board, me: me, done: ctx.Done()}
			if w.expired() {
				out[i] = branch{stopped: true}
				return nil
			}
			w.rules.Apply(board, me, m)
			v := w.alphaBeta(next, depth-1, math.MinInt, math.MaxInt)
			out[i] = branch{score: v, nodes: w.nodes, stopped: w.stopped}
			return nil
		})
	}
	_ = g.Wait()

	it := iteration{score: math.MinInt, complete: true}
	for i, b := range out {
		it.nodes += b.nodes
		if b.stopped {
			it.complete = false
			continue
		}
		if !it.hasMove || b.score > it.score {
			it.move, it.hasMove, it.score = moves[i], true, b.score
		}
	}
	return it
}
