// Package search picks moves with depth-limited alpha-beta minimax.
//
// Snakes move one at a time in slot order, so one ply is a single snake's
// move. The controlled snake maximizes and every rival minimizes. The tree is
// walked over a single board that is mutated in place by rules.Ruleset.Apply
// and restored by Undo.Revert on the way back up; no board is cloned inside
// the tree.
package search

import (
	"context"
	"math"

	"github.com/brensch/snekab/eval"
	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/rules"
)

const DefaultMaxDepth = 12

// Scorer is the evaluator the search consults at leaves.
type Scorer interface {
	Score(state *game.GameState, idx int) int
}

type Config struct {
	// MaxDepth bounds iterative deepening, in plies.
	MaxDepth int
	// Parallel searches each root move on its own goroutine and board copy.
	Parallel bool
}

// Searcher is stateless between calls and safe for concurrent use.
type Searcher struct {
	Rules  rules.Ruleset
	Eval   Scorer
	Config Config
}

// Result is the outcome of one Search call.
type Result struct {
	Move    game.Move
	HasMove bool
	Score   int
	// Depth is the deepest fully searched depth, or 0 when only a partial
	// first iteration finished.
	Depth int
	Nodes int64
	// Complete is false when Move comes from an interrupted first iteration.
	Complete bool
}

func New(r rules.Ruleset, scorer Scorer, cfg Config) *Searcher {
	return &Searcher{Rules: r, Eval: scorer, Config: cfg}
}

// Search runs iterative deepening for snake me until MaxDepth is reached, the
// outcome is decided, or ctx is done. state is not modified.
func (s *Searcher) Search(ctx context.Context, state *game.GameState, me int) Result {
	maxDepth := s.Config.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	var res Result
	var prev game.Move
	hasPrev := false

	for depth := 1; depth <= maxDepth; depth++ {
		var it iteration
		if s.Config.Parallel {
			it = s.rootParallel(ctx, state, me, depth, prev, hasPrev)
		} else {
			it = s.root(ctx, state.Clone(), me, depth, prev, hasPrev)
		}
		res.Nodes += it.nodes

		if !it.complete {
			if res.Depth == 0 && it.hasMove {
				res.Move, res.HasMove, res.Score = it.move, true, it.score
			}
			break
		}

		res.Move, res.HasMove, res.Score = it.move, it.hasMove, it.score
		res.Depth = depth
		res.Complete = true
		if !it.hasMove || it.score >= eval.WinScore || it.score <= eval.LoseScore {
			break
		}
		prev, hasPrev = it.move, true
	}
	return res
}

type iteration struct {
	move     game.Move
	hasMove  bool
	score    int
	nodes    int64
	complete bool
}

// orderRoot puts the previous iteration's best move first.
func orderRoot(legal []game.Move, prev game.Move, hasPrev bool) []game.Move {
	if !hasPrev {
		return legal
	}
	for i, m := range legal {
		if m == prev {
			copy(legal[1:i+1], legal[:i])
			legal[0] = prev
			break
		}
	}
	return legal
}

func (s *Searcher) root(ctx context.Context, board *game.GameState, me, depth int, prev game.Move, hasPrev bool) iteration {
	w := walker{rules: s.Rules, eval: s.Eval, state: board, me: me, done: ctx.Done()}
	moves := orderRoot(rules.LegalMoves(board, me), prev, hasPrev)

	it := iteration{score: math.MinInt}
	alpha := math.MinInt
	next := (me + 1) % len(board.Snakes)
	for _, m := range moves {
		if w.expired() {
			break
		}
		u := w.rules.Apply(board, me, m)
		v := w.alphaBeta(next, depth-1, alpha, math.MaxInt)
		u.Revert(board)
		if w.stopped {
			break
		}
		if !it.hasMove || v > it.score {
			it.move, it.hasMove, it.score = m, true, v
		}
		alpha = max(alpha, v)
	}
	if len(moves) == 0 {
		it.score = eval.LoseScore
	}
	it.nodes = w.nodes
	it.complete = !w.stopped
	return it
}

type walker struct {
	rules   rules.Ruleset
	eval    Scorer
	state   *game.GameState
	me      int
	done    <-chan struct{}
	nodes   int64
	stopped bool
}

func (w *walker) expired() bool {
	if w.stopped {
		return true
	}
	select {
	case <-w.done:
		w.stopped = true
		return true
	default:
		return false
	}
}

// alphaBeta returns the minimax value of the board with snake cur to move.
// On expiry it unwinds with the best value seen at each ply.
func (w *walker) alphaBeta(cur, depth, alpha, beta int) int {
	w.nodes++
	state := w.state

	if depth <= 0 || w.expired() || !state.Snakes[w.me].Alive() {
		return w.eval.Score(state, w.me)
	}
	n := len(state.Snakes)
	if n > 1 && state.LiveCount() < 2 {
		return w.eval.Score(state, w.me)
	}
	for !state.Snakes[cur].Alive() {
		cur = (cur + 1) % n
	}

	legal := rules.LegalMoves(state, cur)
	if len(legal) == 0 {
		if cur == w.me {
			return eval.LoseScore
		}
		return eval.WinScore
	}

	next := (cur + 1) % n
	if cur == w.me {
		best := math.MinInt
		for i, m := range legal {
			if i > 0 && w.expired() {
				break
			}
			u := w.rules.Apply(state, cur, m)
			v := w.alphaBeta(next, depth-1, alpha, beta)
			u.Revert(state)
			best = max(best, v)
			alpha = max(alpha, v)
			if beta <= alpha {
				break
			}
		}
		return best
	}

	best := math.MaxInt
	for i, m := range legal {
		if i > 0 && w.expired() {
			break
		}
		u := w.rules.Apply(state, cur, m)
		v := w.alphaBeta(next, depth-1, alpha, beta)
		u.Revert(state)
		best = min(best, v)
		beta = min(beta, v)
		if beta <= alpha {
			break
		}
	}
	return best
}
