// Package engine turns one board snapshot into one move.
//
// Decide validates the snapshot, runs the search under the caller's deadline
// and falls back to a uniformly random legal move when the search has nothing
// or every branch loses.
// A cornered snake gets game.DefaultMove. None of those outcomes is an error;
// only malformed input is.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/brensch/snekab/eval"
	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/rules"
	"github.com/brensch/snekab/search"
)

// RandomSource picks the fallback move. *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

type Options struct {
	Rules   rules.Ruleset
	Weights eval.Weights
	Search  search.Config
	Logger  *slog.Logger
	// Rand defaults to a time-seeded generator.
	Rand RandomSource
}

// Engine is safe for concurrent use by multiple sessions.
type Engine struct {
	rules   rules.Ruleset
	weights eval.Weights
	search  search.Config
	log     *slog.Logger

	mu  sync.Mutex
	rng RandomSource
}

func New(opts Options) *Engine {
	if opts.Rules == (rules.Ruleset{}) {
		opts.Rules = rules.Standard
	}
	if opts.Weights == (eval.Weights{}) {
		opts.Weights = eval.DefaultWeights
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		rules:   opts.Rules,
		weights: opts.Weights,
		search:  opts.Search,
		log:     opts.Logger,
		rng:     opts.Rand,
	}
}

// Decision is the chosen move plus what the search saw.
type Decision struct {
	Move     game.Move
	Score    int
	Depth    int
	Nodes    int64
	Fallback bool
	Elapsed  time.Duration
}

// Decide chooses a move for youID. sess may be nil; when set it supplies the
// game's ruleset and records the decision. state is not modified.
func (e *Engine) Decide(ctx context.Context, sess *Session, state *game.GameState, youID string) (Decision, error) {
	start := time.Now()
	if state == nil {
		return Decision{Move: game.DefaultMove}, fmt.Errorf("decide: nil state: %w", game.ErrInvalidBoard)
	}
	if err := state.Validate(youID); err != nil {
		return Decision{Move: game.DefaultMove}, fmt.Errorf("decide turn %d: %w", state.Turn, err)
	}

	r := e.rules
	if sess != nil {
		r = sess.Rules
	}
	me := state.IndexOf(youID)
	board := state.Clone()

	scorer := &eval.Evaluator{W: e.weights, MaxHealth: r.MaxHealth}
	res := search.New(r, scorer, e.search).Search(ctx, board, me)
	d := Decision{
		Move:  res.Move,
		Score: res.Score,
		Depth: res.Depth,
		Nodes: res.Nodes,
	}
	// Every branch losing counts as no move.
	if !res.HasMove || (res.Complete && res.Score <= eval.LoseScore) {
		d.Move = e.fallback(state, me)
		d.Fallback = true
	}
	d.Elapsed = time.Since(start)

	if sess != nil {
		sess.record(d.Move)
	}

	e.log.Debug("decision",
		"turn", state.Turn,
		"you", youID,
		"move", d.Move.String(),
		"score", d.Score,
		"depth", d.Depth,
		"nodes", d.Nodes,
		"complete", res.Complete,
		"fallback", d.Fallback,
		"elapsed", d.Elapsed,
	)
	return d, nil
}

// fallback picks uniformly among the legal moves on the unmodified board.
func (e *Engine) fallback(state *game.GameState, me int) game.Move {
	legal := rules.LegalMoves(state, me)
	if len(legal) == 0 {
		return game.DefaultMove
	}
	e.mu.Lock()
	i := e.rng.Intn(len(legal))
	e.mu.Unlock()
	return legal[i]
}
