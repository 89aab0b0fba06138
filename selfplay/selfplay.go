// Package selfplay runs engine-vs-engine games under the true simultaneous
// rules and records every turn for the archive.
package selfplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/snekab/engine"
	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/rules"
	"github.com/brensch/snekab/store"
)

const (
	DefaultSize        int32 = 11
	DefaultMoveTimeout       = 100 * time.Millisecond
	DefaultMaxTurns    int32 = 1000
	startLength              = 3
)

// ErrNoPlayers is returned when a game is requested with nobody in it.
var ErrNoPlayers = errors.New("selfplay: no players")

// Player is one seat at the table. Several players may share an Engine.
type Player struct {
	Name   string
	Engine *engine.Engine
}

type Options struct {
	Width, Height int32
	Rules         rules.Ruleset
	Food          rules.FoodSettings
	// MoveTimeout bounds each snake's decision on every turn.
	MoveTimeout time.Duration
	// MaxTurns ends the game as a draw once reached.
	MaxTurns int32
	// Seed drives food spawning. Zero picks a time-based seed.
	Seed   int64
	Source string
	Logger *slog.Logger
	// OnTurn, if set, is called after each recorded turn.
	OnTurn func(turn int32)
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultSize
	}
	if o.Height <= 0 {
		o.Height = DefaultSize
	}
	if o.Rules == (rules.Ruleset{}) {
		o.Rules = rules.Standard
	}
	if o.Food == (rules.FoodSettings{}) {
		o.Food = rules.DefaultFoodSettings
	}
	if o.MoveTimeout <= 0 {
		o.MoveTimeout = DefaultMoveTimeout
	}
	if o.MaxTurns <= 0 {
		o.MaxTurns = DefaultMaxTurns
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.Source == "" {
		o.Source = "arena"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Result is one finished (or interrupted) game.
type Result struct {
	GameID string
	// WinnerID and WinnerName are empty on a draw.
	WinnerID     string
	WinnerName   string
	Turns        int32
	Completed    bool
	Eliminations []rules.Elimination
	Rows         []store.ArchiveTurnRow
}

// PlayGame plays one game to completion. On cancellation it returns the
// partial result with Completed false and the context's error.
func PlayGame(ctx context.Context, players []Player, opts Options) (Result, error) {
	if len(players) == 0 {
		return Result{}, ErrNoPlayers
	}
	for i, p := range players {
		if p.Engine == nil {
			return Result{}, fmt.Errorf("selfplay: player %d (%s) has no engine", i, p.Name)
		}
	}
	opts = opts.withDefaults()
	rng := rand.New(rand.NewSource(opts.Seed))

	gameID := uuid.NewString()
	state, err := InitialState(opts.Width, opts.Height, len(players), rng, opts.Food)
	if err != nil {
		return Result{}, err
	}

	names := make(map[string]string, len(players))
	seats := make(map[string]Player, len(players))
	sessions := make([]*engine.Session, len(players))
	for i := range state.Snakes {
		id := state.Snakes[i].Id
		names[id] = players[i].Name
		seats[id] = players[i]
		sessions[i] = engine.NewSession(gameID, id, opts.Rules, opts.MoveTimeout)
	}

	log := opts.Logger.With("game", gameID)
	log.Debug("game started", "players", len(players), "seed", opts.Seed)

	res := Result{GameID: gameID}
	for !rules.IsGameOver(state) && state.Turn < opts.MaxTurns {
		decisions, err := decideAll(ctx, state, players, sessions, opts.MoveTimeout)
		if err != nil {
			return res, err
		}

		row := store.RowFromState(gameID, opts.Source, state, names)
		moves := make(map[string]game.Move, len(decisions))
		for i, d := range decisions {
			if d == nil {
				continue
			}
			moves[state.Snakes[i].Id] = d.Move
			as := &row.Snakes[i]
			as.Move = int32(d.Move)
			as.Score = int64(d.Score)
			as.Depth = int32(d.Depth)
			as.Nodes = d.Nodes
			as.Fallback = d.Fallback
		}
		res.Rows = append(res.Rows, row)

		if err := ctx.Err(); err != nil {
			res.Turns = state.Turn
			return res, err
		}

		var elims []rules.Elimination
		state, elims = opts.Rules.NextStateSimultaneous(state, moves, rng, opts.Food)
		for _, e := range elims {
			log.Debug("eliminated", "turn", state.Turn, "snake", names[e.ID], "cause", e.Cause, "by", names[e.By])
		}
		res.Eliminations = append(res.Eliminations, elims...)

		if opts.OnTurn != nil {
			opts.OnTurn(state.Turn)
		}
	}

	// The final board carries no moves; without it a finished game looks
	// like it stopped on a live position.
	res.Rows = append(res.Rows, store.RowFromState(gameID, opts.Source, state, names))

	res.Completed = true
	res.Turns = state.Turn
	if rules.IsGameOver(state) {
		res.WinnerID = rules.Winner(state)
	}
	res.WinnerName = seats[res.WinnerID].Name
	assignValues(res.Rows, res.WinnerID)

	log.Debug("game finished", "turns", res.Turns, "winner", res.WinnerName)
	return res, nil
}

// decideAll asks every living snake for a move at once. The state is shared
// read-only; Decide searches its own copy.
func decideAll(ctx context.Context, state *game.GameState, players []Player, sessions []*engine.Session, timeout time.Duration) ([]*engine.Decision, error) {
	out := make([]*engine.Decision, len(state.Snakes))
	var g errgroup.Group
	for i := range state.Snakes {
		if !state.Snakes[i].Alive() {
			continue
		}
		g.Go(func() error {
			moveCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			d, err := players[i].Engine.Decide(moveCtx, sessions[i], state, state.Snakes[i].Id)
			if err != nil {
				return fmt.Errorf("turn %d snake %s: %w", state.Turn, players[i].Name, err)
			}
			out[i] = &d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// assignValues stamps the outcome on every row: 1 for the winner, -1 for
// everyone else, 0 for all on a draw.
func assignValues(rows []store.ArchiveTurnRow, winnerID string) {
	for i := range rows {
		for j := range rows[i].Snakes {
			s := &rows[i].Snakes[j]
			switch {
			case winnerID == "":
				s.Value = 0
			case s.ID == winnerID:
				s.Value = 1
			default:
				s.Value = -1
			}
		}
	}
}

// CheckBoard reports whether n snakes can start on a width x height board.
func CheckBoard(width, height int32, n int) error {
	if width <= 0 || height <= 0 || int64(width)*int64(height) > game.MaxCells {
		return fmt.Errorf("selfplay: board %dx%d: %w", width, height, game.ErrInvalidBoard)
	}
	if starts := startPoints(width, height); n > len(starts) {
		return fmt.Errorf("selfplay: %d snakes do not fit a %dx%d board: %w", n, width, height, game.ErrInvalidBoard)
	}
	return nil
}

// InitialState lays out n snakes on standard start cells, each a stack of
// three segments on one cell with full health, then places the minimum food.
// A nil rng keeps the start order and places no food.
func InitialState(width, height int32, n int, rng *rand.Rand, food rules.FoodSettings) (*game.GameState, error) {
	if err := CheckBoard(width, height, n); err != nil {
		return nil, err
	}
	starts := startPoints(width, height)
	if rng != nil {
		rng.Shuffle(len(starts), func(i, j int) { starts[i], starts[j] = starts[j], starts[i] })
	}

	state := &game.GameState{Width: width, Height: height}
	for i := 0; i < n; i++ {
		body := make([]game.Point, startLength)
		for k := range body {
			body[k] = starts[i]
		}
		state.Snakes = append(state.Snakes, game.Snake{
			Id:     uuid.NewString(),
			Health: game.MaxHealth,
			Body:   body,
		})
	}
	state.YouId = state.Snakes[0].Id

	rules.ApplyFoodSettings(state, rng, rules.FoodSettings{MinimumFood: food.MinimumFood})
	return state, nil
}

// startPoints returns the corners then the edge midpoints, one cell in from
// the wall, deduplicated for tiny boards.
func startPoints(width, height int32) []game.Point {
	lo, hiX, hiY := int32(1), width-2, height-2
	midX, midY := (width-1)/2, (height-1)/2
	if width < 3 || height < 3 {
		lo, hiX, hiY = 0, width-1, height-1
	}
	cands := []game.Point{
		{X: lo, Y: lo}, {X: hiX, Y: hiY}, {X: lo, Y: hiY}, {X: hiX, Y: lo},
		{X: lo, Y: midY}, {X: midX, Y: hiY}, {X: hiX, Y: midY}, {X: midX, Y: lo},
	}
	out := cands[:0:0]
	seen := make(map[game.Point]bool)
	for _, p := range cands {
		if p.X < 0 || p.Y < 0 || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
