package replay

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/brensch/snekab/engine"
	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/rules"
)

// Disagreement is a turn where the engine would have moved differently.
type Disagreement struct {
	Turn   int
	Played game.Move
	Chosen game.Move
}

type Report struct {
	GameID    string
	SnakeID   string
	SnakeName string
	// Turns counts the compared turns: the snake was alive and its next
	// head is known.
	Turns         int
	Agreed        int
	Fallbacks     int
	Rejected      int
	Disagreements []Disagreement
}

func (r Report) AgreementRate() float64 {
	if r.Turns == 0 {
		return 0
	}
	return float64(r.Agreed) / float64(r.Turns)
}

// Rules returns the standard ruleset with the game's hazard damage, if set.
func (g *Game) Rules() rules.Ruleset {
	r := rules.Standard
	if d := g.Info.Ruleset.Settings.HazardDamagePerTurn; d > 0 {
		r.HazardDamage = int32(d)
	}
	return r
}

// Evaluate replays g from the point of view of snake (id or name) and asks
// eng for a move on every turn, with budget as the per-turn deadline.
func Evaluate(ctx context.Context, eng *engine.Engine, g *Game, snake string, budget time.Duration) (Report, error) {
	sd, ok := g.Snake(snake)
	if !ok {
		return Report{}, fmt.Errorf("replay %s: %w: %q", g.ID, game.ErrUnknownSnake, snake)
	}
	rep := Report{GameID: g.ID, SnakeID: sd.ID, SnakeName: sd.Name}

	frames := slices.Clone(g.Frames)
	slices.SortStableFunc(frames, func(a, b FrameData) int { return cmp.Compare(a.Turn, b.Turn) })

	w, h := g.Size()
	sess := engine.NewSession(g.ID, sd.ID, g.Rules(), budget)
	for i := 0; i+1 < len(frames); i++ {
		cur, next := &frames[i], &frames[i+1]
		if !aliveIn(cur, sd.ID) {
			continue
		}
		played, ok := PlayedMove(cur, next, sd.ID)
		if !ok {
			continue
		}

		moveCtx, cancel := context.WithTimeout(ctx, budget)
		d, err := eng.Decide(moveCtx, sess, cur.State(w, h, sd.ID), sd.ID)
		cancel()
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err != nil {
			rep.Rejected++
			continue
		}

		rep.Turns++
		if d.Fallback {
			rep.Fallbacks++
		}
		if d.Move == played {
			rep.Agreed++
		} else {
			rep.Disagreements = append(rep.Disagreements, Disagreement{Turn: cur.Turn, Played: played, Chosen: d.Move})
		}
	}
	return rep, nil
}

func aliveIn(f *FrameData, id string) bool {
	for i := range f.Snakes {
		if f.Snakes[i].ID == id {
			return f.Snakes[i].Alive()
		}
	}
	return false
}
