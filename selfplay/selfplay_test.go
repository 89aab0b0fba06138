package selfplay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/brensch/snekab/engine"
	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/rules"
	"github.com/brensch/snekab/search"
	"github.com/brensch/snekab/store"
)

func quietEngine(depth int, seed int64) *engine.Engine {
	return engine.New(engine.Options{
		Search: search.Config{MaxDepth: depth},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Rand:   rand.New(rand.NewSource(seed)),
	})
}

func TestInitialState(t *testing.T) {
	state, err := InitialState(11, 11, 4, rand.New(rand.NewSource(3)), rules.DefaultFoodSettings)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("\n%s", game.Render(state))

	if len(state.Snakes) != 4 || len(state.Food) < 1 {
		t.Fatalf("snakes=%d food=%d", len(state.Snakes), len(state.Food))
	}
	for _, s := range state.Snakes {
		if s.Health != game.MaxHealth || len(s.Body) != 3 {
			t.Fatalf("snake %+v", s)
		}
		for _, p := range s.Body {
			if p != s.Head() {
				t.Fatalf("snake %s not stacked: %v", s.Id, s.Body)
			}
		}
		if err := state.Validate(s.Id); err != nil {
			t.Fatalf("start invalid for %s: %v", s.Id, err)
		}
	}

	if _, err := InitialState(11, 11, 9, nil, rules.DefaultFoodSettings); !errors.Is(err, game.ErrInvalidBoard) {
		t.Fatalf("9 snakes: err=%v", err)
	}
}

func TestCheckBoard(t *testing.T) {
	tests := []struct {
		name          string
		width, height int32
		snakes        int
		ok            bool
	}{
		{"standard duel", 11, 11, 2, true},
		{"eight on 7x7", 7, 7, 8, true},
		{"two on 1x1", 1, 1, 2, false},
		{"zero size", 0, 11, 2, false},
		{"too many cells", 50000, 50000, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckBoard(tt.width, tt.height, tt.snakes)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, game.ErrInvalidBoard) {
				t.Fatalf("err=%v want ErrInvalidBoard", err)
			}
		})
	}
}

func TestPlayGame_RecordsEveryTurn(t *testing.T) {
	players := []Player{
		{Name: "alpha", Engine: quietEngine(3, 1)},
		{Name: "beta", Engine: quietEngine(2, 2)},
	}
	turns := 0
	res, err := PlayGame(context.Background(), players, Options{
		Width:       7,
		Height:      7,
		MoveTimeout: time.Second,
		MaxTurns:    40,
		Seed:        11,
		OnTurn:      func(int32) { turns++ },
	})
	if err != nil {
		t.Fatalf("PlayGame: %v", err)
	}
	if !res.Completed || res.GameID == "" {
		t.Fatalf("result %+v", res)
	}
	if len(res.Rows) != int(res.Turns)+1 || turns != int(res.Turns) {
		t.Fatalf("rows=%d turns=%d callbacks=%d", len(res.Rows), res.Turns, turns)
	}

	for i, row := range res.Rows {
		if row.Turn != int32(i) || row.GameID != res.GameID || row.Source != "arena" {
			t.Fatalf("row %d header %+v", i, row)
		}
		last := i == len(res.Rows)-1
		for _, s := range row.Snakes {
			if s.Name != "alpha" && s.Name != "beta" {
				t.Fatalf("row %d snake name %q", i, s.Name)
			}
			if last || !s.Alive {
				if s.Move != store.NoMove {
					t.Fatalf("row %d: %s has move %d without deciding", i, s.Name, s.Move)
				}
			} else if s.Move < 0 || s.Move > 3 {
				t.Fatalf("row %d: %s move %d", i, s.Name, s.Move)
			}

			want := float32(0)
			if res.WinnerID != "" {
				want = -1
				if s.ID == res.WinnerID {
					want = 1
				}
			}
			if s.Value != want {
				t.Fatalf("row %d: %s value %v want %v", i, s.Name, s.Value, want)
			}
		}
	}

	final := res.Rows[len(res.Rows)-1].State()
	if res.WinnerID != "" {
		if final.LiveCount() != 1 || res.WinnerName == "" {
			t.Fatalf("winner %q but %d alive", res.WinnerName, final.LiveCount())
		}
	} else if res.Turns < 40 && final.LiveCount() != 0 {
		t.Fatalf("draw before the turn cap with %d alive", final.LiveCount())
	}
}

func TestPlayGame_SoloHasNoWinner(t *testing.T) {
	res, err := PlayGame(context.Background(), []Player{{Name: "solo", Engine: quietEngine(2, 5)}}, Options{
		Width:       5,
		Height:      5,
		MoveTimeout: time.Second,
		MaxTurns:    25,
		Seed:        4,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Completed || res.WinnerID != "" {
		t.Fatalf("solo result %+v", res)
	}
	if res.Turns > 25 {
		t.Fatalf("turn cap ignored: %d", res.Turns)
	}
}

func TestPlayGame_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := PlayGame(ctx, []Player{
		{Name: "a", Engine: quietEngine(2, 1)},
		{Name: "b", Engine: quietEngine(2, 2)},
	}, Options{Seed: 9})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if res.Completed || len(res.Rows) != 1 {
		t.Fatalf("cancelled result completed=%v rows=%d", res.Completed, len(res.Rows))
	}
}

func TestPlayGame_BadPlayers(t *testing.T) {
	if _, err := PlayGame(context.Background(), nil, Options{}); !errors.Is(err, ErrNoPlayers) {
		t.Fatalf("no players: %v", err)
	}
	if _, err := PlayGame(context.Background(), []Player{{Name: "x"}}, Options{}); err == nil {
		t.Fatalf("nil engine accepted")
	}
}
