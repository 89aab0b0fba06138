package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/snekab/api"
	"github.com/brensch/snekab/engine"
	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/search"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func body(pts ...[2]int) []api.Coord {
	out := make([]api.Coord, len(pts))
	for i, p := range pts {
		out[i] = api.Coord{X: p[0], Y: p[1]}
	}
	return out
}

// soloGame walks up once toward food, then turns back into its own neck.
func soloGame() *Game {
	food := body([2]int{5, 8})
	return &Game{
		ID: "g1",
		Info: GameInfo{
			Game:    GameDetails{ID: "g1", Width: 11, Height: 11, Timeout: 500},
			Ruleset: RulesetInfo{Name: "standard"},
		},
		Frames: []FrameData{
			{Turn: 0, Food: food, Snakes: []SnakeData{{ID: "s1", Name: "me", Health: 50, Body: body([2]int{5, 5}, [2]int{5, 4}, [2]int{5, 3})}}},
			{Turn: 1, Food: food, Snakes: []SnakeData{{ID: "s1", Name: "me", Health: 49, Body: body([2]int{5, 6}, [2]int{5, 5}, [2]int{5, 4})}}},
			{Turn: 2, Food: food, Snakes: []SnakeData{{ID: "s1", Name: "me", Health: 48, Body: body([2]int{5, 5}, [2]int{5, 6}, [2]int{5, 5}),
				Death: &Death{Cause: "snake-self-collision", Turn: 2}}}},
		},
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/games/%s/events"
}

func eventServer(t *testing.T, messages ...any) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/games/g1/events" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range messages {
			if s, ok := m.(string); ok {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(s))
				continue
			}
			// The client may hang up after game_end.
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func event(t *testing.T, typ string, data any) GameEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	return GameEvent{Type: typ, Data: raw}
}

func TestDownload(t *testing.T) {
	g := soloGame()
	msgs := []any{event(t, "game_info", g.Info), "{garbage"}
	for _, f := range g.Frames {
		msgs = append(msgs, event(t, "frame", f))
	}
	msgs = append(msgs, event(t, "game_end", struct{}{}), event(t, "frame", FrameData{Turn: 99}))

	cfg := Config{EngineURL: wsURL(eventServer(t, msgs...)), ConnectTimeout: time.Second, ReadTimeout: time.Second, Logger: quiet}
	got, err := Download(context.Background(), cfg, "g1")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got.ID != "g1" || got.Info.Game.Width != 11 || got.Info.Ruleset.Name != "standard" {
		t.Fatalf("info %+v", got.Info)
	}
	if !reflect.DeepEqual(got.Frames, g.Frames) {
		t.Fatalf("frames differ:\n%+v\n%+v", got.Frames, g.Frames)
	}
}

func TestDownload_NoFrames(t *testing.T) {
	srv := eventServer(t, event(t, "game_end", struct{}{}))
	_, err := Download(context.Background(), Config{EngineURL: wsURL(srv), ReadTimeout: time.Second, Logger: quiet}, "g1")
	if !errors.Is(err, ErrNoFrames) {
		t.Fatalf("err=%v", err)
	}

	if _, err := Download(context.Background(), Config{EngineURL: wsURL(srv), Logger: quiet}, "missing"); err == nil {
		t.Fatalf("expected a dial error for an unknown game")
	}
}

func TestFrameState(t *testing.T) {
	f := FrameData{
		Turn:    7,
		Food:    body([2]int{1, 1}, [2]int{1, 1}),
		Hazards: body([2]int{0, 0}),
		Board:   BoardData{Hazards: body([2]int{0, 0}, [2]int{0, 1})},
		Snakes: []SnakeData{
			{ID: "a", Health: 90, Body: body([2]int{3, 3}, [2]int{3, 2})},
			{ID: "b", Health: 20, Body: body([2]int{6, 6}), Death: &Death{Cause: "wall-collision", Turn: 6}},
		},
	}
	s := f.State(7, 9, "a")
	if s.Width != 7 || s.Height != 9 || s.Turn != 7 || s.YouId != "a" {
		t.Fatalf("header %+v", s)
	}
	if len(s.Food) != 1 || len(s.Hazards) != 2 {
		t.Fatalf("food=%v hazards=%v", s.Food, s.Hazards)
	}
	if s.Snakes[1].Alive() || !s.Snakes[0].Alive() || s.Snakes[0].Head() != (game.Point{X: 3, Y: 3}) {
		t.Fatalf("snakes %+v", s.Snakes)
	}
	if err := s.Validate("a"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestSizeAndSnake(t *testing.T) {
	g := &Game{Frames: []FrameData{{}, {Board: BoardData{Width: 19, Height: 21}, Snakes: []SnakeData{{ID: "x", Name: "Xeno"}}}}}
	if w, h := g.Size(); w != 19 || h != 21 {
		t.Fatalf("size %dx%d", w, h)
	}
	if w, h := (&Game{}).Size(); w != 11 || h != 11 {
		t.Fatalf("default size %dx%d", w, h)
	}
	if s, ok := g.Snake("Xeno"); !ok || s.ID != "x" {
		t.Fatalf("by name: %+v %v", s, ok)
	}
	if _, ok := g.Snake("nobody"); ok {
		t.Fatalf("found a missing snake")
	}
}

func TestPlayedMove(t *testing.T) {
	g := soloGame()
	if m, ok := PlayedMove(&g.Frames[0], &g.Frames[1], "s1"); !ok || m != game.MoveUp {
		t.Fatalf("turn 0: %v %v", m, ok)
	}
	if m, ok := PlayedMove(&g.Frames[1], &g.Frames[2], "s1"); !ok || m != game.MoveDown {
		t.Fatalf("turn 1: %v %v", m, ok)
	}
	if _, ok := PlayedMove(&g.Frames[0], &g.Frames[1], "ghost"); ok {
		t.Fatalf("move for a missing snake")
	}
}

func TestEvaluate(t *testing.T) {
	eng := engine.New(engine.Options{Search: search.Config{MaxDepth: 5}, Logger: quiet})

	rep, err := Evaluate(context.Background(), eng, soloGame(), "me", time.Second)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rep.SnakeID != "s1" || rep.Turns != 2 || rep.Agreed != 1 || rep.Rejected != 0 {
		t.Fatalf("report %+v", rep)
	}
	want := []Disagreement{{Turn: 1, Played: game.MoveDown, Chosen: rep.Disagreements[0].Chosen}}
	if !reflect.DeepEqual(rep.Disagreements, want) || rep.Disagreements[0].Chosen == game.MoveDown {
		t.Fatalf("disagreements %+v", rep.Disagreements)
	}
	if r := rep.AgreementRate(); r != 0.5 {
		t.Fatalf("rate %v", r)
	}

	if _, err := Evaluate(context.Background(), eng, soloGame(), "ghost", time.Second); !errors.Is(err, game.ErrUnknownSnake) {
		t.Fatalf("unknown snake: %v", err)
	}
}

func TestDiscover(t *testing.T) {
	mux := http.NewServeMux()
	page := func(links ...string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html><body>")
			for _, l := range links {
				fmt.Fprintf(w, `<a href="%s">x</a>`, l)
			}
			fmt.Fprint(w, "</body></html>")
		}
	}
	mux.HandleFunc("/leaderboard/standard", page(
		"/leaderboard/standard/alice/stats",
		"/leaderboard/standard/alice/stats",
		"/leaderboard/standard/bob/stats",
		"/leaderboard/standard",
	))
	mux.HandleFunc("/leaderboard/standard/alice/stats", page("/game/aaa-111", "/game/bbb-222", "/game/aaa-111"))
	mux.HandleFunc("/leaderboard/standard/bob/stats", page("/game/bbb-222", "/game/ccc-333", "/game/ddd-444"))
	mux.HandleFunc("/leaderboard/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := DiscoverConfig{
		LeaderboardURLs: []string{srv.URL + "/leaderboard/broken", srv.URL + "/leaderboard/standard"},
		Logger:          quiet,
	}
	got, err := Discover(context.Background(), cfg, func(id string) bool { return id == "ccc-333" })
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if want := []string{"aaa-111", "bbb-222", "ddd-444"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}

	cfg.MaxPlayers = 1
	got, err = Discover(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"aaa-111", "bbb-222"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("capped: got %v want %v", got, want)
	}
}
