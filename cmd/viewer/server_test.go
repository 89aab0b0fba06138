package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brensch/snekab/api"
	"github.com/brensch/snekab/engine"
	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/rules"
	"github.com/brensch/snekab/search"
	"github.com/brensch/snekab/store"
)

func archivedServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	state := &game.GameState{
		Width:  11,
		Height: 11,
		Snakes: []game.Snake{{Id: "s1", Health: 50, Body: []game.Point{{X: 5, Y: 5}, {X: 5, Y: 4}, {X: 5, Y: 3}}}},
		Food:   []game.Point{{X: 5, Y: 8}},
	}
	row := store.RowFromState("g1", "arena", state, map[string]string{"s1": "alpha"})
	row.Snakes[0].Move = int32(game.MoveLeft)
	if _, err := store.WriteArchiveBatchParquetAtomic(dir, []store.ArchiveTurnRow{row}); err != nil {
		t.Fatal(err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(engine.Options{Search: search.Config{MaxDepth: 5}, Logger: log})
	return NewServer([]string{dir}, eng, rules.Standard, time.Second, log)
}

func get(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestGamesAndTurns(t *testing.T) {
	h := archivedServer(t).Router()

	w := get(t, h, http.MethodGet, "/api/games")
	if w.Code != http.StatusOK {
		t.Fatalf("games status %d: %s", w.Code, w.Body.String())
	}
	var list struct {
		Total int               `json:"total"`
		Games []store.GameIndex `json:"games"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Games[0].GameID != "g1" {
		t.Fatalf("list %+v", list)
	}

	w = get(t, h, http.MethodGet, "/api/games/g1/turns")
	var rows []store.ArchiveTurnRow
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Snakes[0].Name != "alpha" {
		t.Fatalf("rows %+v", rows)
	}

	if w := get(t, h, http.MethodGet, "/api/games/nope/turns"); w.Code != http.StatusNotFound {
		t.Fatalf("missing game status %d", w.Code)
	}
	if w := get(t, h, http.MethodGet, "/api/games/g1/turns/0/board"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Size=11x11") {
		t.Fatalf("board %d: %s", w.Code, w.Body.String())
	}
	if w := get(t, h, http.MethodGet, "/api/games/g1/turns/x/board"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad turn status %d", w.Code)
	}
	if w := get(t, h, http.MethodGet, "/api/summary"); w.Code != http.StatusOK {
		t.Fatalf("summary status %d", w.Code)
	}
}

func TestDecide(t *testing.T) {
	h := archivedServer(t).Router()

	w := get(t, h, http.MethodPost, "/api/games/g1/turns/0/decide?snake=alpha")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp decideResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Snake != "s1" || resp.Move != "up" || resp.Played != "left" || resp.Fallback {
		t.Fatalf("resp %+v", resp)
	}

	if w := get(t, h, http.MethodPost, "/api/games/g1/turns/0/decide?snake=ghost"); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown snake status %d", w.Code)
	}
	if w := get(t, h, http.MethodPost, "/api/games/g1/turns/9/decide?snake=alpha"); w.Code != http.StatusNotFound {
		t.Fatalf("missing turn status %d", w.Code)
	}
}

func TestMoveRequest(t *testing.T) {
	h := archivedServer(t).Router()

	w := get(t, h, http.MethodGet, "/api/games/g1/turns/0/request?snake=alpha")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var req api.GameRequest
	if err := json.Unmarshal(w.Body.Bytes(), &req); err != nil {
		t.Fatal(err)
	}
	if req.Game.ID != "g1" || req.You.ID != "s1" || req.You.Name != "alpha" || req.Game.Timeout != 1000 {
		t.Fatalf("request %+v", req)
	}
	state := req.ToGameState()
	if err := state.Validate("s1"); err != nil {
		t.Fatalf("exported request does not round trip: %v", err)
	}
	if state.Snakes[0].Head() != (game.Point{X: 5, Y: 5}) || len(state.Food) != 1 {
		t.Fatalf("state %+v", state)
	}

	if w := get(t, h, http.MethodGet, "/api/games/g1/turns/0/request?snake=ghost"); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown snake status %d", w.Code)
	}
}
