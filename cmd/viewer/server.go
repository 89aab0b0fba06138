package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brensch/snekab/api"
	"github.com/brensch/snekab/engine"
	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/rules"
	"github.com/brensch/snekab/store"
)

// Server exposes archived arena games over JSON and re-runs the engine on
// stored positions.
type Server struct {
	roots  []string
	engine *engine.Engine
	rules  rules.Ruleset
	budget time.Duration
	log    *slog.Logger
}

func NewServer(roots []string, eng *engine.Engine, r rules.Ruleset, budget time.Duration, log *slog.Logger) *Server {
	return &Server{roots: roots, engine: eng, rules: r, budget: budget, log: log}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), cors())
	g := r.Group("/api")
	g.GET("/summary", s.handleSummary)
	g.GET("/games", s.handleGames)
	g.GET("/games/:id/turns", s.handleTurns)
	g.GET("/games/:id/turns/:turn/board", s.handleBoard)
	g.GET("/games/:id/turns/:turn/request", s.handleRequest)
	g.POST("/games/:id/turns/:turn/decide", s.handleDecide)
	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrGameNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrUnknownSnake), errors.Is(err, game.ErrInvalidBoard), errors.Is(err, game.ErrEmptyBody):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Request.URL.Path, "err", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) handleSummary(c *gin.Context) {
	sum, err := store.Summarize(c.Request.Context(), s.roots...)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) handleGames(c *gin.Context) {
	games, err := store.ListGames(c.Request.Context(), s.roots...)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(games), "games": games})
}

func (s *Server) turns(ctx context.Context, gameID string) ([]store.ArchiveTurnRow, error) {
	games, err := store.ListGames(ctx, s.roots...)
	if err != nil {
		return nil, err
	}
	for _, g := range games {
		if g.GameID == gameID {
			return store.ReadGame(g.File, gameID)
		}
	}
	return nil, store.ErrGameNotFound
}

func (s *Server) handleTurns(c *gin.Context) {
	rows, err := s.turns(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// turn resolves the :id and :turn params to one stored row.
func (s *Server) turn(c *gin.Context) (store.ArchiveTurnRow, bool) {
	n, err := strconv.Atoi(c.Param("turn"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad turn"})
		return store.ArchiveTurnRow{}, false
	}
	rows, err := s.turns(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return store.ArchiveTurnRow{}, false
	}
	for _, r := range rows {
		if int(r.Turn) == n {
			return r, true
		}
	}
	s.fail(c, store.ErrGameNotFound)
	return store.ArchiveTurnRow{}, false
}

func (s *Server) handleBoard(c *gin.Context) {
	row, ok := s.turn(c)
	if !ok {
		return
	}
	c.String(http.StatusOK, game.Render(row.State()))
}

// snake resolves ?snake= (an id or name) in row, answering 400 when absent.
func snake(c *gin.Context, row *store.ArchiveTurnRow) (*store.ArchiveSnake, bool) {
	key := c.Query("snake")
	for i := range row.Snakes {
		if row.Snakes[i].ID == key || row.Snakes[i].Name == key {
			return &row.Snakes[i], true
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "unknown snake " + strconv.Quote(key)})
	return nil, false
}

// handleRequest rebuilds the /move body the snake would have received on the
// stored turn, ready to feed to debuggame or a running bot.
func (s *Server) handleRequest(c *gin.Context) {
	row, ok := s.turn(c)
	if !ok {
		return
	}
	sn, ok := snake(c, &row)
	if !ok {
		return
	}
	req := api.FromGameState(row.GameID, row.State(), sn.ID, s.rules, int(s.budget.Milliseconds()))
	names := make(map[string]string, len(row.Snakes))
	for _, as := range row.Snakes {
		names[as.ID] = as.Name
	}
	for i := range req.Board.Snakes {
		req.Board.Snakes[i].Name = names[req.Board.Snakes[i].ID]
	}
	req.You.Name = sn.Name
	c.JSON(http.StatusOK, req)
}

type decideResponse struct {
	Snake    string `json:"snake"`
	Move     string `json:"move"`
	Played   string `json:"played,omitempty"`
	Score    int    `json:"score"`
	Depth    int    `json:"depth"`
	Nodes    int64  `json:"nodes"`
	Fallback bool   `json:"fallback"`
}

// handleDecide asks the engine what it would play now for ?snake= (an id or
// name) on the stored board, next to what was recorded.
func (s *Server) handleDecide(c *gin.Context) {
	row, ok := s.turn(c)
	if !ok {
		return
	}
	sn, ok := snake(c, &row)
	if !ok {
		return
	}

	state := row.State()
	state.YouId = sn.ID
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.budget)
	defer cancel()
	d, err := s.engine.Decide(ctx, nil, state, sn.ID)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := decideResponse{
		Snake:    sn.ID,
		Move:     d.Move.String(),
		Score:    d.Score,
		Depth:    d.Depth,
		Nodes:    d.Nodes,
		Fallback: d.Fallback,
	}
	if sn.Move >= 0 && sn.Move < int32(len(game.Moves)) {
		resp.Played = game.Move(sn.Move).String()
	}
	c.JSON(http.StatusOK, resp)
}
