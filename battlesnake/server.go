package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brensch/snekab/api"
	"github.com/brensch/snekab/config"
	"github.com/brensch/snekab/engine"
	"github.com/brensch/snekab/game"
)

// Server answers the four Battlesnake hooks. Each game/snake pair gets its own
// engine.Session; the engine itself is shared.
type Server struct {
	cfg      config.Config
	engine   *engine.Engine
	sessions *engine.Sessions
	log      *slog.Logger
}

func NewServer(cfg config.Config, eng *engine.Engine, log *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		engine:   eng,
		sessions: engine.NewSessions(),
		log:      log,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/", s.handleIndex)
	r.POST("/start", s.handleStart)
	r.POST("/move", s.handleMove)
	r.POST("/end", s.handleEnd)
	return r
}

func (s *Server) handleIndex(c *gin.Context) {
	a := s.cfg.Appearance
	c.JSON(http.StatusOK, api.InfoResponse{
		APIVersion: "1",
		Author:     a.Author,
		Color:      a.Color,
		Head:       a.Head,
		Tail:       a.Tail,
		Version:    a.Version,
	})
}

func (s *Server) timeout(req *api.GameRequest) time.Duration {
	if req.Game.Timeout > 0 {
		return time.Duration(req.Game.Timeout) * time.Millisecond
	}
	return s.cfg.MoveTimeout
}

func (s *Server) handleStart(c *gin.Context) {
	var req api.GameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.sessions.Start(req.Game.ID, req.You.ID, req.Rules(s.cfg.Ruleset()), s.timeout(&req))
	s.log.Info("game started",
		"game", req.Game.ID,
		"you", req.You.ID,
		"ruleset", req.Game.Ruleset.Name,
		"size", fmt.Sprintf("%dx%d", req.Board.Width, req.Board.Height),
		"snakes", len(req.Board.Snakes),
	)
	c.Status(http.StatusOK)
}

// handleMove never fails a tick once the JSON parses: a malformed board is
// logged and answered with the default move.
func (s *Server) handleMove(c *gin.Context) {
	start := time.Now()

	var req api.GameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, created := s.sessions.GetOrStart(req.Game.ID, req.You.ID, req.Rules(s.cfg.Ruleset()), s.timeout(&req))
	if created {
		s.log.Warn("move without start, session created", "game", req.Game.ID, "you", req.You.ID)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.ComputeBudget(req.Game.Timeout))
	defer cancel()

	d, err := s.engine.Decide(ctx, sess, req.ToGameState(), req.You.ID)
	if err != nil {
		s.log.Error("bad move request", "game", req.Game.ID, "turn", req.Turn, "err", err)
		c.JSON(http.StatusOK, api.MoveResponse{Move: game.DefaultMove.String()})
		return
	}

	s.log.Info("move",
		"game", req.Game.ID,
		"turn", req.Turn,
		"move", d.Move.String(),
		"score", d.Score,
		"depth", d.Depth,
		"nodes", d.Nodes,
		"fallback", d.Fallback,
		"elapsed", time.Since(start),
	)
	c.JSON(http.StatusOK, api.MoveResponse{
		Move:  d.Move.String(),
		Shout: fmt.Sprintf("depth %d", d.Depth),
	})
}

func (s *Server) handleEnd(c *gin.Context) {
	var req api.GameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := "lost"
	for _, sn := range req.Board.Snakes {
		if sn.ID == req.You.ID {
			result = "won"
			break
		}
	}
	if len(req.Board.Snakes) == 0 {
		result = "draw"
	}

	turns := 0
	if sess, ok := s.sessions.End(req.Game.ID, req.You.ID); ok {
		turns = sess.Turns()
	}
	s.log.Info("game ended", "game", req.Game.ID, "turn", req.Turn, "result", result, "decisions", turns)
	c.Status(http.StatusOK)
}
