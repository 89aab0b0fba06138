// Package replay pulls finished games from the public Battlesnake engine and
// re-runs the engine on every turn to measure how often it agrees with the
// move that was actually played.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/snekab/api"
)

// ErrNoFrames is returned when a game stream ends before any frame arrived.
var ErrNoFrames = errors.New("replay: no frames")

type Config struct {
	// EngineURL is a format string taking the game id.
	EngineURL      string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Logger         *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		EngineURL:      "wss://engine.battlesnake.com/games/%s/events",
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
	}
}

// GameEvent is one message on the events socket.
type GameEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type GameInfo struct {
	Game    GameDetails `json:"game"`
	Ruleset RulesetInfo `json:"ruleset"`
}

type GameDetails struct {
	ID      string `json:"id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Timeout int    `json:"timeout"`
}

type RulesetInfo struct {
	Name     string              `json:"name"`
	Version  string              `json:"version"`
	Settings api.RulesetSettings `json:"settings"`
}

type FrameData struct {
	Turn    int         `json:"turn"`
	Snakes  []SnakeData `json:"snakes"`
	Food    []api.Coord `json:"food"`
	Hazards []api.Coord `json:"hazards"`
	Board   BoardData   `json:"board,omitempty"`
}

type SnakeData struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Health int         `json:"health"`
	Body   []api.Coord `json:"body"`
	Author string      `json:"author,omitempty"`
	Death  *Death      `json:"death,omitempty"`
}

// Alive reports whether the frame still has the snake on the board.
func (s *SnakeData) Alive() bool {
	return s.Death == nil && s.Health > 0 && len(s.Body) > 0
}

type BoardData struct {
	Width   int         `json:"width"`
	Height  int         `json:"height"`
	Hazards []api.Coord `json:"hazards"`
}

type Death struct {
	Cause string `json:"cause"`
	Turn  int    `json:"turn"`
}

// Game is a downloaded game: its info event plus frames in turn order.
type Game struct {
	ID     string
	Info   GameInfo
	Frames []FrameData
}

// Download reads the event stream of gameID until game_end, a normal close,
// or (once frames have arrived) a read error.
func Download(ctx context.Context, cfg Config, gameID string) (*Game, error) {
	if cfg.EngineURL == "" {
		cfg.EngineURL = DefaultConfig().EngineURL
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultConfig().ReadTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(ctx, fmt.Sprintf(cfg.EngineURL, gameID), nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", gameID, err)
	}
	defer conn.Close()

	// Unblock ReadMessage when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	g := &Game{ID: gameID}
read:
	for {
		_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || len(g.Frames) > 0 {
				break
			}
			return nil, fmt.Errorf("read %s: %w", gameID, err)
		}

		var ev GameEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			log.Warn("bad event", "game", gameID, "err", err)
			continue
		}

		switch ev.Type {
		case "game_info":
			if err := json.Unmarshal(ev.Data, &g.Info); err != nil {
				log.Warn("bad game_info", "game", gameID, "err", err)
			}
		case "frame":
			var f FrameData
			if err := json.Unmarshal(ev.Data, &f); err != nil {
				log.Warn("bad frame", "game", gameID, "err", err)
				continue
			}
			g.Frames = append(g.Frames, f)
		case "game_end":
			break read
		}
	}

	if len(g.Frames) == 0 {
		return nil, fmt.Errorf("%s: %w", gameID, ErrNoFrames)
	}
	return g, nil
}
