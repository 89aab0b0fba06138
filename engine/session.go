package engine

import (
	"sync"
	"time"

	"github.com/brensch/snekab/game"
	"github.com/brensch/snekab/rules"
)

// Session is the per-game state of one controlled snake. It replaces any
// process-wide "game started" flag: each game gets its own Session.
type Session struct {
	GameID  string
	YouID   string
	Rules   rules.Ruleset
	Timeout time.Duration
	Started time.Time

	mu       sync.Mutex
	turns    int
	lastMove game.Move
}

func NewSession(gameID, youID string, r rules.Ruleset, timeout time.Duration) *Session {
	return &Session{
		GameID:  gameID,
		YouID:   youID,
		Rules:   r,
		Timeout: timeout,
		Started: time.Now(),
	}
}

// FirstTick reports whether no decision has been recorded yet.
func (s *Session) FirstTick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns == 0
}

// Turns returns how many decisions were recorded.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// LastMove returns the most recent decision, if any.
func (s *Session) LastMove() (game.Move, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMove, s.turns > 0
}

func (s *Session) record(m game.Move) {
	s.mu.Lock()
	s.turns++
	s.lastMove = m
	s.mu.Unlock()
}

// Sessions tracks live sessions keyed by game and snake id, so one process can
// play several games (or several snakes in one game) at once.
type Sessions struct {
	mu sync.Mutex
	m  map[sessionKey]*Session
}

type sessionKey struct {
	game string
	you  string
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[sessionKey]*Session)}
}

// Start registers a new session, replacing any previous one with the same key.
func (r *Sessions) Start(gameID, youID string, rs rules.Ruleset, timeout time.Duration) *Session {
	s := NewSession(gameID, youID, rs, timeout)
	r.mu.Lock()
	r.m[sessionKey{gameID, youID}] = s
	r.mu.Unlock()
	return s
}

func (r *Sessions) Get(gameID, youID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[sessionKey{gameID, youID}]
	return s, ok
}

// GetOrStart returns the existing session or starts one. Servers that restart
// mid-game pick up on the next move this way.
func (r *Sessions) GetOrStart(gameID, youID string, rs rules.Ruleset, timeout time.Duration) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sessionKey{gameID, youID}
	if s, ok := r.m[key]; ok {
		return s, false
	}
	s := NewSession(gameID, youID, rs, timeout)
	r.m[key] = s
	return s, true
}

// End drops the session and returns it.
func (r *Sessions) End(gameID, youID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sessionKey{gameID, youID}
	s, ok := r.m[key]
	delete(r.m, key)
	return s, ok
}

func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
