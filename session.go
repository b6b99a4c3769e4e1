package main

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	maxSessions      = 100
	sessionIdleAfter = 2 * time.Minute
	janitorEvery     = 15 * time.Second
	restoredName     = "Restored Arena"
)

// Session represents an arena that players can join
type Session struct {
	ID         string
	Name       string
	Arena      *Arena
	emptySince time.Time
}

// SessionManager handles creation and lookup of sessions
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      ArenaConfig
	deps     ArenaDeps
}

// NewSessionManager creates a new SessionManager. Every arena it creates
// shares cfg and deps.
func NewSessionManager(cfg ArenaConfig, deps ArenaDeps) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		deps:     deps,
	}
}

// CreateSession creates a new arena session. Returns nil if limit reached.
func (sm *SessionManager) CreateSession(name string) *Session {
	return sm.create(GenerateUUID(), name)
}

func (sm *SessionManager) create(id, name string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if s, ok := sm.sessions[id]; ok {
		return s
	}
	if len(sm.sessions) >= maxSessions {
		log.Warn().Int("sessions", len(sm.sessions)).Msg("session limit reached")
		return nil
	}

	arena := NewArena(id, name, sm.cfg, sm.deps)
	sess := &Session{
		ID:         id,
		Name:       name,
		Arena:      arena,
		emptySince: time.Now(),
	}
	sm.sessions[id] = sess
	go arena.Run()
	if sm.deps.Tracker != nil {
		sm.deps.Tracker.Track(EvtSessionStart, 0, id, "")
	}
	log.Info().Str("session", id).Str("name", name).Msg("session created")
	return sess
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// GetOrRestore returns a live session, or recreates one whose match was
// saved by a previous host
func (sm *SessionManager) GetOrRestore(id string) *Session {
	if s := sm.GetSession(id); s != nil {
		return s
	}
	if sm.deps.Migration == nil || id == "" {
		return nil
	}
	_, ok, err := sm.deps.Migration.LoadMigration(id)
	if err != nil {
		log.Error().Err(err).Str("session", id).Msg("migration lookup failed")
		return nil
	}
	if !ok {
		return nil
	}
	return sm.create(id, restoredName)
}

// RemovePlayer disconnects a player from a session. The session stays up so
// the player can reconnect; the janitor removes it once it has been empty long enough.
func (sm *SessionManager) RemovePlayer(sessionID string, conn ConnID) {
	sm.mu.RLock()
	sess, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !ok {
		return
	}
	sess.Arena.Leave(conn)
	if sess.Arena.PlayerCount() == 0 {
		sm.mu.Lock()
		sess.emptySince = time.Now()
		sm.mu.Unlock()
	}
}

// MarkActive resets the idle clock of a session
func (sm *SessionManager) MarkActive(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if s, ok := sm.sessions[id]; ok {
		s.emptySince = time.Time{}
	}
}

// Cleanup stops sessions that have had no players for longer than idle
func (sm *SessionManager) Cleanup(idle time.Duration) int {
	sm.mu.Lock()
	var stale []*Session
	for id, s := range sm.sessions {
		if s.emptySince.IsZero() || time.Since(s.emptySince) < idle {
			continue
		}
		if s.Arena.PlayerCount() > 0 {
			s.emptySince = time.Time{}
			continue
		}
		stale = append(stale, s)
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()

	for _, s := range stale {
		s.Arena.Stop()
		if sm.deps.Tracker != nil {
			sm.deps.Tracker.Track(EvtSessionEnd, 0, s.ID, "")
		}
		log.Info().Str("session", s.ID).Msg("idle session removed")
	}
	return len(stale)
}

// RunJanitor periodically removes idle sessions until ctx is done
func (sm *SessionManager) RunJanitor(ctx context.Context) {
	ticker := time.NewTicker(janitorEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sm.Cleanup(sessionIdleAfter)
		case <-ctx.Done():
			return
		}
	}
}

// MigrateAll saves every running match for the next host and stops the arenas
func (sm *SessionManager) MigrateAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, s := range sm.sessions {
		if err := s.Arena.Migrate(); err != nil {
			log.Error().Err(err).Str("session", id).Msg("host migration save failed")
		}
		s.Arena.Stop()
	}
	clear(sm.sessions)
}

// ListSessions returns info about all active sessions
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make([]SessionInfo, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		list = append(list, SessionInfo{
			ID:      sess.ID,
			Name:    sess.Name,
			Players: sess.Arena.PlayerCount(),
			Phase:   sess.Arena.Phase().String(),
		})
	}
	return list
}

// Count returns the number of live sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}
