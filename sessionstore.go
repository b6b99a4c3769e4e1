package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrDuplicateConnection rejects a second live session for the same stable identity
var ErrDuplicateConnection = errors.New("duplicate connection")

// ConnID is the transport-assigned id of one connection; it changes on every reconnect
type ConnID uint64

// PlayerRecord is the reconnect-tolerant server view of a player
type PlayerRecord struct {
	StableID     string
	ConnID       ConnID
	Name         string
	Team         Team
	SpawnIndex   int    // -1 = unassigned
	Pool         PoolID // pool SpawnIndex was reserved from
	Connected    bool
	Spectator    bool
	PostGameSide bool // true = seated on the winners' podium
}

// NewPlayerRecord returns the initial data for a first-time player
func NewPlayerRecord(stableID, name string, spectator bool) PlayerRecord {
	return PlayerRecord{
		StableID:   stableID,
		Name:       name,
		Team:       TeamNone,
		SpawnIndex: -1,
		Pool:       PoolNone,
		Spectator:  spectator,
	}
}

// HasSpawn reports whether the record holds a spawn reservation
func (r PlayerRecord) HasSpawn() bool {
	return r.SpawnIndex >= 0 && r.Pool != PoolNone
}

// SpawnReleaser gives a reservation back to its pool
type SpawnReleaser interface {
	Release(pool PoolID, index int)
}

// SessionStore maps stable player ids to records for the lifetime of a session.
// Server-only; callers serialize access (the arena lock).
type SessionStore struct {
	records map[string]*PlayerRecord
	byConn  map[ConnID]string
	order   []string
	phase   func() Phase
	spawns  SpawnReleaser
}

// NewSessionStore creates a store. phase and spawns drive the post-game release policy
// in MarkDisconnected; either may be nil.
func NewSessionStore(phase func() Phase, spawns SpawnReleaser) *SessionStore {
	return &SessionStore{
		records: make(map[string]*PlayerRecord),
		byConn:  make(map[ConnID]string),
		phase:   phase,
		spawns:  spawns,
	}
}

// RegisterOrReconnect creates a record, revives a disconnected one, or rejects a
// duplicate live session without touching the existing record.
func (s *SessionStore) RegisterOrReconnect(conn ConnID, stableID string, initial PlayerRecord) (PlayerRecord, error) {
	if rec, ok := s.records[stableID]; ok {
		if rec.Connected {
			log.Warn().Str("player", stableID).Uint64("conn", uint64(conn)).
				Uint64("existing", uint64(rec.ConnID)).Msg("rejecting duplicate connection")
			return *rec, fmt.Errorf("%w: %s", ErrDuplicateConnection, stableID)
		}
		delete(s.byConn, rec.ConnID)
		rec.ConnID = conn
		rec.Connected = true
		if initial.Name != "" {
			rec.Name = initial.Name
		}
		s.byConn[conn] = stableID
		log.Info().Str("player", stableID).Uint64("conn", uint64(conn)).
			Str("team", rec.Team.String()).Int("spawn", rec.SpawnIndex).Msg("player reconnected")
		return *rec, nil
	}

	rec := initial
	rec.StableID = stableID
	rec.ConnID = conn
	rec.Connected = true
	s.records[stableID] = &rec
	s.byConn[conn] = stableID
	s.order = append(s.order, stableID)
	log.Info().Str("player", stableID).Uint64("conn", uint64(conn)).Msg("player registered")
	return rec, nil
}

// GetByStableID looks a record up by stable identity
func (s *SessionStore) GetByStableID(stableID string) (PlayerRecord, bool) {
	rec, ok := s.records[stableID]
	if !ok {
		return PlayerRecord{}, false
	}
	return *rec, true
}

// GetByConnID looks a record up by its current connection
func (s *SessionStore) GetByConnID(conn ConnID) (PlayerRecord, bool) {
	id, ok := s.byConn[conn]
	if !ok {
		return PlayerRecord{}, false
	}
	return s.GetByStableID(id)
}

// Update replaces the record bound to conn. Identity fields are kept.
func (s *SessionStore) Update(conn ConnID, rec PlayerRecord) bool {
	id, ok := s.byConn[conn]
	if !ok {
		return false
	}
	cur := s.records[id]
	rec.StableID = cur.StableID
	rec.ConnID = cur.ConnID
	*cur = rec
	return true
}

// MarkDisconnected keeps the record for a later reconnect. During PostGame the
// podium reservation is given back; in other phases teams are stable and the
// point stays claimed.
func (s *SessionStore) MarkDisconnected(conn ConnID) {
	id, ok := s.byConn[conn]
	if !ok {
		return
	}
	rec := s.records[id]
	rec.Connected = false
	if s.phase != nil && s.phase() == PhasePostGame && rec.HasSpawn() && s.spawns != nil {
		s.spawns.Release(rec.Pool, rec.SpawnIndex)
		rec.SpawnIndex = -1
		rec.Pool = PoolNone
	}
	log.Info().Str("player", id).Uint64("conn", uint64(conn)).Msg("player disconnected")
}

// Records returns copies of every record in first-join order
func (s *SessionStore) Records() []PlayerRecord {
	out := make([]PlayerRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.records[id])
	}
	return out
}

// Connected returns copies of connected records in first-join order
func (s *SessionStore) Connected() []PlayerRecord {
	out := make([]PlayerRecord, 0, len(s.order))
	for _, id := range s.order {
		if r := s.records[id]; r.Connected {
			out = append(out, *r)
		}
	}
	return out
}

// CountByTeam counts connected non-spectator players per team. Retained records
// of players who left are not counted; a reconnect keeps its saved team anyway.
func (s *SessionStore) CountByTeam() map[Team]int {
	counts := make(map[Team]int)
	for _, r := range s.records {
		if !r.Connected || r.Spectator || r.Team == TeamNone {
			continue
		}
		counts[r.Team]++
	}
	return counts
}

// Len returns the number of records, connected or not
func (s *SessionStore) Len() int {
	return len(s.records)
}

// ConnectedCount returns the number of live connections
func (s *SessionStore) ConnectedCount() int {
	n := 0
	for _, r := range s.records {
		if r.Connected {
			n++
		}
	}
	return n
}

// Modify edits the record of a stable id in place. Identity fields are kept.
func (s *SessionStore) Modify(stableID string, fn func(*PlayerRecord)) bool {
	rec, ok := s.records[stableID]
	if !ok {
		return false
	}
	id, conn := rec.StableID, rec.ConnID
	fn(rec)
	rec.StableID, rec.ConnID = id, conn
	return true
}
