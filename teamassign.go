package main

import (
	"slices"

	"github.com/rs/zerolog/log"
)

// TeamAssigner resolves joining and reconnecting players to teams.
// TeamA owns the -X half of the arena, TeamB the +X half.
type TeamAssigner struct {
	active []Team
	locked map[string]Team

	counts  func() map[Team]int
	winner  func() Team
	hasRoom func(PoolID) bool

	winnerAnchor Vec3
	loserAnchor  Vec3
	nextPodium   int
}

// TeamAssignerConfig wires the assigner to its inputs
type TeamAssignerConfig struct {
	Active       []Team              // playing teams; defaults to A and B
	Counts       func() map[Team]int // current members per team
	Winner       func() Team         // TeamNone on a draw
	HasRoom      func(PoolID) bool   // whether a pool has an unreserved point
	WinnerAnchor Vec3
	LoserAnchor  Vec3
}

// NewTeamAssigner creates an assigner
func NewTeamAssigner(cfg TeamAssignerConfig) *TeamAssigner {
	active := slices.Clone(cfg.Active)
	if len(active) == 0 {
		active = []Team{TeamA, TeamB}
	}
	slices.Sort(active)
	t := &TeamAssigner{
		active:       active,
		locked:       make(map[string]Team),
		counts:       cfg.Counts,
		winner:       cfg.Winner,
		hasRoom:      cfg.HasRoom,
		winnerAnchor: cfg.WinnerAnchor,
		loserAnchor:  cfg.LoserAnchor,
	}
	if t.counts == nil {
		t.counts = func() map[Team]int { return nil }
	}
	if t.winner == nil {
		t.winner = func() Team { return TeamNone }
	}
	return t
}

// AssignForJoin returns the team for a player entering the arena. A team that is
// already set or locked is never changed.
func (t *TeamAssigner) AssignForJoin(rec PlayerRecord, phase Phase, pos Vec3) Team {
	if team, ok := t.locked[rec.StableID]; ok {
		return team
	}
	if rec.Team != TeamNone {
		return rec.Team
	}

	switch phase {
	case PhasePreGame:
		return t.leastPopulated()
	case PhaseCountDown, PhaseInGame:
		// origin means a fresh spawn, not a reconnect with a saved position
		if pos.IsZero() {
			return t.leastPopulated()
		}
		return t.sideOf(pos)
	case PhasePostGame:
		return t.podiumTeam(pos)
	}
	log.Error().Int("phase", int(phase)).Msg("team assignment for unknown phase")
	return t.leastPopulated()
}

// leastPopulated picks the active team with the fewest members; ties go to the
// lower enum value
func (t *TeamAssigner) leastPopulated() Team {
	counts := t.counts()
	best := t.active[0]
	for _, team := range t.active[1:] {
		if counts[team] < counts[best] {
			best = team
		}
	}
	return best
}

func (t *TeamAssigner) sideOf(pos Vec3) Team {
	if len(t.active) < 2 {
		return t.active[0]
	}
	if pos.X < 0 {
		return t.active[0]
	}
	return t.active[1]
}

func (t *TeamAssigner) podiumTeam(pos Vec3) Team {
	winner := t.winner()
	if winner == TeamNone || len(t.active) < 2 {
		// draw: alternate so both podiums fill evenly
		team := t.active[t.nextPodium%min(2, len(t.active))]
		t.nextPodium++
		return team
	}
	loser := winner.Opponent()
	dw := DistanceSq(pos, t.winnerAnchor)
	dl := DistanceSq(pos, t.loserAnchor)
	switch {
	case dw < dl:
		return winner
	case dl < dw:
		return loser
	}
	if t.hasRoom != nil && !t.hasRoom(PoolPodiumWinner) {
		return loser
	}
	return winner
}

// LockRoster freezes every assigned player's team for the rest of the match
func (t *TeamAssigner) LockRoster(records []PlayerRecord) {
	for _, r := range records {
		if r.Spectator || r.Team == TeamNone {
			continue
		}
		t.locked[r.StableID] = r.Team
	}
	log.Info().Int("players", len(t.locked)).Msg("roster locked")
}

// ClearRoster unlocks every player; only valid before a match starts
func (t *TeamAssigner) ClearRoster() {
	clear(t.locked)
}

// Locked returns the locked team of a player
func (t *TeamAssigner) Locked(stableID string) (Team, bool) {
	team, ok := t.locked[stableID]
	return team, ok
}

// Roster returns a copy of the locked roster
func (t *TeamAssigner) Roster() map[string]Team {
	out := make(map[string]Team, len(t.locked))
	for k, v := range t.locked {
		out[k] = v
	}
	return out
}

// Active returns the playing teams in enum order
func (t *TeamAssigner) Active() []Team {
	return slices.Clone(t.active)
}
