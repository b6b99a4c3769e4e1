package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestAssigner(s *SessionStore, winner Team) *TeamAssigner {
	return NewTeamAssigner(TeamAssignerConfig{
		Counts:       s.CountByTeam,
		Winner:       func() Team { return winner },
		WinnerAnchor: Vec3{X: -3, Z: 9},
		LoserAnchor:  Vec3{X: 3, Z: 9},
	})
}

func join(s *SessionStore, ta *TeamAssigner, conn ConnID, id string, phase Phase, pos Vec3) Team {
	rec, _ := s.RegisterOrReconnect(conn, id, NewPlayerRecord(id, id, false))
	rec.Team = ta.AssignForJoin(rec, phase, pos)
	s.Update(conn, rec)
	return rec.Team
}

func TestAssignBalancesPreGame(t *testing.T) {
	s := NewSessionStore(nil, nil)
	ta := newTestAssigner(s, TeamNone)

	assert.Equal(t, TeamA, join(s, ta, 1, "p1", PhasePreGame, Vec3{}))
	assert.Equal(t, TeamB, join(s, ta, 2, "p2", PhasePreGame, Vec3{}))
	assert.Equal(t, TeamA, join(s, ta, 3, "p3", PhasePreGame, Vec3{}))
}

func TestAssignKeepsExistingTeam(t *testing.T) {
	s := NewSessionStore(nil, nil)
	ta := newTestAssigner(s, TeamNone)
	rec := NewPlayerRecord("p1", "p1", false)
	rec.Team = TeamB

	assert.Equal(t, TeamB, ta.AssignForJoin(rec, PhasePreGame, Vec3{X: -5}))
}

func TestAssignLockedRoster(t *testing.T) {
	s := NewSessionStore(nil, nil)
	ta := newTestAssigner(s, TeamNone)
	join(s, ta, 1, "p1", PhasePreGame, Vec3{})
	join(s, ta, 2, "p2", PhasePreGame, Vec3{})
	ta.LockRoster(s.Records())

	// a reconnect that lost its record still gets the locked team
	rec := NewPlayerRecord("p1", "p1", false)
	assert.Equal(t, TeamA, ta.AssignForJoin(rec, PhaseInGame, Vec3{X: 5}))

	team, ok := ta.Locked("p2")
	assert.True(t, ok)
	assert.Equal(t, TeamB, team)

	ta.ClearRoster()
	_, ok = ta.Locked("p2")
	assert.False(t, ok)
}

func TestAssignSideInference(t *testing.T) {
	s := NewSessionStore(nil, nil)
	ta := newTestAssigner(s, TeamNone)

	assert.Equal(t, TeamA, join(s, ta, 1, "p1", PhaseInGame, Vec3{X: -4}))
	assert.Equal(t, TeamB, join(s, ta, 2, "p2", PhaseInGame, Vec3{X: 4}))
	assert.Equal(t, TeamB, join(s, ta, 3, "p3", PhaseCountDown, Vec3{X: 0.5}))
	// zero position means a fresh spawn
	assert.Equal(t, TeamA, join(s, ta, 4, "p4", PhaseInGame, Vec3{}))
}

func TestAssignPodiumByProximity(t *testing.T) {
	s := NewSessionStore(nil, nil)
	ta := newTestAssigner(s, TeamB)

	assert.Equal(t, TeamB, join(s, ta, 1, "w", PhasePostGame, Vec3{X: -2.5, Z: 9}))
	assert.Equal(t, TeamA, join(s, ta, 2, "l", PhasePostGame, Vec3{X: 2.5, Z: 9}))
}

func TestAssignPodiumTieUsesRoom(t *testing.T) {
	s := NewSessionStore(nil, nil)
	ta := NewTeamAssigner(TeamAssignerConfig{
		Counts:       s.CountByTeam,
		Winner:       func() Team { return TeamA },
		HasRoom:      func(p PoolID) bool { return p != PoolPodiumWinner },
		WinnerAnchor: Vec3{X: -3},
		LoserAnchor:  Vec3{X: 3},
	})
	rec := NewPlayerRecord("x", "x", false)
	assert.Equal(t, TeamB, ta.AssignForJoin(rec, PhasePostGame, Vec3{}))
}

func TestAssignPodiumDrawAlternates(t *testing.T) {
	s := NewSessionStore(nil, nil)
	ta := newTestAssigner(s, TeamNone)

	got := []Team{}
	for i, id := range []string{"a", "b", "c", "d"} {
		got = append(got, join(s, ta, ConnID(i+1), id, PhasePostGame, Vec3{X: -3, Z: 9}))
	}
	assert.Equal(t, []Team{TeamA, TeamB, TeamA, TeamB}, got)
}

func TestAssignerDefaults(t *testing.T) {
	ta := NewTeamAssigner(TeamAssignerConfig{})
	assert.Equal(t, []Team{TeamA, TeamB}, ta.Active())
	assert.Equal(t, TeamA, ta.AssignForJoin(NewPlayerRecord("x", "x", false), PhasePreGame, Vec3{}))
	assert.Empty(t, ta.Roster())
}
