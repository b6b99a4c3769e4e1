package main

import "github.com/rs/zerolog/log"

// Score is the collaborator that owns per-team points
type Score interface {
	UpdateScore(team Team, delta int)
	Reset()
	WinningTeam() Team
	OnScoreUpdated(fn func(scoreA, scoreB int))
}

// Scoreboard is the in-process Score implementation for a two-team arena
type Scoreboard struct {
	a, b      *Observable[int]
	listeners []func(scoreA, scoreB int)
}

// NewScoreboard creates a scoreboard whose cells replicate through queue
func NewScoreboard(queue *ReplicationQueue) *Scoreboard {
	s := &Scoreboard{
		a: NewObservable("score_a", 0, queue),
		b: NewObservable("score_b", 0, queue),
	}
	notify := func(_, _ int) {
		for _, fn := range s.listeners {
			fn(s.a.Get(), s.b.Get())
		}
	}
	s.a.Subscribe(notify)
	s.b.Subscribe(notify)
	return s
}

// UpdateScore adds delta points to a team
func (s *Scoreboard) UpdateScore(team Team, delta int) {
	switch team {
	case TeamA:
		s.a.Set(s.a.Get() + delta)
	case TeamB:
		s.b.Set(s.b.Get() + delta)
	default:
		log.Error().Str("team", team.String()).Msg("score update for team without a scoreboard slot")
	}
}

// Reset zeroes both teams
func (s *Scoreboard) Reset() {
	s.a.Set(0)
	s.b.Set(0)
}

// WinningTeam returns the leader, or TeamNone on a tie
func (s *Scoreboard) WinningTeam() Team {
	switch a, b := s.a.Get(), s.b.Get(); {
	case a > b:
		return TeamA
	case b > a:
		return TeamB
	}
	return TeamNone
}

// OnScoreUpdated subscribes to every score change
func (s *Scoreboard) OnScoreUpdated(fn func(scoreA, scoreB int)) {
	s.listeners = append(s.listeners, fn)
}

// Scores returns both totals
func (s *Scoreboard) Scores() (int, int) {
	return s.a.Get(), s.b.Get()
}

// Of returns one team's total
func (s *Scoreboard) Of(team Team) int {
	switch team {
	case TeamA:
		return s.a.Get()
	case TeamB:
		return s.b.Get()
	}
	return 0
}
