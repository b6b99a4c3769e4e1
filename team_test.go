package main

import "testing"

func TestTeamNamesRoundTrip(t *testing.T) {
	for _, team := range []Team{TeamNone, TeamA, TeamB, TeamC, TeamD} {
		got, ok := ParseTeam(team.String())
		if !ok || got != team {
			t.Errorf("ParseTeam(%q) = %v, %v", team.String(), got, ok)
		}
	}
	if _, ok := ParseTeam("z"); ok {
		t.Error("unknown name must not parse")
	}
	if Team(9).String() != "invalid" || Team(9).Valid() {
		t.Error("out of range team should be invalid")
	}
}

func TestTeamOpponent(t *testing.T) {
	if TeamA.Opponent() != TeamB || TeamB.Opponent() != TeamA {
		t.Error("A and B oppose each other")
	}
	if TeamNone.Opponent() != TeamNone {
		t.Error("no team has no opponent")
	}
}

func TestColorLatchIdempotent(t *testing.T) {
	q := &ReplicationQueue{}
	cell := NewObservable("colors", ColorPair{}, q)
	l := NewColorLatch(cell)
	picks := 0
	l.intn = func(n int) int { picks++; return 2 }

	if !l.Select() {
		t.Fatal("first Select should choose")
	}
	if l.Select() {
		t.Error("second Select must keep the pair")
	}
	if picks != 1 {
		t.Errorf("expected one random pick, got %d", picks)
	}
	pair, ok := l.Pair()
	if !ok || pair != ColorPalette[2] || cell.Get() != ColorPalette[2] {
		t.Errorf("pair not published: %v", pair)
	}

	l.Reset()
	l.intn = func(n int) int { return 0 }
	if !l.Select() || cell.Get() != ColorPalette[0] {
		t.Error("Select after Reset should re-randomize")
	}
}

func TestObservableSetAndApply(t *testing.T) {
	q := &ReplicationQueue{}
	o := NewObservable("phase", 0, q)
	var seen [][2]int
	o.Subscribe(func(old, cur int) { seen = append(seen, [2]int{old, cur}) })

	o.Set(1)
	o.Set(1)
	o.Apply(2)

	if len(seen) != 2 || seen[0] != [2]int{0, 1} || seen[1] != [2]int{1, 2} {
		t.Errorf("unexpected notifications %v", seen)
	}
	changes := q.Drain()
	if len(changes) != 1 || changes[0].Field != "phase" || changes[0].Value != 1 {
		t.Errorf("only Set should replicate, got %v", changes)
	}
	if q.Len() != 0 {
		t.Error("Drain should empty the queue")
	}
}

func TestScoreboard(t *testing.T) {
	s := NewScoreboard(nil)
	var last [2]int
	s.OnScoreUpdated(func(a, b int) { last = [2]int{a, b} })

	if s.WinningTeam() != TeamNone {
		t.Error("empty board is a draw")
	}
	s.UpdateScore(TeamB, 2)
	s.UpdateScore(TeamA, 1)
	s.UpdateScore(TeamC, 5)
	if last != [2]int{1, 2} || s.WinningTeam() != TeamB || s.Of(TeamB) != 2 {
		t.Errorf("unexpected scores %v", last)
	}
	s.Reset()
	if a, b := s.Scores(); a != 0 || b != 0 {
		t.Errorf("reset left %d-%d", a, b)
	}
}
