package main

import (
	"math/rand/v2"
)

// Team identifies a side. TeamNone doubles as "NoTeam" for balls that are not in a scoring throw.
type Team int

const (
	TeamNone Team = 0
	TeamA    Team = 1
	TeamB    Team = 2
	TeamC    Team = 3
	TeamD    Team = 4
)

// NoTeam is the thrown-by value of a ball that cannot score
const NoTeam = TeamNone

var teamNames = [...]string{"none", "a", "b", "c", "d"}

func (t Team) String() string {
	if t < 0 || int(t) >= len(teamNames) {
		return "invalid"
	}
	return teamNames[t]
}

// Valid reports whether t is a known team value (TeamNone included)
func (t Team) Valid() bool {
	return t >= TeamNone && t <= TeamD
}

// ParseTeam maps a wire name back to a Team
func ParseTeam(s string) (Team, bool) {
	for i, n := range teamNames {
		if n == s {
			return Team(i), true
		}
	}
	return TeamNone, false
}

// Opponent returns the other side of a two-team match
func (t Team) Opponent() Team {
	switch t {
	case TeamA:
		return TeamB
	case TeamB:
		return TeamA
	case TeamC:
		return TeamD
	case TeamD:
		return TeamC
	}
	return TeamNone
}

// TeamColor is a presentation color profile sent to clients
type TeamColor struct {
	Name string `json:"name" msgpack:"n"`
	Hex  string `json:"hex" msgpack:"h"`
}

// ColorPair assigns a color profile to each of the two playing sides
type ColorPair struct {
	A TeamColor `json:"a" msgpack:"a"`
	B TeamColor `json:"b" msgpack:"b"`
}

// ColorPalette is the fixed set of profile pairs a match picks from
var ColorPalette = []ColorPair{
	{A: TeamColor{"orange", "#ff8a1f"}, B: TeamColor{"blue", "#2f7bff"}},
	{A: TeamColor{"red", "#e8323c"}, B: TeamColor{"teal", "#1fc8b4"}},
	{A: TeamColor{"purple", "#9a4dff"}, B: TeamColor{"yellow", "#ffd321"}},
	{A: TeamColor{"pink", "#ff4fa8"}, B: TeamColor{"green", "#3ad14a"}},
}

// ColorLatch picks one palette entry per match and keeps it until Reset
type ColorLatch struct {
	set  bool
	pair ColorPair
	intn func(n int) int
	cell *Observable[ColorPair]
}

// NewColorLatch creates a latch publishing through cell
func NewColorLatch(cell *Observable[ColorPair]) *ColorLatch {
	return &ColorLatch{intn: rand.IntN, cell: cell}
}

// Select picks a random pair unless one is already set for this match.
// Returns true if a new pair was chosen.
func (l *ColorLatch) Select() bool {
	if l.set {
		return false
	}
	l.pair = ColorPalette[l.intn(len(ColorPalette))]
	l.set = true
	if l.cell != nil {
		l.cell.Set(l.pair)
	}
	return true
}

// Reset clears the latch so the next Select re-randomizes
func (l *ColorLatch) Reset() {
	l.set = false
}

// Pair returns the current pair and whether one has been chosen
func (l *ColorLatch) Pair() (ColorPair, bool) {
	return l.pair, l.set
}
