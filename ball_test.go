package main

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedBallEvents struct {
	shots     []BallShot
	bounces   []string
	knockouts []Knockout
}

func (r *recordedBallEvents) OnBallShot(s BallShot) { r.shots = append(r.shots, s) }
func (r *recordedBallEvents) OnBallBounce(b string) { r.bounces = append(r.bounces, b) }
func (r *recordedBallEvents) OnKnockout(k Knockout) { r.knockouts = append(r.knockouts, k) }

type ballFixture struct {
	store  *SessionStore
	score  *Scoreboard
	events *recordedBallEvents
	own    *Ownership
}

// newBallFixture registers alice (conn 1, team A) and bob (conn 2, team B), each
// with two holders at the origin
func newBallFixture(t *testing.T) *ballFixture {
	t.Helper()
	f := &ballFixture{
		store:  NewSessionStore(nil, nil),
		score:  NewScoreboard(nil),
		events: &recordedBallEvents{},
	}
	f.own = NewOwnership(ThrowConfig{MinSpeed: 5, MaxSpeed: 20, GrabRadius: 1.5}, f.store, f.score, f.events)
	for i, p := range []struct {
		id   string
		team Team
	}{{"alice", TeamA}, {"bob", TeamB}} {
		conn := ConnID(i + 1)
		rec, err := f.store.RegisterOrReconnect(conn, p.id, NewPlayerRecord(p.id, p.id, false))
		require.NoError(t, err)
		rec.Team = p.team
		f.store.Update(conn, rec)
		f.own.AddHolder(p.id+":left", p.id, Vec3{})
		f.own.AddHolder(p.id+":right", p.id, Vec3{X: 0.4})
	}
	return f
}

func (f *ballFixture) spawn() string {
	return f.own.SpawnBall(Transform{Position: Vec3{Y: 0.2}})
}

func TestBallSpawnState(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()
	b, ok := f.own.Ball(id)
	require.True(t, ok)
	assert.Equal(t, BallOnSpawner, b.State)
	assert.True(t, b.Alive)
	assert.False(t, b.HasOwner())
	assert.Equal(t, NoTeam, b.ThrownBy)
}

func TestBallAtMostOneOwner(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()

	require.NoError(t, f.own.TryGrab(1, id, ""))
	err := f.own.TryGrab(2, id, "")
	assert.True(t, errors.Is(err, ErrBallOwned))

	b, _ := f.own.Ball(id)
	assert.Equal(t, "alice", b.Owner)
	assert.Equal(t, BallHeld, b.State)
	assert.Equal(t, ConnID(1), b.Authority)
	assert.True(t, f.own.HasOwner(id))

	held := 0
	for _, hid := range []string{"alice:left", "alice:right", "bob:left", "bob:right"} {
		if h, _ := f.own.Holder(hid); h.Ball == id {
			held++
		}
	}
	assert.Equal(t, 1, held, "exactly one holder holds the ball")
}

func TestBallGrabPicksNearestHolder(t *testing.T) {
	f := newBallFixture(t)
	id := f.own.SpawnBall(Transform{Position: Vec3{X: 0.5}})

	require.NoError(t, f.own.TryGrab(1, id, ""))
	b, _ := f.own.Ball(id)
	assert.Equal(t, "alice:right", b.Holder)
}

func TestBallGrabOutOfRange(t *testing.T) {
	f := newBallFixture(t)
	id := f.own.SpawnBall(Transform{Position: Vec3{X: 10}})
	assert.True(t, errors.Is(f.own.TryGrab(1, id, ""), ErrNoHolder))
	assert.False(t, f.own.HasOwner(id))
}

func TestBallGrabRejections(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()

	assert.True(t, errors.Is(f.own.TryGrab(99, id, ""), ErrUnknownPlayer))
	assert.True(t, errors.Is(f.own.TryGrab(1, "nope", ""), ErrUnknownBall))

	f.own.Kill(id)
	assert.True(t, errors.Is(f.own.TryGrab(1, id, ""), ErrBallDead))
}

func TestBallGrabFromServerCustody(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()
	require.NoError(t, f.own.TryGrab(1, id, ""))
	require.NoError(t, f.own.Drop(1, id))

	b, _ := f.own.Ball(id)
	assert.Equal(t, ServerOwnerID, b.Owner)
	assert.False(t, b.HasOwner())

	// bob moves a glove to the dropped ball and takes it
	f.own.MoveHolder("bob:left", b.Position)
	require.NoError(t, f.own.TryGrab(2, id, "bob:left"))
	assert.Equal(t, "bob", b.Owner)
}

func TestBallThrowSpeed(t *testing.T) {
	f := newBallFixture(t)
	assert.Equal(t, 5.0, f.own.ThrowSpeed(0))
	assert.Equal(t, 12.5, f.own.ThrowSpeed(0.5))
	assert.Equal(t, 20.0, f.own.ThrowSpeed(1))
	assert.Equal(t, 20.0, f.own.ThrowSpeed(1.5))
	assert.Equal(t, 5.0, f.own.ThrowSpeed(-1))
	assert.Equal(t, 5.0, f.own.ThrowSpeed(math.NaN()))
}

func TestBallThrow(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()
	require.NoError(t, f.own.TryGrab(1, id, ""))

	vel, err := f.own.Throw(1, id, Vec3{Z: 2}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, vel.Z, 1e-9)

	b, _ := f.own.Ball(id)
	assert.Equal(t, BallInFlight, b.State)
	assert.Equal(t, ServerOwnerID, b.Owner)
	assert.Equal(t, TeamA, b.ThrownBy)
	assert.Equal(t, ConnID(1), b.Origin)
	assert.Equal(t, "", b.Holder)
	h, _ := f.own.Holder("alice:left")
	assert.Equal(t, "", h.Ball)

	require.Len(t, f.events.shots, 1)
	assert.Equal(t, "alice", f.events.shots[0].Thrower)
	assert.Equal(t, ConnID(1), f.events.shots[0].Origin)
}

func TestBallThrowRejections(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()

	_, err := f.own.Throw(1, id, Vec3{Z: 1}, 1)
	assert.True(t, errors.Is(err, ErrNotOwner))

	require.NoError(t, f.own.TryGrab(1, id, ""))
	_, err = f.own.Throw(2, id, Vec3{Z: 1}, 1)
	assert.True(t, errors.Is(err, ErrNotOwner))
	_, err = f.own.Throw(1, id, Vec3{}, 1)
	assert.True(t, errors.Is(err, ErrBadThrow))
	assert.Empty(t, f.events.shots)
}

func TestBallDrop(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()
	require.NoError(t, f.own.TryGrab(1, id, ""))
	f.own.MoveHolder("alice:left", Vec3{X: 1, Y: 1})

	require.NoError(t, f.own.Drop(1, id))
	b, _ := f.own.Ball(id)
	assert.Equal(t, BallLoose, b.State)
	assert.Equal(t, Vec3{X: 1, Y: 1}, b.Position)
	assert.Equal(t, Vec3{Y: -1}, b.Forward)
	assert.Equal(t, NoTeam, b.ThrownBy, "a dropped ball cannot score")
	assert.True(t, errors.Is(f.own.Drop(1, id), ErrNotOwner))
}

func TestBallKnockoutScores(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()
	require.NoError(t, f.own.TryGrab(1, id, ""))
	_, err := f.own.Throw(1, id, Vec3{X: 1}, 0.5)
	require.NoError(t, err)

	assert.True(t, f.own.OnCollision(id, CollisionTarget{PlayerID: "bob"}))
	assert.Equal(t, 1, f.score.Of(TeamA))
	require.Len(t, f.events.knockouts, 1)
	assert.Equal(t, Knockout{Ball: id, Victim: "bob", Thrower: "alice", By: TeamA}, f.events.knockouts[0])

	b, _ := f.own.Ball(id)
	assert.False(t, b.Alive)
	assert.Equal(t, BallDead, b.State)

	// the same flight cannot score twice
	assert.False(t, f.own.OnCollision(id, CollisionTarget{PlayerID: "bob"}))
	assert.Equal(t, 1, f.score.Of(TeamA))
	assert.Equal(t, []string{id}, f.events.bounces)
}

func TestBallFriendlyHitKillsWithoutScore(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()
	require.NoError(t, f.own.TryGrab(1, id, ""))
	f.own.Throw(1, id, Vec3{X: 1}, 0.5)

	assert.False(t, f.own.OnCollision(id, CollisionTarget{PlayerID: "alice"}))
	a, b := f.score.Scores()
	assert.Equal(t, 0, a+b)
	ball, _ := f.own.Ball(id)
	assert.False(t, ball.Alive)
}

func TestBallEnvironmentHit(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()

	// not thrown: ignored
	assert.False(t, f.own.OnCollision(id, CollisionTarget{}))
	b, _ := f.own.Ball(id)
	assert.True(t, b.Alive)

	require.NoError(t, f.own.TryGrab(1, id, ""))
	f.own.Throw(1, id, Vec3{X: 1}, 0.5)
	assert.False(t, f.own.OnCollision(id, CollisionTarget{}))
	assert.False(t, b.Alive)
}

func TestBallResetToSpawnerClearsOwnership(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *ballFixture, id string)
	}{
		{"held", func(t *testing.T, f *ballFixture, id string) {
			require.NoError(t, f.own.TryGrab(1, id, "alice:left"))
		}},
		{"in flight", func(t *testing.T, f *ballFixture, id string) {
			require.NoError(t, f.own.TryGrab(1, id, "alice:left"))
			_, err := f.own.Throw(1, id, Vec3{X: 1}, 1)
			require.NoError(t, err)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBallFixture(t)
			id := f.spawn()
			tt.setup(t, f, id)

			f.own.ResetToSpawner(id)
			b, _ := f.own.Ball(id)
			h, _ := f.own.Holder("alice:left")
			assert.Equal(t, "", h.Ball)
			assert.Equal(t, "", b.Holder)
			assert.Equal(t, "", b.Owner)
			assert.Equal(t, NoTeam, b.ThrownBy)
			assert.False(t, b.Physics)
			assert.Equal(t, BallOnSpawner, b.State)

			require.NoError(t, f.own.TryGrab(2, id, ""), "anyone may grab a reset ball")
			b, _ = f.own.Ball(id)
			assert.Equal(t, "bob", b.Owner)
		})
	}
}

func TestBallOwnershipHandoff(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()

	// alice throws, the ball misses, is reset, and bob picks it up and scores
	require.NoError(t, f.own.TryGrab(1, id, ""))
	f.own.Throw(1, id, Vec3{X: 1}, 1)
	f.own.OnCollision(id, CollisionTarget{})
	f.own.ResetToSpawner(id)

	b, _ := f.own.Ball(id)
	assert.Equal(t, BallOnSpawner, b.State)
	assert.Equal(t, Vec3{Y: 0.2}, b.Position)

	require.NoError(t, f.own.TryGrab(2, id, ""))
	f.own.Throw(2, id, Vec3{X: -1}, 1)
	assert.True(t, f.own.OnCollision(id, CollisionTarget{PlayerID: "alice"}))
	assert.Equal(t, 1, f.score.Of(TeamB))
	assert.Equal(t, 0, f.score.Of(TeamA))
}

func TestBallReportMotionAuthority(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()

	assert.True(t, errors.Is(f.own.ReportMotion(1, id, Vec3{}, Vec3{}), ErrNotAuthority), "on spawner")

	require.NoError(t, f.own.TryGrab(1, id, ""))
	f.own.Throw(1, id, Vec3{X: 1}, 1)
	assert.True(t, errors.Is(f.own.ReportMotion(2, id, Vec3{}, Vec3{}), ErrNotAuthority))

	require.NoError(t, f.own.ReportMotion(1, id, Vec3{X: 3}, Vec3{X: 9}))
	b, _ := f.own.Ball(id)
	assert.Equal(t, Vec3{X: 3}, b.Position)
	assert.Equal(t, Vec3{X: 9}, b.Velocity)
}

func TestBallReleasePlayer(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()
	require.NoError(t, f.own.TryGrab(1, id, ""))

	f.own.ReleasePlayer("alice")
	b, _ := f.own.Ball(id)
	assert.Equal(t, BallLoose, b.State)
	assert.False(t, b.HasOwner())
	_, ok := f.own.Holder("alice:left")
	assert.False(t, ok)
	_, ok = f.own.Holder("bob:left")
	assert.True(t, ok)
}

func TestBallKillRecordsTime(t *testing.T) {
	f := newBallFixture(t)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.own.now = func() time.Time { return at }
	id := f.spawn()
	require.NoError(t, f.own.TryGrab(1, id, ""))

	f.own.Kill(id)
	b, _ := f.own.Ball(id)
	assert.Equal(t, at, b.DiedAt)
	assert.Equal(t, "", b.Holder)
	h, _ := f.own.Holder("alice:left")
	assert.Equal(t, "", h.Ball)
}

func TestBallRemoveAll(t *testing.T) {
	f := newBallFixture(t)
	id := f.spawn()
	f.spawn()
	require.NoError(t, f.own.TryGrab(1, id, ""))

	f.own.RemoveAll()
	assert.Empty(t, f.own.Balls())
	h, _ := f.own.Holder("alice:left")
	assert.Equal(t, "", h.Ball)
}
