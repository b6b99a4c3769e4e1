package main

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// ServerOwnerID is the custodial owner of a live ball no player holds
const ServerOwnerID = "server"

var (
	ErrUnknownPlayer = errors.New("unknown or disconnected player")
	ErrUnknownBall   = errors.New("unknown ball")
	ErrBallDead      = errors.New("ball is dead")
	ErrBallOwned     = errors.New("ball already owned")
	ErrNoHolder      = errors.New("no eligible holder in range")
	ErrNotOwner      = errors.New("not the ball owner")
	ErrBadThrow      = errors.New("throw direction is zero")
	ErrNotAuthority  = errors.New("not the ball's simulating client")
)

// BallState is the ownership state of a contested ball
type BallState int

const (
	BallOnSpawner BallState = iota // idle on its rack, unowned
	BallHeld                       // in a player's hand
	BallLoose                      // dropped, server custody, physics on
	BallInFlight                   // thrown, server custody, may score
	BallDead                       // inert until reset to the spawner
)

var ballStateNames = [...]string{"spawner", "held", "loose", "flight", "dead"}

func (s BallState) String() string {
	if s < 0 || int(s) >= len(ballStateNames) {
		return "invalid"
	}
	return ballStateNames[s]
}

// Ball is one contested networked entity
type Ball struct {
	ID        string
	State     BallState
	Alive     bool
	Owner     string // stable player id, ServerOwnerID or ""
	Holder    string // holder id while held
	ThrownBy  Team
	Thrower   string // stable id of the last thrower
	Origin    ConnID // connection that threw it; lets the thrower skip its own shot effects
	Authority ConnID // connection whose physics reports are trusted
	Spawn     Transform
	Position  Vec3
	Velocity  Vec3
	Forward   Vec3
	Physics   bool
	DiedAt    time.Time
}

// HasOwner reports whether a player owns the ball. Server custody does not count.
func (b *Ball) HasOwner() bool {
	return b.Owner != "" && b.Owner != ServerOwnerID
}

// Holder is a grab point (glove) belonging to one player
type Holder struct {
	ID       string
	Player   string // stable id
	Position Vec3
	Ball     string // held ball id, "" when empty
}

// PlayerDirectory resolves connections to player records
type PlayerDirectory interface {
	GetByConnID(conn ConnID) (PlayerRecord, bool)
	GetByStableID(id string) (PlayerRecord, bool)
}

// BallShot is emitted when a throw is accepted
type BallShot struct {
	Ball     string
	Team     Team
	Thrower  string
	Origin   ConnID
	Position Vec3
	Velocity Vec3
}

// Knockout is emitted when a throw hits an opponent
type Knockout struct {
	Ball    string
	Victim  string
	Thrower string
	By      Team
}

// BallEvents receives presentation side effects of ownership changes
type BallEvents interface {
	OnBallShot(BallShot)
	OnBallBounce(ball string)
	OnKnockout(Knockout)
}

type nopBallEvents struct{}

func (nopBallEvents) OnBallShot(BallShot) {}
func (nopBallEvents) OnBallBounce(string) {}
func (nopBallEvents) OnKnockout(Knockout) {}

// CollisionTarget is what a ball hit; PlayerID is empty for the environment
type CollisionTarget struct {
	PlayerID string
}

// ThrowConfig holds the tunables of grabbing and throwing
type ThrowConfig struct {
	MinSpeed   float64
	MaxSpeed   float64
	GrabRadius float64
}

// Ownership is the authoritative ball ownership protocol. It is single-writer:
// the arena calls it under one lock, so every check-then-mutate runs uninterrupted.
type Ownership struct {
	cfg     ThrowConfig
	players PlayerDirectory
	score   Score
	events  BallEvents
	now     func() time.Time

	balls   map[string]*Ball
	order   []string
	holders map[string]*Holder
	lastID  int
}

// NewOwnership creates the protocol. events may be nil.
func NewOwnership(cfg ThrowConfig, players PlayerDirectory, score Score, events BallEvents) *Ownership {
	if events == nil {
		events = nopBallEvents{}
	}
	return &Ownership{
		cfg:     cfg,
		players: players,
		score:   score,
		events:  events,
		now:     time.Now,
		balls:   make(map[string]*Ball),
		holders: make(map[string]*Holder),
	}
}

// requester returns the connected record behind conn
func (o *Ownership) requester(conn ConnID, op string) (PlayerRecord, error) {
	rec, ok := o.players.GetByConnID(conn)
	if !ok || !rec.Connected {
		log.Debug().Uint64("conn", uint64(conn)).Str("op", op).Msg("ignoring request from unknown connection")
		return PlayerRecord{}, ErrUnknownPlayer
	}
	return rec, nil
}

func (o *Ownership) ball(id, op string) (*Ball, error) {
	b, ok := o.balls[id]
	if !ok {
		log.Debug().Str("ball", id).Str("op", op).Msg("ignoring request for unknown ball")
		return nil, ErrUnknownBall
	}
	return b, nil
}

// SpawnBall places a new ball on a spawner and returns its id
func (o *Ownership) SpawnBall(spawn Transform) string {
	o.lastID++
	id := "b" + strconv.Itoa(o.lastID)
	o.balls[id] = &Ball{ID: id, Spawn: spawn}
	o.order = append(o.order, id)
	o.ResetToSpawner(id)
	return id
}

// RemoveAll despawns every ball and empties every hand
func (o *Ownership) RemoveAll() {
	for _, h := range o.holders {
		h.Ball = ""
	}
	clear(o.balls)
	o.order = o.order[:0]
}

// Balls returns the balls in spawn order
func (o *Ownership) Balls() []*Ball {
	out := make([]*Ball, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.balls[id])
	}
	return out
}

// Ball returns a ball by id
func (o *Ownership) Ball(id string) (*Ball, bool) {
	b, ok := o.balls[id]
	return b, ok
}

// HasOwner reports whether a player owns the ball
func (o *Ownership) HasOwner(id string) bool {
	b, ok := o.balls[id]
	return ok && b.HasOwner()
}

// AddHolder registers a grab point for a player
func (o *Ownership) AddHolder(id, player string, pos Vec3) {
	if h, ok := o.holders[id]; ok {
		h.Player = player
		h.Position = pos
		return
	}
	o.holders[id] = &Holder{ID: id, Player: player, Position: pos}
}

// MoveHolder updates a holder pose; a held ball follows its holder
func (o *Ownership) MoveHolder(id string, pos Vec3) {
	h, ok := o.holders[id]
	if !ok {
		return
	}
	h.Position = pos
	if b, ok := o.balls[h.Ball]; ok && b.State == BallHeld {
		b.Position = pos
	}
}

// Holder returns a holder by id
func (o *Ownership) Holder(id string) (*Holder, bool) {
	h, ok := o.holders[id]
	return h, ok
}

// TryGrab gives the ball to the nearest free holder of the requesting player
// within grab range. hand restricts the candidates to one holder when set.
func (o *Ownership) TryGrab(conn ConnID, ballID, hand string) error {
	rec, err := o.requester(conn, "grab")
	if err != nil {
		return err
	}
	b, err := o.ball(ballID, "grab")
	if err != nil {
		return err
	}
	if !b.Alive {
		log.Debug().Str("ball", ballID).Str("player", rec.StableID).Msg("grab rejected: ball dead")
		return ErrBallDead
	}
	if b.HasOwner() {
		log.Debug().Str("ball", ballID).Str("player", rec.StableID).Str("owner", b.Owner).Msg("grab rejected: ball owned")
		return ErrBallOwned
	}

	var best *Holder
	bestDist := 0.0
	maxDist := o.cfg.GrabRadius * o.cfg.GrabRadius
	for _, h := range o.holders {
		if h.Player != rec.StableID || h.Ball != "" {
			continue
		}
		if hand != "" && h.ID != hand {
			continue
		}
		d := DistanceSq(h.Position, b.Position)
		if o.cfg.GrabRadius > 0 && d > maxDist {
			continue
		}
		// equal distances break on holder id so the choice is deterministic
		if best == nil || d < bestDist || (d == bestDist && h.ID < best.ID) {
			best, bestDist = h, d
		}
	}
	if best == nil {
		log.Debug().Str("ball", ballID).Str("player", rec.StableID).Msg("grab ignored: no holder in range")
		return ErrNoHolder
	}

	b.State = BallHeld
	b.Owner = rec.StableID
	b.Holder = best.ID
	b.Authority = conn
	b.ThrownBy = NoTeam
	b.Thrower = ""
	b.Origin = 0
	b.Physics = false
	b.Velocity = Vec3{}
	b.Position = best.Position
	best.Ball = b.ID
	log.Debug().Str("ball", ballID).Str("player", rec.StableID).Str("holder", best.ID).Msg("ball grabbed")
	return nil
}

// release empties the hand holding b
func (o *Ownership) release(b *Ball) Vec3 {
	pos := b.Position
	if h, ok := o.holders[b.Holder]; ok {
		pos = h.Position
		if h.Ball == b.ID {
			h.Ball = ""
		}
	}
	b.Holder = ""
	return pos
}

func (o *Ownership) ownedBy(conn ConnID, ballID, op string) (PlayerRecord, *Ball, error) {
	rec, err := o.requester(conn, op)
	if err != nil {
		return rec, nil, err
	}
	b, err := o.ball(ballID, op)
	if err != nil {
		return rec, nil, err
	}
	if b.Owner != rec.StableID {
		log.Debug().Str("ball", ballID).Str("player", rec.StableID).Str("owner", b.Owner).Str("op", op).Msg("rejected: not owner")
		return rec, nil, ErrNotOwner
	}
	return rec, b, nil
}

// Drop hands the ball back to server custody at the drop origin, facing down
func (o *Ownership) Drop(conn ConnID, ballID string) error {
	_, b, err := o.ownedBy(conn, ballID, "drop")
	if err != nil {
		return err
	}
	b.Position = o.release(b)
	b.Owner = ServerOwnerID
	b.State = BallLoose
	b.Authority = conn
	b.Physics = true
	b.Forward = Vec3{Y: -1}
	b.Velocity = Vec3{}
	return nil
}

// ThrowSpeed maps a charge fraction onto the configured speed range;
// charge is clamped to [0, 1] first and NaN counts as no charge
func (o *Ownership) ThrowSpeed(charge float64) float64 {
	if math.IsNaN(charge) {
		charge = 0
	}
	return Lerp(o.cfg.MinSpeed, o.cfg.MaxSpeed, Clamp(charge, 0, 1))
}

// Throw releases the ball into flight on behalf of the thrower's team and
// returns the release velocity
func (o *Ownership) Throw(conn ConnID, ballID string, dir Vec3, charge float64) (Vec3, error) {
	rec, b, err := o.ownedBy(conn, ballID, "throw")
	if err != nil {
		return Vec3{}, err
	}
	if dir.IsZero() {
		log.Debug().Str("ball", ballID).Str("player", rec.StableID).Msg("throw rejected: zero direction")
		return Vec3{}, ErrBadThrow
	}
	unit := dir.Normalize()
	vel := unit.Scale(o.ThrowSpeed(charge))

	b.Position = o.release(b)
	b.Owner = ServerOwnerID
	b.State = BallInFlight
	b.ThrownBy = rec.Team
	b.Thrower = rec.StableID
	b.Origin = conn
	b.Authority = conn
	b.Physics = true
	b.Forward = unit
	b.Velocity = vel

	o.events.OnBallShot(BallShot{
		Ball:     b.ID,
		Team:     rec.Team,
		Thrower:  rec.StableID,
		Origin:   conn,
		Position: b.Position,
		Velocity: vel,
	})
	log.Debug().Str("ball", ballID).Str("player", rec.StableID).Str("team", rec.Team.String()).
		Float64("speed", o.ThrowSpeed(charge)).Msg("ball thrown")
	return vel, nil
}

// OnCollision resolves a ball touching something. A scoring throw that reaches
// an opponent awards one point; any collision of a scoring throw kills the ball,
// so a flight scores at most once. Returns true if a point was awarded.
func (o *Ownership) OnCollision(ballID string, target CollisionTarget) bool {
	b, ok := o.balls[ballID]
	if !ok {
		return false
	}
	if !b.Alive {
		o.events.OnBallBounce(ballID)
		return false
	}
	if b.ThrownBy == NoTeam {
		return false
	}

	scored := false
	thrower := b.ThrownBy
	if target.PlayerID != "" {
		victim, ok := o.players.GetByStableID(target.PlayerID)
		if ok && !victim.Spectator && victim.Team != TeamNone && victim.Team != thrower {
			o.score.UpdateScore(thrower, 1)
			o.events.OnKnockout(Knockout{Ball: ballID, Victim: victim.StableID, By: thrower, Thrower: b.Thrower})
			scored = true
		}
	}
	o.kill(b)
	return scored
}

// Kill marks a ball dead, e.g. after leaving the arena bounds
func (o *Ownership) Kill(ballID string) {
	if b, ok := o.balls[ballID]; ok && b.Alive {
		o.kill(b)
	}
}

func (o *Ownership) kill(b *Ball) {
	if b.Holder != "" {
		b.Position = o.release(b)
	}
	b.Alive = false
	b.State = BallDead
	b.Owner = ServerOwnerID
	b.ThrownBy = NoTeam
	b.DiedAt = o.now()
}

// ResetToSpawner returns a ball to its rack from any state
func (o *Ownership) ResetToSpawner(ballID string) {
	b, ok := o.balls[ballID]
	if !ok {
		return
	}
	o.release(b)
	b.State = BallOnSpawner
	b.Alive = true
	b.Owner = ""
	b.ThrownBy = NoTeam
	b.Thrower = ""
	b.Origin = 0
	b.Authority = 0
	b.Physics = false
	b.Position = b.Spawn.Position
	b.Velocity = Vec3{}
	b.Forward = Vec3{}
	b.DiedAt = time.Time{}
}

// ReportMotion applies a physics report for a loose or flying ball from its
// simulating client
func (o *Ownership) ReportMotion(conn ConnID, ballID string, pos, vel Vec3) error {
	b, err := o.ball(ballID, "motion")
	if err != nil {
		return err
	}
	if (b.State != BallLoose && b.State != BallInFlight) || b.Authority != conn {
		return ErrNotAuthority
	}
	b.Position = pos
	b.Velocity = vel
	return nil
}

// ReleasePlayer drops every ball a leaving player holds where it is and removes
// the player's holders
func (o *Ownership) ReleasePlayer(stableID string) {
	for id, h := range o.holders {
		if h.Player != stableID {
			continue
		}
		if b, ok := o.balls[h.Ball]; ok && b.Owner == stableID {
			b.Position = o.release(b)
			b.Owner = ServerOwnerID
			b.State = BallLoose
			b.Authority = 0
			b.Physics = true
			b.Velocity = Vec3{}
			log.Info().Str("ball", b.ID).Str("player", stableID).Msg("ball released by leaving player")
		}
		delete(o.holders, id)
	}
}
