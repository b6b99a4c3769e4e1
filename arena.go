package main

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate       = 60 // simulation ticks per second
	BroadcastRate  = 20 // state broadcasts per second
	TickDuration   = time.Second / TickRate
	BroadcastEvery = TickRate / BroadcastRate
)

const (
	maxPlayersPerSession = 16
	postBufSize          = 256
	eyeHeight            = 1.7
)

// ErrSessionFull rejects a join into a full arena
var ErrSessionFull = errors.New("session full")

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// MatchRecorder persists finished matches
type MatchRecorder interface {
	RecordMatchResult(res MatchResult) error
}

// EventTracker receives analytics events
type EventTracker interface {
	Track(evtType string, playerID int64, sessionID string, data string)
}

// MatchResult is the summary of one finished match
type MatchResult struct {
	Session  string
	Duration time.Duration
	Winner   Team
	ScoreA   int
	ScoreB   int
	Players  []MatchPlayerResult
}

// MatchPlayerResult is one participant's line in a MatchResult
type MatchPlayerResult struct {
	StableID  string
	AccountID int64 // 0 for guests
	Team      Team
	Knockouts int
	HitsTaken int
	Won       bool
}

// ArenaConfig holds the tunables of one arena
type ArenaConfig struct {
	Match           MatchConfig
	Throw           ThrowConfig
	BallCount       int
	BallRespawn     time.Duration
	TeleportTimeout time.Duration
	Fade            time.Duration
	HitTolerance    float64
	Layout          Layout
}

// DefaultArenaConfig returns the standard court setup
func DefaultArenaConfig() ArenaConfig {
	return ArenaConfig{
		Match:           DefaultMatchConfig(),
		Throw:           ThrowConfig{MinSpeed: 5, MaxSpeed: 20, GrabRadius: 1.5},
		BallCount:       6,
		BallRespawn:     3 * time.Second,
		TeleportTimeout: 5 * time.Second,
		Fade:            300 * time.Millisecond,
		HitTolerance:    0.25,
		Layout:          DefaultLayout(),
	}
}

// ArenaDeps are optional outside services; any may be nil
type ArenaDeps struct {
	Migration MigrationStore
	Recorder  MatchRecorder
	Tracker   EventTracker
	Now       func() time.Time
	Rand      *rand.Rand
}

// arenaPlayer is the per-connection state
type arenaPlayer struct {
	conn      ConnID
	stableID  string
	accountID int64
	client    Broadcaster
	scope     *Scope
	listener  *clientListener
	pose      PoseMsg
}

type playerMatchStats struct {
	knockouts int
	hitsTaken int
}

// Arena holds the state for one game session. Every mutation happens under mu,
// either from a client handler, the tick loop, or a posted continuation.
type Arena struct {
	mu   sync.Mutex
	id   string
	name string
	cfg  ArenaConfig
	deps ArenaDeps
	now  func() time.Time

	queue    *ReplicationQueue
	sessions *SessionStore
	spawns   *SpawnAllocator
	teams    *TeamAssigner
	score    *Scoreboard
	balls    *Ownership
	rack     *BallRack
	match    *MatchStateMachine

	players      map[ConnID]*arenaPlayer
	accounts     map[string]int64
	stats        map[string]*playerMatchStats
	prevBall     map[string]Vec3
	countdownSec int

	ctx    context.Context
	cancel context.CancelFunc
	posts  chan func()
	tick   uint64
	stop   chan struct{}
}

// NewArena wires a fresh arena and resumes it from a saved migration slot when
// one exists for id
func NewArena(id, name string, cfg ArenaConfig, deps ArenaDeps) *Arena {
	a := &Arena{
		id:           id,
		name:         name,
		cfg:          cfg,
		deps:         deps,
		now:          deps.Now,
		queue:        &ReplicationQueue{},
		players:      make(map[ConnID]*arenaPlayer),
		accounts:     make(map[string]int64),
		stats:        make(map[string]*playerMatchStats),
		prevBall:     make(map[string]Vec3),
		countdownSec: -1,
		posts:        make(chan func(), postBufSize),
		stop:         make(chan struct{}),
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	layout := cfg.Layout
	a.spawns = NewSpawnAllocator(layout.Pools, deps.Rand)
	a.sessions = NewSessionStore(func() Phase { return a.match.Phase() }, a.spawns)
	a.score = NewScoreboard(a.queue)
	a.teams = NewTeamAssigner(TeamAssignerConfig{
		Counts: a.sessions.CountByTeam,
		Winner: a.score.WinningTeam,
		HasRoom: func(p PoolID) bool {
			avail, _ := a.spawns.Counts(p)
			return avail > 0
		},
		WinnerAnchor: layout.WinnerAnchor,
		LoserAnchor:  layout.LoserAnchor,
	})
	a.balls = NewOwnership(cfg.Throw, a.sessions, a.score, a)
	a.balls.now = a.now
	a.rack = NewBallRack(a.balls, layout.BallSpawns, cfg.BallCount, cfg.BallRespawn, layout.Bounds)
	a.rack.now = a.now

	mcfg := cfg.Match
	mcfg.Session = id
	a.match = NewMatchStateMachine(mcfg, MatchDeps{
		Score:     a.score,
		Spawner:   a.rack,
		Respawner: a,
		Teams:     a.teams,
		Sessions:  a.sessions,
		Spawns:    a.spawns,
		Migration: deps.Migration,
		Queue:     a.queue,
		Now:       a.now,
	})
	a.score.OnScoreUpdated(a.onScore)
	a.match.RegisterListener(a)

	restored, err := a.match.Restore()
	if err != nil {
		log.Error().Err(err).Str("session", id).Msg("host migration restore failed")
	}
	if restored {
		a.track(EvtHostMigration, 0, `{"restored":true}`)
	}
	return a
}

// Run starts the arena loop
func (a *Arena) Run() {
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.update()
		case fn := <-a.posts:
			a.mu.Lock()
			fn()
			a.mu.Unlock()
		case <-a.stop:
			return
		}
	}
}

// Stop terminates the arena loop and abandons every pending wait
func (a *Arena) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancel()
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}
}

// Post queues fn to run on the arena loop under its lock
func (a *Arena) Post(fn func()) {
	select {
	case a.posts <- fn:
	case <-a.stop:
	}
}

// update runs one arena tick
func (a *Arena) update() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tick++
	a.updateCountdown()
	a.match.Update()
	a.rack.Update()

	if a.tick%BroadcastEvery == 0 {
		a.broadcastState()
		if changes := a.queue.Drain(); len(changes) > 0 {
			a.broadcastMsg(Envelope{T: MsgSync, Data: changes})
		}
	}
}

// updateCountdown is the countdown view: it shows whole seconds and reports
// completion to the state machine
func (a *Arena) updateCountdown() {
	if a.match.Phase() != PhaseCountDown {
		return
	}
	rem := a.match.Remaining()
	if sec := int(math.Ceil(rem.Seconds())); sec != a.countdownSec {
		a.countdownSec = sec
		a.broadcastMsg(Envelope{T: MsgCountdown, Data: TimeMsg{Seconds: sec}})
	}
	if rem <= 0 {
		a.match.CountdownFinished()
	}
}

func handID(stableID, hand string) string {
	return stableID + ":" + hand
}

// Join adds or reconnects a player and places them for the current phase
func (a *Arena) Join(conn ConnID, client Broadcaster, id Identity, spectator bool, pos Vec3) (PlayerRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, known := a.sessions.GetByStableID(id.StableID); !known && a.sessions.ConnectedCount() >= maxPlayersPerSession {
		return PlayerRecord{}, ErrSessionFull
	}
	rec, err := a.sessions.RegisterOrReconnect(conn, id.StableID, NewPlayerRecord(id.StableID, id.Name, spectator))
	if err != nil {
		return rec, err
	}
	if !rec.Spectator {
		if team := a.teams.AssignForJoin(rec, a.match.Phase(), pos); team != rec.Team {
			rec.Team = team
			a.sessions.Update(conn, rec)
		}
	}
	a.accounts[id.StableID] = id.AccountID

	p := &arenaPlayer{
		conn:      conn,
		stableID:  id.StableID,
		accountID: id.AccountID,
		client:    client,
		scope:     NewScope(a.ctx),
		pose:      PoseMsg{Head: pos},
	}
	p.listener = &clientListener{client: client, lastSec: -1}
	a.players[conn] = p
	if !rec.Spectator {
		a.balls.AddHolder(handID(id.StableID, "left"), id.StableID, pos)
		a.balls.AddHolder(handID(id.StableID, "right"), id.StableID, pos)
	}

	client.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		ID:        id.StableID,
		Team:      rec.Team.String(),
		Spectator: rec.Spectator,
		Phase:     a.match.Phase().String(),
	}})
	a.match.EnsureColors()
	a.match.RegisterListener(p.listener)
	sa, sb := a.score.Scores()
	client.SendJSON(Envelope{T: MsgScore, Data: ScoreMsg{A: sa, B: sb}})

	if err := a.place(conn); err != nil {
		log.Error().Err(err).Str("player", id.StableID).Msg("could not place player")
	}
	a.track(EvtPlayerJoin, id.AccountID, "")
	return rec, nil
}

// Leave disconnects a player. The record is kept for a reconnect.
func (a *Arena) Leave(conn ConnID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.players[conn]
	if !ok {
		return
	}
	p.scope.Close()
	a.match.UnregisterListener(p.listener)
	a.balls.ReleasePlayer(p.stableID)
	a.sessions.MarkDisconnected(conn)
	delete(a.players, conn)
}

// RespawnAllPlayers places every connected player for the current phase
func (a *Arena) RespawnAllPlayers() {
	for _, rec := range a.sessions.Connected() {
		if err := a.place(rec.ConnID); err != nil {
			log.Error().Err(err).Str("player", rec.StableID).Msg("could not respawn player")
		}
	}
}

// poolFor picks the spawn pool a record belongs in right now
func (a *Arena) poolFor(rec PlayerRecord) PoolID {
	if rec.Spectator {
		if rec.Pool == PoolSpectatorA || rec.Pool == PoolSpectatorB {
			return rec.Pool
		}
		return PoolSpectatorA
	}
	if a.match.Phase() == PhasePostGame {
		if rec.HasSpawn() && (rec.Pool == PoolPodiumWinner || rec.Pool == PoolPodiumLoser) {
			return rec.Pool
		}
		return a.match.PodiumPool(rec.Team)
	}
	pool, ok := PoolForTeam(rec.Team)
	if !ok {
		log.Error().Str("player", rec.StableID).Str("team", rec.Team.String()).Msg("no spawn pool for team")
	}
	return pool
}

// place reserves a spawn for conn (or reuses its saved one) and teleports there
func (a *Arena) place(conn ConnID) error {
	rec, ok := a.sessions.GetByConnID(conn)
	p := a.players[conn]
	if !ok || !rec.Connected || p == nil {
		return ErrUnknownPlayer
	}
	pool := a.poolFor(rec)

	var target Transform
	reused := false
	if rec.HasSpawn() && rec.Pool == pool {
		if t, ok := a.spawns.GetByIndex(pool, rec.SpawnIndex); ok {
			a.spawns.Claim(pool, rec.SpawnIndex)
			target, reused = t, true
		}
	}
	if !reused {
		if rec.HasSpawn() {
			a.spawns.Release(rec.Pool, rec.SpawnIndex)
		}
		t, idx, ok := a.spawns.ReserveRandom(pool)
		if !ok {
			return ErrPoolEmpty
		}
		target = t
		rec.Pool, rec.SpawnIndex = pool, idx
	}
	rec.PostGameSide = rec.Pool == PoolPodiumWinner
	a.sessions.Update(conn, rec)
	a.teleport(p, target)
	return nil
}

// teleport fades the player out, waits for their avatar, then moves them.
// The move is dropped if they disconnect first.
func (a *Arena) teleport(p *arenaPlayer, target Transform) {
	p.client.SendJSON(Envelope{T: MsgFade, Data: FadeMsg{Ms: int(a.cfg.Fade.Milliseconds())}})
	fade, timeout := a.cfg.Fade, a.cfg.TeleportTimeout
	Await(a, p.scope, "teleport "+p.stableID, func(s *Scope) error {
		if err := s.Sleep(fade); err != nil {
			return err
		}
		return s.WaitReady(timeout)
	}, func() {
		p.pose.Head = target.Position.Add(Vec3{Y: eyeHeight})
		p.pose.Yaw = target.Yaw
		p.client.SendJSON(Envelope{T: MsgTeleport, Data: TeleportMsg{
			Pos:   target.Position,
			Yaw:   target.Yaw,
			Phase: a.match.Phase().String(),
		}})
	})
}

func (a *Arena) player(conn ConnID) *arenaPlayer {
	return a.players[conn]
}

func (a *Arena) playerByStable(stableID string) *arenaPlayer {
	for _, p := range a.players {
		if p.stableID == stableID {
			return p
		}
	}
	return nil
}

// HandlePose updates a player's tracked head and hands
func (a *Arena) HandlePose(conn ConnID, msg PoseMsg) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.player(conn)
	if p == nil {
		return
	}
	p.pose = msg
	a.balls.MoveHolder(handID(p.stableID, "left"), msg.Left)
	a.balls.MoveHolder(handID(p.stableID, "right"), msg.Right)
}

// HandleGrab asks for ownership of a ball
func (a *Arena) HandleGrab(conn ConnID, msg GrabMsg) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	hand := ""
	if p := a.player(conn); p != nil && msg.Hand != "" {
		hand = handID(p.stableID, msg.Hand)
	}
	return a.balls.TryGrab(conn, msg.Ball, hand)
}

// HandleDrop releases a held ball without throwing it
func (a *Arena) HandleDrop(conn ConnID, msg BallMsg) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balls.Drop(conn, msg.Ball)
}

// HandleThrow releases a held ball into flight
func (a *Arena) HandleThrow(conn ConnID, msg ThrowMsg) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.balls.Throw(conn, msg.Ball, msg.Dir, msg.Charge)
	if err == nil {
		delete(a.prevBall, msg.Ball)
	}
	return err
}

// HandleBallMotion applies a physics report from the ball's simulating client
func (a *Arena) HandleBallMotion(conn ConnID, msg BallMotionMsg) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.balls.Ball(msg.Ball)
	if !ok {
		return
	}
	prev := b.Position
	if err := a.balls.ReportMotion(conn, msg.Ball, msg.Pos, msg.Vel); err == nil {
		a.prevBall[msg.Ball] = prev
	}
}

// HandleHit validates a reported collision and resolves it. Player hits must be
// reported by the simulating client or the victim, and must overlap the victim.
func (a *Arena) HandleHit(conn ConnID, msg HitMsg) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.player(conn)
	b, ok := a.balls.Ball(msg.Ball)
	if p == nil || !ok {
		return false
	}
	selfReport := msg.Target != "" && msg.Target == p.stableID
	if b.Authority != conn && !selfReport {
		log.Debug().Str("ball", msg.Ball).Str("player", p.stableID).Msg("hit rejected: reporter has no authority")
		return false
	}
	if msg.Target != "" {
		victim := a.playerByStable(msg.Target)
		if victim == nil {
			return false
		}
		prev, ok := a.prevBall[msg.Ball]
		if !ok {
			prev = b.Position
		}
		if !HitsPlayer(b.Position, prev, victim.pose.Head, a.cfg.HitTolerance) {
			log.Debug().Str("ball", msg.Ball).Str("victim", msg.Target).Msg("hit rejected: no overlap")
			return false
		}
	}
	delete(a.prevBall, msg.Ball)
	return a.balls.OnCollision(msg.Ball, CollisionTarget{PlayerID: msg.Target})
}

// HandleStart starts or restarts the match on behalf of a player
func (a *Arena) HandleStart(conn ConnID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.sessions.GetByConnID(conn)
	if !ok || rec.Spectator {
		return ErrUnknownPlayer
	}
	return a.match.Start()
}

// HandleReset abandons the match and reopens team balancing
func (a *Arena) HandleReset(conn ConnID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rec, ok := a.sessions.GetByConnID(conn); !ok || rec.Spectator {
		return
	}
	a.match.ResetToPreGame()
	a.RespawnAllPlayers()
}

// HandleReady marks the player's avatar loaded
func (a *Arena) HandleReady(conn ConnID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p := a.player(conn); p != nil {
		p.scope.MarkReady()
	}
}

// HandleSwitchSide moves a spectator to the mirrored seat in the other stand
func (a *Arena) HandleSwitchSide(conn ConnID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.player(conn)
	rec, ok := a.sessions.GetByConnID(conn)
	if p == nil || !ok || !rec.Spectator {
		return ErrUnknownPlayer
	}
	to := PoolSpectatorA
	if rec.Pool != PoolSpectatorB {
		to = PoolSpectatorB
	}
	target, idx, ok := a.spawns.ReserveClosest(to, mirrorX(p.pose.Head))
	if !ok {
		return ErrPoolEmpty
	}
	if rec.HasSpawn() {
		a.spawns.Release(rec.Pool, rec.SpawnIndex)
	}
	rec.Pool, rec.SpawnIndex = to, idx
	a.sessions.Update(conn, rec)
	a.teleport(p, target)
	return nil
}

// Migrate saves the match for a new host process
func (a *Arena) Migrate() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.match.BeginHostMigration()
	if err == nil {
		a.track(EvtHostMigration, 0, `{"restored":false}`)
	}
	return err
}

// OnPhaseChanged records match boundaries
func (a *Arena) OnPhaseChanged(phase Phase) {
	switch phase {
	case PhaseCountDown:
		a.countdownSec = -1
	case PhaseInGame:
		clear(a.stats)
		clear(a.prevBall)
		a.track(EvtMatchStart, 0, "")
	case PhasePostGame:
		a.finishMatch()
	}
}

func (a *Arena) OnPhaseTimeUpdate(time.Duration) {}

func (a *Arena) OnTeamColorUpdated(ColorPair) {}

// OnBallShot tells every client about an accepted throw
func (a *Arena) OnBallShot(s BallShot) {
	a.broadcastMsg(Envelope{T: MsgShot, Data: ShotMsg{
		Ball:   s.Ball,
		Team:   s.Team.String(),
		By:     s.Thrower,
		Origin: uint64(s.Origin),
		Pos:    s.Position,
		Vel:    s.Velocity,
	}})
}

func (a *Arena) OnBallBounce(ball string) {
	a.broadcastMsg(Envelope{T: MsgBounce, Data: BallMsg{Ball: ball}})
}

// OnKnockout counts the hit and announces it
func (a *Arena) OnKnockout(k Knockout) {
	if k.Thrower != "" {
		a.statsFor(k.Thrower).knockouts++
	}
	a.statsFor(k.Victim).hitsTaken++
	a.broadcastMsg(Envelope{T: MsgKnockout, Data: KnockoutMsg{
		Ball:    k.Ball,
		Victim:  k.Victim,
		Thrower: k.Thrower,
		Team:    k.By.String(),
	}})
	a.track(EvtKnockout, a.accounts[k.Thrower], "")
}

func (a *Arena) statsFor(stableID string) *playerMatchStats {
	s, ok := a.stats[stableID]
	if !ok {
		s = &playerMatchStats{}
		a.stats[stableID] = s
	}
	return s
}

func (a *Arena) onScore(sa, sb int) {
	a.broadcastMsg(Envelope{T: MsgScore, Data: ScoreMsg{A: sa, B: sb}})
}

// finishMatch summarizes the match and hands it to the recorder
func (a *Arena) finishMatch() {
	sa, sb := a.score.Scores()
	res := MatchResult{
		Session:  a.id,
		Winner:   a.score.WinningTeam(),
		ScoreA:   sa,
		ScoreB:   sb,
		Duration: a.match.Played(),
	}
	for _, rec := range a.sessions.Records() {
		if rec.Spectator || rec.Team == TeamNone {
			continue
		}
		st := a.statsFor(rec.StableID)
		res.Players = append(res.Players, MatchPlayerResult{
			StableID:  rec.StableID,
			AccountID: a.accounts[rec.StableID],
			Team:      rec.Team,
			Knockouts: st.knockouts,
			HitsTaken: st.hitsTaken,
			Won:       res.Winner != TeamNone && rec.Team == res.Winner,
		})
	}
	a.broadcastMsg(Envelope{T: MsgResult, Data: ResultMsg{Winner: res.Winner.String(), A: sa, B: sb}})

	data, _ := json.Marshal(map[string]any{"duration": res.Duration.Seconds(), "winner": res.Winner.String()})
	a.track(EvtMatchEnd, 0, string(data))
	if a.deps.Recorder != nil {
		go func() {
			if err := a.deps.Recorder.RecordMatchResult(res); err != nil {
				log.Error().Err(err).Str("session", res.Session).Msg("failed to record match")
			}
		}()
	}
}

func (a *Arena) track(evt string, playerID int64, data string) {
	if a.deps.Tracker != nil {
		a.deps.Tracker.Track(evt, playerID, a.id, data)
	}
}

// snapshot builds the binary state broadcast
func (a *Arena) snapshot() ArenaSnapshot {
	sa, sb := a.score.Scores()
	snap := ArenaSnapshot{
		Tick:      a.tick,
		Phase:     a.match.Phase(),
		Remaining: a.match.Remaining().Milliseconds(),
		ScoreA:    sa,
		ScoreB:    sb,
		Players:   make([]PlayerSnap, 0, len(a.players)),
	}
	for _, p := range a.players {
		rec, _ := a.sessions.GetByConnID(p.conn)
		snap.Players = append(snap.Players, PlayerSnap{
			ID:        p.stableID,
			Name:      rec.Name,
			Team:      rec.Team,
			Spectator: rec.Spectator,
			Head:      p.pose.Head,
			Left:      p.pose.Left,
			Right:     p.pose.Right,
			Yaw:       p.pose.Yaw,
		})
	}
	for _, b := range a.balls.Balls() {
		snap.Balls = append(snap.Balls, BallSnapshot{
			ID:     b.ID,
			State:  b.State,
			Owner:  b.Owner,
			Holder: b.Holder,
			Team:   b.ThrownBy,
			Pos:    b.Position,
			Vel:    b.Velocity,
		})
	}
	return snap
}

// broadcastState sends the binary snapshot to all clients
func (a *Arena) broadcastState() {
	data, err := msgpack.Marshal(a.snapshot())
	if err != nil {
		log.Error().Err(err).Str("session", a.id).Msg("snapshot encode failed")
		return
	}
	for _, p := range a.players {
		p.client.SendBinary(data)
	}
}

// broadcastMsg sends a message to all clients in the session
func (a *Arena) broadcastMsg(msg Envelope) {
	for _, p := range a.players {
		p.client.SendJSON(msg)
	}
}

// PlayerCount returns the number of connected players
func (a *Arena) PlayerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.players)
}

// Phase returns the current match phase
func (a *Arena) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.match.Phase()
}

// clientListener forwards match events to one client, reducing the per-tick
// time updates to one message per whole second
type clientListener struct {
	client  Broadcaster
	lastSec int
}

func (l *clientListener) OnPhaseChanged(phase Phase) {
	l.lastSec = -1
	l.client.SendJSON(Envelope{T: MsgPhase, Data: PhaseMsg{Phase: phase.String()}})
}

func (l *clientListener) OnPhaseTimeUpdate(remaining time.Duration) {
	sec := int(math.Ceil(remaining.Seconds()))
	if sec < 0 {
		sec = 0
	}
	if sec == l.lastSec {
		return
	}
	l.lastSec = sec
	l.client.SendJSON(Envelope{T: MsgTime, Data: TimeMsg{Seconds: sec}})
}

func (l *clientListener) OnTeamColorUpdated(colors ColorPair) {
	l.client.SendJSON(Envelope{T: MsgColors, Data: colors})
}
