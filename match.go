package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Phase is the top-level match state
type Phase int

const (
	PhasePreGame   Phase = 0
	PhaseCountDown Phase = 1
	PhaseInGame    Phase = 2
	PhasePostGame  Phase = 3
)

var phaseNames = [...]string{"pregame", "countdown", "ingame", "postgame"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "invalid"
	}
	return phaseNames[p]
}

// ErrInvalidPhase rejects a transition that is not valid from the current phase
var ErrInvalidPhase = errors.New("invalid phase for transition")

// PhaseListener observes the match. Callbacks run synchronously on the
// arena goroutine and must not block.
type PhaseListener interface {
	OnPhaseChanged(phase Phase)
	OnPhaseTimeUpdate(remaining time.Duration)
	OnTeamColorUpdated(colors ColorPair)
}

// EntitySpawner populates and clears the contested balls
type EntitySpawner interface {
	SpawnInitialEntities()
	DespawnAll()
}

// Respawner places every connected player for the current phase
type Respawner interface {
	RespawnAllPlayers()
}

// MigrationSlot is what survives a host handoff
type MigrationSlot struct {
	Session   string
	Phase     Phase
	Remaining time.Duration
	SavedAt   time.Time
}

// MigrationStore persists migration slots between host processes
type MigrationStore interface {
	SaveMigration(slot MigrationSlot) error
	LoadMigration(session string) (MigrationSlot, bool, error)
	ClearMigration(session string) error
}

// MemoryMigrationStore keeps slots in process memory
type MemoryMigrationStore struct {
	mu    sync.Mutex
	slots map[string]MigrationSlot
}

// NewMemoryMigrationStore creates an empty store
func NewMemoryMigrationStore() *MemoryMigrationStore {
	return &MemoryMigrationStore{slots: make(map[string]MigrationSlot)}
}

func (s *MemoryMigrationStore) SaveMigration(slot MigrationSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot.Session] = slot
	return nil
}

func (s *MemoryMigrationStore) LoadMigration(session string) (MigrationSlot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[session]
	return slot, ok, nil
}

func (s *MemoryMigrationStore) ClearMigration(session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, session)
	return nil
}

// MatchConfig holds match timing
type MatchConfig struct {
	Session    string
	Countdown  time.Duration
	Duration   time.Duration
	ScoreLimit int // 0 disables the early finish
}

// DefaultMatchConfig returns the standard dodgeball timings
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Countdown: 4 * time.Second,
		Duration:  180 * time.Second,
	}
}

// MatchDeps are the collaborators the state machine drives
type MatchDeps struct {
	Score     Score
	Spawner   EntitySpawner
	Respawner Respawner
	Teams     *TeamAssigner
	Sessions  *SessionStore
	Spawns    *SpawnAllocator
	Migration MigrationStore
	Queue     *ReplicationQueue
	Now       func() time.Time
}

// matchEvent is one queued listener notification
type matchEvent struct {
	phase     *Phase
	remaining *time.Duration
	colors    *ColorPair
}

// MatchStateMachine is the authoritative PreGame → CountDown → InGame → PostGame
// progression. Not safe for concurrent use; the arena serializes calls.
type MatchStateMachine struct {
	cfg  MatchConfig
	deps MatchDeps
	now  func() time.Time

	phase  *Observable[Phase]
	colors *Observable[ColorPair]
	latch  *ColorLatch

	startedAt time.Time
	endAt     time.Time
	played    time.Duration
	nextTie   int
	scoreA    int
	scoreB    int

	listeners   []PhaseListener
	pending     []matchEvent
	dispatching bool
}

// NewMatchStateMachine creates a machine in PreGame. Call Restore afterwards to
// resume from a saved migration slot.
func NewMatchStateMachine(cfg MatchConfig, deps MatchDeps) *MatchStateMachine {
	def := DefaultMatchConfig()
	if cfg.Countdown <= 0 {
		cfg.Countdown = def.Countdown
	}
	if cfg.Duration <= 0 {
		cfg.Duration = def.Duration
	}
	m := &MatchStateMachine{cfg: cfg, deps: deps, now: deps.Now}
	if m.now == nil {
		m.now = time.Now
	}
	m.phase = NewObservable("phase", PhasePreGame, deps.Queue)
	m.colors = NewObservable("colors", ColorPair{}, deps.Queue)
	m.latch = NewColorLatch(m.colors)
	m.phase.Subscribe(func(_, cur Phase) {
		m.emit(matchEvent{phase: &cur})
	})
	m.colors.Subscribe(func(_, cur ColorPair) {
		m.emit(matchEvent{colors: &cur})
	})
	if deps.Score != nil {
		deps.Score.OnScoreUpdated(func(a, b int) {
			m.scoreA, m.scoreB = a, b
		})
	}
	return m
}

// Phase returns the current phase
func (m *MatchStateMachine) Phase() Phase {
	return m.phase.Get()
}

// Colors returns the current color pair and whether one was chosen
func (m *MatchStateMachine) Colors() (ColorPair, bool) {
	return m.latch.Pair()
}

// EnsureColors selects the match colors if none are set yet
func (m *MatchStateMachine) EnsureColors() {
	m.latch.Select()
}

// Remaining returns the time left in the countdown or the match
func (m *MatchStateMachine) Remaining() time.Duration {
	switch m.phase.Get() {
	case PhaseCountDown, PhaseInGame:
		return max(m.endAt.Sub(m.now()), 0)
	}
	return 0
}

// EndTime returns the absolute target of the current timed phase
func (m *MatchStateMachine) EndTime() time.Time {
	return m.endAt
}

// StartedAt returns when the current InGame phase began
func (m *MatchStateMachine) StartedAt() time.Time {
	return m.startedAt
}

// Played returns how much of the match clock ran before the last match ended.
// Time spent on another host before a restore is included.
func (m *MatchStateMachine) Played() time.Duration {
	return m.played
}

// ScoreLimit returns the early-finish score, 0 when disabled
func (m *MatchStateMachine) ScoreLimit() int {
	return m.cfg.ScoreLimit
}

// Start begins a countdown from PreGame or PostGame
func (m *MatchStateMachine) Start() error {
	from := m.phase.Get()
	if from != PhasePreGame && from != PhasePostGame {
		log.Debug().Str("phase", from.String()).Msg("ignoring start: match already running")
		return fmt.Errorf("%w: start from %s", ErrInvalidPhase, from)
	}
	m.enterCountDown(from)
	return nil
}

func (m *MatchStateMachine) enterCountDown(from Phase) {
	if m.deps.Score != nil {
		m.deps.Score.Reset()
	}
	m.latch.Reset()
	m.latch.Select()

	if from == PhasePreGame && m.deps.Sessions != nil && m.deps.Teams != nil {
		m.assignUnassigned()
		m.deps.Teams.LockRoster(m.deps.Sessions.Records())
	}
	m.resetTeamSpawns()

	m.endAt = m.now().Add(m.cfg.Countdown)
	m.phase.Set(PhaseCountDown)
	log.Info().Str("session", m.cfg.Session).Str("from", from.String()).
		Dur("countdown", m.cfg.Countdown).Msg("countdown started")
	if m.deps.Respawner != nil {
		m.deps.Respawner.RespawnAllPlayers()
	}
}

// assignUnassigned gives a team to every connected player that has none.
// Players who left are assigned when they come back.
func (m *MatchStateMachine) assignUnassigned() {
	for _, rec := range m.deps.Sessions.Records() {
		if !rec.Connected || rec.Spectator || rec.Team != TeamNone {
			continue
		}
		team := m.deps.Teams.AssignForJoin(rec, PhasePreGame, Vec3{})
		m.deps.Sessions.Modify(rec.StableID, func(r *PlayerRecord) { r.Team = team })
	}
}

// resetTeamSpawns frees every in-match reservation so the respawn reshuffles
func (m *MatchStateMachine) resetTeamSpawns() {
	if m.deps.Spawns == nil {
		return
	}
	pools := []PoolID{PoolTeamA, PoolTeamB}
	if m.deps.Teams != nil {
		pools = pools[:0]
		for _, t := range m.deps.Teams.Active() {
			if p, ok := PoolForTeam(t); ok {
				pools = append(pools, p)
			}
		}
	}
	for _, p := range pools {
		m.deps.Spawns.Reset(p)
	}
	m.forgetSpawns(pools...)
}

// forgetSpawns clears record reservations that point into the given pools
func (m *MatchStateMachine) forgetSpawns(pools ...PoolID) {
	if m.deps.Sessions == nil {
		return
	}
	for _, rec := range m.deps.Sessions.Records() {
		for _, p := range pools {
			if rec.Pool == p {
				m.deps.Sessions.Modify(rec.StableID, func(r *PlayerRecord) {
					r.Pool = PoolNone
					r.SpawnIndex = -1
				})
				break
			}
		}
	}
}

// CountdownFinished is reported by the countdown view when it reaches zero.
// It is a no-op outside CountDown.
func (m *MatchStateMachine) CountdownFinished() {
	if m.phase.Get() != PhaseCountDown {
		return
	}
	m.enterInGame(m.cfg.Duration)
}

func (m *MatchStateMachine) enterInGame(remaining time.Duration) {
	now := m.now()
	m.startedAt = now
	m.endAt = now.Add(remaining)
	m.phase.Set(PhaseInGame)
	log.Info().Str("session", m.cfg.Session).Dur("remaining", remaining).Msg("match started")
	if m.deps.Spawner != nil {
		m.deps.Spawner.SpawnInitialEntities()
	}
}

// Update advances timers; called once per arena tick
func (m *MatchStateMachine) Update() {
	switch m.phase.Get() {
	case PhaseCountDown:
		if !m.now().Before(m.endAt) {
			m.enterInGame(m.cfg.Duration)
		}
	case PhaseInGame:
		remaining := m.endAt.Sub(m.now())
		m.emit(matchEvent{remaining: &remaining})
		if remaining <= 0 || m.scoreLimitReached() {
			m.enterPostGame()
		}
	}
}

func (m *MatchStateMachine) scoreLimitReached() bool {
	if m.cfg.ScoreLimit <= 0 {
		return false
	}
	return m.scoreA >= m.cfg.ScoreLimit || m.scoreB >= m.cfg.ScoreLimit
}

func (m *MatchStateMachine) enterPostGame() {
	if m.deps.Spawner != nil {
		m.deps.Spawner.DespawnAll()
	}
	if m.deps.Spawns != nil {
		m.deps.Spawns.Reset(PoolPodiumWinner)
		m.deps.Spawns.Reset(PoolPodiumLoser)
	}
	m.forgetSpawns(PoolPodiumWinner, PoolPodiumLoser)
	m.nextTie = 0
	m.played = max(m.cfg.Duration-max(m.endAt.Sub(m.now()), 0), 0)
	m.phase.Set(PhasePostGame)

	winner := TeamNone
	if m.deps.Score != nil {
		winner = m.deps.Score.WinningTeam()
	}
	log.Info().Str("session", m.cfg.Session).Str("winner", winner.String()).Msg("match ended")
	if m.deps.Respawner != nil {
		m.deps.Respawner.RespawnAllPlayers()
	}
}

// PodiumPool picks the post-game pool for a team. On a draw successive calls
// alternate between the two podiums.
func (m *MatchStateMachine) PodiumPool(team Team) PoolID {
	winner := TeamNone
	if m.deps.Score != nil {
		winner = m.deps.Score.WinningTeam()
	}
	if winner == TeamNone {
		pool := PoolPodiumWinner
		if m.nextTie%2 == 1 {
			pool = PoolPodiumLoser
		}
		m.nextTie++
		return pool
	}
	if team == winner {
		return PoolPodiumWinner
	}
	return PoolPodiumLoser
}

// ResetToPreGame abandons the current match, unlocks the roster and rebalances
// the connected players
func (m *MatchStateMachine) ResetToPreGame() {
	if m.phase.Get() == PhasePreGame {
		return
	}
	if m.phase.Get() == PhaseInGame && m.deps.Spawner != nil {
		m.deps.Spawner.DespawnAll()
	}
	if m.deps.Teams != nil {
		m.deps.Teams.ClearRoster()
	}
	if m.deps.Sessions != nil {
		for _, rec := range m.deps.Sessions.Records() {
			if !rec.Spectator {
				m.deps.Sessions.Modify(rec.StableID, func(r *PlayerRecord) { r.Team = TeamNone })
			}
		}
		if m.deps.Teams != nil {
			m.assignUnassigned()
		}
	}
	m.phase.Set(PhasePreGame)
	log.Info().Str("session", m.cfg.Session).Msg("match reset to pregame")
}

// BeginHostMigration saves what a new host needs to resume this match.
// InGame keeps its remaining time; CountDown is saved to be restarted.
func (m *MatchStateMachine) BeginHostMigration() error {
	if m.deps.Migration == nil {
		return nil
	}
	phase := m.phase.Get()
	slot := MigrationSlot{Session: m.cfg.Session, Phase: phase, SavedAt: m.now()}
	switch phase {
	case PhaseInGame:
		slot.Remaining = max(m.endAt.Sub(slot.SavedAt), 0)
	case PhaseCountDown:
	default:
		return m.deps.Migration.ClearMigration(m.cfg.Session)
	}
	if err := m.deps.Migration.SaveMigration(slot); err != nil {
		return fmt.Errorf("save migration slot: %w", err)
	}
	log.Info().Str("session", m.cfg.Session).Str("phase", phase.String()).
		Dur("remaining", slot.Remaining).Msg("host migration saved")
	return nil
}

// Restore resumes from a saved migration slot, if there is one, and clears it.
// Returns true when a phase was restored.
func (m *MatchStateMachine) Restore() (bool, error) {
	if m.deps.Migration == nil {
		return false, nil
	}
	slot, ok, err := m.deps.Migration.LoadMigration(m.cfg.Session)
	if err != nil {
		return false, fmt.Errorf("load migration slot: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := m.deps.Migration.ClearMigration(m.cfg.Session); err != nil {
		log.Error().Err(err).Str("session", m.cfg.Session).Msg("failed to clear migration slot")
	}

	switch slot.Phase {
	case PhaseInGame:
		m.latch.Select()
		m.enterInGame(slot.Remaining)
	case PhaseCountDown:
		m.enterCountDown(PhasePreGame)
	default:
		return false, nil
	}
	log.Info().Str("session", m.cfg.Session).Str("phase", slot.Phase.String()).
		Dur("remaining", slot.Remaining).Msg("restored after host migration")
	return true, nil
}

// RegisterListener adds an observer and immediately sends it the current phase
// and colors
func (m *MatchStateMachine) RegisterListener(l PhaseListener) {
	m.listeners = append(m.listeners, l)
	l.OnPhaseChanged(m.phase.Get())
	if pair, ok := m.latch.Pair(); ok {
		l.OnTeamColorUpdated(pair)
	}
}

// UnregisterListener removes an observer
func (m *MatchStateMachine) UnregisterListener(l PhaseListener) {
	for i, cur := range m.listeners {
		if cur == l {
			m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
			return
		}
	}
}

// emit queues an event and delivers queued events in order. A transition
// triggered from inside a listener is delivered only after every listener has
// seen the current event.
func (m *MatchStateMachine) emit(ev matchEvent) {
	m.pending = append(m.pending, ev)
	if m.dispatching {
		return
	}
	m.dispatching = true
	defer func() { m.dispatching = false }()
	for len(m.pending) > 0 {
		ev := m.pending[0]
		m.pending = m.pending[1:]
		listeners := append([]PhaseListener(nil), m.listeners...)
		for _, l := range listeners {
			switch {
			case ev.phase != nil:
				l.OnPhaseChanged(*ev.phase)
			case ev.remaining != nil:
				l.OnPhaseTimeUpdate(*ev.remaining)
			case ev.colors != nil:
				l.OnTeamColorUpdated(*ev.colors)
			}
		}
	}
}
