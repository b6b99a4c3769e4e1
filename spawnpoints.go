package main

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrPoolEmpty is returned when a placement finds no point to reserve
var ErrPoolEmpty = errors.New("spawn pool empty")

// PoolID names one pool of spawn points
type PoolID int

const (
	PoolNone PoolID = iota
	PoolTeamA
	PoolTeamB
	PoolTeamC
	PoolTeamD
	PoolPodiumWinner
	PoolPodiumLoser
	PoolSpectatorA
	PoolSpectatorB
	poolCount
)

var poolNames = [poolCount]string{
	"none", "team_a", "team_b", "team_c", "team_d",
	"podium_winner", "podium_loser", "spectator_a", "spectator_b",
}

func (p PoolID) String() string {
	if p < 0 || p >= poolCount {
		return "invalid"
	}
	return poolNames[p]
}

// teamPools maps a team to its in-match pool; indexed by Team
var teamPools = [...]PoolID{
	TeamNone: PoolNone,
	TeamA:    PoolTeamA,
	TeamB:    PoolTeamB,
	TeamC:    PoolTeamC,
	TeamD:    PoolTeamD,
}

// PoolForTeam returns the in-match pool of a team
func PoolForTeam(t Team) (PoolID, bool) {
	if t <= TeamNone || int(t) >= len(teamPools) {
		return PoolNone, false
	}
	return teamPools[t], true
}

// spawnPool is one ordered set of transforms with an available/reserved partition
type spawnPool struct {
	points    []Transform
	available []int // shuffled; pop from the end
	reserved  map[int]bool
}

// SpawnAllocator hands out non-repeating random spawn points per pool
type SpawnAllocator struct {
	mu    sync.Mutex
	pools map[PoolID]*spawnPool
	rng   *rand.Rand
}

// NewSpawnAllocator builds pools from a layout. rng may be nil.
func NewSpawnAllocator(layout map[PoolID][]Transform, rng *rand.Rand) *SpawnAllocator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	a := &SpawnAllocator{pools: make(map[PoolID]*spawnPool, len(layout)), rng: rng}
	for id, pts := range layout {
		p := &spawnPool{
			points:   append([]Transform(nil), pts...),
			reserved: make(map[int]bool),
		}
		a.refill(p)
		a.pools[id] = p
	}
	return a
}

// refill puts every unreserved index into the queue in Fisher–Yates order
func (a *SpawnAllocator) refill(p *spawnPool) {
	p.available = p.available[:0]
	for i := range p.points {
		if !p.reserved[i] {
			p.available = append(p.available, i)
		}
	}
	for i := len(p.available) - 1; i > 0; i-- {
		j := a.rng.IntN(i + 1)
		p.available[i], p.available[j] = p.available[j], p.available[i]
	}
}

func (a *SpawnAllocator) pool(id PoolID) *spawnPool {
	p, ok := a.pools[id]
	if !ok || len(p.points) == 0 {
		log.Error().Str("pool", id.String()).Msg("spawn pool has no points")
		return nil
	}
	return p
}

// ReserveRandom pops the next shuffled point. When the queue is empty every index
// is released and reshuffled first, so it only fails for an empty pool.
func (a *SpawnAllocator) ReserveRandom(id PoolID) (Transform, int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.pool(id)
	if p == nil {
		return Transform{}, -1, false
	}
	return a.reserveRandom(p)
}

func (a *SpawnAllocator) reserveRandom(p *spawnPool) (Transform, int, bool) {
	if len(p.available) == 0 {
		clear(p.reserved)
		a.refill(p)
	}
	last := len(p.available) - 1
	idx := p.available[last]
	p.available = p.available[:last]
	p.reserved[idx] = true
	return p.points[idx], idx, true
}

// ReserveClosest reserves the unreserved point nearest to ref, falling back to
// ReserveRandom when every point is taken.
func (a *SpawnAllocator) ReserveClosest(id PoolID, ref Vec3) (Transform, int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.pool(id)
	if p == nil {
		return Transform{}, -1, false
	}
	best, bestPos := -1, -1
	bestDist := 0.0
	for pos, idx := range p.available {
		d := DistanceSq(p.points[idx].Position, ref)
		if best < 0 || d < bestDist {
			best, bestPos, bestDist = idx, pos, d
		}
	}
	if best < 0 {
		return a.reserveRandom(p)
	}
	p.available = append(p.available[:bestPos], p.available[bestPos+1:]...)
	p.reserved[best] = true
	return p.points[best], best, true
}

// Release returns an index to the available set. Releasing an available or
// out-of-range index is a no-op.
func (a *SpawnAllocator) Release(id PoolID, index int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pools[id]
	if !ok || !p.reserved[index] {
		return
	}
	delete(p.reserved, index)
	p.available = append(p.available, index)
	// keep the queue random: swap the returned index into a random slot
	j := a.rng.IntN(len(p.available))
	last := len(p.available) - 1
	p.available[last], p.available[j] = p.available[j], p.available[last]
}

// Reset releases every reservation in the pool and reshuffles
func (a *SpawnAllocator) Reset(id PoolID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pools[id]
	if !ok {
		return
	}
	clear(p.reserved)
	a.refill(p)
}

// GetByIndex returns a point without reserving it
func (a *SpawnAllocator) GetByIndex(id PoolID, index int) (Transform, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pools[id]
	if !ok || index < 0 || index >= len(p.points) {
		return Transform{}, false
	}
	return p.points[index], true
}

// Claim marks a specific index reserved, used when a reconnecting player keeps
// a point that was released in the meantime. Returns false if someone else holds it.
func (a *SpawnAllocator) Claim(id PoolID, index int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pools[id]
	if !ok || index < 0 || index >= len(p.points) {
		return false
	}
	if p.reserved[index] {
		return false
	}
	for pos, idx := range p.available {
		if idx == index {
			p.available = append(p.available[:pos], p.available[pos+1:]...)
			break
		}
	}
	p.reserved[index] = true
	return true
}

// Counts returns the available and reserved sizes of a pool
func (a *SpawnAllocator) Counts(id PoolID) (available, reserved int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pools[id]
	if !ok {
		return 0, 0
	}
	return len(p.available), len(p.reserved)
}

// Size returns the number of points in a pool
func (a *SpawnAllocator) Size(id PoolID) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.pools[id]; ok {
		return len(p.points)
	}
	return 0
}

// IsReserved reports whether index is currently reserved
func (a *SpawnAllocator) IsReserved(id PoolID, index int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pools[id]
	return ok && p.reserved[index]
}
