package main

import (
	"time"

	"github.com/rs/zerolog/log"
)

// BallRack spawns the match balls and returns dead ones to their spawner.
// It is the arena's EntitySpawner.
type BallRack struct {
	balls   *Ownership
	spawns  []Transform
	count   int
	respawn time.Duration
	bounds  Bounds
	now     func() time.Time
}

// NewBallRack creates a rack of count balls over the given spawners
func NewBallRack(balls *Ownership, spawns []Transform, count int, respawn time.Duration, bounds Bounds) *BallRack {
	return &BallRack{
		balls:   balls,
		spawns:  spawns,
		count:   count,
		respawn: respawn,
		bounds:  bounds,
		now:     time.Now,
	}
}

// SpawnInitialEntities places every ball on its spawner
func (r *BallRack) SpawnInitialEntities() {
	if len(r.spawns) == 0 {
		log.Error().Msg("no ball spawners configured")
		return
	}
	r.balls.RemoveAll()
	for i := 0; i < r.count; i++ {
		r.balls.SpawnBall(r.spawns[i%len(r.spawns)])
	}
	log.Debug().Int("balls", r.count).Msg("balls spawned")
}

// DespawnAll removes every ball
func (r *BallRack) DespawnAll() {
	r.balls.RemoveAll()
}

// Update kills balls that left the arena and resets those dead long enough
func (r *BallRack) Update() {
	now := r.now()
	for _, b := range r.balls.Balls() {
		switch {
		case b.Alive && b.Physics && !r.bounds.Contains(b.Position):
			log.Debug().Str("ball", b.ID).Msg("ball left the arena")
			r.balls.Kill(b.ID)
		case !b.Alive && now.Sub(b.DiedAt) >= r.respawn:
			r.balls.ResetToSpawner(b.ID)
		}
	}
}
