package main

import (
	"testing"
	"time"
)

func TestBallRackLifecycle(t *testing.T) {
	f := newBallFixture(t)
	clock := newFakeClock()
	f.own.now = clock.Now
	spawns := []Transform{{Position: Vec3{Z: -1}}, {Position: Vec3{Z: 1}}}
	bounds := Bounds{Min: Vec3{X: -10, Y: -1, Z: -10}, Max: Vec3{X: 10, Y: 10, Z: 10}}
	r := NewBallRack(f.own, spawns, 3, 2*time.Second, bounds)
	r.now = clock.Now

	r.SpawnInitialEntities()
	balls := f.own.Balls()
	if len(balls) != 3 {
		t.Fatalf("expected 3 balls, got %d", len(balls))
	}
	if balls[2].Position != spawns[0].Position {
		t.Errorf("spawners should be reused round robin, got %v", balls[2].Position)
	}

	// a loose ball leaving the court dies, then returns after the delay
	b := balls[0]
	b.Physics = true
	b.Position = Vec3{X: 50}
	r.Update()
	if b.Alive {
		t.Fatal("ball outside bounds should die")
	}

	clock.Advance(time.Second)
	r.Update()
	if b.Alive {
		t.Error("ball respawned too early")
	}

	clock.Advance(time.Second)
	r.Update()
	if !b.Alive || b.State != BallOnSpawner || b.Position != spawns[0].Position {
		t.Errorf("ball should be back on its spawner, got %v at %v", b.State, b.Position)
	}

	r.DespawnAll()
	if len(f.own.Balls()) != 0 {
		t.Error("DespawnAll should remove every ball")
	}
}

func TestBallRackNoSpawners(t *testing.T) {
	f := newBallFixture(t)
	r := NewBallRack(f.own, nil, 4, time.Second, Bounds{})
	r.SpawnInitialEntities()
	if len(f.own.Balls()) != 0 {
		t.Error("no spawners means no balls")
	}
}
