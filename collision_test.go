package main

import "testing"

func TestCheckCollision(t *testing.T) {
	// Overlapping spheres
	if !CheckCollision(Vec3{}, 1, Vec3{X: 1.5}, 1) {
		t.Error("spheres should collide (overlapping)")
	}

	// Touching spheres
	if !CheckCollision(Vec3{}, 1, Vec3{Y: 2}, 1) {
		t.Error("spheres should collide (touching)")
	}

	// Non-overlapping spheres
	if CheckCollision(Vec3{}, 1, Vec3{Z: 2.5}, 1) {
		t.Error("spheres should not collide")
	}

	// Same position
	if !CheckCollision(Vec3{X: 5, Y: 5, Z: 5}, 0.1, Vec3{X: 5, Y: 5, Z: 5}, 0.1) {
		t.Error("same position should collide")
	}
}

func TestHitsPlayer(t *testing.T) {
	head := Vec3{X: 2, Y: 1.7}

	if !HitsPlayer(Vec3{X: 2, Y: 1.75}, Vec3{X: 2, Y: 1.75}, head, 0) {
		t.Error("ball at the head should hit")
	}
	if !HitsPlayer(Vec3{X: 2.2, Y: 1.1}, Vec3{X: 2.2, Y: 1.1}, head, 0) {
		t.Error("ball at the torso should hit")
	}
	if HitsPlayer(Vec3{X: 4, Y: 1.7}, Vec3{X: 4, Y: 1.7}, head, 0) {
		t.Error("ball two meters away should miss")
	}
	if !HitsPlayer(Vec3{X: 4, Y: 1.7}, Vec3{X: 4, Y: 1.7}, head, 2) {
		t.Error("tolerance should widen the hit spheres")
	}
	// tunnels straight through the head between two reports
	if !HitsPlayer(Vec3{X: 3, Y: 1.7}, Vec3{X: 1, Y: 1.7}, head, 0) {
		t.Error("swept segment through the head should hit")
	}
}

func TestBoundsContains(t *testing.T) {
	b := Bounds{Min: Vec3{X: -1, Y: 0, Z: -1}, Max: Vec3{X: 1, Y: 2, Z: 1}}
	if !b.Contains(Vec3{Y: 1}) {
		t.Error("center should be inside")
	}
	if b.Contains(Vec3{Y: -0.1}) {
		t.Error("below the floor should be outside")
	}
}
