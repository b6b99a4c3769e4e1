package main

import "math"

const (
	BallRadius = 0.11 // regulation dodgeball, meters
	HeadRadius = 0.15
	BodyRadius = 0.3
	BodyDrop   = 0.6 // torso center below the head
)

// CheckCollision checks if two spheres overlap
func CheckCollision(a Vec3, ra float64, b Vec3, rb float64) bool {
	radSum := ra + rb
	return DistanceSq(a, b) <= radSum*radSum
}

// segmentSphereIntersect checks if the segment p0-p1 passes within r of c
func segmentSphereIntersect(p0, p1, c Vec3, r float64) bool {
	d := p1.Sub(p0)
	f := p0.Sub(c)
	a := d.LengthSq()
	if a == 0 {
		return f.LengthSq() <= r*r
	}
	b := 2 * (f.X*d.X + f.Y*d.Y + f.Z*d.Z)
	cc := f.LengthSq() - r*r
	disc := b*b - 4*a*cc
	if disc < 0 {
		return false
	}
	disc = math.Sqrt(disc)
	t1 := (-b - disc) / (2 * a)
	t2 := (-b + disc) / (2 * a)
	return (t1 >= 0 && t1 <= 1) || (t2 >= 0 && t2 <= 1) || (t1 <= 0 && t2 >= 1)
}

// HitsPlayer checks a ball against a standing player's head and torso spheres.
// prev is the ball's previous reported position so a fast ball cannot tunnel
// through between reports; tolerance widens both spheres for latency.
func HitsPlayer(ball, prev, head Vec3, tolerance float64) bool {
	body := head.Add(Vec3{Y: -BodyDrop})
	for _, part := range [...]struct {
		c Vec3
		r float64
	}{{head, HeadRadius}, {body, BodyRadius}} {
		r := part.r + BallRadius + tolerance
		if CheckCollision(ball, 0, part.c, r) || segmentSphereIntersect(prev, ball, part.c, r) {
			return true
		}
	}
	return false
}

// Bounds is an axis-aligned arena volume
type Bounds struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Contains reports whether p lies inside the bounds
func (b Bounds) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}
