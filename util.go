package main

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Vec3 is a position or direction in arena space (meters, Y up)
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Transform is a spawn or teleport target; orientation is yaw in degrees
type Transform struct {
	Position Vec3    `json:"pos" msgpack:"p"`
	Yaw      float64 `json:"yaw" msgpack:"r"`
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// LengthSq returns the squared length
func (v Vec3) LengthSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Normalize returns the unit vector, or the zero vector for zero input
func (v Vec3) Normalize() Vec3 {
	l := math.Sqrt(v.LengthSq())
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// IsZero reports whether all components are zero
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// DistanceSq returns the squared distance between two points
func DistanceSq(a, b Vec3) float64 {
	return a.Sub(b).LengthSq()
}

// Distance returns the distance between two points
func Distance(a, b Vec3) float64 {
	return math.Sqrt(DistanceSq(a, b))
}

// GenerateID returns a random hex string of the given byte length
func GenerateID(byteLen int) string {
	b := make([]byte, byteLen)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// GenerateUUID returns a random v4 UUID string
func GenerateUUID() string {
	return uuid.NewString()
}

// TruncateRunes cuts s to at most n characters without splitting one
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Lerp interpolates from a to b by t; exact at t=0 and t=1
func Lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}
