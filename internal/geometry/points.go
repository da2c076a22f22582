package geometry

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Vec3 is a point in model space.
type Vec3 struct {
	X, Y, Z float32
}

// Length returns the distance from the origin.
func (v Vec3) Length() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Vec3
}

// Empty reports whether the box contains no points.
func (b Box) Empty() bool {
	return b.Min.X > b.Max.X
}

// Center returns the midpoint of the box.
func (b Box) Center() Vec3 {
	return Vec3{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

// Points groups a flat coordinate list into xyz triples, in order.
func Points(flat []float32) ([]Vec3, error) {
	if len(flat)%3 != 0 {
		return nil, fmt.Errorf("%w: %d floats is not a multiple of 3", ErrInvalidGeometry, len(flat))
	}
	pts := make([]Vec3, len(flat)/3)
	for i := range pts {
		pts[i] = Vec3{X: flat[3*i], Y: flat[3*i+1], Z: flat[3*i+2]}
	}
	return pts, nil
}

// Flatten is the inverse of Points.
func Flatten(pts []Vec3) []float32 {
	flat := make([]float32, 0, len(pts)*3)
	for _, p := range pts {
		flat = append(flat, p.X, p.Y, p.Z)
	}
	return flat
}

// Bounds returns the bounding box of pts. An empty input yields an Empty box.
func Bounds(pts []Vec3) Box {
	b := Box{
		Min: Vec3{X: math32.Inf(1), Y: math32.Inf(1), Z: math32.Inf(1)},
		Max: Vec3{X: math32.Inf(-1), Y: math32.Inf(-1), Z: math32.Inf(-1)},
	}
	for _, p := range pts {
		b.Min.X = math32.Min(b.Min.X, p.X)
		b.Min.Y = math32.Min(b.Min.Y, p.Y)
		b.Min.Z = math32.Min(b.Min.Z, p.Z)
		b.Max.X = math32.Max(b.Max.X, p.X)
		b.Max.Y = math32.Max(b.Max.Y, p.Y)
		b.Max.Z = math32.Max(b.Max.Z, p.Z)
	}
	return b
}
