package main

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/rickgao/meshview/internal/geometry"
)

// Patterns accepted by --pattern.
const (
	patternAlternate = "alternate"
	patternMesh      = "mesh"
	patternLines     = "lines"
)

// frameAt returns the update for frame n of a pattern.
func frameAt(pattern string, n int) (geometry.Update, error) {
	switch pattern {
	case patternAlternate:
		if n%2 == 0 {
			return pyramid(n), nil
		}
		return spirals(n), nil
	case patternMesh:
		return pyramid(n), nil
	case patternLines:
		return spirals(n), nil
	default:
		return nil, fmt.Errorf("unknown pattern %q", pattern)
	}
}

// pyramid is a square pyramid whose apex bobs with the frame number.
func pyramid(n int) geometry.Mesh {
	h := 1 + 0.5*math32.Sin(float32(n)*0.3)
	base := []geometry.Vec3{
		{X: -1, Y: 0, Z: -1},
		{X: 1, Y: 0, Z: -1},
		{X: 1, Y: 0, Z: 1},
		{X: -1, Y: 0, Z: 1},
		{X: 0, Y: h, Z: 0},
	}
	return geometry.Mesh{
		Vertices: geometry.Flatten(base),
		Indices: []uint32{
			0, 1, 2, 0, 2, 3, // base
			0, 1, 4, 1, 2, 4, 2, 3, 4, 3, 0, 4,
		},
	}
}

// spirals returns between one and four helices; the count cycles with n so
// the viewer disposes and recreates polylines.
func spirals(n int) geometry.Lines {
	count := n%4 + 1
	const steps = 32

	lines := make([][]float32, 0, count)
	for i := 0; i < count; i++ {
		phase := float32(i) * 2 * math32.Pi / float32(count)
		pts := make([]geometry.Vec3, steps)
		for s := range pts {
			t := float32(s) / steps * 4 * math32.Pi
			pts[s] = geometry.Vec3{
				X: math32.Cos(t+phase) * 1.5,
				Y: t / (4 * math32.Pi) * 2,
				Z: math32.Sin(t+phase) * 1.5,
			}
		}
		lines = append(lines, geometry.Flatten(pts))
	}
	return geometry.Lines{Polylines: lines}
}
