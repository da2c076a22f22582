// Package geometry defines the geometry update model and its JSON wire codec.
//
// Two update kinds arrive over the wire:
//   - mesh: flat vertex positions (stride 3) plus triangle indices
//   - line: a list of polylines, each a flat vertex list (stride 3)
//
// Coordinates stay flat ([]float32) until a consumer needs points; Points and
// Flatten convert between the two forms without loss.
package geometry
