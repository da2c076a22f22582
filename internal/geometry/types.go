package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Errors
var (
	ErrMalformed       = errors.New("malformed geometry message")
	ErrUnknownKind     = errors.New("unknown model type")
	ErrInvalidGeometry = errors.New("invalid geometry")
)

// Kind is the declared model type of an update.
type Kind string

const (
	KindMesh Kind = "mesh"
	KindLine Kind = "line"
)

// UnknownKindPolicy decides what Decode does with a modelType it does not know.
type UnknownKindPolicy int

const (
	// FallbackMesh decodes unknown or missing model types as a mesh.
	FallbackMesh UnknownKindPolicy = iota
	// Reject returns ErrUnknownKind for unknown model types.
	Reject
)

// String returns the config spelling of the policy.
func (p UnknownKindPolicy) String() string {
	switch p {
	case FallbackMesh:
		return "mesh"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses "mesh" or "reject".
func ParsePolicy(s string) (UnknownKindPolicy, error) {
	switch s {
	case "", "mesh":
		return FallbackMesh, nil
	case "reject":
		return Reject, nil
	}
	return 0, fmt.Errorf("unknown kind policy %q", s)
}

// Update is one decoded geometry message. It is either Mesh or Lines.
type Update interface {
	Kind() Kind
	Validate() error
}

// Mesh is an indexed triangle surface.
type Mesh struct {
	Vertices []float32 // x,y,z triples
	Indices  []uint32  // three per triangle
}

// Kind implements Update.
func (Mesh) Kind() Kind { return KindMesh }

// VertexCount returns the number of xyz points.
func (m Mesh) VertexCount() int { return len(m.Vertices) / 3 }

// TriangleCount returns the number of full index triples.
func (m Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Validate checks stride and index bounds.
func (m Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("%w: %d vertex floats is not a multiple of 3", ErrInvalidGeometry, len(m.Vertices))
	}
	n := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("%w: index %d at position %d out of range (vertices: %d)", ErrInvalidGeometry, idx, i, n)
		}
	}
	return nil
}

// Lines is a set of polylines replacing all previous polylines.
type Lines struct {
	Polylines [][]float32
}

// Kind implements Update.
func (Lines) Kind() Kind { return KindLine }

// Validate checks the stride of every polyline.
func (l Lines) Validate() error {
	for i, pl := range l.Polylines {
		if len(pl)%3 != 0 {
			return fmt.Errorf("%w: polyline %d has %d floats, not a multiple of 3", ErrInvalidGeometry, i, len(pl))
		}
	}
	return nil
}

// PointCount returns the total number of points across all polylines.
func (l Lines) PointCount() int {
	total := 0
	for _, pl := range l.Polylines {
		total += len(pl) / 3
	}
	return total
}

// Wire types for JSON parsing

// messageEnvelope holds the top-level fields of a message undecoded.
type messageEnvelope map[string]json.RawMessage

// kind returns the kind named by modelType. known is false when modelType
// is missing, not a string, or not a known kind; the kind is then mesh.
func (e messageEnvelope) kind() (k Kind, known bool) {
	raw, ok := e["modelType"]
	if !ok {
		return KindMesh, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return KindMesh, false
	}
	switch Kind(s) {
	case KindMesh, KindLine:
		return Kind(s), true
	}
	return KindMesh, false
}

// modelType returns the raw modelType for error messages.
func (e messageEnvelope) modelType() string {
	raw, ok := e["modelType"]
	if !ok {
		return "missing"
	}
	return string(raw)
}

// field decodes one top-level field into dst. A missing field leaves dst unset.
func (e messageEnvelope) field(name string, dst any) error {
	raw, ok := e[name]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return nil
}

// meshWire is the wire format for mesh messages.
type meshWire struct {
	ModelType string    `json:"modelType"`
	Vertices  []float32 `json:"vertices"`
	Indices   []uint32  `json:"indices"`
}

// lineWire is the wire format for line messages.
type lineWire struct {
	ModelType string      `json:"modelType"`
	Lines     [][]float32 `json:"lines"`
}
