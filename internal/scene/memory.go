package scene

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/rickgao/meshview/internal/geometry"
)

// PrimitiveKind is the kind of a renderable.
type PrimitiveKind string

const (
	PrimitiveMesh     PrimitiveKind = "mesh"
	PrimitivePolyline PrimitiveKind = "polyline"
)

// Primitive is the state MemoryEngine keeps per renderable.
type Primitive struct {
	ID        Handle          `json:"id"`
	Kind      PrimitiveKind   `json:"kind"`
	Vertices  []float32       `json:"vertices,omitempty"`
	Indices   []uint32        `json:"indices,omitempty"`
	Points    []geometry.Vec3 `json:"points,omitempty"`
	Style     *Style          `json:"-"`
	Color     string          `json:"color"`
	Wireframe bool            `json:"wireframe"`
	Revision  int             `json:"revision"` // Buffer replacements since creation
	CreatedAt time.Time       `json:"created_at"`

	seq int // Creation order; CreatedAt can tie
}

// MemoryStats counts MemoryEngine activity.
type MemoryStats struct {
	Live     int `json:"live"`
	Meshes   int `json:"meshes"`
	Lines    int `json:"lines"`
	Created  int `json:"created"`
	Disposed int `json:"disposed"`
}

// MemoryEngine is an Engine that keeps renderables in memory. It backs
// headless runs and the debug endpoints, and is safe for concurrent use.
type MemoryEngine struct {
	mu       sync.RWMutex
	setup    *Setup
	prims    map[Handle]*Primitive
	created  int
	disposed int
}

// NewMemoryEngine creates an empty engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		prims: make(map[Handle]*Primitive),
	}
}

// Init records the scene setup.
func (e *MemoryEngine) Init(setup Setup) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setup = &setup
	return nil
}

// Setup returns the recorded setup, if Init was called.
func (e *MemoryEngine) Setup() (Setup, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.setup == nil {
		return Setup{}, false
	}
	return *e.setup, true
}

// CreateMesh implements Engine.
func (e *MemoryEngine) CreateMesh(vertices []float32, indices []uint32, style Style) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := &Primitive{
		ID:        uuid.New(),
		Kind:      PrimitiveMesh,
		Vertices:  append([]float32(nil), vertices...),
		Indices:   append([]uint32(nil), indices...),
		Style:     &style,
		Color:     style.BaseColor.Hex(),
		CreatedAt: time.Now(),
	}
	e.created++
	p.seq = e.created
	e.prims[p.ID] = p
	return p.ID, nil
}

// UpdateMesh implements Engine.
func (e *MemoryEngine) UpdateMesh(h Handle, vertices []float32, indices []uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.prims[h]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	if p.Kind != PrimitiveMesh {
		return fmt.Errorf("%w: %s is a %s", ErrWrongKind, h, p.Kind)
	}
	p.Vertices = append(p.Vertices[:0], vertices...)
	p.Indices = append(p.Indices[:0], indices...)
	p.Revision++
	return nil
}

// CreatePolyline implements Engine.
func (e *MemoryEngine) CreatePolyline(points []geometry.Vec3, color colorful.Color) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := &Primitive{
		ID:        uuid.New(),
		Kind:      PrimitivePolyline,
		Points:    append([]geometry.Vec3(nil), points...),
		Color:     color.Hex(),
		CreatedAt: time.Now(),
	}
	e.created++
	p.seq = e.created
	e.prims[p.ID] = p
	return p.ID, nil
}

// Dispose implements Engine.
func (e *MemoryEngine) Dispose(h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.prims[h]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	delete(e.prims, h)
	e.disposed++
	return nil
}

// ToggleWireframe implements Engine.
func (e *MemoryEngine) ToggleWireframe(h Handle) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.prims[h]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	p.Wireframe = !p.Wireframe
	return p.Wireframe, nil
}

// Get returns a copy of one primitive.
func (e *MemoryEngine) Get(h Handle) (Primitive, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.prims[h]
	if !ok {
		return Primitive{}, false
	}
	return p.clone(), true
}

// Snapshot returns copies of all live primitives, meshes first, then in
// creation order.
func (e *MemoryEngine) Snapshot() []Primitive {
	e.mu.RLock()
	out := make([]Primitive, 0, len(e.prims))
	for _, p := range e.prims {
		out = append(out, p.clone())
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == PrimitiveMesh
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Stats returns current counts.
func (e *MemoryEngine) Stats() MemoryStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := MemoryStats{
		Live:     len(e.prims),
		Created:  e.created,
		Disposed: e.disposed,
	}
	for _, p := range e.prims {
		switch p.Kind {
		case PrimitiveMesh:
			s.Meshes++
		case PrimitivePolyline:
			s.Lines++
		}
	}
	return s
}

func (p *Primitive) clone() Primitive {
	c := *p
	c.Vertices = append([]float32(nil), p.Vertices...)
	c.Indices = append([]uint32(nil), p.Indices...)
	c.Points = append([]geometry.Vec3(nil), p.Points...)
	if p.Style != nil {
		s := *p.Style
		c.Style = &s
	}
	return c
}
