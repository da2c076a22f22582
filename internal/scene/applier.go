package scene

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/rickgao/meshview/internal/geometry"
)

// ColorSource supplies polyline colors.
type ColorSource interface {
	Next() (colorful.Color, bool)
}

// Applier applies geometry updates to an Engine. It owns at most one mesh
// and the current set of polylines.
//
// Apply is not safe for concurrent use; the connection event loop is its only
// caller. Pick only touches the engine.
type Applier struct {
	engine Engine
	colors ColorSource
	style  Style
	logger *slog.Logger

	mesh  Handle // uuid.Nil until the first mesh update
	lines []Handle
}

// NewApplier creates an Applier.
func NewApplier(engine Engine, colors ColorSource, style Style, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{
		engine: engine,
		colors: colors,
		style:  style,
		logger: logger,
	}
}

// Apply validates u and replaces the matching renderable state. An invalid
// update returns an error and leaves existing renderables untouched.
func (a *Applier) Apply(u geometry.Update) error {
	if err := u.Validate(); err != nil {
		return err
	}

	switch v := u.(type) {
	case geometry.Mesh:
		return a.applyMesh(v)
	case geometry.Lines:
		return a.applyLines(v)
	default:
		return fmt.Errorf("%w: %T", geometry.ErrUnknownKind, u)
	}
}

// applyMesh creates the mesh on first use and updates its buffers after.
func (a *Applier) applyMesh(m geometry.Mesh) error {
	if a.mesh != uuid.Nil {
		if err := a.engine.UpdateMesh(a.mesh, m.Vertices, m.Indices); err != nil {
			return fmt.Errorf("update mesh: %w", err)
		}
		a.logger.Debug("mesh updated",
			"id", a.mesh,
			"vertices", m.VertexCount(),
			"triangles", m.TriangleCount(),
		)
		return nil
	}

	h, err := a.engine.CreateMesh(m.Vertices, m.Indices, a.style)
	if err != nil {
		return fmt.Errorf("create mesh: %w", err)
	}
	a.mesh = h

	a.logger.Info("mesh created",
		"id", h,
		"vertices", m.VertexCount(),
		"triangles", m.TriangleCount(),
		"color", a.style.BaseColor.Hex(),
	)
	return nil
}

// applyLines disposes every current polyline and creates the new set.
func (a *Applier) applyLines(l geometry.Lines) error {
	points := make([][]geometry.Vec3, len(l.Polylines))
	for i, pl := range l.Polylines {
		pts, err := geometry.Points(pl)
		if err != nil {
			return fmt.Errorf("polyline %d: %w", i, err)
		}
		points[i] = pts
	}

	for _, h := range a.lines {
		if err := a.engine.Dispose(h); err != nil {
			a.logger.Warn("failed to dispose polyline", "id", h, "error", err)
		}
	}
	a.lines = a.lines[:0]

	// A failed polyline is skipped; a.lines always matches what the engine holds.
	var errs []error
	for i, pts := range points {
		color, ok := a.colors.Next()
		if !ok {
			a.logger.Debug("contrast sampling exhausted, using fallback color",
				"polyline", i,
				"color", color.Hex(),
			)
		}
		h, err := a.engine.CreatePolyline(pts, color)
		if err != nil {
			a.logger.Warn("failed to create polyline", "polyline", i, "error", err)
			errs = append(errs, fmt.Errorf("create polyline %d: %w", i, err))
			continue
		}
		a.lines = append(a.lines, h)
	}

	a.logger.Debug("polylines replaced",
		"count", len(a.lines),
		"failed", len(errs),
		"points", l.PointCount(),
	)
	return errors.Join(errs...)
}

// Pick toggles the wireframe flag of a picked renderable.
func (a *Applier) Pick(h Handle) (bool, error) {
	wire, err := a.engine.ToggleWireframe(h)
	if err != nil {
		return false, err
	}
	a.logger.Debug("wireframe toggled", "id", h, "wireframe", wire)
	return wire, nil
}

// MeshHandle returns the mesh handle, if a mesh exists.
func (a *Applier) MeshHandle() (Handle, bool) {
	return a.mesh, a.mesh != uuid.Nil
}

// LineHandles returns the live polyline handles.
func (a *Applier) LineHandles() []Handle {
	return append([]Handle(nil), a.lines...)
}
