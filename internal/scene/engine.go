package scene

import (
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/rickgao/meshview/internal/geometry"
)

// Errors
var (
	ErrUnknownHandle = errors.New("unknown renderable")
	ErrWrongKind     = errors.New("renderable has a different kind")
)

// Handle identifies a renderable inside an Engine.
type Handle = uuid.UUID

// Engine is the capability set a rendering engine provides to the Applier.
// Redrawing and resizing are driven by the engine on its own loop.
type Engine interface {
	// Init sets up scene, camera, and light.
	Init(setup Setup) error

	// CreateMesh creates an indexed triangle surface with the given style.
	CreateMesh(vertices []float32, indices []uint32, style Style) (Handle, error)

	// UpdateMesh replaces the buffers of an existing mesh, keeping its style.
	UpdateMesh(h Handle, vertices []float32, indices []uint32) error

	// CreatePolyline creates a polyline through points.
	CreatePolyline(points []geometry.Vec3, color colorful.Color) (Handle, error)

	// Dispose releases a renderable.
	Dispose(h Handle) error

	// ToggleWireframe flips the wireframe flag and returns the new value.
	ToggleWireframe(h Handle) (bool, error)
}

// Camera is an arc-rotate camera orbiting Target.
type Camera struct {
	Alpha  float64 // Longitudinal rotation, radians
	Beta   float64 // Latitudinal rotation, radians
	Radius float64
	Target geometry.Vec3
}

// Setup describes the initial scene.
type Setup struct {
	ClearColor     colorful.Color
	Camera         Camera
	LightDirection geometry.Vec3 // Hemispheric light
	Antialias      bool
}

// DefaultSetup returns a light-gray scene with the camera five units out.
func DefaultSetup() Setup {
	return Setup{
		ClearColor: colorful.Color{R: 0.8, G: 0.8, B: 0.8},
		Camera: Camera{
			Alpha:  math.Pi / 2,
			Beta:   math.Pi / 2,
			Radius: 5,
		},
		LightDirection: geometry.Vec3{X: 1, Y: 1, Z: 0},
		Antialias:      true,
	}
}

// Style is the material attached to the mesh when it is first created.
type Style struct {
	BaseColor     colorful.Color
	SpecularColor colorful.Color
	DoubleSided   bool
}

// DefaultMeshStyle returns red, low specular, double-sided.
func DefaultMeshStyle() Style {
	return Style{
		BaseColor:     colorful.Color{R: 1, G: 0, B: 0},
		SpecularColor: colorful.Color{R: 0.1, G: 0.1, B: 0.1},
		DoubleSided:   true,
	}
}
