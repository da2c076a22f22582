package scene

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/rickgao/meshview/internal/geometry"
	"github.com/rickgao/meshview/internal/palette"
)

func newTestApplier() (*Applier, *MemoryEngine) {
	engine := NewMemoryEngine()
	sampler := palette.NewSampler(palette.DefaultConfig(), rand.NewPCG(1, 2))
	return NewApplier(engine, sampler, DefaultMeshStyle(), nil), engine
}

func decode(t *testing.T, data string) geometry.Update {
	t.Helper()
	u, err := geometry.Decode([]byte(data), geometry.FallbackMesh)
	if err != nil {
		t.Fatalf("Decode(%s) failed: %v", data, err)
	}
	return u
}

func TestApplier_MeshCreateThenUpdate(t *testing.T) {
	a, engine := newTestApplier()

	first := decode(t, `{"modelType":"mesh","vertices":[0,0,0, 1,0,0, 0,1,0],"indices":[0,1,2]}`)
	if err := a.Apply(first); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	h, ok := a.MeshHandle()
	if !ok {
		t.Fatal("expected mesh handle after first update")
	}
	p, ok := engine.Get(h)
	if !ok {
		t.Fatal("mesh missing from engine")
	}
	if len(p.Vertices)/3 != 3 {
		t.Errorf("vertices = %d, want 3", len(p.Vertices)/3)
	}
	if len(p.Indices)/3 != 1 {
		t.Errorf("triangles = %d, want 1", len(p.Indices)/3)
	}
	if p.Style == nil || *p.Style != DefaultMeshStyle() {
		t.Errorf("Style = %+v, want default mesh style", p.Style)
	}
	if p.Color != "#ff0000" {
		t.Errorf("Color = %s, want #ff0000", p.Color)
	}

	second := decode(t, `{"modelType":"mesh","vertices":[2,2,2, 3,2,2, 2,3,2],"indices":[0,1,2]}`)
	if err := a.Apply(second); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	h2, _ := a.MeshHandle()
	if h2 != h {
		t.Errorf("mesh handle changed: %s -> %s", h, h2)
	}
	stats := engine.Stats()
	if stats.Created != 1 {
		t.Errorf("Created = %d, want 1", stats.Created)
	}
	p, _ = engine.Get(h)
	if p.Vertices[0] != 2 {
		t.Errorf("Vertices[0] = %v, want 2", p.Vertices[0])
	}
	if p.Revision != 1 {
		t.Errorf("Revision = %d, want 1", p.Revision)
	}
	if *p.Style != DefaultMeshStyle() {
		t.Errorf("mesh was restyled: %+v", p.Style)
	}
}

func TestApplier_MeshIdempotent(t *testing.T) {
	a, engine := newTestApplier()
	u := decode(t, `{"modelType":"mesh","vertices":[0,0,0, 1,0,0, 0,1,0, 1,1,0],"indices":[0,1,2, 1,3,2]}`)

	if err := a.Apply(u); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	h, _ := a.MeshHandle()
	once, _ := engine.Get(h)

	if err := a.Apply(u); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	twice, _ := engine.Get(h)

	if len(once.Vertices) != len(twice.Vertices) || len(once.Indices) != len(twice.Indices) {
		t.Fatalf("buffer sizes differ after repeat apply")
	}
	for i := range once.Vertices {
		if once.Vertices[i] != twice.Vertices[i] {
			t.Errorf("Vertices[%d] = %v, want %v", i, twice.Vertices[i], once.Vertices[i])
		}
	}
	for i := range once.Indices {
		if once.Indices[i] != twice.Indices[i] {
			t.Errorf("Indices[%d] = %v, want %v", i, twice.Indices[i], once.Indices[i])
		}
	}
	if engine.Stats().Meshes != 1 {
		t.Errorf("Meshes = %d, want 1", engine.Stats().Meshes)
	}
}

func TestApplier_LinesReplaceAll(t *testing.T) {
	a, engine := newTestApplier()

	updates := []string{
		`{"modelType":"line","lines":[[0,0,0,1,0,0],[0,0,0,0,1,0],[0,0,0,0,0,1]]}`,
		`{"modelType":"line","lines":[[0,0,0,1,1,1]]}`,
		`{"modelType":"line","lines":[[0,0,0,1,0,0],[1,0,0,1,1,0]]}`,
	}

	var previous []Handle
	for _, data := range updates {
		u := decode(t, data)
		want := len(u.(geometry.Lines).Polylines)

		if err := a.Apply(u); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}

		if got := engine.Stats().Lines; got != want {
			t.Errorf("live polylines = %d, want %d", got, want)
		}
		if got := len(a.LineHandles()); got != want {
			t.Errorf("LineHandles = %d, want %d", got, want)
		}
		for _, h := range previous {
			if _, ok := engine.Get(h); ok {
				t.Errorf("polyline %s survived a replacement", h)
			}
		}
		previous = a.LineHandles()
	}
}

func TestApplier_LinesThenEmpty(t *testing.T) {
	a, engine := newTestApplier()

	if err := a.Apply(decode(t, `{"modelType":"line","lines":[[0,0,0,1,0,0]]}`)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if engine.Stats().Lines != 1 {
		t.Fatalf("Lines = %d, want 1", engine.Stats().Lines)
	}

	if err := a.Apply(decode(t, `{"modelType":"line","lines":[]}`)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if engine.Stats().Lines != 0 {
		t.Errorf("Lines = %d, want 0", engine.Stats().Lines)
	}
	if len(a.LineHandles()) != 0 {
		t.Errorf("LineHandles = %d, want 0", len(a.LineHandles()))
	}
}

func TestApplier_LineColorsMeetContrast(t *testing.T) {
	a, engine := newTestApplier()

	lines := geometry.Lines{}
	for i := 0; i < 50; i++ {
		lines.Polylines = append(lines.Polylines, []float32{0, 0, 0, float32(i), 1, 0})
	}
	if err := a.Apply(lines); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	ref := palette.DefaultConfig().Reference
	for _, p := range engine.Snapshot() {
		c, err := parseHex(p.Color)
		if err != nil {
			t.Fatalf("bad color %q: %v", p.Color, err)
		}
		// Hex rounding can shave a little off the ratio.
		if r := palette.ContrastRatio(c, ref); r < palette.DefaultThreshold-0.05 {
			t.Errorf("polyline %s color %s contrast %v, want >= %v", p.ID, p.Color, r, palette.DefaultThreshold)
		}
	}
}

func TestApplier_InvalidUpdateKeepsState(t *testing.T) {
	a, engine := newTestApplier()

	if err := a.Apply(decode(t, `{"modelType":"mesh","vertices":[0,0,0, 1,0,0, 0,1,0],"indices":[0,1,2]}`)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := a.Apply(decode(t, `{"modelType":"line","lines":[[0,0,0,1,0,0]]}`)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	before := engine.Stats()

	bad := []geometry.Update{
		geometry.Mesh{Vertices: []float32{0, 0, 0}, Indices: []uint32{5}},
		geometry.Mesh{Vertices: []float32{0, 0}},
		geometry.Lines{Polylines: [][]float32{{0, 0, 0}, {1, 1}}},
	}
	for _, u := range bad {
		if err := a.Apply(u); !errors.Is(err, geometry.ErrInvalidGeometry) {
			t.Errorf("Apply(%+v) error = %v, want ErrInvalidGeometry", u, err)
		}
	}

	after := engine.Stats()
	if after != before {
		t.Errorf("stats changed after invalid updates: %+v -> %+v", before, after)
	}
}

func TestApplier_Pick(t *testing.T) {
	a, engine := newTestApplier()

	if err := a.Apply(decode(t, `{"modelType":"mesh","vertices":[0,0,0, 1,0,0, 0,1,0],"indices":[0,1,2]}`)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	h, _ := a.MeshHandle()

	wire, err := a.Pick(h)
	if err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	if !wire {
		t.Error("expected wireframe on after first pick")
	}
	wire, _ = a.Pick(h)
	if wire {
		t.Error("expected wireframe off after second pick")
	}
	p, _ := engine.Get(h)
	if p.Wireframe {
		t.Error("engine wireframe flag not restored")
	}

	if _, err := a.Pick(Handle{}); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Pick(nil handle) error = %v, want ErrUnknownHandle", err)
	}
}

var errEngineFull = errors.New("engine full")

// flakyEngine fails every CreatePolyline call whose 1-based index is in fail.
type flakyEngine struct {
	*MemoryEngine
	calls int
	fail  map[int]bool
}

func (e *flakyEngine) CreatePolyline(points []geometry.Vec3, color colorful.Color) (Handle, error) {
	e.calls++
	if e.fail[e.calls] {
		return Handle{}, errEngineFull
	}
	return e.MemoryEngine.CreatePolyline(points, color)
}

func TestApplier_LinesPartialFailure(t *testing.T) {
	engine := &flakyEngine{MemoryEngine: NewMemoryEngine(), fail: map[int]bool{2: true}}
	sampler := palette.NewSampler(palette.DefaultConfig(), rand.NewPCG(1, 2))
	a := NewApplier(engine, sampler, DefaultMeshStyle(), nil)

	err := a.Apply(decode(t, `{"modelType":"line","lines":[[0,0,0,1,0,0],[0,0,0,0,1,0],[0,0,0,0,0,1]]}`))
	if !errors.Is(err, errEngineFull) {
		t.Fatalf("Apply error = %v, want %v", err, errEngineFull)
	}

	handles := a.LineHandles()
	if len(handles) != 2 {
		t.Fatalf("LineHandles = %d, want 2", len(handles))
	}
	if got := engine.Stats().Lines; got != len(handles) {
		t.Errorf("live polylines = %d, want %d", got, len(handles))
	}
	for _, h := range handles {
		if _, ok := engine.Get(h); !ok {
			t.Errorf("handle %s not live in engine", h)
		}
	}

	// The next replacement disposes the partial set.
	if err := a.Apply(decode(t, `{"modelType":"line","lines":[[0,0,0,1,1,1]]}`)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got := engine.Stats().Lines; got != 1 {
		t.Errorf("live polylines after replacement = %d, want 1", got)
	}
	for _, h := range handles {
		if _, ok := engine.Get(h); ok {
			t.Errorf("polyline %s survived a replacement", h)
		}
	}
}
