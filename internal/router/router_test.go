package router

import (
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/meshview/internal/connection"
	"github.com/rickgao/meshview/internal/geometry"
	"github.com/rickgao/meshview/internal/palette"
	"github.com/rickgao/meshview/internal/scene"
)

// captureRecorder keeps every record.
type captureRecorder struct {
	mu      sync.Mutex
	records []UpdateRecord
}

func (c *captureRecorder) Record(rec UpdateRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
}

// failingApplier rejects every update.
type failingApplier struct{}

func (failingApplier) Apply(geometry.Update) error { return errors.New("engine unavailable") }

func newTestRouter(cfg RouterConfig, rec Recorder) (Router, *scene.Applier, *scene.MemoryEngine) {
	engine := scene.NewMemoryEngine()
	sampler := palette.NewSampler(palette.DefaultConfig(), rand.NewPCG(9, 9))
	applier := scene.NewApplier(engine, sampler, scene.DefaultMeshStyle(), nil)
	return NewRouter(cfg, applier, rec, nil), applier, engine
}

func send(r Router, data string) {
	r.HandleMessage(connection.RawMessage{Data: []byte(data), ReceivedAt: time.Now()})
}

func TestDefaultRouterConfig(t *testing.T) {
	cfg := DefaultRouterConfig()

	if cfg.UnknownKind != geometry.FallbackMesh {
		t.Errorf("UnknownKind = %v, want mesh", cfg.UnknownKind)
	}
	if !cfg.RecordPayload {
		t.Error("RecordPayload = false, want true")
	}
}

func TestRouter_MeshScenario(t *testing.T) {
	r, applier, engine := newTestRouter(DefaultRouterConfig(), nil)

	send(r, `{"modelType":"mesh","vertices":[0,0,0, 1,0,0, 0,1,0],"indices":[0,1,2]}`)

	h, ok := applier.MeshHandle()
	if !ok {
		t.Fatal("expected a mesh after first message")
	}
	p, _ := engine.Get(h)
	if len(p.Vertices) != 9 || len(p.Indices) != 3 {
		t.Errorf("mesh has %d floats, %d indices, want 9, 3", len(p.Vertices), len(p.Indices))
	}

	send(r, `{"modelType":"mesh","vertices":[0,0,1, 1,0,1, 0,1,1],"indices":[0,1,2]}`)

	h2, _ := applier.MeshHandle()
	if h2 != h {
		t.Errorf("mesh identity changed: %s -> %s", h, h2)
	}
	if engine.Stats().Created != 1 {
		t.Errorf("Created = %d, want 1", engine.Stats().Created)
	}
	p, _ = engine.Get(h)
	if p.Vertices[2] != 1 {
		t.Errorf("Vertices[2] = %v, want 1", p.Vertices[2])
	}

	stats := r.Stats()
	if stats.MessagesApplied != 2 || stats.MeshUpdates != 2 {
		t.Errorf("Stats = %+v, want 2 applied mesh updates", stats)
	}
}

func TestRouter_LinesScenario(t *testing.T) {
	r, _, engine := newTestRouter(DefaultRouterConfig(), nil)

	send(r, `{"modelType":"line","lines":[[0,0,0,1,0,0]]}`)
	if engine.Stats().Lines != 1 {
		t.Fatalf("Lines = %d, want 1", engine.Stats().Lines)
	}

	send(r, `{"modelType":"line","lines":[]}`)
	if engine.Stats().Lines != 0 {
		t.Errorf("Lines = %d, want 0", engine.Stats().Lines)
	}
	if r.Stats().LineUpdates != 2 {
		t.Errorf("LineUpdates = %d, want 2", r.Stats().LineUpdates)
	}
}

func TestRouter_MalformedLeavesSceneAlone(t *testing.T) {
	r, _, engine := newTestRouter(DefaultRouterConfig(), nil)

	send(r, `{"modelType":"mesh","vertices":[0,0,0, 1,0,0, 0,1,0],"indices":[0,1,2]}`)
	send(r, `{"modelType":"line","lines":[[0,0,0,1,0,0],[1,1,1,2,2,2]]}`)
	before := engine.Snapshot()

	for _, data := range []string{
		`{not json`,
		``,
		`[]`,
		`null`,
		`{"modelType":"mesh","vertices":[0,0,0],"indices":[7]}`,
		`{"modelType":"line","lines":[[0,0]]}`,
	} {
		send(r, data)
	}

	after := engine.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("primitive count changed: %d -> %d", len(before), len(after))
	}
	revisions := make(map[scene.Handle]int, len(before))
	for _, p := range before {
		revisions[p.ID] = p.Revision
	}
	for _, p := range after {
		rev, ok := revisions[p.ID]
		if !ok {
			t.Errorf("primitive %s appeared", p.ID)
		} else if rev != p.Revision {
			t.Errorf("primitive %s revision %d -> %d", p.ID, rev, p.Revision)
		}
	}

	stats := r.Stats()
	if stats.ParseErrors != 6 {
		t.Errorf("ParseErrors = %d, want 6", stats.ParseErrors)
	}
	if stats.MessagesReceived != 8 {
		t.Errorf("MessagesReceived = %d, want 8", stats.MessagesReceived)
	}
}

func TestRouter_NullKeepsMeshBuffers(t *testing.T) {
	r, applier, engine := newTestRouter(DefaultRouterConfig(), nil)

	send(r, `{"modelType":"mesh","vertices":[0,0,0, 1,0,0, 0,1,0],"indices":[0,1,2]}`)
	h, ok := applier.MeshHandle()
	if !ok {
		t.Fatal("no mesh after mesh update")
	}

	send(r, `null`)

	prim, ok := engine.Get(h)
	if !ok {
		t.Fatal("mesh disposed after null message")
	}
	if len(prim.Vertices) != 9 || len(prim.Indices) != 3 {
		t.Errorf("mesh buffers = %d vertices, %d indices, want 9 and 3", len(prim.Vertices), len(prim.Indices))
	}
	if prim.Revision != 0 {
		t.Errorf("Revision = %d, want 0", prim.Revision)
	}
	if got := r.Stats().ParseErrors; got != 1 {
		t.Errorf("ParseErrors = %d, want 1", got)
	}
}

func TestRouter_UnknownKindPolicy(t *testing.T) {
	data := `{"modelType":"pointcloud","vertices":[0,0,0, 1,0,0, 0,1,0],"indices":[0,1,2]}`

	t.Run("fallback", func(t *testing.T) {
		r, applier, _ := newTestRouter(DefaultRouterConfig(), nil)
		send(r, data)

		if _, ok := applier.MeshHandle(); !ok {
			t.Error("expected unknown kind to be applied as a mesh")
		}
		if r.Stats().UnknownKinds != 0 {
			t.Errorf("UnknownKinds = %d, want 0", r.Stats().UnknownKinds)
		}
	})

	t.Run("reject", func(t *testing.T) {
		cfg := DefaultRouterConfig()
		cfg.UnknownKind = geometry.Reject
		r, applier, _ := newTestRouter(cfg, nil)
		send(r, data)

		if _, ok := applier.MeshHandle(); ok {
			t.Error("expected unknown kind to be dropped")
		}
		if r.Stats().UnknownKinds != 1 {
			t.Errorf("UnknownKinds = %d, want 1", r.Stats().UnknownKinds)
		}
	})
}

func TestRouter_ApplyError(t *testing.T) {
	rec := &captureRecorder{}
	r := NewRouter(DefaultRouterConfig(), failingApplier{}, rec, nil)

	send(r, `{"modelType":"line","lines":[]}`)

	stats := r.Stats()
	if stats.ApplyErrors != 1 {
		t.Errorf("ApplyErrors = %d, want 1", stats.ApplyErrors)
	}
	if stats.MessagesApplied != 0 {
		t.Errorf("MessagesApplied = %d, want 0", stats.MessagesApplied)
	}
	if len(rec.records) != 0 {
		t.Errorf("recorded %d updates, want 0", len(rec.records))
	}
}

func TestRouter_Records(t *testing.T) {
	rec := &captureRecorder{}
	r, _, _ := newTestRouter(DefaultRouterConfig(), rec)

	mesh := `{"modelType":"mesh","vertices":[0,0,0, 1,0,0, 0,1,0, 1,1,0],"indices":[0,1,2, 1,3,2]}`
	send(r, mesh)
	send(r, `{not json`)
	send(r, `{"modelType":"line","lines":[[0,0,0,1,0,0],[0,0,0,0,1,0,0,0,1]]}`)

	if len(rec.records) != 2 {
		t.Fatalf("recorded %d updates, want 2", len(rec.records))
	}

	m := rec.records[0]
	if m.Seq != 1 || m.Kind != geometry.KindMesh || m.Vertices != 4 || m.Triangles != 2 {
		t.Errorf("mesh record = %+v", m)
	}
	if string(m.Payload) != mesh {
		t.Errorf("Payload = %s, want original message", m.Payload)
	}

	l := rec.records[1]
	if l.Seq != 2 || l.Kind != geometry.KindLine || l.Polylines != 2 || l.Vertices != 5 {
		t.Errorf("line record = %+v", l)
	}
	if l.AppliedAt.Before(l.ReceivedAt) {
		t.Errorf("AppliedAt %v before ReceivedAt %v", l.AppliedAt, l.ReceivedAt)
	}
}

func TestRouter_RecordWithoutPayload(t *testing.T) {
	rec := &captureRecorder{}
	cfg := DefaultRouterConfig()
	cfg.RecordPayload = false
	r, _, _ := newTestRouter(cfg, rec)

	send(r, `{"modelType":"line","lines":[]}`)

	if len(rec.records) != 1 {
		t.Fatalf("recorded %d updates, want 1", len(rec.records))
	}
	if rec.records[0].Payload != nil {
		t.Errorf("Payload = %s, want nil", rec.records[0].Payload)
	}
}
