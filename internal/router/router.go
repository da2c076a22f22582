package router

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/meshview/internal/connection"
	"github.com/rickgao/meshview/internal/geometry"
)

// Router parses raw WebSocket messages and applies them to the scene.
type Router interface {
	connection.Handler

	// Stats returns current router statistics.
	Stats() RouterStats
}

// router is the internal implementation.
type router struct {
	cfg      RouterConfig
	applier  Applier
	recorder Recorder
	logger   *slog.Logger

	// Stats are written on the event loop and read by the health handler.
	mu    sync.RWMutex
	stats RouterStats
}

// NewRouter creates a new Message Router. recorder may be nil.
func NewRouter(cfg RouterConfig, applier Applier, recorder Recorder, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &router{
		cfg:      cfg,
		applier:  applier,
		recorder: recorder,
		logger:   logger,
	}
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// HandleMessage decodes and applies a single message.
func (r *router) HandleMessage(raw connection.RawMessage) {
	r.mu.Lock()
	r.stats.MessagesReceived++
	r.mu.Unlock()

	update, err := geometry.Decode(raw.Data, r.cfg.UnknownKind)
	if err != nil {
		r.logger.Warn("failed to decode geometry message",
			"error", err,
			"bytes", len(raw.Data),
		)
		r.mu.Lock()
		if errors.Is(err, geometry.ErrUnknownKind) {
			r.stats.UnknownKinds++
		} else {
			r.stats.ParseErrors++
		}
		r.mu.Unlock()
		return
	}

	if err := r.applier.Apply(update); err != nil {
		r.logger.Warn("failed to apply geometry update",
			"kind", update.Kind(),
			"error", err,
		)
		r.mu.Lock()
		r.stats.ApplyErrors++
		r.mu.Unlock()
		return
	}

	now := time.Now()

	r.mu.Lock()
	r.stats.MessagesApplied++
	switch update.Kind() {
	case geometry.KindMesh:
		r.stats.MeshUpdates++
	case geometry.KindLine:
		r.stats.LineUpdates++
	}
	r.stats.LastAppliedAt = now
	seq := r.stats.MessagesApplied
	r.mu.Unlock()

	if r.recorder != nil {
		r.recorder.Record(r.record(seq, update, raw, now))
	}
}

// record builds the journal record for an applied update.
func (r *router) record(seq int64, u geometry.Update, raw connection.RawMessage, appliedAt time.Time) UpdateRecord {
	rec := UpdateRecord{
		Seq:        seq,
		Kind:       u.Kind(),
		ReceivedAt: raw.ReceivedAt,
		AppliedAt:  appliedAt,
	}

	switch v := u.(type) {
	case geometry.Mesh:
		rec.Vertices = v.VertexCount()
		rec.Triangles = v.TriangleCount()
	case geometry.Lines:
		rec.Vertices = v.PointCount()
		rec.Polylines = len(v.Polylines)
	}

	if r.cfg.RecordPayload {
		rec.Payload = raw.Data
	}
	return rec
}
