package router

import (
	"time"

	"github.com/rickgao/meshview/internal/geometry"
)

// RouterConfig holds configuration for the Message Router.
type RouterConfig struct {
	UnknownKind   geometry.UnknownKindPolicy // Default: FallbackMesh
	RecordPayload bool                       // Keep raw JSON on journal records
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		UnknownKind:   geometry.FallbackMesh,
		RecordPayload: true,
	}
}

// Applier applies decoded updates to renderable state.
type Applier interface {
	Apply(u geometry.Update) error
}

// Recorder receives a record of every applied update. It must not block.
type Recorder interface {
	Record(rec UpdateRecord)
}

// UpdateRecord describes one applied update.
type UpdateRecord struct {
	Seq        int64 // Position in the stream of applied updates, from 1
	Kind       geometry.Kind
	Vertices   int // Mesh vertex count, or total polyline points
	Triangles  int // Mesh only
	Polylines  int // Lines only
	ReceivedAt time.Time
	AppliedAt  time.Time
	Payload    []byte // Raw message, nil unless RecordPayload
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64
	MessagesApplied  int64
	ParseErrors      int64
	UnknownKinds     int64
	ApplyErrors      int64
	MeshUpdates      int64
	LineUpdates      int64
	LastAppliedAt    time.Time
}
