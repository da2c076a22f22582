package journal

import (
	"time"

	"github.com/google/uuid"
)

// WriterConfig holds configuration for the journal writer.
type WriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultWriterConfig returns default configuration.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Second,
	}
}

// WriterMetrics contains runtime statistics.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
	Dropped   int64 // Records evicted from a full buffer
}

// updateRow is one row of geometry_updates.
type updateRow struct {
	SessionID  uuid.UUID
	Seq        int64
	Kind       string
	Vertices   int
	Triangles  int
	Polylines  int
	ReceivedAt time.Time
	AppliedAt  time.Time
	Payload    *string // NULL when payload recording is off
}
