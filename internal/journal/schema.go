package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createUpdatesTable = `
CREATE TABLE IF NOT EXISTS geometry_updates (
	session_id  UUID        NOT NULL,
	seq         BIGINT      NOT NULL,
	kind        TEXT        NOT NULL,
	vertices    INTEGER     NOT NULL,
	triangles   INTEGER     NOT NULL,
	polylines   INTEGER     NOT NULL,
	received_at TIMESTAMPTZ NOT NULL,
	applied_at  TIMESTAMPTZ NOT NULL,
	payload     JSONB,
	PRIMARY KEY (session_id, seq)
)`

// EnsureSchema creates the geometry_updates table if it does not exist.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, createUpdatesTable); err != nil {
		return fmt.Errorf("create geometry_updates: %w", err)
	}
	return nil
}
