package journal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/meshview/internal/router"
)

var errNoDatabase = errors.New("journal has no database")

// Writer records applied updates into the geometry_updates table.
// It implements router.Recorder.
type Writer struct {
	cfg     WriterConfig
	logger  *slog.Logger
	session uuid.UUID

	input  *GrowableBuffer[router.UpdateRecord]
	db     *pgxpool.Pool
	insert func(ctx context.Context, rows []updateRow) (conflicts int, err error)

	// Batching
	batch       []updateRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewWriter creates a new Writer. Every Writer gets a fresh session ID that
// groups the rows of one process run.
func NewWriter(
	cfg WriterConfig,
	input *GrowableBuffer[router.UpdateRecord],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	session := uuid.New()
	w := &Writer{
		cfg:     cfg,
		logger:  logger.With("session", session),
		session: session,
		input:   input,
		db:      db,
		batch:   make([]updateRow, 0, cfg.BatchSize),
	}
	w.insert = w.batchInsert
	return w
}

// Session returns the session ID written with every row.
func (w *Writer) Session() uuid.UUID {
	return w.session
}

// Record queues an applied update. It never blocks.
func (w *Writer) Record(rec router.UpdateRecord) {
	if !w.input.Send(rec) {
		w.logger.Debug("journal closed, record discarded", "seq", rec.Seq)
	}
}

// Start begins consuming records and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains what is queued and flushes it.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	w.input.Close()
	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("journal writer stopped")
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
	}

	// Our context is cancelled by now, so the backlog is written with the caller's.
	for _, rec := range w.input.DrainTo(0) {
		w.handleRecord(ctx, rec)
	}
	w.flushWith(ctx)

	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.batchMu.Lock()
	m := w.metrics
	w.batchMu.Unlock()
	m.Dropped = w.input.Stats().Dropped
	return m
}

// consumeLoop moves queued records into the batch.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		if w.ctx.Err() != nil {
			return // Stop drains the rest
		}
		recs := w.input.DrainTo(w.cfg.BatchSize)
		if len(recs) == 0 {
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
				continue
			}
		}

		for _, rec := range recs {
			w.handleRecord(w.ctx, rec)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flushWith(w.ctx)
		}
	}
}

// handleRecord transforms and adds a record to the batch, flushing with ctx
// once the batch is full.
func (w *Writer) handleRecord(ctx context.Context, rec router.UpdateRecord) {
	row := w.transform(rec)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flushWith(ctx)
	}
}

// transform converts an UpdateRecord to an updateRow.
func (w *Writer) transform(rec router.UpdateRecord) updateRow {
	row := updateRow{
		SessionID:  w.session,
		Seq:        rec.Seq,
		Kind:       string(rec.Kind),
		Vertices:   rec.Vertices,
		Triangles:  rec.Triangles,
		Polylines:  rec.Polylines,
		ReceivedAt: rec.ReceivedAt.UTC(),
		AppliedAt:  rec.AppliedAt.UTC(),
	}
	if len(rec.Payload) > 0 {
		payload := string(rec.Payload)
		row.Payload = &payload
	}
	return row
}

// flushWith writes the current batch to the database. With a cancelled ctx
// the batch is left in place for the final flush in Stop.
func (w *Writer) flushWith(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 || ctx.Err() != nil {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]updateRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.insert(ctx, batch)
	if err != nil && ctx.Err() != nil {
		// Cancelled mid-insert: requeue ahead of newer rows for Stop to retry.
		w.batchMu.Lock()
		w.batch = append(batch, w.batch...)
		w.batchMu.Unlock()
		w.logger.Debug("batch insert interrupted, requeued", "count", len(batch))
		return
	}
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed updates",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []updateRow) (conflicts int, err error) {
	if w.db == nil {
		return 0, errNoDatabase
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO geometry_updates (session_id, seq, kind, vertices, triangles, polylines, received_at, applied_at, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (session_id, seq) DO NOTHING
		`, r.SessionID, r.Seq, r.Kind, r.Vertices, r.Triangles, r.Polylines, r.ReceivedAt, r.AppliedAt, r.Payload)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
