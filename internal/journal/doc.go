// Package journal records applied geometry updates to PostgreSQL.
//
// The router hands every applied update to Writer.Record, which queues it in a
// GrowableBuffer without blocking the event loop. A consumer goroutine batches
// queued records and inserts them into the geometry_updates table.
//
// The journal is optional. Insert failures are logged and counted, never fatal.
package journal
