// Package database provides PostgreSQL connection pool management.
//
// The viewer uses a single pool for the optional update journal.
package database
