// Package storage keeps the dispatch history: one record per action the
// runner fired, with its outcome.
//
// Backends:
//   - "file":   append-only JSON Lines file, no dependencies
//   - "sqlite": SQLite database (modernc.org/sqlite, pure Go)
//
// History is an audit trail only; the scheduler never reads it back.
package storage
