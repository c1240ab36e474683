// Package storage keeps an append-only history of schedule fetches and
// webhook deliveries.
//
// The history is never replayed: scheduled notifications live in memory
// only and a restart re-derives them from the schedule. Two drivers exist:
//   - "file": JSON Lines next to the configured path
//   - "sqlite": a single SQLite database (modernc.org/sqlite, no cgo)
package storage
