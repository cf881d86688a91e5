// Package store persists episodes, produced asset records, and the cost log
// in SQLite.
//
// The Store owns connection setup, schema initialization, and migrations.
// Asset records are append-only: every produced asset instance gets its own
// row even when its bytes came from the cache, and every paid external call
// gets one cost_log row. Schema changes bump schemaVersion in schema.go;
// additive changes go in migrations/.
package store
