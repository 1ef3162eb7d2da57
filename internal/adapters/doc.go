// Package adapters provides the backend collaborators the query engine runs
// plans against.
//
// Three adapters share one DBAdapter interface: database/sql (SQLAdapter,
// used with go-sqlite3 or lib/pq), sqlx (SQLXAdapter) and pgx
// (PGXAdapter, with an optional read replica). Each adapter executes a
// parameterized statement and hands rows back as ordered driver values;
// decoding into typed values is the engine's job.
//
// Adapters pass errors through unchanged. The engine wraps them exactly once
// as a backend execution error.
package adapters
