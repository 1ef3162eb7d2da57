// Package store provides the SQLite backend and the entity persistence
// collaborator used by the query engine, the scenario harness and the CLI.
//
// The query core owns no DDL. Callers supply the table definitions for their
// schema (ApplySchema) and then write entity rows through a Writer, which
// renders parameterized INSERT statements with goqu for the adapter's
// dialect.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// In-memory databases (":memory:") ignore the WAL pragma and stay in
// "memory" journal mode.
package store
