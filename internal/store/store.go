package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bitfox-hash/querydsl/internal/adapters"
	"github.com/bitfox-hash/querydsl/internal/ir"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is a SQLite database holding entity tables.
type Store struct {
	db      *sql.DB
	adapter *adapters.SQLAdapter
	writer  *Writer
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas automatically.
//
// The connection pool is limited to one connection. This keeps a
// ":memory:" database alive and shared for the lifetime of the Store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	adapter := adapters.NewSQLAdapter(db)
	writer, err := NewWriter(adapter, "sqlite3")
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, adapter: adapter, writer: writer}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Adapter returns the store as a backend for the query engine.
func (s *Store) Adapter() adapters.DBAdapter {
	return s.adapter
}

// ApplySchema executes a DDL script, typically CREATE TABLE statements for
// the entity tables of a schema.
func (s *Store) ApplySchema(ctx context.Context, ddl string) error {
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Insert writes one row of entity e.
func (s *Store) Insert(ctx context.Context, e *ir.Entity, row Row) error {
	return s.writer.Insert(ctx, e, row)
}

// InsertAll writes rows of entity e in order, stopping at the first failure.
func (s *Store) InsertAll(ctx context.Context, e *ir.Entity, rows []Row) error {
	return s.writer.InsertAll(ctx, e, rows)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
