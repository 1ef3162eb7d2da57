package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bitfox-hash/querydsl/internal/adapters"
	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/queryir"
	"github.com/bitfox-hash/querydsl/internal/querysql"
)

// DefaultDialect is used when no WithDialect option is given.
const DefaultDialect = querysql.DialectSQLite

// Engine compiles queries and runs them against a backend adapter.
//
// Every fetch is exactly one round trip. Validation and compilation happen
// before the round trip, so type and structure errors never reach the
// backend.
//
// Thread-safety: Engine holds no per-query state and is safe for concurrent
// use when the adapter is.
type Engine struct {
	db       adapters.DBAdapter
	dialect  string
	compiler *querysql.Compiler
	logger   *slog.Logger
	ids      IDGenerator
	trips    Counter
}

// Option configures an Engine.
type Option func(*Engine)

// WithDialect selects the SQL dialect ("sqlite3" or "postgres").
func WithDialect(name string) Option {
	return func(e *Engine) {
		e.dialect = name
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithIDGenerator sets the query ID source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// New creates an Engine over db.
func New(db adapters.DBAdapter, opts ...Option) (*Engine, error) {
	e := &Engine{
		db:      db,
		dialect: DefaultDialect,
		logger:  slog.Default(),
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}

	c, err := querysql.NewCompiler(e.dialect)
	if err != nil {
		return nil, err
	}
	e.compiler = c
	return e, nil
}

// Dialect returns the SQL dialect name.
func (e *Engine) Dialect() string { return e.dialect }

// RoundTrips returns the number of backend queries issued so far.
func (e *Engine) RoundTrips() int64 { return e.trips.Current() }

// Plan validates and compiles sel without executing it.
func (e *Engine) Plan(sel *queryir.Select) (*querysql.Plan, error) {
	return e.compiler.Compile(sel)
}

// Fetch returns every row of sel. Zero rows is an empty result, not an
// error.
func (e *Engine) Fetch(ctx context.Context, sel *queryir.Select) ([]Row, error) {
	plan, err := e.compiler.Compile(sel)
	if err != nil {
		return nil, err
	}
	rows, _, err := e.run(ctx, plan)
	return rows, err
}

// FetchOne returns the single row of sel. It reports false when there is no
// row and a non-unique error when there is more than one.
//
// At most two rows are requested; the second only proves non-uniqueness.
func (e *Engine) FetchOne(ctx context.Context, sel *queryir.Select) (Row, bool, error) {
	limited := withLimit(sel, 2)
	plan, err := e.compiler.Compile(limited)
	if err != nil {
		return Row{}, false, err
	}

	rows, queryID, err := e.run(ctx, plan)
	if err != nil {
		return Row{}, false, err
	}
	switch len(rows) {
	case 0:
		return Row{}, false, nil
	case 1:
		return rows[0], true, nil
	default:
		return Row{}, false, NewNonUniqueError(queryID)
	}
}

// FetchFirst returns the first row of sel, or false when there is none.
// It never reports a cardinality error.
func (e *Engine) FetchFirst(ctx context.Context, sel *queryir.Select) (Row, bool, error) {
	plan, err := e.compiler.Compile(withLimit(sel, 1))
	if err != nil {
		return Row{}, false, err
	}

	rows, _, err := e.run(ctx, plan)
	if err != nil || len(rows) == 0 {
		return Row{}, false, err
	}
	return rows[0], true, nil
}

// Count returns the number of rows sel yields, ignoring its order, offset
// and limit.
func (e *Engine) Count(ctx context.Context, sel *queryir.Select) (int64, error) {
	plan, err := e.compiler.CompileCount(sel)
	if err != nil {
		return 0, err
	}

	rows, queryID, err := e.run(ctx, plan)
	if err != nil {
		return 0, err
	}
	if len(rows) != 1 {
		return 0, newDecodeError(queryID, fmt.Errorf("count returned %d rows", len(rows)))
	}
	n, ok := rows[0].Value(0).(ir.Int)
	if !ok {
		return 0, newDecodeError(queryID, fmt.Errorf("count returned %s", ir.Format(rows[0].Value(0))))
	}
	return int64(n), nil
}

// withLimit caps the limit of a copy of sel at n. An existing smaller limit,
// including zero, is kept.
func withLimit(sel *queryir.Select, n uint64) *queryir.Select {
	if sel == nil {
		return nil
	}
	if sel.Limit != nil && *sel.Limit <= n {
		return sel
	}
	c := sel.Clone()
	c.Limit = &n
	return c
}

// run executes plan in one round trip and decodes its rows.
func (e *Engine) run(ctx context.Context, plan *querysql.Plan) ([]Row, string, error) {
	queryID := e.ids.Generate()
	start := time.Now()
	e.trips.Next()

	rows, err := e.db.Query(ctx, plan.SQL, plan.Params...)
	if err != nil {
		e.logger.Error("query failed",
			"query_id", queryID,
			"sql", plan.SQL,
			"error", err,
		)
		return nil, queryID, newBackendError(queryID, err)
	}
	defer rows.Close()

	raw := make([]any, plan.Columns())
	dest := make([]any, len(raw))
	for i := range raw {
		dest[i] = &raw[i]
	}

	dec := decoder{shape: plan.Shape}
	var out []Row
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			e.logger.Error("row scan failed", "query_id", queryID, "error", err)
			return nil, queryID, newBackendError(queryID, err)
		}
		row, err := dec.decode(raw)
		if err != nil {
			e.logger.Error("row decode failed", "query_id", queryID, "error", err)
			return nil, queryID, newDecodeError(queryID, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		e.logger.Error("query failed", "query_id", queryID, "sql", plan.SQL, "error", err)
		return nil, queryID, newBackendError(queryID, err)
	}

	// An aggregate over no input rows yields one all-NULL row
	if plan.AbsentIfNull && len(out) == 1 && allNull(out[0]) {
		out = nil
	}

	e.logger.Debug("query executed",
		"query_id", queryID,
		"sql", plan.SQL,
		"params", plan.Params,
		"rows", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, queryID, nil
}
