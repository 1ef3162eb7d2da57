package query

import (
	"context"

	"github.com/bitfox-hash/querydsl/internal/engine"
	"github.com/bitfox-hash/querydsl/internal/ir"
)

// Factory creates queries bound to an engine.
type Factory struct {
	engine *engine.Engine
}

// NewFactory creates a Factory running queries on e.
func NewFactory(e *engine.Engine) *Factory {
	return &Factory{engine: e}
}

// SelectFrom selects whole entities of e, from e.
func (f *Factory) SelectFrom(e EntitySource) *Query[*engine.Record] {
	return newQuery(f.engine, record, e).From(e)
}

// SelectEntity selects whole entities of e. Sources are added with From.
func (f *Factory) SelectEntity(e EntitySource) *Query[*engine.Record] {
	return newQuery(f.engine, record, e)
}

// Select selects one scalar expression.
func (f *Factory) Select(expr Expression) *Query[ir.Value] {
	return newQuery(f.engine, scalar, expr)
}

// SelectTuple selects several expressions; rows are tuples addressable by
// the projected expressions.
func (f *Factory) SelectTuple(exprs ...Expression) *Query[engine.Tuple] {
	return newQuery(f.engine, tuple, exprs...)
}

// Fetch returns all rows. Zero rows is an empty slice, not an error.
func (q *Query[T]) Fetch(ctx context.Context) ([]T, error) {
	sel, err := q.bound()
	if err != nil {
		return nil, err
	}
	rows, err := q.exec.Fetch(ctx, sel)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = q.decode(r)
	}
	return out, nil
}

// FetchOne returns the only row. It reports false when there is none and a
// non-unique error (engine.IsNonUniqueError) when there are several.
func (q *Query[T]) FetchOne(ctx context.Context) (T, bool, error) {
	var zero T
	sel, err := q.bound()
	if err != nil {
		return zero, false, err
	}
	row, ok, err := q.exec.FetchOne(ctx, sel)
	if err != nil || !ok {
		return zero, false, err
	}
	return q.decode(row), true, nil
}

// FetchFirst returns the first row, or false when there is none.
func (q *Query[T]) FetchFirst(ctx context.Context) (T, bool, error) {
	var zero T
	sel, err := q.bound()
	if err != nil {
		return zero, false, err
	}
	row, ok, err := q.exec.FetchFirst(ctx, sel)
	if err != nil || !ok {
		return zero, false, err
	}
	return q.decode(row), true, nil
}

// FetchCount returns the number of rows, ignoring order, offset and limit.
func (q *Query[T]) FetchCount(ctx context.Context) (int64, error) {
	sel, err := q.bound()
	if err != nil {
		return 0, err
	}
	return q.exec.Count(ctx, sel)
}

// Get returns the tuple cell projected for e.
func Get(t engine.Tuple, e Expression) (ir.Value, bool) {
	if e == nil || e.IR() == nil {
		return nil, false
	}
	return t.Get(e.IR())
}

// GetEntity returns the tuple's record projected for e.
func GetEntity(t engine.Tuple, e EntitySource) (*engine.Record, bool) {
	if e == nil {
		return nil, false
	}
	x := e.IR()
	if x == nil {
		return nil, false
	}
	return t.Entity(x)
}
