package query

import (
	"errors"
	"fmt"

	"github.com/bitfox-hash/querydsl/internal/engine"
	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/queryir"
	"github.com/bitfox-hash/querydsl/internal/querysql"
)

// ErrUnbound is returned by fetch operations on a query that has no engine,
// such as a subquery.
var ErrUnbound = errors.New("query is not bound to an engine")

// Subquery is a query usable inside another one.
type Subquery interface {
	Build() (*queryir.Select, error)
}

// Query is a composable select whose rows materialize as T.
type Query[T any] struct {
	exec   *engine.Engine
	decode func(engine.Row) T
	sel    *queryir.Select
	err    error
	last   int // index of the most recent join, -1 before the first
}

func newQuery[T any](exec *engine.Engine, decode func(engine.Row) T, projections ...Expression) *Query[T] {
	q := &Query[T]{exec: exec, decode: decode, sel: &queryir.Select{}, last: -1}
	for _, p := range projections {
		if err := firstErr(p); err != nil {
			q.fail(err)
			continue
		}
		q.sel.Projections = append(q.sel.Projections, p.IR())
	}
	return q
}

// Sub starts an unbound subquery projecting expr.
func Sub(expr Expression) *Query[ir.Value] {
	return newQuery(nil, scalar, expr)
}

func scalar(r engine.Row) ir.Value       { return r.Value(0) }
func record(r engine.Row) *engine.Record { return r.Record(0) }
func tuple(r engine.Row) engine.Tuple    { return r.Tuple() }

// fail records the first construction error.
func (q *Query[T]) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// From adds query sources. Sources must be root paths.
func (q *Query[T]) From(sources ...EntitySource) *Query[T] {
	for _, s := range sources {
		src, err := pathOf(s).source()
		if err != nil {
			q.fail(err)
			continue
		}
		q.sel.From = append(q.sel.From, src)
	}
	return q
}

// Join inner-joins the association assoc (an owner path plus one
// association, e.g. m.Assoc("team")) and binds its target to target.
func (q *Query[T]) Join(assoc, target EntitySource) *Query[T] {
	return q.joinAssoc(queryir.JoinInner, assoc, target)
}

// LeftJoin is Join keeping source rows without a match.
func (q *Query[T]) LeftJoin(assoc, target EntitySource) *Query[T] {
	return q.joinAssoc(queryir.JoinLeft, assoc, target)
}

// JoinEntity inner-joins an unrelated entity. The join needs an On
// predicate.
func (q *Query[T]) JoinEntity(target EntitySource) *Query[T] {
	return q.joinEntity(queryir.JoinInner, target)
}

// LeftJoinEntity is JoinEntity keeping source rows without a match.
func (q *Query[T]) LeftJoinEntity(target EntitySource) *Query[T] {
	return q.joinEntity(queryir.JoinLeft, target)
}

func (q *Query[T]) joinAssoc(kind queryir.JoinKind, assocSrc, targetSrc EntitySource) *Query[T] {
	assoc, target := pathOf(assocSrc), pathOf(targetSrc)
	if err := firstErr(assoc, target); err != nil {
		q.fail(err)
		return q
	}
	if len(assoc.via) == 0 {
		q.fail(&queryir.TypeError{Op: "join", Message: fmt.Sprintf("%s is not an association path", assoc.describe())})
		return q
	}

	steps, err := assoc.steps()
	if err != nil {
		q.fail(err)
		return q
	}
	src, err := target.source()
	if err != nil {
		q.fail(err)
		return q
	}

	last := steps[len(steps)-1]
	a := last.Association
	q.sel.Joins = append(q.sel.Joins, queryir.Join{
		Kind:        kind,
		Owner:       queryir.ImplicitAlias(assoc.alias, steps[:len(steps)-1]),
		Association: &a,
		Target:      src,
	})
	q.last = len(q.sel.Joins) - 1
	return q
}

func (q *Query[T]) joinEntity(kind queryir.JoinKind, target EntitySource) *Query[T] {
	src, err := pathOf(target).source()
	if err != nil {
		q.fail(err)
		return q
	}
	q.sel.Joins = append(q.sel.Joins, queryir.Join{Kind: kind, Target: src})
	q.last = len(q.sel.Joins) - 1
	return q
}

// On restricts the most recent join. Predicates are AND-combined with any
// earlier On of the same join; absent ones are dropped.
func (q *Query[T]) On(ps ...BoolExpr) *Query[T] {
	if q.last < 0 {
		q.fail(&queryir.TypeError{Op: "on", Message: "on without a join"})
		return q
	}
	xs, err := predicates(ps)
	if err != nil {
		q.fail(err)
		return q
	}
	j := &q.sel.Joins[q.last]
	j.On = queryir.Conjoin(append([]queryir.Expr{j.On}, xs...)...)
	return q
}

// FetchJoin marks the most recent join for eager fetching: the target is
// loaded as part of the owner's record.
func (q *Query[T]) FetchJoin() *Query[T] {
	if q.last < 0 {
		q.fail(&queryir.TypeError{Op: "fetch_join", Message: "fetch join without a join"})
		return q
	}
	q.sel.Joins[q.last].Fetch = true
	return q
}

// Where adds filter predicates, AND-combined with each other and with
// earlier calls. Absent predicates are dropped.
func (q *Query[T]) Where(ps ...BoolExpr) *Query[T] {
	xs, err := predicates(ps)
	if err != nil {
		q.fail(err)
		return q
	}
	q.sel.Where = queryir.Conjoin(append([]queryir.Expr{q.sel.Where}, xs...)...)
	return q
}

// GroupBy adds group keys.
func (q *Query[T]) GroupBy(keys ...Expression) *Query[T] {
	xs, err := irs(keys)
	if err != nil {
		q.fail(err)
		return q
	}
	q.sel.GroupBy = append(q.sel.GroupBy, xs...)
	return q
}

// Having adds group filter predicates with the same rules as Where.
func (q *Query[T]) Having(ps ...BoolExpr) *Query[T] {
	xs, err := predicates(ps)
	if err != nil {
		q.fail(err)
		return q
	}
	q.sel.Having = queryir.Conjoin(append([]queryir.Expr{q.sel.Having}, xs...)...)
	return q
}

// OrderBy appends ordering keys; earlier keys take precedence.
func (q *Query[T]) OrderBy(orders ...Order) *Query[T] {
	for _, o := range orders {
		if o.err != nil {
			q.fail(o.err)
			continue
		}
		if o.key.Expr == nil {
			q.fail(&queryir.TypeError{Op: "order_by", Message: "empty order key"})
			continue
		}
		q.sel.OrderBy = append(q.sel.OrderBy, o.key)
	}
	return q
}

// Offset skips the first n rows.
func (q *Query[T]) Offset(n uint64) *Query[T] {
	q.sel.Offset = &n
	return q
}

// Limit returns at most n rows. Limit(0) returns none.
func (q *Query[T]) Limit(n uint64) *Query[T] {
	q.sel.Limit = &n
	return q
}

// Distinct removes duplicate rows.
func (q *Query[T]) Distinct() *Query[T] {
	q.sel.Distinct = true
	return q
}

// Clone returns an independent copy of q bound to the same engine.
func (q *Query[T]) Clone() *Query[T] {
	return &Query[T]{exec: q.exec, decode: q.decode, sel: q.sel.Clone(), err: q.err, last: q.last}
}

// Err returns the first construction error recorded by q.
func (q *Query[T]) Err() error { return q.err }

// Build returns a copy of the composed select. Structure is validated when
// the query is compiled, not here.
func (q *Query[T]) Build() (*queryir.Select, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.sel.Clone(), nil
}

// Plan compiles q without executing it.
func (q *Query[T]) Plan() (*querysql.Plan, error) {
	sel, err := q.bound()
	if err != nil {
		return nil, err
	}
	return q.exec.Plan(sel)
}

// Num uses q as a scalar numeric subquery.
func (q *Query[T]) Num() NumberExpr {
	return NumberExpr{subquery(q, ir.TypeInt, ir.TypeDecimal)}
}

// Str uses q as a scalar text subquery.
func (q *Query[T]) Str() StringExpr {
	return StringExpr{subquery(q, ir.TypeString)}
}

func subquery(q Subquery, kinds ...ir.Type) base {
	sel, err := build(q)
	if err != nil {
		return base{err: err}
	}
	sq, err := queryir.NewSubquery(sel)
	if err != nil {
		return base{err: err}
	}
	got := sq.Type()
	for _, k := range kinds {
		if got == k || got == ir.TypeNull {
			return base{x: sq}
		}
	}
	return base{err: &queryir.TypeError{
		Op:      "subquery",
		Left:    got,
		Right:   kinds[0],
		Message: fmt.Sprintf("subquery projects %s, not %s", got, kinds[0]),
	}}
}

func build(q Subquery) (*queryir.Select, error) {
	if q == nil {
		return nil, &queryir.TypeError{Op: "subquery", Message: "missing subquery"}
	}
	return q.Build()
}

func (q *Query[T]) bound() (*queryir.Select, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.exec == nil {
		return nil, ErrUnbound
	}
	return q.sel, nil
}
