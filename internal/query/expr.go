package query

import (
	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/queryir"
)

// Expression is any typed expression. IR returns the underlying tree, nil
// when the expression is absent or invalid; Err returns the construction
// error, if any.
type Expression interface {
	IR() queryir.Expr
	Err() error
}

type base struct {
	x   queryir.Expr
	err error
}

func (b base) IR() queryir.Expr { return b.x }
func (b base) Err() error       { return b.err }

func wrap(x queryir.Expr, err error) base {
	if err != nil {
		return base{err: err}
	}
	return base{x: x}
}

// NumberExpr is a numeric (int or decimal) expression.
type NumberExpr struct{ base }

// StringExpr is a text expression.
type StringExpr struct{ base }

// BoolExpr is a boolean expression.
type BoolExpr struct{ base }

// Predicate is a boolean condition. The zero Predicate is absent: Where,
// Having, On, And and Or drop it.
type Predicate = BoolExpr

// Absent reports whether p carries neither a condition nor an error.
func (b BoolExpr) Absent() bool { return b.x == nil && b.err == nil }

// Int is an integer literal.
func Int(v int64) NumberExpr { return NumberExpr{base{x: queryir.Lit(ir.Int(v))}} }

// Float is a decimal literal.
func Float(v float64) NumberExpr { return NumberExpr{base{x: queryir.Lit(ir.Decimal(v))}} }

// String is a text literal.
func String(v string) StringExpr { return StringExpr{base{x: queryir.Lit(ir.String(v))}} }

// Bool is a boolean literal.
func Bool(v bool) BoolExpr { return BoolExpr{base{x: queryir.Lit(ir.Bool(v))}} }

// NullNumber is a NULL usable where a number is expected.
func NullNumber() NumberExpr { return NumberExpr{base{x: queryir.Lit(ir.Null{})}} }

// NullString is a NULL usable where text is expected.
func NullString() StringExpr { return StringExpr{base{x: queryir.Lit(ir.Null{})}} }

// firstErr returns the first construction error among es. A nil
// expression is reported as a missing operand.
func firstErr(es ...Expression) error {
	for _, e := range es {
		if e == nil {
			return &queryir.TypeError{Op: "operand", Message: "missing operand"}
		}
		if err := e.Err(); err != nil {
			return err
		}
	}
	return nil
}

func irs[E Expression](es []E) ([]queryir.Expr, error) {
	out := make([]queryir.Expr, 0, len(es))
	for _, e := range es {
		if err := firstErr(e); err != nil {
			return nil, err
		}
		out = append(out, e.IR())
	}
	return out, nil
}

func compare(op queryir.CompareOp, l, r Expression) BoolExpr {
	if err := firstErr(l, r); err != nil {
		return BoolExpr{base{err: err}}
	}
	c, err := queryir.NewCompare(op, l.IR(), r.IR())
	return BoolExpr{wrap(c, err)}
}

func between(x, lo, hi Expression) BoolExpr {
	if err := firstErr(x, lo, hi); err != nil {
		return BoolExpr{base{err: err}}
	}
	b, err := queryir.NewBetween(x.IR(), lo.IR(), hi.IR())
	return BoolExpr{wrap(b, err)}
}

func in[E Expression](x Expression, list []E, negated bool) BoolExpr {
	if err := firstErr(x); err != nil {
		return BoolExpr{base{err: err}}
	}
	items, err := irs(list)
	if err != nil {
		return BoolExpr{base{err: err}}
	}
	n, err := queryir.NewIn(x.IR(), items, negated)
	return BoolExpr{wrap(n, err)}
}

func inQuery(x Expression, q Subquery, negated bool) BoolExpr {
	if err := firstErr(x); err != nil {
		return BoolExpr{base{err: err}}
	}
	sel, err := build(q)
	if err != nil {
		return BoolExpr{base{err: err}}
	}
	n, err := queryir.NewInSubquery(x.IR(), sel, negated)
	return BoolExpr{wrap(n, err)}
}

func isNull(x Expression, negated bool) BoolExpr {
	if err := firstErr(x); err != nil {
		return BoolExpr{base{err: err}}
	}
	n, err := queryir.NewIsNull(x.IR(), negated)
	return BoolExpr{wrap(n, err)}
}

func aggregate(fn queryir.AggFunc, x Expression) NumberExpr {
	if err := firstErr(x); err != nil {
		return NumberExpr{base{err: err}}
	}
	a, err := queryir.NewAggregate(fn, x.IR())
	return NumberExpr{wrap(a, err)}
}

// stringAggregate is max or min over text, which stays text.
func stringAggregate(fn queryir.AggFunc, x Expression) StringExpr {
	return StringExpr{aggregate(fn, x).base}
}

func order(x Expression, desc bool) Order {
	if err := firstErr(x); err != nil {
		return Order{err: err}
	}
	return Order{key: queryir.OrderKey{Expr: x.IR(), Desc: desc}}
}

func concat(parts ...Expression) StringExpr {
	if err := firstErr(parts...); err != nil {
		return StringExpr{base{err: err}}
	}
	xs := make([]queryir.Expr, len(parts))
	for i, p := range parts {
		xs[i] = p.IR()
	}
	c, err := queryir.NewConcat(xs...)
	return StringExpr{wrap(c, err)}
}
