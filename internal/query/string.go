package query

import "github.com/bitfox-hash/querydsl/internal/queryir"

func (s StringExpr) Eq(o StringExpr) BoolExpr  { return compare(queryir.OpEq, s, o) }
func (s StringExpr) Ne(o StringExpr) BoolExpr  { return compare(queryir.OpNe, s, o) }
func (s StringExpr) Gt(o StringExpr) BoolExpr  { return compare(queryir.OpGt, s, o) }
func (s StringExpr) Goe(o StringExpr) BoolExpr { return compare(queryir.OpGoe, s, o) }
func (s StringExpr) Lt(o StringExpr) BoolExpr  { return compare(queryir.OpLt, s, o) }
func (s StringExpr) Loe(o StringExpr) BoolExpr { return compare(queryir.OpLoe, s, o) }

func (s StringExpr) Between(lo, hi StringExpr) BoolExpr { return between(s, lo, hi) }

func (s StringExpr) In(values ...StringExpr) BoolExpr    { return in(s, values, false) }
func (s StringExpr) NotIn(values ...StringExpr) BoolExpr { return in(s, values, true) }

func (s StringExpr) InQuery(q Subquery) BoolExpr    { return inQuery(s, q, false) }
func (s StringExpr) NotInQuery(q Subquery) BoolExpr { return inQuery(s, q, true) }

func (s StringExpr) IsNull() BoolExpr    { return isNull(s, false) }
func (s StringExpr) IsNotNull() BoolExpr { return isNull(s, true) }

// Like matches a SQL pattern (% and _ wildcards).
func (s StringExpr) Like(pattern string) BoolExpr {
	if err := firstErr(s); err != nil {
		return BoolExpr{base{err: err}}
	}
	l, err := queryir.NewLike(s.IR(), String(pattern).IR())
	return BoolExpr{wrap(l, err)}
}

// Concat appends parts of any scalar kind.
func (s StringExpr) Concat(parts ...Expression) StringExpr {
	return concat(append([]Expression{s}, parts...)...)
}

// Append appends a text literal.
func (s StringExpr) Append(v string) StringExpr { return concat(s, String(v)) }

// Prepend puts a text literal in front.
func (s StringExpr) Prepend(v string) StringExpr { return concat(String(v), s) }

func (s StringExpr) Max() StringExpr           { return stringAggregate(queryir.AggMax, s) }
func (s StringExpr) Min() StringExpr           { return stringAggregate(queryir.AggMin, s) }
func (s StringExpr) Count() NumberExpr         { return aggregate(queryir.AggCount, s) }
func (s StringExpr) CountDistinct() NumberExpr { return aggregate(queryir.AggCountDistinct, s) }

func (s StringExpr) Asc() Order  { return order(s, false) }
func (s StringExpr) Desc() Order { return order(s, true) }

// When starts a simple case over s.
func (s StringExpr) When(v StringExpr) *CaseWhen { return simpleCase(s).When(v) }
