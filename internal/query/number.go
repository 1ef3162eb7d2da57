package query

import "github.com/bitfox-hash/querydsl/internal/queryir"

func (n NumberExpr) Eq(o NumberExpr) BoolExpr  { return compare(queryir.OpEq, n, o) }
func (n NumberExpr) Ne(o NumberExpr) BoolExpr  { return compare(queryir.OpNe, n, o) }
func (n NumberExpr) Gt(o NumberExpr) BoolExpr  { return compare(queryir.OpGt, n, o) }
func (n NumberExpr) Goe(o NumberExpr) BoolExpr { return compare(queryir.OpGoe, n, o) }
func (n NumberExpr) Lt(o NumberExpr) BoolExpr  { return compare(queryir.OpLt, n, o) }
func (n NumberExpr) Loe(o NumberExpr) BoolExpr { return compare(queryir.OpLoe, n, o) }

// Between is inclusive on both ends.
func (n NumberExpr) Between(lo, hi NumberExpr) BoolExpr { return between(n, lo, hi) }

func (n NumberExpr) In(values ...NumberExpr) BoolExpr    { return in(n, values, false) }
func (n NumberExpr) NotIn(values ...NumberExpr) BoolExpr { return in(n, values, true) }

// InQuery tests membership in the single column projected by q.
func (n NumberExpr) InQuery(q Subquery) BoolExpr    { return inQuery(n, q, false) }
func (n NumberExpr) NotInQuery(q Subquery) BoolExpr { return inQuery(n, q, true) }

func (n NumberExpr) IsNull() BoolExpr    { return isNull(n, false) }
func (n NumberExpr) IsNotNull() BoolExpr { return isNull(n, true) }

func (n NumberExpr) Add(o NumberExpr) NumberExpr { return arith(queryir.OpAdd, n, o) }
func (n NumberExpr) Sub(o NumberExpr) NumberExpr { return arith(queryir.OpSub, n, o) }
func (n NumberExpr) Mul(o NumberExpr) NumberExpr { return arith(queryir.OpMul, n, o) }
func (n NumberExpr) Div(o NumberExpr) NumberExpr { return arith(queryir.OpDiv, n, o) }

func (n NumberExpr) Sum() NumberExpr           { return aggregate(queryir.AggSum, n) }
func (n NumberExpr) Avg() NumberExpr           { return aggregate(queryir.AggAvg, n) }
func (n NumberExpr) Max() NumberExpr           { return aggregate(queryir.AggMax, n) }
func (n NumberExpr) Min() NumberExpr           { return aggregate(queryir.AggMin, n) }
func (n NumberExpr) Count() NumberExpr         { return aggregate(queryir.AggCount, n) }
func (n NumberExpr) CountDistinct() NumberExpr { return aggregate(queryir.AggCountDistinct, n) }

func (n NumberExpr) Asc() Order  { return order(n, false) }
func (n NumberExpr) Desc() Order { return order(n, true) }

// StringValue converts the number to text, e.g. for concatenation.
func (n NumberExpr) StringValue() StringExpr { return concat(n) }

// When starts a simple case over n: n.When(Int(10)).Then(String("A")).
func (n NumberExpr) When(v NumberExpr) *CaseWhen { return simpleCase(n).When(v) }

func arith(op queryir.ArithOp, l, r NumberExpr) NumberExpr {
	if err := firstErr(l, r); err != nil {
		return NumberExpr{base{err: err}}
	}
	a, err := queryir.NewArith(op, l.IR(), r.IR())
	return NumberExpr{wrap(a, err)}
}
