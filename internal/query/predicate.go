package query

import "github.com/bitfox-hash/querydsl/internal/queryir"

// And combines b with others. Absent predicates are dropped.
func (b BoolExpr) And(others ...BoolExpr) BoolExpr {
	return logical(queryir.OpAnd, append([]BoolExpr{b}, others...))
}

// Or combines b with others. Absent predicates are dropped.
func (b BoolExpr) Or(others ...BoolExpr) BoolExpr {
	return logical(queryir.OpOr, append([]BoolExpr{b}, others...))
}

// Not negates b. An absent predicate stays absent.
func (b BoolExpr) Not() BoolExpr {
	if b.Absent() {
		return b
	}
	if b.err != nil {
		return b
	}
	n, err := queryir.NewNot(b.x)
	return BoolExpr{wrap(n, err)}
}

func (b BoolExpr) Eq(o BoolExpr) BoolExpr { return compare(queryir.OpEq, b, o) }
func (b BoolExpr) Ne(o BoolExpr) BoolExpr { return compare(queryir.OpNe, b, o) }

func (b BoolExpr) IsTrue() BoolExpr  { return b.Eq(Bool(true)) }
func (b BoolExpr) IsFalse() BoolExpr { return b.Eq(Bool(false)) }

func (b BoolExpr) IsNull() BoolExpr    { return isNull(b, false) }
func (b BoolExpr) IsNotNull() BoolExpr { return isNull(b, true) }

func (b BoolExpr) Asc() Order  { return order(b, false) }
func (b BoolExpr) Desc() Order { return order(b, true) }

// And combines predicates, dropping absent ones. With nothing left the
// result is absent.
func And(ps ...BoolExpr) BoolExpr { return logical(queryir.OpAnd, ps) }

// Or combines predicates with the same absent handling as And.
func Or(ps ...BoolExpr) BoolExpr { return logical(queryir.OpOr, ps) }

// Not negates p.
func Not(p BoolExpr) BoolExpr { return p.Not() }

func logical(op queryir.LogicalOp, ps []BoolExpr) BoolExpr {
	xs, err := predicates(ps)
	if err != nil {
		return BoolExpr{base{err: err}}
	}
	x, err := queryir.NewLogical(op, xs...)
	return BoolExpr{wrap(x, err)}
}

// predicates returns the trees of the present predicates in ps.
func predicates(ps []BoolExpr) ([]queryir.Expr, error) {
	var xs []queryir.Expr
	for _, p := range ps {
		if p.err != nil {
			return nil, p.err
		}
		if p.x != nil {
			xs = append(xs, p.x)
		}
	}
	return xs, nil
}
