package query

import (
	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/queryir"
)

// CaseBuilder composes a CASE expression.
//
//	query.Case().
//		When(m.Age.Lt(query.Int(18))).Then(query.String("minor")).
//		Otherwise(query.String("adult")).AsString()
//
//	m.Age.When(query.Int(10)).Then(query.String("A")).
//		When(query.Int(20)).Then(query.String("B")).
//		Otherwise(query.String("C")).AsString()
type CaseBuilder struct {
	operand Expression // set for a simple case
	whens   []queryir.When
	err     error
}

// CaseWhen is a branch waiting for its result.
type CaseWhen struct {
	b    *CaseBuilder
	cond queryir.Expr
}

// Case starts a searched case whose branches are predicates.
func Case() *CaseBuilder { return &CaseBuilder{} }

func simpleCase(x Expression) *CaseBuilder {
	return &CaseBuilder{operand: x, err: firstErr(x)}
}

// When adds a branch. For a searched case e is a predicate; for a simple
// case it is a value compared with the case operand.
func (c *CaseBuilder) When(e Expression) *CaseWhen {
	w := &CaseWhen{b: c}
	if c.err != nil {
		return w
	}
	if err := firstErr(e); err != nil {
		c.err = err
		return w
	}

	if c.operand == nil {
		w.cond = e.IR()
		return w
	}

	eq := compare(queryir.OpEq, c.operand, e)
	if eq.err != nil {
		c.err = eq.err
		return w
	}
	w.cond = eq.x
	return w
}

// Then sets the branch result.
func (w *CaseWhen) Then(e Expression) *CaseBuilder {
	c := w.b
	if c.err != nil {
		return c
	}
	if err := firstErr(e); err != nil {
		c.err = err
		return c
	}
	c.whens = append(c.whens, queryir.When{Cond: w.cond, Result: e.IR()})
	return c
}

// Otherwise sets the result when no branch matches and completes the case.
func (c *CaseBuilder) Otherwise(e Expression) CaseExpr {
	if c.err != nil {
		return CaseExpr{base{err: c.err}}
	}
	if err := firstErr(e); err != nil {
		return CaseExpr{base{err: err}}
	}
	x, err := queryir.NewCase(c.whens, e.IR())
	return CaseExpr{wrap(x, err)}
}

// CaseExpr is a completed case. Its result type is the common type of its
// branches; the As methods view it as a typed expression.
type CaseExpr struct{ base }

// AsString returns the case as text. Non-text results are a type error.
func (c CaseExpr) AsString() StringExpr {
	return StringExpr{c.as(ir.TypeString)}
}

// AsNumber returns the case as a number.
func (c CaseExpr) AsNumber() NumberExpr {
	return NumberExpr{c.as(ir.TypeInt, ir.TypeDecimal)}
}

// AsBool returns the case as a predicate.
func (c CaseExpr) AsBool() BoolExpr {
	return BoolExpr{c.as(ir.TypeBool)}
}

func (c CaseExpr) as(want ...ir.Type) base {
	if c.err != nil {
		return c.base
	}
	got := c.x.Type()
	if got == ir.TypeNull {
		return c.base
	}
	for _, t := range want {
		if got == t {
			return c.base
		}
	}
	return base{err: &queryir.TypeError{
		Op:      "case",
		Left:    got,
		Right:   want[0],
		Message: "case result is " + got.String() + ", not " + want[0].String(),
	}}
}
