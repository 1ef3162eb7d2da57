package queryir

import (
	"fmt"

	"github.com/bitfox-hash/querydsl/internal/ir"
)

// Navigate resolves a chain of association names starting at root.
func Navigate(schema *ir.Schema, root *ir.Entity, assocs ...string) ([]Step, error) {
	var steps []Step
	current := root
	for _, name := range assocs {
		assoc, ok := current.Association(name)
		if !ok {
			return nil, typeErr("path", ir.TypeEntity, ir.TypeNull,
				"entity %s has no association %q", current.Name, name)
		}
		target, ok := schema.Entity(assoc.Target)
		if !ok {
			return nil, typeErr("path", ir.TypeEntity, ir.TypeNull,
				"association %s.%s targets unregistered entity %q", current.Name, name, assoc.Target)
		}
		steps = append(steps, Step{Association: assoc, Target: target})
		current = target
	}
	return steps, nil
}

// NewPath builds a field path. The field must belong to the entity reached
// after via.
func NewPath(root *ir.Entity, alias string, via []Step, field string) (Path, error) {
	if root == nil {
		return Path{}, typeErr("path", ir.TypeNull, ir.TypeNull, "alias %q has no entity", alias)
	}
	owner := leafEntity(root, via)
	f, ok := owner.Field(field)
	if !ok {
		return Path{}, typeErr("path", ir.TypeEntity, ir.TypeNull,
			"entity %s has no field %q", owner.Name, field)
	}
	return Path{Alias: alias, Root: root, Via: via, Field: f}, nil
}

// NewEntityRef builds a reference to the entity bound to alias, or reached
// from it through via.
func NewEntityRef(root *ir.Entity, alias string, via []Step) EntityRef {
	return EntityRef{Alias: alias, Root: root, Via: via}
}

// ResolvePath resolves dotted segments after an alias. Every segment but the
// last must be an association. The last is a field (yielding a Path) or an
// association (yielding an EntityRef). No segments yields the alias itself.
func ResolvePath(schema *ir.Schema, root *ir.Entity, alias string, segments ...string) (Expr, error) {
	if len(segments) == 0 {
		return NewEntityRef(root, alias, nil), nil
	}

	via, err := Navigate(schema, root, segments[:len(segments)-1]...)
	if err != nil {
		return nil, err
	}

	last := segments[len(segments)-1]
	owner := leafEntity(root, via)
	if _, ok := owner.Field(last); ok {
		return NewPath(root, alias, via, last)
	}
	if _, ok := owner.Association(last); ok {
		full, err := Navigate(schema, root, segments...)
		if err != nil {
			return nil, err
		}
		return NewEntityRef(root, alias, full), nil
	}
	return nil, typeErr("path", ir.TypeEntity, ir.TypeNull,
		"entity %s has no field or association %q", owner.Name, last)
}

// Lit wraps a value as a literal operand.
func Lit(v ir.Value) Literal {
	if v == nil {
		v = ir.Null{}
	}
	return Literal{Value: v}
}

// compatible reports whether two scalar types can be compared: equal, both
// numeric, or either side NULL.
func compatible(a, b ir.Type) bool {
	if a == ir.TypeNull || b == ir.TypeNull {
		return true
	}
	if a == b {
		return true
	}
	return a.IsNumeric() && b.IsNumeric()
}

func typeOf(e Expr) ir.Type {
	if e == nil {
		return ir.TypeNull
	}
	return e.Type()
}

// NewCompare builds Left <op> Right. Entities may only be tested for
// (in)equality with a reference to the same entity, which compares identities.
func NewCompare(op CompareOp, left, right Expr) (Compare, error) {
	name := string(op)
	if left == nil || right == nil {
		return Compare{}, typeErr(name, typeOf(left), typeOf(right), "missing operand")
	}
	if !validCompareOp(op) {
		return Compare{}, typeErr(name, left.Type(), right.Type(), "unknown comparison operator")
	}

	lt, rt := left.Type(), right.Type()
	if lt == ir.TypeEntity || rt == ir.TypeEntity {
		lr, lok := left.(EntityRef)
		rr, rok := right.(EntityRef)
		if !lok || !rok || lr.Entity().Name != rr.Entity().Name {
			return Compare{}, typeErr(name, lt, rt, "entities can only be compared with the same entity")
		}
		if op != OpEq && op != OpNe {
			return Compare{}, typeErr(name, lt, rt, "entities only support eq and ne")
		}
		return Compare{Op: op, Left: left, Right: right}, nil
	}

	if !compatible(lt, rt) {
		return Compare{}, typeErr(name, lt, rt, "cannot compare %s with %s", lt, rt)
	}
	return Compare{Op: op, Left: left, Right: right}, nil
}

func validCompareOp(op CompareOp) bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGoe, OpLt, OpLoe:
		return true
	}
	return false
}

// NewBetween builds X BETWEEN Lo AND Hi.
func NewBetween(x, lo, hi Expr) (Between, error) {
	if x == nil || lo == nil || hi == nil {
		return Between{}, typeErr("between", typeOf(x), typeOf(lo), "missing operand")
	}
	xt := x.Type()
	if !xt.IsScalar() || xt == ir.TypeBool {
		return Between{}, typeErr("between", xt, ir.TypeNull, "between needs a numeric or string operand, got %s", xt)
	}
	for _, bound := range []Expr{lo, hi} {
		if !bound.Type().IsScalar() || !compatible(xt, bound.Type()) {
			return Between{}, typeErr("between", xt, bound.Type(), "cannot bound %s by %s", xt, bound.Type())
		}
	}
	return Between{X: x, Lo: lo, Hi: hi}, nil
}

// NewIn builds X [NOT] IN (list...). An empty list is allowed and matches
// nothing (or everything when negated).
func NewIn(x Expr, list []Expr, negated bool) (In, error) {
	if x == nil {
		return In{}, typeErr("in", ir.TypeNull, ir.TypeNull, "missing operand")
	}
	if !x.Type().IsScalar() {
		return In{}, typeErr("in", x.Type(), ir.TypeNull, "in needs a scalar operand")
	}
	for i, item := range list {
		if item == nil || !item.Type().IsScalar() || !compatible(x.Type(), item.Type()) {
			return In{}, typeErr("in", x.Type(), typeOf(item), "list item %d is not compatible with %s", i, x.Type())
		}
	}
	return In{X: x, List: append([]Expr(nil), list...), Negated: negated}, nil
}

// NewInSubquery builds X [NOT] IN (SELECT ...). The subquery must project
// exactly one column of a compatible type.
func NewInSubquery(x Expr, sub *Select, negated bool) (In, error) {
	if x == nil {
		return In{}, typeErr("in", ir.TypeNull, ir.TypeNull, "missing operand")
	}
	sq, err := NewSubquery(sub)
	if err != nil {
		return In{}, err
	}
	if !x.Type().IsScalar() || !compatible(x.Type(), sq.Type()) {
		return In{}, typeErr("in", x.Type(), sq.Type(), "cannot test %s membership in %s subquery", x.Type(), sq.Type())
	}
	return In{X: x, Sub: sub, Negated: negated}, nil
}

// NewIsNull builds X IS [NOT] NULL.
func NewIsNull(x Expr, negated bool) (IsNull, error) {
	if x == nil {
		return IsNull{}, typeErr("is_null", ir.TypeNull, ir.TypeNull, "missing operand")
	}
	return IsNull{X: x, Negated: negated}, nil
}

// NewLike builds X LIKE Pattern over strings.
func NewLike(x, pattern Expr) (Like, error) {
	if typeOf(x) != ir.TypeString || typeOf(pattern) != ir.TypeString {
		return Like{}, typeErr("like", typeOf(x), typeOf(pattern), "like needs string operands")
	}
	return Like{X: x, Pattern: pattern}, nil
}

// NewLogical combines boolean operands. Nil operands are dropped; the result
// is nil when none remain and the operand itself when one remains.
func NewLogical(op LogicalOp, operands ...Expr) (Expr, error) {
	if op != OpAnd && op != OpOr {
		return nil, typeErr(string(op), ir.TypeNull, ir.TypeNull, "unknown logical operator")
	}
	for i, o := range operands {
		if o != nil && o.Type() != ir.TypeBool {
			return nil, typeErr(string(op), o.Type(), ir.TypeBool, "operand %d is %s, not bool", i, o.Type())
		}
	}
	return fold(op, operands), nil
}

// NewNot negates a boolean operand.
func NewNot(x Expr) (Not, error) {
	if typeOf(x) != ir.TypeBool {
		return Not{}, typeErr("not", typeOf(x), ir.TypeBool, "not needs a bool operand")
	}
	return Not{X: x}, nil
}

// NewArith builds Left <op> Right. Int op Int stays Int; anything involving
// a Decimal is Decimal.
func NewArith(op ArithOp, left, right Expr) (Arith, error) {
	name := string(op)
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv:
	default:
		return Arith{}, typeErr(name, typeOf(left), typeOf(right), "unknown arithmetic operator")
	}
	lt, rt := typeOf(left), typeOf(right)
	if left == nil || right == nil {
		return Arith{}, typeErr(name, lt, rt, "missing operand")
	}
	numericOrNull := func(t ir.Type) bool { return t.IsNumeric() || t == ir.TypeNull }
	if !numericOrNull(lt) || !numericOrNull(rt) {
		return Arith{}, typeErr(name, lt, rt, "arithmetic needs numeric operands, got %s and %s", lt, rt)
	}

	result := ir.TypeInt
	if lt == ir.TypeDecimal || rt == ir.TypeDecimal {
		result = ir.TypeDecimal
	}
	return Arith{Op: op, Left: left, Right: right, Result: result}, nil
}

// NewConcat joins parts as text. Non-string scalar parts are converted.
func NewConcat(parts ...Expr) (Concat, error) {
	if len(parts) == 0 {
		return Concat{}, typeErr("concat", ir.TypeNull, ir.TypeNull, "concat needs at least one part")
	}
	for i, p := range parts {
		if p == nil || !p.Type().IsScalar() {
			return Concat{}, typeErr("concat", typeOf(p), ir.TypeString, "part %d is not a scalar", i)
		}
	}

	// Nested concatenations are flattened
	var flat []Expr
	for _, p := range parts {
		if c, ok := p.(Concat); ok {
			flat = append(flat, c.Parts...)
			continue
		}
		flat = append(flat, p)
	}
	return Concat{Parts: flat}, nil
}

// NewCase builds a searched CASE. At least one branch and an otherwise
// result are required; all results must be mutually compatible scalars.
func NewCase(whens []When, otherwise Expr) (Case, error) {
	if len(whens) == 0 {
		return Case{}, typeErr("case", ir.TypeNull, ir.TypeNull, "case needs at least one when branch")
	}
	if otherwise == nil {
		return Case{}, typeErr("case", ir.TypeNull, ir.TypeNull, "case needs an otherwise branch")
	}

	result := ir.TypeNull
	results := make([]Expr, 0, len(whens)+1)
	for i, w := range whens {
		if typeOf(w.Cond) != ir.TypeBool {
			return Case{}, typeErr("case", typeOf(w.Cond), ir.TypeBool, "when %d condition is not bool", i)
		}
		if w.Result == nil {
			return Case{}, typeErr("case", ir.TypeNull, ir.TypeNull, "when %d has no result", i)
		}
		results = append(results, w.Result)
	}
	results = append(results, otherwise)

	for i, r := range results {
		rt := r.Type()
		if !rt.IsScalar() {
			return Case{}, typeErr("case", rt, result, "result %d is not a scalar", i)
		}
		if !compatible(result, rt) {
			return Case{}, typeErr("case", result, rt, "result %d is %s, earlier results are %s", i, rt, result)
		}
		result = widen(result, rt)
	}

	return Case{Whens: append([]When(nil), whens...), Else: otherwise, Result: result}, nil
}

func widen(a, b ir.Type) ir.Type {
	switch {
	case a == ir.TypeNull:
		return b
	case b == ir.TypeNull:
		return a
	case a == ir.TypeDecimal || b == ir.TypeDecimal:
		return ir.TypeDecimal
	default:
		return a
	}
}

// NewAggregate applies fn to arg. Result types: count -> Int,
// sum -> operand type, avg -> Decimal, max/min -> operand type.
func NewAggregate(fn AggFunc, arg Expr) (Aggregate, error) {
	name := string(fn)
	if arg == nil {
		return Aggregate{}, typeErr(name, ir.TypeNull, ir.TypeNull, "missing operand")
	}
	if ContainsAggregate(arg) {
		return Aggregate{}, typeErr(name, arg.Type(), ir.TypeNull, "aggregates cannot be nested")
	}

	at := arg.Type()
	switch fn {
	case AggCount, AggCountDistinct:
		return Aggregate{Func: fn, Arg: arg, Result: ir.TypeInt}, nil
	case AggSum:
		if !at.IsNumeric() {
			return Aggregate{}, typeErr(name, at, ir.TypeNull, "sum needs a numeric operand, got %s", at)
		}
		return Aggregate{Func: fn, Arg: arg, Result: at}, nil
	case AggAvg:
		if !at.IsNumeric() {
			return Aggregate{}, typeErr(name, at, ir.TypeNull, "avg needs a numeric operand, got %s", at)
		}
		return Aggregate{Func: fn, Arg: arg, Result: ir.TypeDecimal}, nil
	case AggMax, AggMin:
		if !at.IsNumeric() && at != ir.TypeString {
			return Aggregate{}, typeErr(name, at, ir.TypeNull, "%s needs a numeric or string operand, got %s", fn, at)
		}
		return Aggregate{Func: fn, Arg: arg, Result: at}, nil
	default:
		return Aggregate{}, typeErr(name, at, ir.TypeNull, "unknown aggregate function")
	}
}

// ParseAggFunc maps a function name to an AggFunc.
func ParseAggFunc(name string) (AggFunc, error) {
	switch fn := AggFunc(name); fn {
	case AggCount, AggCountDistinct, AggSum, AggAvg, AggMax, AggMin:
		return fn, nil
	}
	return "", fmt.Errorf("unknown aggregate function %q", name)
}

// NewSubquery wraps sel as an expression. It must project exactly one
// scalar column.
func NewSubquery(sel *Select) (Subquery, error) {
	if sel == nil {
		return Subquery{}, typeErr("subquery", ir.TypeNull, ir.TypeNull, "missing subquery")
	}
	if len(sel.Projections) != 1 {
		return Subquery{}, typeErr("subquery", ir.TypeNull, ir.TypeNull,
			"subquery must project exactly one column, got %d", len(sel.Projections))
	}
	if sel.Projections[0] == nil || !sel.Projections[0].Type().IsScalar() {
		return Subquery{}, typeErr("subquery", typeOf(sel.Projections[0]), ir.TypeNull,
			"subquery must project a scalar column")
	}
	return Subquery{Query: sel}, nil
}
