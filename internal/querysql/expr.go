package querysql

import (
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/queryir"
)

// lit wraps any expression as a literal so every node exposes the same
// comparison and ordering methods.
func lit(e exp.Expression) exp.LiteralExpression {
	return goqu.L("?", e)
}

// expr converts a queryir expression into a goqu expression.
func (b *builder) expr(e queryir.Expr) (exp.Expression, error) {
	switch n := e.(type) {
	case queryir.Path:
		return goqu.T(n.SourceAlias()).Col(n.Field.Column), nil

	case queryir.EntityRef:
		// An entity used as an operand stands for its identity
		alias, column := n.IdentityColumn()
		return goqu.T(alias).Col(column), nil

	case queryir.Literal:
		if ir.IsNull(n.Value) {
			return goqu.L("NULL"), nil
		}
		return goqu.V(ir.ToParam(n.Value)), nil

	case queryir.Compare:
		return b.compare(n)

	case queryir.Between:
		x, lo, hi, err := b.expr3(n.X, n.Lo, n.Hi)
		if err != nil {
			return nil, err
		}
		return lit(x).Between(goqu.Range(lo, hi)), nil

	case queryir.In:
		return b.in(n)

	case queryir.IsNull:
		x, err := b.expr(n.X)
		if err != nil {
			return nil, err
		}
		// Prepared goqu binds the NULL of IS NULL as a parameter, which
		// PostgreSQL rejects
		if n.Negated {
			return goqu.L("? IS NOT NULL", x), nil
		}
		return goqu.L("? IS NULL", x), nil

	case queryir.Like:
		x, err := b.expr(n.X)
		if err != nil {
			return nil, err
		}
		pattern, err := b.expr(n.Pattern)
		if err != nil {
			return nil, err
		}
		return lit(x).Like(pattern), nil

	case queryir.Logical:
		operands, err := b.exprs(n.Operands)
		if err != nil {
			return nil, err
		}
		if n.Op == queryir.OpOr {
			return goqu.Or(operands...), nil
		}
		return goqu.And(operands...), nil

	case queryir.Not:
		x, err := b.expr(n.X)
		if err != nil {
			return nil, err
		}
		return goqu.L("NOT (?)", x), nil

	case queryir.Arith:
		l, err := b.expr(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := b.expr(n.Right)
		if err != nil {
			return nil, err
		}
		return goqu.L(fmt.Sprintf("(? %s ?)", n.Op), l, r), nil

	case queryir.Concat:
		return b.concat(n)

	case queryir.Case:
		return b.caseExpr(n)

	case queryir.Aggregate:
		return b.aggregate(n)

	case queryir.Subquery:
		return b.subquery(n.Query)

	default:
		return nil, fmt.Errorf("unsupported expression type: %T", e)
	}
}

func (b *builder) exprs(in []queryir.Expr) ([]exp.Expression, error) {
	out := make([]exp.Expression, 0, len(in))
	for _, e := range in {
		x, err := b.expr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func (b *builder) expr3(a, c, d queryir.Expr) (exp.Expression, exp.Expression, exp.Expression, error) {
	xs, err := b.exprs([]queryir.Expr{a, c, d})
	if err != nil {
		return nil, nil, nil, err
	}
	return xs[0], xs[1], xs[2], nil
}

func (b *builder) compare(n queryir.Compare) (exp.Expression, error) {
	l, err := b.expr(n.Left)
	if err != nil {
		return nil, err
	}
	r, err := b.expr(n.Right)
	if err != nil {
		return nil, err
	}

	left := lit(l)
	switch n.Op {
	case queryir.OpEq:
		return left.Eq(r), nil
	case queryir.OpNe:
		return left.Neq(r), nil
	case queryir.OpGt:
		return left.Gt(r), nil
	case queryir.OpGoe:
		return left.Gte(r), nil
	case queryir.OpLt:
		return left.Lt(r), nil
	case queryir.OpLoe:
		return left.Lte(r), nil
	default:
		return nil, fmt.Errorf("unsupported comparison operator %q", n.Op)
	}
}

// in renders list and subquery membership. An empty list is constant:
// IN () matches nothing and NOT IN () matches everything.
func (b *builder) in(n queryir.In) (exp.Expression, error) {
	x, err := b.expr(n.X)
	if err != nil {
		return nil, err
	}

	keyword := "IN"
	if n.Negated {
		keyword = "NOT IN"
	}

	if n.Sub != nil {
		sub, err := b.subquery(n.Sub)
		if err != nil {
			return nil, err
		}
		return goqu.L("? "+keyword+" ?", x, sub), nil
	}

	if len(n.List) == 0 {
		if n.Negated {
			return goqu.L("1 = 1"), nil
		}
		return goqu.L("1 = 0"), nil
	}

	items, err := b.exprs(n.List)
	if err != nil {
		return nil, err
	}
	args := make([]any, 0, len(items)+1)
	args = append(args, x)
	for _, it := range items {
		args = append(args, it)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(items)), ", ")
	return goqu.L("? "+keyword+" ("+placeholders+")", args...), nil
}

// concat casts every part to text so numeric operands concatenate with
// their string representation on every dialect.
func (b *builder) concat(n queryir.Concat) (exp.Expression, error) {
	parts, err := b.exprs(n.Parts)
	if err != nil {
		return nil, err
	}
	args := make([]any, 0, len(parts))
	pieces := make([]string, 0, len(parts))
	for _, p := range parts {
		args = append(args, p)
		pieces = append(pieces, "CAST(? AS TEXT)")
	}
	return goqu.L("("+strings.Join(pieces, " || ")+")", args...), nil
}

func (b *builder) caseExpr(n queryir.Case) (exp.Expression, error) {
	ce := goqu.Case()
	for _, w := range n.Whens {
		cond, err := b.expr(w.Cond)
		if err != nil {
			return nil, err
		}
		result, err := b.expr(w.Result)
		if err != nil {
			return nil, err
		}
		ce = ce.When(cond, result)
	}
	els, err := b.expr(n.Else)
	if err != nil {
		return nil, err
	}
	return ce.Else(els), nil
}

func (b *builder) aggregate(n queryir.Aggregate) (exp.Expression, error) {
	arg, err := b.expr(n.Arg)
	if err != nil {
		return nil, err
	}
	switch n.Func {
	case queryir.AggCount:
		return goqu.COUNT(arg), nil
	case queryir.AggCountDistinct:
		return goqu.L("COUNT(DISTINCT ?)", arg), nil
	case queryir.AggSum:
		return goqu.SUM(arg), nil
	case queryir.AggAvg:
		return goqu.AVG(arg), nil
	case queryir.AggMax:
		return goqu.MAX(arg), nil
	case queryir.AggMin:
		return goqu.MIN(arg), nil
	default:
		return nil, fmt.Errorf("unsupported aggregate %q", n.Func)
	}
}
