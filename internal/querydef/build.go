package querydef

import (
	"fmt"
	"strings"

	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/queryir"
)

// Build resolves d against schema.
func (d *Definition) Build(schema *ir.Schema) (*queryir.Select, error) {
	if schema == nil {
		return nil, fmt.Errorf("build query definition: no schema")
	}
	b := &builder{schema: schema, scope: make(map[string]*ir.Entity)}
	return b.build(d)
}

// builder resolves items against the aliases bound so far. A nested
// builder sees its parent's aliases for correlated references.
type builder struct {
	schema *ir.Schema
	scope  map[string]*ir.Entity
	parent *builder
}

func (b *builder) nested() *builder {
	return &builder{schema: b.schema, scope: make(map[string]*ir.Entity), parent: b}
}

func (b *builder) lookup(alias string) (*ir.Entity, bool) {
	for s := b; s != nil; s = s.parent {
		if e, ok := s.scope[alias]; ok {
			return e, true
		}
	}
	return nil, false
}

func (b *builder) bind(field, alias string, e *ir.Entity) error {
	if _, ok := b.scope[alias]; ok {
		return &Error{Field: field, Message: fmt.Sprintf("alias %q is already bound", alias)}
	}
	b.scope[alias] = e
	return nil
}

func (b *builder) build(d *Definition) (*queryir.Select, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	sel := &queryir.Select{Distinct: d.Distinct, Offset: d.Offset, Limit: d.Limit}

	for i, s := range d.From {
		field := fmt.Sprintf("from[%d]", i)
		e, ok := b.schema.Entity(s.Entity)
		if !ok {
			return nil, &Error{Field: field, Message: fmt.Sprintf("unknown entity %q", s.Entity)}
		}
		if err := b.bind(field, s.As, e); err != nil {
			return nil, err
		}
		sel.From = append(sel.From, queryir.Source{Entity: e, Alias: s.As})
	}

	for i, j := range d.Joins {
		join, err := b.join(fmt.Sprintf("joins[%d]", i), j)
		if err != nil {
			return nil, err
		}
		sel.Joins = append(sel.Joins, join)
	}

	for i, item := range d.Select {
		x, err := b.item(item)
		if err != nil {
			return nil, fmt.Errorf("select[%d]: %w", i, err)
		}
		sel.Projections = append(sel.Projections, x)
	}

	var err error
	if sel.Where, err = b.conditions("where", d.Where); err != nil {
		return nil, err
	}
	for i, item := range d.GroupBy {
		x, err := b.item(item)
		if err != nil {
			return nil, fmt.Errorf("group_by[%d]: %w", i, err)
		}
		sel.GroupBy = append(sel.GroupBy, x)
	}
	if sel.Having, err = b.conditions("having", d.Having); err != nil {
		return nil, err
	}

	for i, o := range d.OrderBy {
		x, err := b.item(o.By)
		if err != nil {
			return nil, fmt.Errorf("order_by[%d]: %w", i, err)
		}
		key := queryir.OrderKey{Expr: x, Desc: o.Dir == "desc"}
		switch o.Nulls {
		case "first":
			key.Nulls = queryir.NullsFirst
		case "last":
			key.Nulls = queryir.NullsLast
		}
		sel.OrderBy = append(sel.OrderBy, key)
	}

	return sel, nil
}

func (b *builder) join(field string, j Join) (queryir.Join, error) {
	kind := queryir.JoinInner
	if j.Kind == "left" {
		kind = queryir.JoinLeft
	}
	join := queryir.Join{Kind: kind, Fetch: j.Fetch}

	if j.Entity != "" {
		e, ok := b.schema.Entity(j.Entity)
		if !ok {
			return join, &Error{Field: field, Message: fmt.Sprintf("unknown entity %q", j.Entity)}
		}
		join.Target = queryir.Source{Entity: e, Alias: j.As}
	} else {
		segs := strings.Split(j.Path, ".")
		root, ok := b.lookup(segs[0])
		if !ok || len(segs) < 2 {
			return join, &Error{Field: field, Message: fmt.Sprintf("path %q must start at a bound alias and name an association", j.Path)}
		}
		steps, err := queryir.Navigate(b.schema, root, segs[1:]...)
		if err != nil {
			return join, fmt.Errorf("%s: %w", field, err)
		}
		last := steps[len(steps)-1]
		assoc := last.Association
		join.Owner = queryir.ImplicitAlias(segs[0], steps[:len(steps)-1])
		join.Association = &assoc
		join.Target = queryir.Source{Entity: last.Target, Alias: j.As}
	}

	if err := b.bind(field, j.As, join.Target.Entity); err != nil {
		return join, err
	}
	on, err := b.conditions(field+".on", j.On)
	if err != nil {
		return join, err
	}
	join.On = on
	return join, nil
}

// item resolves alias, alias.path or fn(item).
func (b *builder) item(s string) (queryir.Expr, error) {
	s = strings.TrimSpace(s)
	if open := strings.IndexByte(s, '('); open > 0 && strings.HasSuffix(s, ")") {
		fn, err := queryir.ParseAggFunc(strings.TrimSpace(s[:open]))
		if err != nil {
			return nil, &Error{Field: s, Message: err.Error()}
		}
		arg, err := b.item(s[open+1 : len(s)-1])
		if err != nil {
			return nil, err
		}
		return node(queryir.NewAggregate(fn, arg))
	}

	segs := strings.Split(s, ".")
	root, ok := b.lookup(segs[0])
	if !ok {
		return nil, &Error{Field: s, Message: fmt.Sprintf("unknown alias %q", segs[0])}
	}
	return queryir.ResolvePath(b.schema, root, segs[0], segs[1:]...)
}

func (b *builder) conditions(field string, cs []Condition) (queryir.Expr, error) {
	preds := make([]queryir.Expr, 0, len(cs))
	for i, c := range cs {
		p, err := b.condition(c)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		preds = append(preds, p)
	}
	return queryir.Conjoin(preds...), nil
}

func (b *builder) condition(c Condition) (queryir.Expr, error) {
	switch {
	case len(c.Or) > 0:
		preds := make([]queryir.Expr, 0, len(c.Or))
		for i, o := range c.Or {
			p, err := b.condition(o)
			if err != nil {
				return nil, fmt.Errorf("or[%d]: %w", i, err)
			}
			preds = append(preds, p)
		}
		return queryir.NewLogical(queryir.OpOr, preds...)
	case c.Not != nil:
		p, err := b.condition(*c.Not)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return node(queryir.NewNot(p))
	}

	if c.Left == "" || c.Op == "" {
		return nil, &Error{Field: "condition", Message: "left and op are required"}
	}
	left, err := b.item(c.Left)
	if err != nil {
		return nil, err
	}

	switch c.Op {
	case OpEq, OpNe, OpGt, OpGoe, OpLt, OpLoe:
		right, err := b.operand(c)
		if err != nil {
			return nil, err
		}
		return node(queryir.NewCompare(queryir.CompareOp(c.Op), left, right))

	case OpBetween:
		if len(c.Values) != 2 {
			return nil, &Error{Field: c.Left, Message: "between needs exactly two values"}
		}
		lo, err := literal(c.Values[0])
		if err != nil {
			return nil, err
		}
		hi, err := literal(c.Values[1])
		if err != nil {
			return nil, err
		}
		return node(queryir.NewBetween(left, lo, hi))

	case OpIn, OpNotIn:
		negated := c.Op == OpNotIn
		if c.Query != nil {
			sub, err := b.nested().build(c.Query)
			if err != nil {
				return nil, fmt.Errorf("query: %w", err)
			}
			return node(queryir.NewInSubquery(left, sub, negated))
		}
		list := make([]queryir.Expr, 0, len(c.Values))
		for _, v := range c.Values {
			x, err := literal(v)
			if err != nil {
				return nil, err
			}
			list = append(list, x)
		}
		return node(queryir.NewIn(left, list, negated))

	case OpIsNull, OpIsNotNull:
		return node(queryir.NewIsNull(left, c.Op == OpIsNotNull))

	case OpLike:
		pattern, ok := c.Value.(string)
		if !ok {
			return nil, &Error{Field: c.Left, Message: "like needs a string value"}
		}
		return node(queryir.NewLike(left, queryir.Lit(ir.String(pattern))))

	default:
		return nil, &Error{Field: c.Left, Message: fmt.Sprintf("unknown operator %q", c.Op)}
	}
}

// operand returns the right side of a comparison.
func (b *builder) operand(c Condition) (queryir.Expr, error) {
	switch {
	case c.Right != "":
		return b.item(c.Right)
	case c.Query != nil:
		sub, err := b.nested().build(c.Query)
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		return node(queryir.NewSubquery(sub))
	case c.Value != nil:
		return literal(c.Value)
	default:
		return nil, &Error{Field: c.Left, Message: fmt.Sprintf("%s needs right, value or query; use is_null for null", c.Op)}
	}
}

func literal(v any) (queryir.Expr, error) {
	val, err := ir.FromGo(v)
	if err != nil {
		return nil, &Error{Field: "value", Message: err.Error()}
	}
	return queryir.Lit(val), nil
}

// node returns a constructor result as an Expr, nil on error.
func node[E queryir.Expr](x E, err error) (queryir.Expr, error) {
	if err != nil {
		return nil, err
	}
	return x, nil
}
