package querysql

import (
	"fmt"
	"math"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the postgres dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // registers the sqlite3 dialect
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/queryir"
)

// Supported dialect names.
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// Plan is a compiled query: SQL text, the bound parameters in placeholder
// order, and the shape used to decode each result row.
type Plan struct {
	SQL    string
	Params []any
	Shape  []Projection

	// AbsentIfNull marks a grouping-free query that projects only sum, avg,
	// max or min. Its single SQL row is all NULL when no input rows match,
	// which callers report as no result.
	AbsentIfNull bool
}

// Columns returns the total number of SQL columns a row of the plan holds.
func (p *Plan) Columns() int {
	n := 0
	for _, s := range p.Shape {
		n += s.Width()
	}
	return n
}

// Projection describes one projected expression of a plan.
type Projection struct {
	Key       string           // queryir.Key of the projected expression
	Type      ir.Type          // static type; TypeEntity when Entity is set
	Entity    *EntityShape     // column layout of an entity projection
	Aggregate queryir.AggFunc  // set when the projection is a bare aggregate
}

// Width returns the number of SQL columns the projection spans.
func (p Projection) Width() int {
	if p.Entity != nil {
		return p.Entity.Width()
	}
	return 1
}

// EntityShape is the column layout of a projected entity: its fields in
// declaration order, then its foreign keys, then each eagerly fetched
// association in join order.
type EntityShape struct {
	Entity      *ir.Entity
	Alias       string
	Fields      []ir.Field
	ForeignKeys []ir.Association
	Fetched     []FetchedShape
}

// FetchedShape is an association resolved by a fetch join.
type FetchedShape struct {
	Association string
	Shape       *EntityShape
}

// Width returns the number of SQL columns the shape spans.
func (s *EntityShape) Width() int {
	n := len(s.Fields) + len(s.ForeignKeys)
	for _, f := range s.Fetched {
		n += f.Shape.Width()
	}
	return n
}

// Compiler compiles queryir selects into parameterized SQL for one dialect.
//
// CRITICAL: every literal is a bound parameter. Plans are rendered in goqu's
// prepared mode so no value is ever interpolated into the SQL text.
type Compiler struct {
	name    string
	dialect goqu.DialectWrapper
}

// NewCompiler creates a Compiler for "sqlite3" or "postgres".
func NewCompiler(dialect string) (*Compiler, error) {
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return &Compiler{name: dialect, dialect: goqu.Dialect(dialect)}, nil
}

// Dialect returns the dialect name.
func (c *Compiler) Dialect() string { return c.name }

// Compile validates sel and converts it to a Plan.
func (c *Compiler) Compile(sel *queryir.Select) (*Plan, error) {
	if err := queryir.Validate(sel); err != nil {
		return nil, err
	}

	b := &builder{c: c, sel: sel}
	ds, shape, err := b.dataset(false)
	if err != nil {
		return nil, err
	}

	sql, params, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build sql: %w", err)
	}

	return &Plan{
		SQL:          sql,
		Params:       params,
		Shape:        shape,
		AbsentIfNull: absentIfNull(sel),
	}, nil
}

// CompileCount validates sel and converts it to a plan that counts its rows.
// Ordering, offset and limit are ignored. Plain queries count in place;
// distinct, grouped or aggregating queries are counted as a derived table.
func (c *Compiler) CompileCount(sel *queryir.Select) (*Plan, error) {
	if err := queryir.Validate(sel); err != nil {
		return nil, err
	}

	inner := sel.Clone()
	inner.OrderBy = nil
	inner.Offset = nil
	inner.Limit = nil

	b := &builder{c: c, sel: inner}
	count := goqu.COUNT(goqu.Star())

	var ds *goqu.SelectDataset
	if !inner.Distinct && len(inner.GroupBy) == 0 && !inner.HasAggregate() {
		base, _, err := b.dataset(false)
		if err != nil {
			return nil, err
		}
		ds = base.Select(count)
	} else {
		derived, _, err := b.dataset(true)
		if err != nil {
			return nil, err
		}
		ds = c.dialect.From(derived.As("q")).Select(count)
	}

	sql, params, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build count sql: %w", err)
	}

	return &Plan{
		SQL:    sql,
		Params: params,
		Shape:  []Projection{{Key: "count(*)", Type: ir.TypeInt, Aggregate: queryir.AggCount}},
	}, nil
}

func absentIfNull(sel *queryir.Select) bool {
	if !sel.IsAggregateOnly() {
		return false
	}
	for _, p := range sel.Projections {
		switch p.(queryir.Aggregate).Func {
		case queryir.AggCount, queryir.AggCountDistinct:
			return false
		}
	}
	return true
}

// builder compiles one query scope.
type builder struct {
	c   *Compiler
	sel *queryir.Select
}

// dataset renders the full select. aliasColumns names every output column
// c0, c1, ... so the result can be wrapped as a derived table.
func (b *builder) dataset(aliasColumns bool) (*goqu.SelectDataset, []Projection, error) {
	sel := b.sel
	implicit := collectImplicitJoins(sel)

	froms := make([]any, 0, len(sel.From))
	for _, src := range sel.From {
		froms = append(froms, goqu.T(src.Entity.Table).As(src.Alias))
	}
	ds := b.c.dialect.From(froms...)

	for _, src := range sel.From {
		ds = implicit.apply(ds, src.Alias, false)
	}

	for _, j := range sel.Joins {
		var err error
		if ds, err = b.join(ds, j); err != nil {
			return nil, nil, err
		}
		ds = implicit.apply(ds, j.Target.Alias, j.Kind == queryir.JoinLeft)
	}

	var columns []any
	shape := make([]Projection, 0, len(sel.Projections))
	for _, p := range sel.Projections {
		cols, proj, err := b.projection(p)
		if err != nil {
			return nil, nil, err
		}
		columns = append(columns, cols...)
		shape = append(shape, proj)
	}
	if aliasColumns {
		for i, col := range columns {
			columns[i] = goqu.L("?", col).As(fmt.Sprintf("c%d", i))
		}
	}
	ds = ds.Select(columns...)

	if sel.Distinct {
		ds = ds.Distinct()
	}

	where := sel.Where
	if sel.Limit != nil && *sel.Limit == 0 {
		// goqu treats a zero limit as "no limit"
		where = queryir.Conjoin(where, queryir.Compare{
			Op:    queryir.OpEq,
			Left:  queryir.Lit(ir.Int(1)),
			Right: queryir.Lit(ir.Int(0)),
		})
	}
	if where != nil {
		w, err := b.expr(where)
		if err != nil {
			return nil, nil, err
		}
		ds = ds.Where(w)
	}

	if len(sel.GroupBy) > 0 {
		var groups []any
		for _, g := range sel.GroupBy {
			cols, err := b.groupColumns(g)
			if err != nil {
				return nil, nil, err
			}
			groups = append(groups, cols...)
		}
		ds = ds.GroupBy(groups...)
	}

	if sel.Having != nil {
		h, err := b.expr(sel.Having)
		if err != nil {
			return nil, nil, err
		}
		ds = ds.Having(h)
	}

	if len(sel.OrderBy) > 0 {
		orders := make([]exp.OrderedExpression, 0, len(sel.OrderBy))
		for _, o := range sel.OrderBy {
			ordered, err := b.order(o)
			if err != nil {
				return nil, nil, err
			}
			orders = append(orders, ordered)
		}
		ds = ds.Order(orders...)
	}

	if sel.Limit != nil && *sel.Limit > 0 {
		ds = ds.Limit(uint(*sel.Limit))
	}
	if sel.Offset != nil && *sel.Offset > 0 {
		if sel.Limit == nil && b.c.name == DialectSQLite {
			// SQLite only accepts OFFSET after a LIMIT clause
			ds = ds.Limit(uint(math.MaxInt64))
		}
		ds = ds.Offset(uint(*sel.Offset))
	}

	return ds, shape, nil
}

// join renders an explicit join. Association joins correlate the owner's
// foreign key with the target identity; an ON predicate is AND-ed to it.
func (b *builder) join(ds *goqu.SelectDataset, j queryir.Join) (*goqu.SelectDataset, error) {
	table := goqu.T(j.Target.Entity.Table).As(j.Target.Alias)

	var conds []exp.Expression
	if j.Association != nil {
		id := j.Target.Entity.IDField()
		conds = append(conds,
			goqu.T(j.Owner).Col(j.Association.ForeignKey).Eq(goqu.T(j.Target.Alias).Col(id.Column)))
	}
	if j.On != nil {
		on, err := b.expr(j.On)
		if err != nil {
			return nil, err
		}
		conds = append(conds, on)
	}

	cond := goqu.On(conds...)
	if j.Kind == queryir.JoinLeft {
		return ds.LeftJoin(table, cond), nil
	}
	return ds.Join(table, cond), nil
}

// projection returns the SQL columns and decode shape of one projection.
func (b *builder) projection(p queryir.Expr) ([]any, Projection, error) {
	proj := Projection{Key: queryir.Key(p), Type: p.Type()}

	if ref, ok := p.(queryir.EntityRef); ok {
		shape := b.entityShape(ref.SourceAlias(), ref.Entity(), len(ref.Via) == 0)
		proj.Entity = shape
		return shapeColumns(shape), proj, nil
	}

	if agg, ok := p.(queryir.Aggregate); ok {
		proj.Aggregate = agg.Func
	}

	col, err := b.expr(p)
	if err != nil {
		return nil, proj, err
	}
	return []any{col}, proj, nil
}

// entityShape lays out alias's columns. Fetch joins owned by alias are
// nested when withFetched is set.
func (b *builder) entityShape(alias string, e *ir.Entity, withFetched bool) *EntityShape {
	shape := &EntityShape{
		Entity:      e,
		Alias:       alias,
		Fields:      e.Fields,
		ForeignKeys: e.Associations,
	}
	if !withFetched {
		return shape
	}
	for _, j := range b.sel.Joins {
		if j.Fetch && j.Owner == alias && j.Association != nil {
			shape.Fetched = append(shape.Fetched, FetchedShape{
				Association: j.Association.Name,
				Shape:       b.entityShape(j.Target.Alias, j.Target.Entity, true),
			})
		}
	}
	return shape
}

func shapeColumns(s *EntityShape) []any {
	cols := make([]any, 0, s.Width())
	for _, f := range s.Fields {
		cols = append(cols, goqu.T(s.Alias).Col(f.Column))
	}
	for _, a := range s.ForeignKeys {
		cols = append(cols, goqu.T(s.Alias).Col(a.ForeignKey))
	}
	for _, f := range s.Fetched {
		cols = append(cols, shapeColumns(f.Shape)...)
	}
	return cols
}

// groupColumns expands an entity group key into every projected column of
// that entity; scalar keys group by their expression.
func (b *builder) groupColumns(g queryir.Expr) ([]any, error) {
	if ref, ok := g.(queryir.EntityRef); ok {
		return shapeColumns(b.entityShape(ref.SourceAlias(), ref.Entity(), len(ref.Via) == 0)), nil
	}
	e, err := b.expr(g)
	if err != nil {
		return nil, err
	}
	return []any{e}, nil
}

func (b *builder) order(o queryir.OrderKey) (exp.OrderedExpression, error) {
	e, err := b.expr(o.Expr)
	if err != nil {
		return nil, err
	}

	ordered := lit(e).Asc()
	if o.Desc {
		ordered = lit(e).Desc()
	}

	switch o.Nulls {
	case queryir.NullsFirst:
		ordered = ordered.NullsFirst()
	case queryir.NullsLast:
		ordered = ordered.NullsLast()
	}
	return ordered, nil
}

// subquery compiles a nested select sharing this compiler's dialect.
func (b *builder) subquery(sel *queryir.Select) (*goqu.SelectDataset, error) {
	nested := &builder{c: b.c, sel: sel}
	ds, _, err := nested.dataset(false)
	return ds, err
}
