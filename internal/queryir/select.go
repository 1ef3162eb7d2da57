package queryir

import "github.com/bitfox-hash/querydsl/internal/ir"

// Source binds an entity to an alias in a query scope.
type Source struct {
	Entity *ir.Entity
	Alias  string
}

// JoinKind selects inner or left outer join semantics.
type JoinKind string

const (
	JoinInner JoinKind = "inner"
	JoinLeft  JoinKind = "left"
)

// Join adds Target to the query scope.
//
// An association join (Association != nil) correlates Owner's foreign key
// with Target's identity, AND-ed with On when present. An entity join
// (Association == nil) correlates only by On, which is then required.
//
// Fetch requests that the association be resolved eagerly in the same round
// trip: Target's columns are appended to Owner's entity projection.
type Join struct {
	Kind        JoinKind
	Owner       string
	Association *ir.Association
	Target      Source
	On          Expr
	Fetch       bool
}

// NullsOrder controls where NULL sort keys are placed.
type NullsOrder int

const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

// OrderKey is one ORDER BY term.
type OrderKey struct {
	Expr  Expr
	Desc  bool
	Nulls NullsOrder
}

// Select is a fully assembled query.
//
// Semantics:
//
//	SELECT [DISTINCT] <projections>
//	FROM <from...> <joins...>
//	WHERE <where> GROUP BY <group_by> HAVING <having>
//	ORDER BY <order_by> LIMIT <limit> OFFSET <offset>
//
// Where and Having are single predicates (nil = none). Builders fold their
// variadic predicate lists into one Logical before storing them here.
type Select struct {
	Projections []Expr
	From        []Source
	Joins       []Join
	Where       Expr
	GroupBy     []Expr
	Having      Expr
	OrderBy     []OrderKey
	Offset      *uint64
	Limit       *uint64
	Distinct    bool
}

// Clone returns a copy whose slices can be appended to without affecting s.
// Expression nodes are immutable and are shared.
func (s *Select) Clone() *Select {
	if s == nil {
		return nil
	}
	c := *s
	c.Projections = append([]Expr(nil), s.Projections...)
	c.From = append([]Source(nil), s.From...)
	c.Joins = append([]Join(nil), s.Joins...)
	c.GroupBy = append([]Expr(nil), s.GroupBy...)
	c.OrderBy = append([]OrderKey(nil), s.OrderBy...)
	if s.Offset != nil {
		v := *s.Offset
		c.Offset = &v
	}
	if s.Limit != nil {
		v := *s.Limit
		c.Limit = &v
	}
	return &c
}

// Aliases returns every alias bound in this scope (sources, then joins),
// not including implicit join aliases.
func (s *Select) Aliases() []string {
	out := make([]string, 0, len(s.From)+len(s.Joins))
	for _, src := range s.From {
		out = append(out, src.Alias)
	}
	for _, j := range s.Joins {
		out = append(out, j.Target.Alias)
	}
	return out
}

// IsAggregateOnly reports whether the query has no grouping and projects
// only aggregates. Such a query always produces exactly one SQL row.
func (s *Select) IsAggregateOnly() bool {
	if len(s.GroupBy) > 0 || len(s.Projections) == 0 {
		return false
	}
	for _, p := range s.Projections {
		if _, ok := p.(Aggregate); !ok {
			return false
		}
	}
	return true
}

// HasAggregate reports whether any projection contains an aggregate outside
// of a nested subquery.
func (s *Select) HasAggregate() bool {
	for _, p := range s.Projections {
		if ContainsAggregate(p) {
			return true
		}
	}
	return false
}

// Conjoin AND-combines predicates. Nil entries are dropped; nested AND
// operands are flattened so Conjoin(p, q) and Conjoin(Conjoin(p), q) agree.
// Returns nil when nothing is left.
func Conjoin(preds ...Expr) Expr {
	return fold(OpAnd, preds)
}

// Disjoin OR-combines predicates with the same nil handling as Conjoin.
func Disjoin(preds ...Expr) Expr {
	return fold(OpOr, preds)
}

func fold(op LogicalOp, preds []Expr) Expr {
	var operands []Expr
	for _, p := range preds {
		if p == nil {
			continue
		}
		if l, ok := p.(Logical); ok && l.Op == op {
			operands = append(operands, l.Operands...)
			continue
		}
		operands = append(operands, p)
	}

	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return Logical{Op: op, Operands: operands}
	}
}
