package queryir

import (
	"strings"

	"github.com/bitfox-hash/querydsl/internal/ir"
)

// Expr is a typed node of the expression tree.
//
// This is a sealed interface - only types in this package implement it.
type Expr interface {
	// Type returns the static value type of the expression.
	Type() ir.Type
	exprNode() // Marker method - seals interface to this package
}

// Step is one association hop of a path.
type Step struct {
	Association ir.Association
	Target      *ir.Entity
}

// Path references a field of an alias, or of an entity reached from that
// alias through a chain of many-to-one associations.
//
//	m.age            Path{Alias: "m", Field: age}
//	m.team.name      Path{Alias: "m", Via: [team], Field: name}
//
// Navigation through Via does not fetch anything. The SQL compiler turns
// each hop into an implicit inner join.
type Path struct {
	Alias string
	Root  *ir.Entity
	Via   []Step
	Field ir.Field
}

func (Path) exprNode() {}

// Type implements Expr.
func (p Path) Type() ir.Type { return p.Field.Type }

// Entity returns the entity that owns Field.
func (p Path) Entity() *ir.Entity { return leafEntity(p.Root, p.Via) }

// SourceAlias returns the alias the field is read from: Alias itself when
// there is no navigation, otherwise the implicit join alias.
func (p Path) SourceAlias() string { return ImplicitAlias(p.Alias, p.Via) }

// String renders the path in dotted form.
func (p Path) String() string {
	return dotted(p.Alias, p.Via) + "." + p.Field.Name
}

// EntityRef references a whole entity: an alias, or the target of an
// association navigated from an alias.
type EntityRef struct {
	Alias string
	Root  *ir.Entity
	Via   []Step
}

func (EntityRef) exprNode() {}

// Type implements Expr.
func (EntityRef) Type() ir.Type { return ir.TypeEntity }

// Entity returns the referenced entity.
func (r EntityRef) Entity() *ir.Entity { return leafEntity(r.Root, r.Via) }

// SourceAlias returns the alias whose columns hold the entity.
func (r EntityRef) SourceAlias() string { return ImplicitAlias(r.Alias, r.Via) }

// ID returns the path to the identity field of the referenced entity.
func (r EntityRef) ID() Path {
	return Path{Alias: r.Alias, Root: r.Root, Via: r.Via, Field: r.Entity().IDField()}
}

// IdentityColumn returns the alias and column holding the referenced
// entity's identity when the reference is used as an operand. A navigated
// reference resolves to the owner's foreign key, so it needs no join of its
// own and is NULL exactly when the association is unset.
func (r EntityRef) IdentityColumn() (alias, column string) {
	if len(r.Via) == 0 {
		return r.Alias, r.Root.IDField().Column
	}
	last := len(r.Via) - 1
	return ImplicitAlias(r.Alias, r.Via[:last]), r.Via[last].Association.ForeignKey
}

// String renders the reference in dotted form.
func (r EntityRef) String() string { return dotted(r.Alias, r.Via) }

// Literal is a constant operand. It is always bound as a parameter.
type Literal struct {
	Value ir.Value
}

func (Literal) exprNode() {}

// Type implements Expr.
func (l Literal) Type() ir.Type {
	if l.Value == nil {
		return ir.TypeNull
	}
	return l.Value.Type()
}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpEq  CompareOp = "eq"
	OpNe  CompareOp = "ne"
	OpGt  CompareOp = "gt"
	OpGoe CompareOp = "goe"
	OpLt  CompareOp = "lt"
	OpLoe CompareOp = "loe"
)

// Compare is Left <op> Right. Right may be a scalar Subquery.
type Compare struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (Compare) exprNode() {}

// Type implements Expr.
func (Compare) Type() ir.Type { return ir.TypeBool }

// Between is X BETWEEN Lo AND Hi, inclusive on both ends.
type Between struct {
	X  Expr
	Lo Expr
	Hi Expr
}

func (Between) exprNode() {}

// Type implements Expr.
func (Between) Type() ir.Type { return ir.TypeBool }

// In is a membership test against either a value list or a subquery.
// Exactly one of List and Sub is set.
type In struct {
	X       Expr
	List    []Expr
	Sub     *Select
	Negated bool
}

func (In) exprNode() {}

// Type implements Expr.
func (In) Type() ir.Type { return ir.TypeBool }

// IsNull is X IS [NOT] NULL. For an EntityRef it tests the identity column:
// an unmatched left join for an alias, an unset foreign key for a navigated
// association.
type IsNull struct {
	X       Expr
	Negated bool
}

func (IsNull) exprNode() {}

// Type implements Expr.
func (IsNull) Type() ir.Type { return ir.TypeBool }

// Like is X LIKE Pattern.
type Like struct {
	X       Expr
	Pattern Expr
}

func (Like) exprNode() {}

// Type implements Expr.
func (Like) Type() ir.Type { return ir.TypeBool }

// LogicalOp joins boolean operands.
type LogicalOp string

const (
	OpAnd LogicalOp = "and"
	OpOr  LogicalOp = "or"
)

// Logical is a conjunction or disjunction of at least two operands.
type Logical struct {
	Op       LogicalOp
	Operands []Expr
}

func (Logical) exprNode() {}

// Type implements Expr.
func (Logical) Type() ir.Type { return ir.TypeBool }

// Not negates a boolean operand.
type Not struct {
	X Expr
}

func (Not) exprNode() {}

// Type implements Expr.
func (Not) Type() ir.Type { return ir.TypeBool }

// ArithOp is a numeric operator.
type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
	OpDiv ArithOp = "/"
)

// Arith is Left <op> Right over numeric operands.
type Arith struct {
	Op     ArithOp
	Left   Expr
	Right  Expr
	Result ir.Type
}

func (Arith) exprNode() {}

// Type implements Expr.
func (a Arith) Type() ir.Type { return a.Result }

// Concat joins its parts as text. Non-string parts are converted to their
// text representation by the backend.
type Concat struct {
	Parts []Expr
}

func (Concat) exprNode() {}

// Type implements Expr.
func (Concat) Type() ir.Type { return ir.TypeString }

// When is one branch of a Case.
type When struct {
	Cond   Expr
	Result Expr
}

// Case evaluates Whens in declaration order; the first true condition wins,
// Else applies when none match.
type Case struct {
	Whens  []When
	Else   Expr
	Result ir.Type
}

func (Case) exprNode() {}

// Type implements Expr.
func (c Case) Type() ir.Type { return c.Result }

// AggFunc is an aggregate function.
type AggFunc string

const (
	AggCount         AggFunc = "count"
	AggCountDistinct AggFunc = "count_distinct"
	AggSum           AggFunc = "sum"
	AggAvg           AggFunc = "avg"
	AggMax           AggFunc = "max"
	AggMin           AggFunc = "min"
)

// Aggregate applies Func to Arg across the rows of a group.
type Aggregate struct {
	Func   AggFunc
	Arg    Expr
	Result ir.Type
}

func (Aggregate) exprNode() {}

// Type implements Expr.
func (a Aggregate) Type() ir.Type { return a.Result }

// Subquery is a nested Select used as a scalar operand or a projected column.
// It always projects exactly one scalar column.
type Subquery struct {
	Query *Select
}

func (Subquery) exprNode() {}

// Type implements Expr.
func (s Subquery) Type() ir.Type { return s.Query.Projections[0].Type() }

// ImplicitAlias names the join that navigation through via produces from
// alias: m + [team, league] becomes m_team_league.
func ImplicitAlias(alias string, via []Step) string {
	if len(via) == 0 {
		return alias
	}
	parts := make([]string, 0, len(via)+1)
	parts = append(parts, alias)
	for _, s := range via {
		parts = append(parts, s.Association.Name)
	}
	return strings.Join(parts, "_")
}

func leafEntity(root *ir.Entity, via []Step) *ir.Entity {
	if len(via) == 0 {
		return root
	}
	return via[len(via)-1].Target
}

func dotted(alias string, via []Step) string {
	var b strings.Builder
	b.WriteString(alias)
	for _, s := range via {
		b.WriteByte('.')
		b.WriteString(s.Association.Name)
	}
	return b.String()
}
