package queryir

import (
	"github.com/bitfox-hash/querydsl/internal/ir"
)

// CodeJoinTarget is raised when an association join binds an alias of the
// wrong entity.
const CodeJoinTarget = "JOIN_TARGET_MISMATCH"

// Validate checks that sel is a well-formed query.
//
// Rules:
//  1. At least one source and one projection
//  2. Aliases are unique across the query and all enclosing scopes
//  3. Every referenced alias is in scope; join conditions may only use
//     aliases declared before them
//  4. Entity joins carry an ON predicate; WHERE, HAVING and ON are bool
//  5. Fetch joins follow an association from an alias projected as an entity
//  6. With grouping or aggregates, every non-aggregated projection, order key
//     and having operand is covered by the group key
//  7. Subqueries project exactly one column and are valid in their own scope
//
// Validate is a pure function with no side effects.
func Validate(sel *Select) error {
	return validateScope(sel, map[string]bool{})
}

func validateScope(sel *Select, outer map[string]bool) error {
	if sel == nil || len(sel.From) == 0 {
		return structureErr(CodeEmptySource, "query has no source entity")
	}
	if len(sel.Projections) == 0 {
		return structureErr(CodeEmptyProjection, "query has no projection")
	}
	for i, p := range sel.Projections {
		if p == nil {
			return structureErr(CodeEmptyProjection, "projection %d is empty", i)
		}
	}

	scope := make(map[string]bool, len(outer)+len(sel.From)+len(sel.Joins))
	for alias := range outer {
		scope[alias] = true
	}

	bind := func(src Source) error {
		if src.Entity == nil {
			return structureErr(CodeEmptySource, "alias %q has no entity", src.Alias)
		}
		if src.Alias == "" {
			return structureErr(CodeUnknownAlias, "source %s has no alias", src.Entity.Name)
		}
		if outer[src.Alias] {
			return structureErr(CodeDuplicateAlias, "alias %q is already bound by an enclosing query", src.Alias)
		}
		if scope[src.Alias] {
			return structureErr(CodeDuplicateAlias, "alias %q is bound twice", src.Alias)
		}
		scope[src.Alias] = true
		return nil
	}

	for _, src := range sel.From {
		if err := bind(src); err != nil {
			return err
		}
	}

	for _, j := range sel.Joins {
		if j.Association != nil {
			if !scope[j.Owner] || outer[j.Owner] {
				return structureErr(CodeUnknownAlias, "join owner %q is not declared in this query", j.Owner)
			}
			if j.Target.Entity != nil && j.Association.Target != j.Target.Entity.Name {
				return structureErr(CodeJoinTarget, "association %s.%s targets %s, alias %q is %s",
					j.Owner, j.Association.Name, j.Association.Target, j.Target.Alias, j.Target.Entity.Name)
			}
		} else if j.On == nil {
			return structureErr(CodeMissingOn, "entity join %q requires an on predicate", j.Target.Alias)
		}

		if err := bind(j.Target); err != nil {
			return err
		}

		if j.On != nil {
			if err := checkPredicate("join on", j.On); err != nil {
				return err
			}
			if err := checkRefs(j.On, scope); err != nil {
				return err
			}
		}
	}

	if err := checkPredicate("where", sel.Where); err != nil {
		return err
	}
	if err := checkPredicate("having", sel.Having); err != nil {
		return err
	}

	for _, e := range sel.Expressions() {
		if err := checkRefs(e, scope); err != nil {
			return err
		}
	}

	if err := checkFetchJoins(sel); err != nil {
		return err
	}

	return checkGrouping(sel)
}

func checkPredicate(clause string, e Expr) error {
	if e != nil && e.Type() != ir.TypeBool {
		return structureErr(CodeNotPredicate, "%s must be a bool predicate, got %s", clause, e.Type())
	}
	return nil
}

// checkRefs verifies alias references in e and validates nested selects
// against the scope visible at e.
func checkRefs(e Expr, scope map[string]bool) error {
	var err error
	Walk(e, func(n Expr) bool {
		if err != nil {
			return false
		}
		switch ref := n.(type) {
		case Path:
			if !scope[ref.Alias] {
				err = structureErr(CodeUnknownAlias, "%s references unknown alias %q", ref.String(), ref.Alias)
			}
		case EntityRef:
			if !scope[ref.Alias] {
				err = structureErr(CodeUnknownAlias, "%s references unknown alias %q", ref.String(), ref.Alias)
			}
		}
		return true
	})
	if err != nil {
		return err
	}

	for _, sub := range NestedSelects(e) {
		if sub != nil && len(sub.Projections) != 1 {
			return structureErr(CodeSubqueryArity, "subquery must project exactly one column, got %d", len(sub.Projections))
		}
		if err := validateScope(sub, scope); err != nil {
			return err
		}
	}
	return nil
}

func checkFetchJoins(sel *Select) error {
	fetchable := make(map[string]bool)
	for _, p := range sel.Projections {
		if ref, ok := p.(EntityRef); ok && len(ref.Via) == 0 {
			fetchable[ref.Alias] = true
		}
	}

	for _, j := range sel.Joins {
		if !j.Fetch {
			continue
		}
		if j.Association == nil {
			return structureErr(CodeFetchJoin, "fetch join %q needs an association, not an entity join", j.Target.Alias)
		}
		if !fetchable[j.Owner] {
			return structureErr(CodeFetchJoin, "fetch join %s.%s requires %q to be projected as an entity",
				j.Owner, j.Association.Name, j.Owner)
		}
		fetchable[j.Target.Alias] = true
	}
	return nil
}

// grouping describes what a grouped query may project without aggregating.
type grouping struct {
	keys    map[string]bool
	aliases map[string]bool // aliases grouped as whole entities
}

func checkGrouping(sel *Select) error {
	if len(sel.GroupBy) == 0 && !sel.HasAggregate() {
		return nil
	}

	g := grouping{keys: make(map[string]bool), aliases: make(map[string]bool)}
	for _, e := range sel.GroupBy {
		g.keys[Key(e)] = true
		if ref, ok := e.(EntityRef); ok {
			g.aliases[ref.SourceAlias()] = true
		}
	}

	for _, p := range sel.Projections {
		if !g.covers(p) {
			return structureErr(CodeUngroupedProjection,
				"projection %s is neither aggregated nor part of the group key", describe(p))
		}
	}
	for _, o := range sel.OrderBy {
		if !g.covers(o.Expr) {
			return structureErr(CodeUngroupedProjection,
				"order key %s is neither aggregated nor part of the group key", describe(o.Expr))
		}
	}
	if sel.Having != nil && !g.covers(sel.Having) {
		return structureErr(CodeUngroupedProjection,
			"having references a value that is neither aggregated nor grouped")
	}
	return nil
}

func (g grouping) covers(e Expr) bool {
	if g.keys[Key(e)] {
		return true
	}
	switch n := e.(type) {
	case Aggregate, Literal:
		return true
	case Subquery:
		return g.coversCorrelated(n.Query)
	case In:
		if n.Sub != nil && !g.coversCorrelated(n.Sub) {
			return false
		}
	case Path:
		return g.aliases[n.SourceAlias()]
	case EntityRef:
		return g.aliases[n.SourceAlias()]
	}
	for _, c := range Children(e) {
		if !g.covers(c) {
			return false
		}
	}
	return true
}

// coversCorrelated reports whether every enclosing-scope reference made by
// sub is grouped.
func (g grouping) coversCorrelated(sub *Select) bool {
	for _, ref := range OuterRefs(sub) {
		if !g.covers(ref) {
			return false
		}
	}
	return true
}

func describe(e Expr) string {
	switch n := e.(type) {
	case Path:
		return n.String()
	case EntityRef:
		return n.String()
	default:
		return Key(e)
	}
}
