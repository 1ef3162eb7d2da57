package querysql

import (
	"github.com/doug-martin/goqu/v9"

	"github.com/bitfox-hash/querydsl/internal/queryir"
)

// implicitJoin is a join produced by navigating an association in a path
// expression, e.g. m.team.name joins team AS m_team. It is an inner join
// unless its root alias was bound by a left join.
type implicitJoin struct {
	alias string
	owner string
	step  queryir.Step
}

// implicitJoins holds the implicit joins of one scope, grouped by the
// explicit alias they start from, in order of first use.
type implicitJoins struct {
	byRoot map[string][]implicitJoin
	seen   map[string]bool
}

// collectImplicitJoins finds every navigated path rooted at an alias of sel,
// including correlated references made from nested subqueries. A navigated
// entity used as an operand only needs the joins up to the foreign key owner;
// whole-entity projections and group keys need the target's columns.
func collectImplicitJoins(sel *queryir.Select) implicitJoins {
	own := make(map[string]bool)
	for _, a := range sel.Aliases() {
		own[a] = true
	}

	ij := implicitJoins{byRoot: make(map[string][]implicitJoin), seen: make(map[string]bool)}

	add := func(alias string, via []queryir.Step) {
		if len(via) == 0 || !own[alias] {
			return
		}
		for i := range via {
			name := queryir.ImplicitAlias(alias, via[:i+1])
			if ij.seen[name] {
				continue
			}
			ij.seen[name] = true
			ij.byRoot[alias] = append(ij.byRoot[alias], implicitJoin{
				alias: name,
				owner: queryir.ImplicitAlias(alias, via[:i]),
				step:  via[i],
			})
		}
	}

	var visitSelect func(s *queryir.Select)
	visit := func(e queryir.Expr) {
		queryir.Walk(e, func(n queryir.Expr) bool {
			switch ref := n.(type) {
			case queryir.Path:
				add(ref.Alias, ref.Via)
			case queryir.EntityRef:
				if len(ref.Via) > 0 {
					add(ref.Alias, ref.Via[:len(ref.Via)-1])
				}
			}
			return true
		})
		for _, nested := range queryir.NestedSelects(e) {
			visitSelect(nested)
		}
	}
	whole := func(e queryir.Expr) {
		if ref, ok := e.(queryir.EntityRef); ok {
			add(ref.Alias, ref.Via)
		}
	}
	visitSelect = func(s *queryir.Select) {
		for _, p := range s.Projections {
			whole(p)
		}
		for _, g := range s.GroupBy {
			whole(g)
		}
		for _, e := range s.Expressions() {
			visit(e)
		}
	}
	visitSelect(sel)

	return ij
}

// apply appends the implicit joins rooted at alias. When outer is set the
// root may be absent, so the whole chain is left joined.
func (ij implicitJoins) apply(ds *goqu.SelectDataset, alias string, outer bool) *goqu.SelectDataset {
	for _, j := range ij.byRoot[alias] {
		target := j.step.Target
		table := goqu.T(target.Table).As(j.alias)
		cond := goqu.On(goqu.T(j.owner).Col(j.step.Association.ForeignKey).
			Eq(goqu.T(j.alias).Col(target.IDField().Column)))
		if outer {
			ds = ds.LeftJoin(table, cond)
		} else {
			ds = ds.Join(table, cond)
		}
	}
	return ds
}
