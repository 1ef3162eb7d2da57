package queryir

// Children returns the direct operands of e. Nested subqueries are not
// children; use NestedSelects to reach them.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case Compare:
		return []Expr{n.Left, n.Right}
	case Between:
		return []Expr{n.X, n.Lo, n.Hi}
	case In:
		return append([]Expr{n.X}, n.List...)
	case IsNull:
		return []Expr{n.X}
	case Like:
		return []Expr{n.X, n.Pattern}
	case Logical:
		return n.Operands
	case Not:
		return []Expr{n.X}
	case Arith:
		return []Expr{n.Left, n.Right}
	case Concat:
		return n.Parts
	case Case:
		out := make([]Expr, 0, 2*len(n.Whens)+1)
		for _, w := range n.Whens {
			out = append(out, w.Cond, w.Result)
		}
		return append(out, n.Else)
	case Aggregate:
		return []Expr{n.Arg}
	default:
		return nil
	}
}

// Walk visits e and its operands in pre-order. Returning false from fn skips
// the operands of the current node. Walk stays within one query scope.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil {
		return
	}
	if !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// NestedSelects returns the selects embedded directly in e (subquery
// operands and IN subqueries), without descending into them.
func NestedSelects(e Expr) []*Select {
	var out []*Select
	Walk(e, func(n Expr) bool {
		switch s := n.(type) {
		case Subquery:
			out = append(out, s.Query)
		case In:
			if s.Sub != nil {
				out = append(out, s.Sub)
			}
		}
		return true
	})
	return out
}

// ContainsAggregate reports whether e has an aggregate in its own scope.
func ContainsAggregate(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if _, ok := n.(Aggregate); ok {
			found = true
		}
		return !found
	})
	return found
}

// Expressions returns every top-level expression of sel in clause order:
// projections, join conditions, where, group by, having, order by.
func (s *Select) Expressions() []Expr {
	var out []Expr
	out = append(out, s.Projections...)
	for _, j := range s.Joins {
		if j.On != nil {
			out = append(out, j.On)
		}
	}
	if s.Where != nil {
		out = append(out, s.Where)
	}
	out = append(out, s.GroupBy...)
	if s.Having != nil {
		out = append(out, s.Having)
	}
	for _, o := range s.OrderBy {
		out = append(out, o.Expr)
	}
	return out
}

// OuterRefs returns the paths and entity references made by s, or by the
// selects nested in it, to aliases s does not bind.
func OuterRefs(s *Select) []Expr {
	var out []Expr
	var visit func(s *Select, bound map[string]bool)
	visit = func(s *Select, bound map[string]bool) {
		local := make(map[string]bool, len(bound)+len(s.From)+len(s.Joins))
		for a := range bound {
			local[a] = true
		}
		for _, a := range s.Aliases() {
			local[a] = true
		}
		for _, e := range s.Expressions() {
			Walk(e, func(n Expr) bool {
				switch ref := n.(type) {
				case Path:
					if !local[ref.Alias] {
						out = append(out, ref)
					}
				case EntityRef:
					if !local[ref.Alias] {
						out = append(out, ref)
					}
				}
				return true
			})
			for _, nested := range NestedSelects(e) {
				visit(nested, local)
			}
		}
	}
	visit(s, nil)
	return out
}
