// Package query is the fluent, typed query builder.
//
// Paths and expressions are Go types: NumberExpr, StringExpr and BoolExpr
// (alias Predicate). Comparing a string path with a number does not
// compile. What the Go type system cannot see (an unknown field, a field of
// the wrong kind, nested aggregates) is checked by the queryir constructors
// when the expression is built. The resulting *queryir.TypeError travels
// with the expression: Err() reports it, every builder method that receives
// the expression records it, and every fetch returns it before any round
// trip.
//
//	m := query.NewEntityPath(schema, "Member", "m")
//	t := query.NewEntityPath(schema, "Team", "t")
//
//	rows, err := factory.SelectTuple(t.String("name"), m.Number("age").Avg()).
//		From(m).
//		Join(m.Assoc("team"), t).
//		GroupBy(t.String("name")).
//		Fetch(ctx)
//
// Builders are mutable and owned by the goroutine composing them. Each
// method returns the same *Query for chaining; Clone copies a query so a
// shared base can be refined independently.
package query
