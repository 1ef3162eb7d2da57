// Package querydef reads declarative query definitions from YAML and builds
// them into queryir selects.
//
// A definition names its sources by alias and refers to expressions with
// dotted items:
//
//	from: [{entity: Member, as: m}]
//	joins: [{path: m.team, as: t}]
//	select: [t.name, "avg(m.age)"]
//	group_by: [t.name]
//	order_by: [{by: t.name}]
//
// Items are an alias (the entity itself), alias.field, alias.assoc.field
// (an implicit join), or fn(item) with fn one of count, count_distinct,
// sum, avg, max, min. Every node goes through the type-checking queryir
// constructors, so mismatches surface as *queryir.TypeError wrapped with the
// location of the offending entry.
package querydef
