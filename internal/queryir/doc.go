// Package queryir provides the typed expression tree and the select plan
// that every query is reduced to before it is compiled for a backend.
//
// ARCHITECTURE:
//
//	[query DSL / querydef YAML] → [queryir.Select] → [querysql.Compiler] → SQL + params
//
// The DSL and the YAML loader only ever produce queryir values, so type
// checking and structural validation live here and are shared by both.
//
// SEALED INTERFACES:
//
// Expr is a sealed interface using the marker method pattern. Only types in
// this package implement it, which keeps type switches in the SQL compiler
// exhaustive:
//
//	switch e := expr.(type) {
//	case Path:      // alias.field, possibly through associations
//	case EntityRef: // a whole entity
//	case Literal:
//	case Compare, Between, In, IsNull, Like, Logical, Not:
//	case Arith, Concat, Case, Aggregate, Subquery:
//	}
//
// TYPE CHECKING:
//
// Every composite node is built through a New* constructor that rejects
// incompatible operands with a *TypeError. Once built, a node's Type() is
// its static value type and never changes.
//
// STRUCTURE:
//
// Validate checks properties that only make sense for a whole Select:
// alias scoping, grouping, fetch joins and subquery arity. It returns a
// *StructureError and never touches a backend.
//
// KEYS:
//
// Key returns a canonical structural fingerprint. Equivalent expressions
// built independently share a key, which is what result tuples are indexed by.
package queryir
