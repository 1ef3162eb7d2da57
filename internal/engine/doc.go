// Package engine executes compiled queries against a backend adapter and
// materializes their rows.
//
// ARCHITECTURE:
//
// Execution Flow:
// 1. queryir.Validate checks the query structure (via querysql.Compile)
// 2. querysql renders parameterized SQL and the result shape
// 3. The adapter runs the SQL in exactly one round trip
// 4. Driver values are decoded by projection type into Rows
//
// Result Shape:
// Each Row holds one cell per projection. Entity projections decode into a
// Record; a NULL identity (an unmatched outer join) decodes as a nil Record.
// Associations of a Record are References: unresolved, carrying only the
// foreign key, unless a fetch join loaded the target in the same query.
//
// Aggregates:
// COUNT over no rows is 0. A grouping-free query projecting only sum, avg,
// max or min over no rows reports no row, never a row of zeros.
//
// Errors:
// Type and structure errors come from queryir unchanged. Everything that
// happens during the round trip is an *ExecutionError tagged with the
// query's UUIDv7 id. Nothing is retried.
package engine
