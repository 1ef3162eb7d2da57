// Package harness runs query scenarios: declarative YAML files that create
// a fresh in-memory database, seed it with entity rows, run one query
// definition and assert on the rows (or the error) it produces.
//
// A scenario looks like:
//
//	name: team_average
//	description: average age per team
//	schema: ../schema.cue
//	ddl: ../schema.sql
//	seed:
//	  - entity: Team
//	    rows: [{id: 1, name: teamA}]
//	  - entity: Member
//	    rows: [{id: 1, username: a, age: 10, team: 1}]
//	query:
//	  from: [{entity: Member, as: m}]
//	  select: [m.team.name, "avg(m.age)"]
//	  group_by: [m.team.name]
//	assertions:
//	  - type: rows
//	    rows: [[teamA, 10]]
//
// Paths are relative to the scenario file. Each scenario runs in isolation
// with a fixed query ID, so its result serializes deterministically for
// golden comparison (see RunWithGolden).
//
// Assertion types: rows (exact, ordered), rows_unordered, contains,
// row_count and error. Expected entity cells are maps matched as subsets
// of the record's fields; numbers compare by value regardless of kind.
package harness
