package querysql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/queryir"
)

type fixture struct {
	t      *testing.T
	schema *ir.Schema
	member *ir.Entity
	team   *ir.Entity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := ir.NewSchema(
		ir.Entity{
			Name: "Team", Table: "team", ID: "id",
			Fields: []ir.Field{
				{Name: "id", Type: ir.TypeInt},
				{Name: "name", Type: ir.TypeString},
			},
		},
		ir.Entity{
			Name: "Member", Table: "member", ID: "id",
			Fields: []ir.Field{
				{Name: "id", Type: ir.TypeInt},
				{Name: "username", Type: ir.TypeString, Nullable: true},
				{Name: "age", Type: ir.TypeInt},
			},
			Associations: []ir.Association{{Name: "team", Target: "Team", ForeignKey: "team_id"}},
		},
	)
	require.NoError(t, err)
	return &fixture{t: t, schema: s, member: s.MustEntity("Member"), team: s.MustEntity("Team")}
}

func (f *fixture) path(entity, alias string, segments ...string) queryir.Expr {
	f.t.Helper()
	e, err := queryir.ResolvePath(f.schema, f.schema.MustEntity(entity), alias, segments...)
	require.NoError(f.t, err)
	return e
}

func (f *fixture) cmp(op queryir.CompareOp, l, r queryir.Expr) queryir.Expr {
	f.t.Helper()
	c, err := queryir.NewCompare(op, l, r)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) agg(fn queryir.AggFunc, arg queryir.Expr) queryir.Expr {
	f.t.Helper()
	a, err := queryir.NewAggregate(fn, arg)
	require.NoError(f.t, err)
	return a
}

func (f *fixture) teamAssoc() *ir.Association {
	a, _ := f.member.Association("team")
	return &a
}

func (f *fixture) members(alias string) []queryir.Source {
	return []queryir.Source{{Entity: f.member, Alias: alias}}
}

func postgres(t *testing.T) *Compiler {
	t.Helper()
	c, err := NewCompiler(DialectPostgres)
	require.NoError(t, err)
	return c
}

func u64(v uint64) *uint64 { return &v }
