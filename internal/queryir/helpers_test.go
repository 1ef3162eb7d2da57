package queryir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitfox-hash/querydsl/internal/ir"
)

func testSchema(t *testing.T) *ir.Schema {
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
				{Name: "score", Type: ir.TypeDecimal, Nullable: true},
				{Name: "active", Type: ir.TypeBool},
			},
			Associations: []ir.Association{{Name: "team", Target: "Team", ForeignKey: "team_id"}},
		},
	)
	require.NoError(t, err)
	return s
}

func mustPath(t *testing.T, s *ir.Schema, entity, alias string, segments ...string) Path {
	t.Helper()
	e, err := ResolvePath(s, s.MustEntity(entity), alias, segments...)
	require.NoError(t, err)
	p, ok := e.(Path)
	require.True(t, ok, "expected a field path")
	return p
}

func mustCompare(t *testing.T, op CompareOp, l, r Expr) Compare {
	t.Helper()
	c, err := NewCompare(op, l, r)
	require.NoError(t, err)
	return c
}

func mustAgg(t *testing.T, fn AggFunc, arg Expr) Aggregate {
	t.Helper()
	a, err := NewAggregate(fn, arg)
	require.NoError(t, err)
	return a
}
