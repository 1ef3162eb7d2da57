package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/queryir"
)

type fixture struct {
	t      *testing.T
	schema *ir.Schema
}

func (f fixture) entity(name string) *ir.Entity { return f.schema.MustEntity(name) }

func (f fixture) path(entity, alias string, segments ...string) queryir.Expr {
	f.t.Helper()
	e, err := queryir.ResolvePath(f.schema, f.entity(entity), alias, segments...)
	require.NoError(f.t, err)
	return e
}

func (f fixture) cmp(op queryir.CompareOp, l, r queryir.Expr) queryir.Expr {
	f.t.Helper()
	c, err := queryir.NewCompare(op, l, r)
	require.NoError(f.t, err)
	return c
}

func (f fixture) agg(fn queryir.AggFunc, arg queryir.Expr) queryir.Expr {
	f.t.Helper()
	a, err := queryir.NewAggregate(fn, arg)
	require.NoError(f.t, err)
	return a
}

func (f fixture) members(projections ...queryir.Expr) *queryir.Select {
	return &queryir.Select{
		Projections: projections,
		From:        []queryir.Source{{Entity: f.entity("Member"), Alias: "m"}},
	}
}

func (f fixture) teamJoin(kind queryir.JoinKind, fetch bool) queryir.Join {
	a, _ := f.entity("Member").Association("team")
	return queryir.Join{
		Kind:        kind,
		Owner:       "m",
		Association: &a,
		Target:      queryir.Source{Entity: f.entity("Team"), Alias: "t"},
		Fetch:       fetch,
	}
}

func u64(v uint64) *uint64 { return &v }
