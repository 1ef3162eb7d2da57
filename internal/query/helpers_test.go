package query_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitfox-hash/querydsl/internal/engine"
	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/query"
	"github.com/bitfox-hash/querydsl/internal/store"
	"github.com/bitfox-hash/querydsl/internal/testutil"
)

type env struct {
	factory *query.Factory
	engine  *engine.Engine
	store   *store.Store
	schema  *ir.Schema
	m       *testutil.QMember
	t       *testutil.QTeam
}

// fourMembers sets up members aged 10..40 in teamA and teamB.
func fourMembers(t *testing.T) env {
	t.Helper()
	s, schema := testutil.FourMembers(t)
	return newEnv(t, s, schema)
}

func newEnv(t *testing.T, s *store.Store, schema *ir.Schema) env {
	t.Helper()
	e := testutil.NewEngine(t, s)
	return env{
		factory: query.NewFactory(e),
		engine:  e,
		store:   s,
		schema:  schema,
		m:       testutil.NewQMember(schema, "m"),
		t:       testutil.NewQTeam(schema, "t"),
	}
}

func field(t *testing.T, rec *engine.Record, name string) ir.Value {
	t.Helper()
	require.NotNil(t, rec)
	v, ok := rec.Get(name)
	require.True(t, ok, "field %s", name)
	return v
}

func ages(t *testing.T, recs []*engine.Record) []int64 {
	t.Helper()
	out := make([]int64, len(recs))
	for i, r := range recs {
		out[i] = int64(field(t, r, "age").(ir.Int))
	}
	return out
}

func ints(t *testing.T, values []ir.Value) []int64 {
	t.Helper()
	out := make([]int64, len(values))
	for i, v := range values {
		n, ok := v.(ir.Int)
		require.True(t, ok, "value %d is %T", i, v)
		out[i] = int64(n)
	}
	return out
}
