package engine_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfox-hash/querydsl/internal/engine"
	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/queryir"
	"github.com/bitfox-hash/querydsl/internal/testutil"
)

func setup(t *testing.T, opts ...engine.Option) (*engine.Engine, fixture) {
	t.Helper()
	s, schema := testutil.FourMembers(t)
	return testutil.NewEngine(t, s, opts...), fixture{t: t, schema: schema}
}

func TestNew_UnknownDialect(t *testing.T) {
	s := testutil.NewStore(t)
	_, err := engine.New(s.Adapter(), engine.WithDialect("oracle"))
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	s := testutil.NewStore(t)
	e, err := engine.New(s.Adapter())
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultDialect, e.Dialect())
	assert.Zero(t, e.RoundTrips())
}

func TestFetch_Entities(t *testing.T) {
	ctx := context.Background()
	e, f := setup(t)

	sel := f.members(f.path("Member", "m"))
	sel.OrderBy = []queryir.OrderKey{{Expr: f.path("Member", "m", "age")}}

	rows, err := e.Fetch(ctx, sel)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	rec := rows[0].Record(0)
	require.NotNil(t, rec)
	assert.Equal(t, "Member", rec.Entity.Name)
	assert.Equal(t, ir.Int(1), rec.ID())

	username, ok := rec.Get("username")
	require.True(t, ok)
	assert.Equal(t, ir.String("member1"), username)

	active, _ := rec.Get("active")
	assert.Equal(t, ir.Bool(true), active)

	ref := rec.Ref("team")
	assert.False(t, ref.Resolved(), "no fetch join")
	assert.Equal(t, ir.Int(1), ref.ID())
	assert.Nil(t, ref.Record())

	assert.Equal(t, ir.Int(1), rows[0].Value(0), "entity cells expose their identity")
}

func TestFetch_EmptyResultIsNotAnError(t *testing.T) {
	e, f := setup(t)

	sel := f.members(f.path("Member", "m"))
	sel.Where = f.cmp(queryir.OpGt, f.path("Member", "m", "age"), queryir.Lit(ir.Int(100)))

	rows, err := e.Fetch(context.Background(), sel)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetch_FetchJoinResolvesReference(t *testing.T) {
	e, f := setup(t)

	sel := f.members(f.path("Member", "m"))
	sel.Joins = []queryir.Join{f.teamJoin(queryir.JoinInner, true)}
	sel.Where = f.cmp(queryir.OpEq, f.path("Member", "m", "age"), queryir.Lit(ir.Int(30)))

	rows, err := e.Fetch(context.Background(), sel)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	ref := rows[0].Record(0).Ref("team")
	assert.True(t, ref.Resolved())
	require.NotNil(t, ref.Record())
	name, _ := ref.Record().Get("name")
	assert.Equal(t, ir.String("teamB"), name)
	assert.Equal(t, ir.Int(2), ref.ID())
}

func TestFetch_LeftJoinWithoutMatch(t *testing.T) {
	ctx := context.Background()
	s, schema := testutil.FourMembers(t)
	testutil.Seed(t, s, schema, nil, []testutil.Member{{ID: 5, Username: testutil.Str("loner"), Age: 50}})
	e := testutil.NewEngine(t, s)
	f := fixture{t: t, schema: schema}

	sel := f.members(f.path("Member", "m"), f.path("Team", "t"))
	sel.Joins = []queryir.Join{f.teamJoin(queryir.JoinLeft, true)}
	sel.Where = f.cmp(queryir.OpEq, f.path("Member", "m", "id"), queryir.Lit(ir.Int(5)))

	rows, err := e.Fetch(ctx, sel)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	member := rows[0].Record(0)
	require.NotNil(t, member)
	ref := member.Ref("team")
	assert.True(t, ref.Resolved())
	assert.Nil(t, ref.Record(), "left fetch join found no team")
	assert.Equal(t, ir.Null{}, ref.ID())

	assert.Nil(t, rows[0].Record(1))
	assert.Equal(t, ir.Null{}, rows[0].Value(1))
}

func TestFetchOne(t *testing.T) {
	ctx := context.Background()
	e, f := setup(t, engine.WithIDGenerator(engine.NewFixedGenerator("q-1", "q-2", "q-3")))
	username := f.path("Member", "m", "username")

	sel := f.members(username)
	sel.Where = f.cmp(queryir.OpEq, f.path("Member", "m", "age"), queryir.Lit(ir.Int(20)))
	row, ok, err := e.FetchOne(ctx, sel)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.String("member2"), row.Value(0))

	sel.Where = f.cmp(queryir.OpEq, f.path("Member", "m", "age"), queryir.Lit(ir.Int(99)))
	_, ok, err = e.FetchOne(ctx, sel)
	require.NoError(t, err)
	assert.False(t, ok, "absence is not an error")

	_, _, err = e.FetchOne(ctx, f.members(username))
	require.Error(t, err)
	assert.True(t, engine.IsNonUniqueError(err))
	assert.False(t, engine.IsBackendError(err))

	var ee *engine.ExecutionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "q-3", ee.QueryID)
}

func TestFetchFirst(t *testing.T) {
	ctx := context.Background()
	e, f := setup(t)

	sel := f.members(f.path("Member", "m", "age"))
	sel.OrderBy = []queryir.OrderKey{{Expr: f.path("Member", "m", "age"), Desc: true}}

	row, ok, err := e.FetchFirst(ctx, sel)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.Int(40), row.Value(0))
	assert.Nil(t, sel.Limit, "caller's select is not modified")

	sel.Where = f.cmp(queryir.OpLt, f.path("Member", "m", "age"), queryir.Lit(ir.Int(0)))
	_, ok, err = e.FetchFirst(ctx, sel)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	e, f := setup(t)

	sel := f.members(f.path("Member", "m"))
	sel.OrderBy = []queryir.OrderKey{{Expr: f.path("Member", "m", "age")}}
	sel.Offset = u64(1)
	sel.Limit = u64(2)

	n, err := e.Count(ctx, sel)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n, "order, offset and limit are ignored")

	sel.Where = f.cmp(queryir.OpGt, f.path("Member", "m", "age"), queryir.Lit(ir.Int(100)))
	n, err = e.Count(ctx, sel)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCount_Grouped(t *testing.T) {
	e, f := setup(t)
	teamName := f.path("Member", "m", "team", "name")

	sel := f.members(teamName, f.agg(queryir.AggAvg, f.path("Member", "m", "age")))
	sel.GroupBy = []queryir.Expr{teamName}

	n, err := e.Count(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAggregates_CountZeroVersusAbsence(t *testing.T) {
	ctx := context.Background()
	e, f := setup(t)
	age := f.path("Member", "m", "age")
	none := f.cmp(queryir.OpGt, age, queryir.Lit(ir.Int(100)))

	count := f.members(f.agg(queryir.AggCount, f.path("Member", "m")))
	count.Where = none
	rows, err := e.Fetch(ctx, count)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ir.Int(0), rows[0].Value(0))

	for _, fn := range []queryir.AggFunc{queryir.AggSum, queryir.AggAvg, queryir.AggMax, queryir.AggMin} {
		t.Run(string(fn), func(t *testing.T) {
			sel := f.members(f.agg(fn, age))
			sel.Where = none

			rows, err := e.Fetch(ctx, sel)
			require.NoError(t, err)
			assert.Empty(t, rows)

			_, ok, err := e.FetchOne(ctx, sel)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}

	sum := f.members(f.agg(queryir.AggSum, age))
	rows, err = e.Fetch(ctx, sum)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ir.Int(100), rows[0].Value(0))
}

func TestFetch_StructureErrorBeforeRoundTrip(t *testing.T) {
	e, f := setup(t)

	sel := f.members(f.path("Member", "m", "username"), f.agg(queryir.AggAvg, f.path("Member", "m", "age")))
	_, err := e.Fetch(context.Background(), sel)
	require.Error(t, err)
	assert.True(t, queryir.IsStructureError(err))

	var ee *engine.ExecutionError
	assert.False(t, errors.As(err, &ee))
	assert.Zero(t, e.RoundTrips())
}

func TestFetch_BackendErrorIsWrappedOnce(t *testing.T) {
	ctx := context.Background()
	s, schema := testutil.FourMembers(t)
	e := testutil.NewEngine(t, s, engine.WithIDGenerator(engine.NewFixedGenerator("q-err")))
	f := fixture{t: t, schema: schema}

	_, err := s.DB().Exec("DROP TABLE member")
	require.NoError(t, err)

	_, err = e.Fetch(ctx, f.members(f.path("Member", "m")))
	require.Error(t, err)
	assert.True(t, engine.IsBackendError(err))

	var ee *engine.ExecutionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, engine.ErrCodeBackend, ee.Code)
	assert.Equal(t, "q-err", ee.QueryID)
	require.NotNil(t, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "no such table")
	assert.Equal(t, int64(1), e.RoundTrips(), "no retry")
}

func TestFetch_OneRoundTripPerOperation(t *testing.T) {
	ctx := context.Background()
	e, f := setup(t)
	sel := f.members(f.path("Member", "m", "age"))

	_, err := e.Fetch(ctx, sel)
	require.NoError(t, err)
	_, _, err = e.FetchFirst(ctx, sel)
	require.NoError(t, err)
	_, err = e.Count(ctx, sel)
	require.NoError(t, err)

	assert.Equal(t, int64(3), e.RoundTrips())
}

func TestFetch_LogsQueryExecuted(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e, f := setup(t,
		engine.WithLogger(logger),
		engine.WithIDGenerator(testutil.NewFixedQueryIDGenerator("q-log")),
	)

	_, err := e.Fetch(context.Background(), f.members(f.path("Member", "m", "age")))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="query executed"`)
	assert.Contains(t, out, "query_id=q-log")
	assert.Contains(t, out, "rows=4")
}

func TestTuple_LookupByEquivalentExpression(t *testing.T) {
	e, f := setup(t)
	teamName := f.path("Member", "m", "team", "name")

	sel := f.members(teamName, f.agg(queryir.AggAvg, f.path("Member", "m", "age")), f.path("Member", "m", "team"))
	sel.GroupBy = []queryir.Expr{teamName, f.path("Member", "m", "team")}
	sel.OrderBy = []queryir.OrderKey{{Expr: teamName}}

	rows, err := e.Fetch(context.Background(), sel)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	tuple := rows[0].Tuple()
	assert.Equal(t, 3, tuple.Len())

	// Rebuilt expressions find the same cells
	name, ok := tuple.Get(f.path("Member", "m", "team", "name"))
	require.True(t, ok)
	assert.Equal(t, ir.String("teamA"), name)

	avg, ok := tuple.Get(f.agg(queryir.AggAvg, f.path("Member", "m", "age")))
	require.True(t, ok)
	assert.Equal(t, ir.Decimal(15), avg)

	team, ok := tuple.Entity(f.path("Member", "m", "team"))
	require.True(t, ok)
	require.NotNil(t, team)
	assert.Equal(t, ir.Int(1), team.ID())

	_, ok = tuple.Get(f.path("Member", "m", "age"))
	assert.False(t, ok, "not projected")
	_, ok = tuple.Entity(f.path("Member", "m", "team", "name"))
	assert.False(t, ok, "scalar cell")

	assert.Equal(t, []string{"path(m.team.name)", "avg(path(m.age))", "entity(m.team:Team)"}, tuple.Keys())
}

func TestRow_Plain(t *testing.T) {
	e, f := setup(t)

	sel := f.members(f.path("Member", "m"), f.path("Member", "m", "age"))
	sel.Joins = []queryir.Join{f.teamJoin(queryir.JoinInner, true)}
	sel.Where = f.cmp(queryir.OpEq, f.path("Member", "m", "age"), queryir.Lit(ir.Int(10)))

	rows, err := e.Fetch(context.Background(), sel)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsEntity(0))
	assert.False(t, rows[0].IsEntity(1))

	assert.Equal(t, []any{
		map[string]any{
			"id":       int64(1),
			"username": "member1",
			"age":      int64(10),
			"score":    nil,
			"active":   true,
			"team":     map[string]any{"id": int64(1), "name": "teamA"},
		},
		int64(10),
	}, rows[0].Plain())
}
