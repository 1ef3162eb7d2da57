package testutil

import (
	"context"
	_ "embed"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitfox-hash/querydsl/internal/compiler"
	"github.com/bitfox-hash/querydsl/internal/engine"
	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/store"
)

// SchemaCUE declares the Member/Team fixture entities.
//
//go:embed fixtures/schema.cue
var SchemaCUE []byte

// SchemaSQL creates the fixture tables.
//
//go:embed fixtures/schema.sql
var SchemaSQL string

// Team is a fixture row of the team table.
type Team struct {
	ID   int64
	Name string
}

// Member is a fixture row of the member table. A zero Team leaves the member
// without a team.
type Member struct {
	ID       int64
	Username *string
	Age      int64
	Score    *float64
	Team     int64
}

// Str returns a pointer to s, for optional fixture fields.
func Str(s string) *string { return &s }

// Float returns a pointer to f, for optional fixture fields.
func Float(f float64) *float64 { return &f }

// Schema compiles the fixture schema.
func Schema(t testing.TB) *ir.Schema {
	t.Helper()
	s, err := compiler.CompileSchemaSource("fixtures/schema.cue", SchemaCUE)
	require.NoError(t, err)
	return s
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewStore opens an in-memory store holding the fixture tables.
func NewStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.ApplySchema(context.Background(), SchemaSQL))
	return s
}

// NewEngine creates a sqlite engine over s with a discard logger.
func NewEngine(t testing.TB, s *store.Store, opts ...engine.Option) *engine.Engine {
	t.Helper()
	opts = append([]engine.Option{engine.WithLogger(Logger())}, opts...)
	e, err := engine.New(s.Adapter(), opts...)
	require.NoError(t, err)
	return e
}

// Seed inserts teams, then members.
func Seed(t testing.TB, s *store.Store, schema *ir.Schema, teams []Team, members []Member) {
	t.Helper()
	ctx := context.Background()

	team := schema.MustEntity("Team")
	for _, tm := range teams {
		require.NoError(t, s.Insert(ctx, team, store.Row{
			"id":   ir.Int(tm.ID),
			"name": ir.String(tm.Name),
		}))
	}

	member := schema.MustEntity("Member")
	for _, m := range members {
		row := store.Row{
			"id":       ir.Int(m.ID),
			"age":      ir.Int(m.Age),
			"username": ir.Null{},
			"score":    ir.Null{},
			"team":     ir.Null{},
		}
		if m.Username != nil {
			row["username"] = ir.String(*m.Username)
		}
		if m.Score != nil {
			row["score"] = ir.Decimal(*m.Score)
		}
		if m.Team != 0 {
			row["team"] = ir.Int(m.Team)
		}
		require.NoError(t, s.Insert(ctx, member, row))
	}
}

// FourMembers seeds members aged 10, 20, 30 and 40; the first two belong
// to teamA, the others to teamB.
func FourMembers(t testing.TB) (*store.Store, *ir.Schema) {
	t.Helper()
	schema := Schema(t)
	s := NewStore(t)
	Seed(t, s, schema,
		[]Team{{ID: 1, Name: "teamA"}, {ID: 2, Name: "teamB"}},
		[]Member{
			{ID: 1, Username: Str("member1"), Age: 10, Team: 1},
			{ID: 2, Username: Str("member2"), Age: 20, Team: 1},
			{ID: 3, Username: Str("member3"), Age: 30, Team: 2},
			{ID: 4, Username: Str("member4"), Age: 40, Team: 2},
		},
	)
	return s, schema
}
