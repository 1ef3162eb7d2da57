package store

import (
	"context"
	"strings"
	"testing"

	"github.com/bitfox-hash/querydsl/internal/ir"
)

const teamDDL = `
CREATE TABLE team (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE member (
	id       INTEGER PRIMARY KEY,
	username TEXT,
	age      INTEGER NOT NULL,
	score    REAL,
	team_id  INTEGER REFERENCES team(id)
);`

func testEntities(t *testing.T) (*ir.Entity, *ir.Entity) {
	t.Helper()
	schema, err := ir.NewSchema(
		ir.Entity{
			Name: "Team", Table: "team", ID: "id",
			Fields: []ir.Field{{Name: "id", Type: ir.TypeInt}, {Name: "name", Type: ir.TypeString}},
		},
		ir.Entity{
			Name: "Member", Table: "member", ID: "id",
			Fields: []ir.Field{
				{Name: "id", Type: ir.TypeInt},
				{Name: "username", Type: ir.TypeString, Nullable: true},
				{Name: "age", Type: ir.TypeInt},
				{Name: "score", Type: ir.TypeDecimal, Nullable: true},
			},
			Associations: []ir.Association{{Name: "team", Target: "Team", ForeignKey: "team_id"}},
		},
	)
	if err != nil {
		t.Fatalf("NewSchema() failed: %v", err)
	}
	return schema.MustEntity("Team"), schema.MustEntity("Member")
}

// createTestStore creates a new in-memory store with the member/team tables.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.ApplySchema(context.Background(), teamDDL); err != nil {
		t.Fatalf("ApplySchema() failed: %v", err)
	}
	return s
}

func TestInsert_WritesFieldsAndForeignKeys(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	team, member := testEntities(t)

	if err := s.Insert(ctx, team, Row{"id": ir.Int(1), "name": ir.String("teamA")}); err != nil {
		t.Fatalf("Insert(team) failed: %v", err)
	}
	err := s.Insert(ctx, member, Row{
		"id":       ir.Int(7),
		"username": ir.Null{},
		"age":      ir.Int(30),
		"score":    ir.Int(2),
		"team":     ir.Int(1),
	})
	if err != nil {
		t.Fatalf("Insert(member) failed: %v", err)
	}

	var (
		username *string
		age      int64
		score    float64
		teamID   int64
	)
	row := s.DB().QueryRow("SELECT username, age, score, team_id FROM member WHERE id = 7")
	if err := row.Scan(&username, &age, &score, &teamID); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if username != nil {
		t.Errorf("username = %q, want NULL", *username)
	}
	if age != 30 || score != 2 || teamID != 1 {
		t.Errorf("got age=%d score=%v team_id=%d", age, score, teamID)
	}
}

func TestInsert_Rejects(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	_, member := testEntities(t)

	tests := []struct {
		name string
		row  Row
		want string
	}{
		{"empty row", Row{}, "empty row"},
		{"unknown field", Row{"id": ir.Int(1), "nickname": ir.String("x")}, `unknown field "nickname"`},
		{"wrong type", Row{"id": ir.Int(1), "age": ir.String("old")}, `field "age" is int, got string`},
		{"null for non-nullable", Row{"id": ir.Int(1), "age": ir.Null{}}, `field "age" is not nullable`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Insert(ctx, member, tt.row)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestInsert_BackendErrorIsWrapped(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	team, _ := testEntities(t)

	row := Row{"id": ir.Int(1), "name": ir.String("teamA")}
	if err := s.Insert(ctx, team, row); err != nil {
		t.Fatalf("first Insert() failed: %v", err)
	}

	err := s.Insert(ctx, team, row)
	if err == nil {
		t.Fatal("expected primary key violation")
	}
	if !strings.HasPrefix(err.Error(), "insert Team: ") {
		t.Errorf("error = %q, want insert Team prefix", err)
	}
}

func TestInsertAll_StopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	team, _ := testEntities(t)

	w, err := NewWriter(s.Adapter(), "sqlite3")
	if err != nil {
		t.Fatalf("NewWriter() failed: %v", err)
	}

	err = w.InsertAll(ctx, team, []Row{
		{"id": ir.Int(1), "name": ir.String("a")},
		{"id": ir.Int(1), "name": ir.String("b")},
		{"id": ir.Int(2), "name": ir.String("c")},
	})
	if err == nil || !strings.HasPrefix(err.Error(), "row 1: ") {
		t.Fatalf("InsertAll() error = %v, want row 1 failure", err)
	}

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM team").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestNewWriter_UnknownDialect(t *testing.T) {
	s := createTestStore(t)
	if _, err := NewWriter(s.Adapter(), "mysql"); err == nil {
		t.Error("expected error for unsupported dialect")
	}
}
