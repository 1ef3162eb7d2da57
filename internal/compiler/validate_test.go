package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitfox-hash/querydsl/internal/ir"
)

func validEntities() []ir.Entity {
	return []ir.Entity{
		{
			Name: "Team", Table: "team", ID: "id",
			Fields: []ir.Field{
				{Name: "id", Column: "id", Type: ir.TypeInt},
				{Name: "name", Column: "name", Type: ir.TypeString},
			},
		},
		{
			Name: "Member", Table: "member", ID: "id",
			Fields: []ir.Field{
				{Name: "id", Column: "id", Type: ir.TypeInt},
				{Name: "age", Column: "age", Type: ir.TypeInt},
			},
			Associations: []ir.Association{{Name: "team", Target: "Team", ForeignKey: "team_id"}},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateValid(t *testing.T) {
	assert.Empty(t, Validate(validEntities()))
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]ir.Entity) []ir.Entity
		code   string
	}{
		{
			name:   "duplicate entity",
			mutate: func(es []ir.Entity) []ir.Entity { return append(es, es[0]) },
			code:   ErrDuplicateEntity,
		},
		{
			name:   "missing id",
			mutate: func(es []ir.Entity) []ir.Entity { es[0].ID = "uuid"; return es },
			code:   ErrMissingIDField,
		},
		{
			name:   "unknown target",
			mutate: func(es []ir.Entity) []ir.Entity { es[1].Associations[0].Target = "Club"; return es },
			code:   ErrUnknownTarget,
		},
		{
			name: "duplicate field",
			mutate: func(es []ir.Entity) []ir.Entity {
				es[0].Fields = append(es[0].Fields, ir.Field{Name: "name", Column: "name2", Type: ir.TypeString})
				return es
			},
			code: ErrDuplicateField,
		},
		{
			name:   "association reuses field name",
			mutate: func(es []ir.Entity) []ir.Entity { es[1].Associations[0].Name = "age"; return es },
			code:   ErrDuplicateField,
		},
		{
			name:   "foreign key collides",
			mutate: func(es []ir.Entity) []ir.Entity { es[1].Associations[0].ForeignKey = "age"; return es },
			code:   ErrForeignKeyField,
		},
		{
			name:   "empty table",
			mutate: func(es []ir.Entity) []ir.Entity { es[0].Table = " "; return es },
			code:   ErrEmptyTable,
		},
		{
			name:   "nullable id",
			mutate: func(es []ir.Entity) []ir.Entity { es[0].Fields[0].Nullable = true; return es },
			code:   ErrNullableIDField,
		},
		{
			name:   "no fields",
			mutate: func(es []ir.Entity) []ir.Entity { es[0].Fields = nil; return es },
			code:   ErrEmptyEntityFields,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.mutate(validEntities()))
			assert.Contains(t, codes(errs), tt.code)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	es := validEntities()
	es[0].Table = ""
	es[1].Associations[0].Target = "Club"

	errs := Validate(es)
	assert.Len(t, errs, 2)
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{Field: "entity.Team.table", Message: "table must be non-empty", Code: ErrEmptyTable}
	assert.Equal(t, "[E206] entity.Team.table: table must be non-empty", err.Error())
}
