package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/bitfox-hash/querydsl/internal/ir"
)

// CompileSchemaFile reads a CUE file declaring entities and compiles it.
func CompileSchemaFile(path string) (*ir.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return CompileSchemaSource(path, data)
}

// CompileSchemaSource compiles CUE source text declaring entities. name is
// used in error positions.
func CompileSchemaSource(name string, data []byte) (*ir.Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	return CompileSchema(v)
}

// CompileSchema compiles the top-level CUE value holding an `entity` struct,
// validates the result and registers it in an immutable ir.Schema.
//
//	entity: Member: {
//		table: "member"
//		id:    "id"
//		fields: { id: int, username: string | null, age: int }
//		associations: team: { target: "Team", foreign_key: "team_id" }
//	}
func CompileSchema(v cue.Value) (*ir.Schema, error) {
	entities, err := CompileEntities(v)
	if err != nil {
		return nil, err
	}

	if errs := Validate(entities); len(errs) > 0 {
		return nil, errs[0]
	}

	return ir.NewSchema(entities...)
}

// CompileEntities parses every entity declared under `entity` in v.
// Declaration order is preserved. Semantic checks are left to Validate.
func CompileEntities(v cue.Value) ([]ir.Entity, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	entityVal := v.LookupPath(cue.ParsePath("entity"))
	if !entityVal.Exists() {
		return nil, &CompileError{
			Field:   "entity",
			Message: "no entities declared",
			Pos:     v.Pos(),
		}
	}

	iter, err := entityVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var entities []ir.Entity
	for iter.Next() {
		entity, err := compileEntity(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}

	return entities, nil
}

func compileEntity(name string, v cue.Value) (ir.Entity, error) {
	entity := ir.Entity{Name: name, Table: name, ID: "id"}

	if tableVal := v.LookupPath(cue.ParsePath("table")); tableVal.Exists() {
		table, err := tableVal.String()
		if err != nil {
			return entity, formatCUEError(err)
		}
		entity.Table = table
	}

	if idVal := v.LookupPath(cue.ParsePath("id")); idVal.Exists() {
		id, err := idVal.String()
		if err != nil {
			return entity, formatCUEError(err)
		}
		entity.ID = id
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return entity, &CompileError{
			Field:   fmt.Sprintf("entity.%s.fields", name),
			Message: "fields are required",
			Pos:     v.Pos(),
		}
	}

	fieldIter, err := fieldsVal.Fields()
	if err != nil {
		return entity, formatCUEError(err)
	}
	for fieldIter.Next() {
		field, err := compileField(fieldIter.Label(), fieldIter.Value())
		if err != nil {
			return entity, err
		}
		entity.Fields = append(entity.Fields, field)
	}

	assocVal := v.LookupPath(cue.ParsePath("associations"))
	if assocVal.Exists() {
		assocIter, err := assocVal.Fields()
		if err != nil {
			return entity, formatCUEError(err)
		}
		for assocIter.Next() {
			assoc, err := compileAssociation(assocIter.Label(), assocIter.Value())
			if err != nil {
				return entity, err
			}
			entity.Associations = append(entity.Associations, assoc)
		}
	}

	return entity, nil
}

// compileField accepts either a bare type (`age: int`, `name: string | null`)
// or a struct with `type`, and optional `column` and `nullable`.
func compileField(name string, v cue.Value) (ir.Field, error) {
	field := ir.Field{Name: name, Column: name}

	if v.IncompleteKind() == cue.StructKind {
		typeVal := v.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return field, &CompileError{
				Field:   name,
				Message: "field struct requires a type",
				Pos:     v.Pos(),
			}
		}
		typeName, err := typeVal.String()
		if err != nil {
			return field, formatCUEError(err)
		}
		field.Type, err = ir.ParseType(typeName)
		if err != nil || field.Type == ir.TypeNull {
			return field, &CompileError{
				Field:   name,
				Message: fmt.Sprintf("unsupported field type %q", typeName),
				Pos:     typeVal.Pos(),
			}
		}
		if colVal := v.LookupPath(cue.ParsePath("column")); colVal.Exists() {
			if field.Column, err = colVal.String(); err != nil {
				return field, formatCUEError(err)
			}
		}
		if nullVal := v.LookupPath(cue.ParsePath("nullable")); nullVal.Exists() {
			if field.Nullable, err = nullVal.Bool(); err != nil {
				return field, formatCUEError(err)
			}
		}
		return field, nil
	}

	kind := v.IncompleteKind()
	if kind&cue.NullKind != 0 {
		field.Nullable = true
		kind &^= cue.NullKind
	}

	typ, err := typeForKind(name, kind, v.Pos())
	if err != nil {
		return field, err
	}
	field.Type = typ
	return field, nil
}

// typeForKind maps CUE kinds to value types.
func typeForKind(name string, kind cue.Kind, pos token.Pos) (ir.Type, error) {
	switch kind {
	case cue.StringKind:
		return ir.TypeString, nil
	case cue.IntKind:
		return ir.TypeInt, nil
	case cue.FloatKind, cue.NumberKind:
		return ir.TypeDecimal, nil
	case cue.BoolKind:
		return ir.TypeBool, nil
	default:
		return ir.TypeNull, &CompileError{
			Field:   name,
			Message: fmt.Sprintf("unsupported type kind: %v", kind),
			Pos:     pos,
		}
	}
}

func compileAssociation(name string, v cue.Value) (ir.Association, error) {
	assoc := ir.Association{Name: name, ForeignKey: name + "_id"}

	targetVal := v.LookupPath(cue.ParsePath("target"))
	if !targetVal.Exists() {
		return assoc, &CompileError{
			Field:   fmt.Sprintf("associations.%s.target", name),
			Message: "association target is required",
			Pos:     v.Pos(),
		}
	}
	target, err := targetVal.String()
	if err != nil {
		return assoc, formatCUEError(err)
	}
	assoc.Target = target

	if fkVal := v.LookupPath(cue.ParsePath("foreign_key")); fkVal.Exists() {
		if assoc.ForeignKey, err = fkVal.String(); err != nil {
			return assoc, formatCUEError(err)
		}
	}

	return assoc, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
