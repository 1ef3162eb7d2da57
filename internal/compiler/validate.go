package compiler

import (
	"fmt"
	"strings"

	"github.com/bitfox-hash/querydsl/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrDuplicateEntity   = "E201" // entity declared twice
	ErrMissingIDField    = "E202" // id names no declared field
	ErrUnknownTarget     = "E203" // association targets an undeclared entity
	ErrDuplicateField    = "E204" // field or association name reused
	ErrForeignKeyField   = "E205" // foreign key column collides with a field column
	ErrEmptyTable        = "E206" // table name is empty
	ErrNullableIDField   = "E207" // identity field declared nullable
	ErrEmptyEntityFields = "E208" // entity declares no fields
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks entity declarations against schema rules.
// Returns all errors found (does not fail-fast).
func Validate(entities []ir.Entity) []ValidationError {
	var errs []ValidationError

	declared := make(map[string]bool, len(entities))
	for _, e := range entities {
		if declared[e.Name] {
			errs = append(errs, ValidationError{
				Field:   "entity." + e.Name,
				Message: fmt.Sprintf("duplicate entity %q", e.Name),
				Code:    ErrDuplicateEntity,
			})
		}
		declared[e.Name] = true
	}

	for _, e := range entities {
		errs = append(errs, validateEntity(e, declared)...)
	}

	return errs
}

func validateEntity(e ir.Entity, declared map[string]bool) []ValidationError {
	var errs []ValidationError
	prefix := "entity." + e.Name

	if strings.TrimSpace(e.Table) == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".table",
			Message: "table must be non-empty",
			Code:    ErrEmptyTable,
		})
	}

	if len(e.Fields) == 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".fields",
			Message: "at least one field is required",
			Code:    ErrEmptyEntityFields,
		})
	}

	names := make(map[string]bool)
	columns := make(map[string]bool)
	for _, f := range e.Fields {
		if names[f.Name] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".fields." + f.Name,
				Message: fmt.Sprintf("duplicate field %q", f.Name),
				Code:    ErrDuplicateField,
			})
		}
		names[f.Name] = true
		columns[f.Column] = true
	}

	if id, ok := e.Field(e.ID); !ok {
		errs = append(errs, ValidationError{
			Field:   prefix + ".id",
			Message: fmt.Sprintf("id field %q is not declared", e.ID),
			Code:    ErrMissingIDField,
		})
	} else if id.Nullable {
		errs = append(errs, ValidationError{
			Field:   prefix + ".id",
			Message: fmt.Sprintf("id field %q must not be nullable", e.ID),
			Code:    ErrNullableIDField,
		})
	}

	for _, a := range e.Associations {
		path := prefix + ".associations." + a.Name
		if names[a.Name] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("association %q reuses a field name", a.Name),
				Code:    ErrDuplicateField,
			})
		}
		names[a.Name] = true

		if !declared[a.Target] {
			errs = append(errs, ValidationError{
				Field:   path + ".target",
				Message: fmt.Sprintf("unknown target entity %q", a.Target),
				Code:    ErrUnknownTarget,
			})
		}
		if columns[a.ForeignKey] {
			errs = append(errs, ValidationError{
				Field:   path + ".foreign_key",
				Message: fmt.Sprintf("foreign key %q collides with a field column", a.ForeignKey),
				Code:    ErrForeignKeyField,
			})
		}
		columns[a.ForeignKey] = true
	}

	return errs
}
