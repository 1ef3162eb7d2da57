package queryir

import (
	"errors"
	"fmt"

	"github.com/bitfox-hash/querydsl/internal/ir"
)

// TypeError reports operands that cannot be combined. It is raised while an
// expression is being constructed, before any query exists.
type TypeError struct {
	Op      string
	Left    ir.Type
	Right   ir.Type
	Message string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error in %s: %s", e.Op, e.Message)
}

func typeErr(op string, left, right ir.Type, format string, args ...any) *TypeError {
	return &TypeError{Op: op, Left: left, Right: right, Message: fmt.Sprintf(format, args...)}
}

// IsTypeError checks if err is a construction-time type error.
func IsTypeError(err error) bool {
	var te *TypeError
	return errors.As(err, &te)
}

// Structure error codes.
const (
	CodeEmptyProjection     = "EMPTY_PROJECTION"
	CodeEmptySource         = "EMPTY_SOURCE"
	CodeDuplicateAlias      = "DUPLICATE_ALIAS"
	CodeUnknownAlias        = "UNKNOWN_ALIAS"
	CodeMissingOn           = "MISSING_ON"
	CodeUngroupedProjection = "UNGROUPED_PROJECTION"
	CodeFetchJoin           = "INVALID_FETCH_JOIN"
	CodeSubqueryArity       = "SUBQUERY_ARITY"
	CodeNotPredicate        = "NOT_A_PREDICATE"
)

// StructureError reports a query whose parts are individually well typed
// but do not form a valid query.
type StructureError struct {
	Code    string
	Message string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("invalid query [%s]: %s", e.Code, e.Message)
}

func structureErr(code, format string, args ...any) *StructureError {
	return &StructureError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsStructureError checks if err is a structural query error.
func IsStructureError(err error) bool {
	var se *StructureError
	return errors.As(err, &se)
}

// StructureCode returns the code of a structural error, or "" for any other error.
func StructureCode(err error) string {
	var se *StructureError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
