package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/bitfox-hash/querydsl/internal/compiler"
	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/querydef"
)

// LoadResult contains a compiled schema and the entities it was built from.
type LoadResult struct {
	Schema   *ir.Schema
	Entities []ir.Entity
}

// LoadError represents an error that occurred while loading an input file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// LoadSchema compiles the CUE schema at path. Validation problems are
// collected, so a schema with several mistakes reports all of them; any
// other failure is returned alone.
func LoadSchema(path string) (*LoadResult, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path)}}
		}
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading schema: %v", err)}}
	}

	value := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	entities, err := compiler.CompileEntities(value)
	if err != nil {
		return nil, []error{convertCompileError(err)}
	}

	if verrs := compiler.Validate(entities); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = &LoadError{Code: v.Code, Message: fmt.Sprintf("%s: %s", v.Field, v.Message)}
		}
		return nil, errs
	}

	schema, err := ir.NewSchema(entities...)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: err.Error()}}
	}

	return &LoadResult{Schema: schema, Entities: entities}, nil
}

// loadSchemaFailFast is LoadSchema for commands that only need the schema.
func loadSchemaFailFast(path string) (*ir.Schema, error) {
	result, errs := LoadSchema(path)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return result.Schema, nil
}

// loadQuery reads a query definition file.
func loadQuery(path string) (*querydef.Definition, error) {
	def, err := querydef.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeInvalidQuery, Message: err.Error()}
	}
	return def, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// errorCode returns the code carried by err, or ErrCodeGeneric.
func errorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeConfig       = "E002" // Invalid configuration
	ErrCodeConnect      = "E003" // Backend connection failed
	ErrCodeInvalidQuery = "E004" // Query definition rejected
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeQueryFailed  = "E007" // Query failed to build or execute

	// Schema declaration errors
	ErrCodeNoEntities  = "E101" // No entity struct
	ErrCodeEntityShape = "E102" // Malformed entity declaration
	ErrCodeInvalidType = "E104" // Unsupported field type (e.g., list)
	ErrCodeAssociation = "E105" // Malformed association
)

// MapFieldToErrorCode maps a compiler error field to an error code.
// Field-level errors carry the bare field name and report a type problem.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "entity":
		return ErrCodeNoEntities
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.HasPrefix(field, "associations."):
		return ErrCodeAssociation
	case strings.HasPrefix(field, "entity."):
		return ErrCodeEntityShape
	case field == "":
		return ErrCodeGeneric
	default:
		return ErrCodeInvalidType
	}
}
