package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitfox-hash/querydsl/internal/engine"
	"github.com/bitfox-hash/querydsl/internal/querydef"
	"github.com/bitfox-hash/querydsl/internal/queryir"
)

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"nil", nil, nil, true},
		{"nil vs value", nil, int64(1), false},
		{"int vs int64", 15, int64(15), true},
		{"int vs float", 15, 15.0, true},
		{"float mismatch", 15.5, 15.0, false},
		{"string", "a", "a", true},
		{"string vs number", "1", int64(1), false},
		{"bool", true, true, true},
		{"entity subset", map[string]any{"id": 1}, map[string]any{"id": int64(1), "age": int64(3)}, true},
		{"entity mismatch", map[string]any{"id": 2}, map[string]any{"id": int64(1)}, false},
		{"entity vs scalar", map[string]any{"id": 1}, int64(1), false},
		{"nested fetched", map[string]any{"team": map[string]any{"name": "a"}}, map[string]any{"team": map[string]any{"id": int64(1), "name": "a"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, valuesEqual(tt.expected, tt.actual))
		})
	}
}

func TestEvaluateAssertions(t *testing.T) {
	count := func(n int) *int { return &n }
	ok := &Result{Rows: [][]any{{"a", int64(1)}, {"b", int64(2)}}}
	failed := &Result{Rows: [][]any{}, ErrorCode: "UNGROUPED_PROJECTION", Err: "invalid query"}

	tests := []struct {
		name   string
		result *Result
		a      Assertion
		pass   bool
	}{
		{"rows", ok, Assertion{Type: AssertRows, Rows: [][]any{{"a", 1}, {"b", 2}}}, true},
		{"rows order matters", ok, Assertion{Type: AssertRows, Rows: [][]any{{"b", 2}, {"a", 1}}}, false},
		{"rows length", ok, Assertion{Type: AssertRows, Rows: [][]any{{"a", 1}}}, false},
		{"unordered", ok, Assertion{Type: AssertRowsUnordered, Rows: [][]any{{"b", 2}, {"a", 1}}}, true},
		{"unordered duplicates", ok, Assertion{Type: AssertRowsUnordered, Rows: [][]any{{"a", 1}, {"a", 1}}}, false},
		{"contains", ok, Assertion{Type: AssertContains, Row: []any{"b", 2}}, true},
		{"contains missing", ok, Assertion{Type: AssertContains, Row: []any{"c", 3}}, false},
		{"count", ok, Assertion{Type: AssertRowCount, Count: count(2)}, true},
		{"count mismatch", ok, Assertion{Type: AssertRowCount, Count: count(0)}, false},
		{"error", failed, Assertion{Type: AssertError, Code: "UNGROUPED_PROJECTION"}, true},
		{"error other code", failed, Assertion{Type: AssertError, Code: "TYPE_ERROR"}, false},
		{"error on success", ok, Assertion{Type: AssertError, Code: "TYPE_ERROR"}, false},
		{"rows on failure", failed, Assertion{Type: AssertRows, Rows: [][]any{}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(tt.result, []Assertion{tt.a})
			assert.Equal(t, tt.pass, len(errs) == 0, "errors: %v", errs)
		})
	}
}

func TestEvaluateAssertions_UnexpectedFailure(t *testing.T) {
	failed := &Result{ErrorCode: "BACKEND_FAILED", Err: "no such table"}
	count := 0

	errs := EvaluateAssertions(failed, []Assertion{{Type: AssertRowCount, Count: &count}})
	assert.Len(t, errs, 1, "the failing assertion already reports the error")

	errs = EvaluateAssertions(failed, nil)
	assert.Equal(t, []string{"query failed: BACKEND_FAILED: no such table"}, errs)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, queryir.CodeMissingOn, ErrorCode(&queryir.StructureError{Code: queryir.CodeMissingOn}))
	assert.Equal(t, CodeTypeError, ErrorCode(&queryir.TypeError{Op: "eq"}))
	assert.Equal(t, string(engine.ErrCodeNonUnique), ErrorCode(engine.NewNonUniqueError("q")))
	assert.Equal(t, CodeDefinitionError, ErrorCode(&querydef.Error{Field: "select"}))
	assert.Equal(t, CodeUnknown, ErrorCode(errors.New("boom")))
}
