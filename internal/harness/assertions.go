package harness

import (
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string  // Assertion type for categorization
	Expected string  // Human-readable expected outcome
	Actual   string  // Human-readable actual outcome
	Rows     [][]any // Result rows for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nResult rows:\n")
	for i, row := range e.Rows {
		fmt.Fprintf(&buf, "  [%d] %v\n", i+1, row)
	}

	return buf.String()
}

// queryFailed reports a query error to a row assertion.
func queryFailed(result *Result, typ string) error {
	if result.ErrorCode == "" {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: "query to succeed",
		Actual:   fmt.Sprintf("%s: %s", result.ErrorCode, result.Err),
	}
}

// assertRows checks the rows in order.
func assertRows(result *Result, a Assertion) error {
	if err := queryFailed(result, a.Type); err != nil {
		return err
	}
	fail := func(actual string) error {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d rows %v", len(a.Rows), a.Rows), Actual: actual, Rows: result.Rows}
	}
	if len(result.Rows) != len(a.Rows) {
		return fail(fmt.Sprintf("%d rows", len(result.Rows)))
	}
	for i := range a.Rows {
		if !rowMatches(a.Rows[i], result.Rows[i]) {
			return fail(fmt.Sprintf("row %d is %v", i+1, result.Rows[i]))
		}
	}
	return nil
}

// assertRowsUnordered checks the rows as a multiset.
func assertRowsUnordered(result *Result, a Assertion) error {
	if err := queryFailed(result, a.Type); err != nil {
		return err
	}
	if len(result.Rows) != len(a.Rows) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d rows in any order", len(a.Rows)),
			Actual:   fmt.Sprintf("%d rows", len(result.Rows)),
			Rows:     result.Rows,
		}
	}

	used := make([]bool, len(result.Rows))
	for i, want := range a.Rows {
		found := false
		for j, got := range result.Rows {
			if !used[j] && rowMatches(want, got) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("expected row %d %v", i+1, want),
				Actual:   "no unmatched result row equals it",
				Rows:     result.Rows,
			}
		}
	}
	return nil
}

// assertContains checks that some row matches.
func assertContains(result *Result, a Assertion) error {
	if err := queryFailed(result, a.Type); err != nil {
		return err
	}
	for _, got := range result.Rows {
		if rowMatches(a.Row, got) {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("a row %v", a.Row),
		Actual:   "not found",
		Rows:     result.Rows,
	}
}

// assertRowCount checks the number of rows.
func assertRowCount(result *Result, a Assertion) error {
	if err := queryFailed(result, a.Type); err != nil {
		return err
	}
	if len(result.Rows) != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d rows", *a.Count),
			Actual:   fmt.Sprintf("%d rows", len(result.Rows)),
			Rows:     result.Rows,
		}
	}
	return nil
}

// assertError checks the failure code of the query.
func assertError(result *Result, a Assertion) error {
	if result.ErrorCode == a.Code {
		return nil
	}
	actual := "query succeeded"
	if result.ErrorCode != "" {
		actual = fmt.Sprintf("%s: %s", result.ErrorCode, result.Err)
	}
	return &AssertionError{Type: a.Type, Expected: "error " + a.Code, Actual: actual, Rows: result.Rows}
}

// rowMatches compares an expected row against a result row cell by cell.
func rowMatches(want, got []any) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if !valuesEqual(want[i], got[i]) {
			return false
		}
	}
	return true
}

// valuesEqual compares an expected YAML value with a plain result value.
// Numbers compare by value; expected maps match entity cells as subsets.
func valuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if want, ok := expected.(map[string]any); ok {
		got, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range want {
			if !valuesEqual(v, got[k]) {
				return false
			}
		}
		return true
	}

	if ef, ok := toFloat(expected); ok {
		af, ok := toFloat(actual)
		return ok && ef == af
	}

	return reflect.DeepEqual(expected, actual)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRows:
			err = assertRows(result, a)
		case AssertRowsUnordered:
			err = assertRowsUnordered(result, a)
		case AssertContains:
			err = assertContains(result, a)
		case AssertRowCount:
			err = assertRowCount(result, a)
		case AssertError:
			err = assertError(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err))
		}
	}

	// A failed query with no error assertion is a failure on its own.
	if result.ErrorCode != "" && !expectsError(assertions) && len(errs) == 0 {
		errs = append(errs, fmt.Sprintf("query failed: %s: %s", result.ErrorCode, result.Err))
	}
	return errs
}

func expectsError(assertions []Assertion) bool {
	for _, a := range assertions {
		if a.Type == AssertError {
			return true
		}
	}
	return false
}
