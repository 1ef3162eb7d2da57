package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// SQL and Params are the compiled statement, empty when the query
	// failed before compilation.
	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`

	// Columns are the select items as written in the definition.
	Columns []string `json:"columns"`

	// Rows holds one slice of plain Go values per result row.
	Rows [][]any `json:"rows"`

	// ErrorCode classifies a failed query; see ErrorCode. Empty on success.
	ErrorCode string `json:"error_code,omitempty"`
	Err       string `json:"error,omitempty"`

	// Errors lists failed assertions.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Columns: []string{},
		Rows:    [][]any{},
		Errors:  []string{},
	}
}

// AddError records a failed assertion and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
