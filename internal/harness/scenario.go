package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bitfox-hash/querydsl/internal/querydef"
)

// Scenario defines one query test.
type Scenario struct {
	// Name uniquely identifies the scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// Schema is the CUE entity declaration file.
	Schema string `yaml:"schema"`

	// DDL is a SQL file creating the tables the schema maps to.
	DDL string `yaml:"ddl"`

	// Seed lists rows to insert, in order, before the query runs.
	Seed []SeedSet `yaml:"seed,omitempty"`

	// Query is the definition under test. QueryFile names a definition
	// file instead; exactly one of them is required.
	Query     *querydef.Definition `yaml:"query,omitempty"`
	QueryFile string               `yaml:"query_file,omitempty"`

	// Assertions are evaluated against the query outcome.
	Assertions []Assertion `yaml:"assertions"`

	// QueryID fixes the execution ID. Defaults to "test-query-default".
	QueryID string `yaml:"query_id,omitempty"`
}

// SeedSet holds rows of one entity. Row keys are field or association
// names; an association takes the target's identity.
type SeedSet struct {
	Entity string           `yaml:"entity"`
	Rows   []map[string]any `yaml:"rows"`
}

// Assertion validates the query outcome.
type Assertion struct {
	// Type is one of rows, rows_unordered, contains, row_count, error.
	Type string `yaml:"type"`

	// Rows are the expected rows (rows, rows_unordered).
	Rows [][]any `yaml:"rows,omitempty"`

	// Row must appear among the result rows (contains).
	Row []any `yaml:"row,omitempty"`

	// Count is the expected number of rows (row_count).
	Count *int `yaml:"count,omitempty"`

	// Code is the expected error code (error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertRows          = "rows"
	AssertRowsUnordered = "rows_unordered"
	AssertContains      = "contains"
	AssertRowCount      = "row_count"
	AssertError         = "error"
)

// LoadScenario reads and parses a scenario file. Relative paths inside it
// are resolved against the file's directory. Unknown keys are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving relative paths against
// basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for _, p := range []*string{&scenario.Schema, &scenario.DDL, &scenario.QueryFile} {
		if *p != "" && !filepath.IsAbs(*p) && basePath != "" {
			*p = filepath.Join(basePath, *p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if scenario.QueryFile != "" {
		def, err := querydef.Load(scenario.QueryFile)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario: %w", err)
		}
		scenario.Query = def
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if s.DDL == "" {
		return fmt.Errorf("ddl is required")
	}
	if (s.Query == nil) == (s.QueryFile == "") {
		return fmt.Errorf("exactly one of query and query_file is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, p := range []string{s.Schema, s.DDL, s.QueryFile} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}

	for i, set := range s.Seed {
		if set.Entity == "" {
			return fmt.Errorf("seed[%d]: entity is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRows, AssertRowsUnordered:
		if a.Rows == nil {
			return fmt.Errorf("assertions[%d]: rows is required for %s (use [] for none)", index, a.Type)
		}
	case AssertContains:
		if len(a.Row) == 0 {
			return fmt.Errorf("assertions[%d]: row is required for contains", index)
		}
	case AssertRowCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: a non-negative count is required for row_count", index)
		}
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
