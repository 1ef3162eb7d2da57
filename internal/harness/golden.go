package harness

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/sebdah/goldie/v2"
)

// json sorts map keys, which keeps snapshots deterministic.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the serialized outcome of a scenario, compared against
// golden files.
type Snapshot struct {
	ScenarioName string   `json:"scenario_name"`
	SQL          string   `json:"sql,omitempty"`
	Params       []any    `json:"params,omitempty"`
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	ErrorCode    string   `json:"error_code,omitempty"`
}

// NewSnapshot captures result under name.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: name,
		SQL:          result.SQL,
		Params:       result.Params,
		Columns:      result.Columns,
		Rows:         result.Rows,
		ErrorCode:    result.ErrorCode,
	}
}

// Marshal serializes the snapshot as indented JSON.
func (s Snapshot) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the golden file for
// scenarioName without re-running it.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
