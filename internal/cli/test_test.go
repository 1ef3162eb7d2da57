package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testScenarios = filepath.Join("testdata", "scenarios")

func executeTest(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

// copyScenarios copies the scenario fixtures into a temporary directory,
// leaving golden files behind.
func copyScenarios(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"schema.cue", "schema.sql", "team_average.yaml", "ungrouped_projection.yaml"} {
		data, err := os.ReadFile(filepath.Join(testScenarios, name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeTest(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentPath(t *testing.T) {
	_, err := executeTest(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "does not exist")
}

func TestTestCommandEmptyDir(t *testing.T) {
	buf, err := executeTest(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No scenarios found")
}

func TestTestCommandEmptyDirJSON(t *testing.T) {
	buf, err := executeTest(t, "json", t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.Empty(t, resp.Data.Scenarios)
}

func TestTestCommandRunsScenarios(t *testing.T) {
	buf, err := executeTest(t, "text", testScenarios)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ team_average")
	assert.Contains(t, output, "✓ ungrouped_projection")
	assert.Contains(t, output, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, output, "✓ All scenarios passed")
}

func TestTestCommandJSON(t *testing.T) {
	buf, err := executeTest(t, "json", testScenarios)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 2)
	assert.Equal(t, "team_average", resp.Data.Scenarios[0].Name)
}

func TestTestCommandSingleFile(t *testing.T) {
	buf, err := executeTest(t, "text", filepath.Join(testScenarios, "team_average.yaml"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 passed, 0 failed, 1 total")
}

func TestTestCommandFilter(t *testing.T) {
	buf, err := executeTest(t, "text", testScenarios, "--filter", "ungrouped*")
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ ungrouped_projection")
	assert.NotContains(t, output, "team_average")
	assert.Contains(t, output, "1 passed, 0 failed, 1 total")
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, err := executeTest(t, "text", testScenarios, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := copyScenarios(t)
	failing := `
name: wrong_average
description: expects the wrong average
schema: schema.cue
ddl: schema.sql
seed:
  - entity: Member
    rows:
      - {id: 1, username: member1, age: 10}
query:
  from: [{entity: Member, as: m}]
  select: ["avg(m.age)"]
assertions:
  - type: rows
    rows:
      - [11]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_average.yaml"), []byte(failing), 0644))

	buf, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ wrong_average")
	assert.Contains(t, output, "1 failed")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\nassertions: [\n"), 0644))

	buf, err := executeTest(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Error  CLIError   `json:"error"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "broken.yaml", resp.Data.Scenarios[0].Name)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "failed to load scenario")
}

func TestTestCommandUpdateGolden(t *testing.T) {
	dir := copyScenarios(t)

	buf, err := executeTest(t, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ ungrouped_projection (golden updated)")

	written, err := os.ReadFile(filepath.Join(dir, "golden", "ungrouped_projection.golden"))
	require.NoError(t, err)
	fixture, err := os.ReadFile(filepath.Join(testScenarios, "golden", "ungrouped_projection.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(fixture), string(written))

	_, err = os.Stat(filepath.Join(dir, "golden", "team_average.golden"))
	require.NoError(t, err)

	// A second run compares against the files just written.
	buf, err = executeTest(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "2 passed, 0 failed")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := copyScenarios(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "ungrouped_projection.golden"), []byte("{}"), 0644))

	buf, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "does not match golden file")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "team_average.golden"),
		goldenFilePath(filepath.Join("scenarios", "team_average.yaml")))
}
