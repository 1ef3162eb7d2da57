package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuery(name string) string {
	return filepath.Join("testdata", "queries", name+".yaml")
}

func executeSQL(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewSQLCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestSQLCommandSQLite(t *testing.T) {
	buf, err := executeSQL(t, "text", "--schema", testSchema, testQuery("adults"))
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "SELECT `m`.`username` FROM `member` AS `m`")
	assert.Contains(t, output, ">= ?")
	assert.Contains(t, output, "  $1 = 18")
}

func TestSQLCommandPostgresJSON(t *testing.T) {
	buf, err := executeSQL(t, "json", "--schema", testSchema, "--dialect", "postgres", testQuery("adults"))
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   SQLResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "postgres", resp.Data.Dialect)
	assert.Contains(t, resp.Data.SQL, `FROM "member" AS "m"`)
	assert.Contains(t, resp.Data.SQL, "$1")
	assert.Equal(t, []any{float64(18)}, resp.Data.Params)
}

func TestSQLCommandImplicitJoin(t *testing.T) {
	buf, err := executeSQL(t, "text", "--schema", testSchema, testQuery("team_average"))
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "INNER JOIN `team` AS `m_team`")
	assert.Contains(t, output, "AVG(`m`.`age`)")
	assert.Contains(t, output, "GROUP BY `m_team`.`name`")
}

func TestSQLCommandCount(t *testing.T) {
	buf, err := executeSQL(t, "json", "--schema", testSchema, "--count", testQuery("team_average"))
	require.NoError(t, err)

	var resp struct {
		Data SQLResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Contains(t, resp.Data.SQL, "COUNT(*)")
	assert.Contains(t, resp.Data.SQL, "AS `q`")
	assert.NotContains(t, resp.Data.SQL, "ORDER BY")
}

func TestSQLCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		exitCode int
		code     string
	}{
		{
			name:     "unknown dialect",
			args:     []string{"--schema", testSchema, "--dialect", "mysql", testQuery("adults")},
			exitCode: ExitCommandError,
			code:     ErrCodeConfig,
		},
		{
			name:     "missing schema",
			args:     []string{"--schema", "/nonexistent/schema.cue", testQuery("adults")},
			exitCode: ExitCommandError,
			code:     ErrCodeNotFound,
		},
		{
			name:     "missing query",
			args:     []string{"--schema", testSchema, testQuery("nonexistent")},
			exitCode: ExitCommandError,
			code:     ErrCodeNotFound,
		},
		{
			name:     "rejected query",
			args:     []string{"--schema", testSchema, testQuery("ungrouped")},
			exitCode: ExitFailure,
			code:     ErrCodeQueryFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := executeSQL(t, "text", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.Contains(t, buf.String(), "Error ["+tt.code+"]")
		})
	}
}

func TestSQLCommandRequiresSchema(t *testing.T) {
	_, err := executeSQL(t, "text", testQuery("adults"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "schema")
}
