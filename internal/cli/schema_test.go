package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = filepath.Join("testdata", "schema.cue")

func TestSchemaCommandText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSchemaCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{testSchema})

	require.NoError(t, cmd.Execute())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "schema_text", buf.Bytes())
}

func TestSchemaCommandJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSchemaCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{testSchema})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Entities []struct {
				Name   string `json:"name"`
				Table  string `json:"table"`
				Fields []struct {
					Name string `json:"name"`
					Type string `json:"type"`
				} `json:"fields"`
			} `json:"entities"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Entities, 2)
	assert.Equal(t, "Team", resp.Data.Entities[0].Name)
	assert.Equal(t, "member", resp.Data.Entities[1].Table)
	assert.Equal(t, "decimal", resp.Data.Entities[1].Fields[3].Type)
}

func TestSchemaCommandCollectsAllErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSchemaCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "bad_schema.cue")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "schema has 3 error(s)")

	output := buf.String()
	assert.Contains(t, output, "✗ Schema invalid")
	assert.Contains(t, output, "E206")
	assert.Contains(t, output, "E202")
	assert.Contains(t, output, "E203")
}

func TestSchemaCommandErrorsJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSchemaCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "bad_schema.cue")})

	require.Error(t, cmd.Execute())

	var resp struct {
		Status string     `json:"status"`
		Error  CLIError   `json:"error"`
		Data   []CLIError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Len(t, resp.Data, 3)
	assert.Equal(t, resp.Data[0].Code, resp.Error.Code)
}

func TestSchemaCommandNotFound(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSchemaCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/schema.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "schema not found")
	assert.Contains(t, buf.String(), ErrCodeNotFound)
}

func TestSchemaCommandMissingArgs(t *testing.T) {
	cmd := NewSchemaCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"entity", ErrCodeNoEntities},
		{"cue", ErrCodeBuildFailed},
		{"associations.team.target", ErrCodeAssociation},
		{"entity.Member.fields", ErrCodeEntityShape},
		{"tags", ErrCodeInvalidType},
		{"", ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}
