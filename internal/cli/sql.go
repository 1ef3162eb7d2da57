package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bitfox-hash/querydsl/internal/querysql"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	Schema  string
	Dialect string
	Count   bool
}

// SQLResult is a compiled statement.
type SQLResult struct {
	Dialect string `json:"dialect"`
	SQL     string `json:"sql"`
	Params  []any  `json:"params"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <query.yaml>",
		Short: "Print the SQL a query compiles to",
		Long: `Build a query definition against a schema and print the SQL statement
and its bound parameters without touching a database.

Example:
  querydsl sql --schema schema.cue query.yaml
  querydsl sql --schema schema.cue --dialect postgres --count query.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "path to CUE schema (required)")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", querysql.DialectSQLite, "SQL dialect (sqlite3|postgres)")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the count statement instead")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runSQL(opts *SQLOptions, queryFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	compiler, err := querysql.NewCompiler(opts.Dialect)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error())
	}

	schema, err := loadSchemaFailFast(opts.Schema)
	if err != nil {
		return formatter.Fail(ExitCommandError, errorCode(err), err.Error())
	}
	def, err := loadQuery(queryFile)
	if err != nil {
		return formatter.Fail(ExitCommandError, errorCode(err), err.Error())
	}

	sel, err := def.Build(schema)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeQueryFailed, err.Error())
	}

	compile := compiler.Compile
	if opts.Count {
		compile = compiler.CompileCount
	}
	plan, err := compile(sel)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeQueryFailed, err.Error())
	}

	result := SQLResult{Dialect: compiler.Dialect(), SQL: plan.SQL, Params: plan.Params}
	if result.Params == nil {
		result.Params = []any{}
	}
	formatter.VerboseLog("Compiled %s for %s", queryFile, result.Dialect)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, result.SQL)
	for i, p := range result.Params {
		fmt.Fprintf(formatter.Writer, "  $%d = %s\n", i+1, formatCell(p))
	}
	return nil
}
