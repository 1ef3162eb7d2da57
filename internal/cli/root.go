package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the querydsl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "querydsl",
		Short: "Type-checked queries over declared entities",
		Long: `querydsl builds type-checked queries over entities declared in a CUE schema.

A schema declares entities, their fields and many-to-one associations.
Queries are written as YAML definitions that name entity aliases, joins,
predicates, grouping and ordering; they are type-checked against the schema
before any SQL exists.

  schema   compile and validate a schema, list its entities
  sql      print the SQL and bound parameters a query compiles to
  run      execute a query on SQLite or PostgreSQL (pgx, lib/pq)
  test     run YAML scenarios on in-memory SQLite, optionally against golden files`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging on stderr)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(
		NewSchemaCommand(opts),
		NewSQLCommand(opts),
		NewRunCommand(opts),
		NewTestCommand(opts),
	)
	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
