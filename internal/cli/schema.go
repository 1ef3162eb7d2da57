package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bitfox-hash/querydsl/internal/ir"
)

// SchemaResult holds the entities of a valid schema.
type SchemaResult struct {
	Entities []ir.Entity `json:"entities"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema <schema.cue>",
		Short: "Compile and validate an entity schema",
		Long: `Compile a CUE entity schema and validate it.

Every validation problem is reported, not only the first. On success the
entities are printed with their fields and associations.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runSchema(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result, errs := LoadSchema(path)
	if len(errs) > 0 {
		return outputSchemaErrors(formatter, errs)
	}

	formatter.VerboseLog("Compiled %d entit(ies) from %s", len(result.Entities), path)

	if formatter.Format == "json" {
		return formatter.Success(SchemaResult{Entities: result.Entities})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Schema valid: %d entit(ies)\n\n", len(result.Entities))
	for _, e := range result.Entities {
		fmt.Fprintf(w, "%s (table %s, id %s)\n", e.Name, e.Table, e.ID)
		for _, f := range e.Fields {
			nullable := ""
			if f.Nullable {
				nullable = ", nullable"
			}
			fmt.Fprintf(w, "  %s: %s (column %s%s)\n", f.Name, f.Type, f.Column, nullable)
		}
		for _, a := range e.Associations {
			fmt.Fprintf(w, "  %s → %s (foreign key %s)\n", a.Name, a.Target, a.ForeignKey)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// outputSchemaErrors reports every schema error. Schema errors are
// command-level errors (exit code 2).
func outputSchemaErrors(formatter *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		cliErrors[i] = CLIError{Code: errorCode(err), Message: err.Error()}
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Schema invalid")
		fmt.Fprintln(formatter.Writer)
		for _, e := range cliErrors {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Code, e.Message)
		}
	}

	var loadErr *LoadError
	if len(errs) == 1 && errors.As(errs[0], &loadErr) && loadErr.Code == ErrCodeNotFound {
		return NewExitError(ExitCommandError, loadErr.Message)
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("schema has %d error(s)", len(errs)))
}
