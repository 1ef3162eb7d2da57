package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bitfox-hash/querydsl/internal/engine"
)

// Fetch modes of the run command.
const (
	FetchList  = "list"
	FetchOne   = "one"
	FetchFirst = "first"
	FetchCount = "count"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Schema string
	Config string
	DDL    string
	Fetch  string

	// Flags override the config file.
	Overrides Config

	// IDGenerator allows overriding the query ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.IDGenerator
}

// RunResult is the output of a run. The query ID travels on the response
// envelope.
type RunResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Count   *int64   `json:"count,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <query.yaml>",
		Short: "Execute a query against a database",
		Long: `Execute a query definition against a database and print the rows.

The backend comes from --config (a YAML file with driver, dsn, dialect and
log_level) and the --driver/--dsn/--dialect/--log-level flags, which take
precedence. Drivers: sqlite3, pgx, postgres.

Example:
  querydsl run --schema schema.cue --driver sqlite3 --dsn ./app.db query.yaml
  querydsl run --schema schema.cue --config db.yaml --fetch count query.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "path to CUE schema (required)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML backend config")
	cmd.Flags().StringVar(&opts.DDL, "ddl", "", "SQL file executed before the query")
	cmd.Flags().StringVar(&opts.Fetch, "fetch", FetchList, "fetch mode (list|one|first|count)")
	cmd.Flags().StringVar(&opts.Overrides.Driver, "driver", "", "backend driver (sqlite3|pgx|postgres)")
	cmd.Flags().StringVar(&opts.Overrides.DSN, "dsn", "", "backend data source name")
	cmd.Flags().StringVar(&opts.Overrides.ReplicaDSN, "replica-dsn", "", "read replica data source name (pgx only)")
	cmd.Flags().StringVar(&opts.Overrides.Dialect, "dialect", "", "SQL dialect (sqlite3|postgres)")
	cmd.Flags().StringVar(&opts.Overrides.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runQuery(opts *RunOptions, queryFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := resolveConfig(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error())
	}
	switch opts.Fetch {
	case FetchList, FetchOne, FetchFirst, FetchCount:
	default:
		return formatter.Fail(ExitCommandError, ErrCodeConfig, fmt.Sprintf("invalid fetch mode %q", opts.Fetch))
	}

	level, _ := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

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

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	logger.Debug("opening backend", "driver", cfg.Driver, "dialect", cfg.SQLDialect())
	be, err := openBackend(ctx, cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConnect, err.Error())
	}
	defer func() {
		if closeErr := be.close(); closeErr != nil {
			logger.Error("error closing backend", "error", closeErr)
		}
	}()

	if opts.DDL != "" {
		ddl, err := os.ReadFile(opts.DDL)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("reading ddl: %v", err))
		}
		if _, err := be.db.Exec(ctx, string(ddl)); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("applying ddl: %v", err))
		}
	}

	var gen engine.IDGenerator = engine.UUIDv7Generator{}
	if opts.IDGenerator != nil {
		gen = opts.IDGenerator
	}
	ids := &recordingGenerator{next: gen}

	eng, err := engine.New(be.db,
		engine.WithDialect(cfg.SQLDialect()),
		engine.WithLogger(logger),
		engine.WithIDGenerator(ids),
	)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error())
	}

	failed := func(err error) error {
		formatter.QueryID = ids.last
		return formatter.Fail(ExitFailure, ErrCodeQueryFailed, err.Error())
	}

	result := &RunResult{Columns: def.Select, Rows: [][]any{}}
	switch opts.Fetch {
	case FetchList:
		rows, err := eng.Fetch(ctx, sel)
		if err != nil {
			return failed(err)
		}
		for _, r := range rows {
			result.Rows = append(result.Rows, r.Plain())
		}
	case FetchOne, FetchFirst:
		fetch := eng.FetchOne
		if opts.Fetch == FetchFirst {
			fetch = eng.FetchFirst
		}
		row, ok, err := fetch(ctx, sel)
		if err != nil {
			return failed(err)
		}
		if ok {
			result.Rows = append(result.Rows, row.Plain())
		}
	case FetchCount:
		n, err := eng.Count(ctx, sel)
		if err != nil {
			return failed(err)
		}
		result.Count = &n
	}
	formatter.QueryID = ids.last

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	writeRunText(formatter, result)
	return nil
}

// resolveConfig merges the config file with flag overrides and validates it.
func resolveConfig(opts *RunOptions) (Config, error) {
	var cfg Config
	if opts.Config != "" {
		loaded, err := LoadConfig(opts.Config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg = cfg.Merge(opts.Overrides)
	return cfg, cfg.Validate()
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func writeRunText(f *OutputFormatter, result *RunResult) {
	if result.Count != nil {
		fmt.Fprintf(f.Writer, "%d\n", *result.Count)
		return
	}
	fmt.Fprintln(f.Writer, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		fmt.Fprintln(f.Writer, strings.Join(cells, "\t"))
	}
	fmt.Fprintf(f.Writer, "(%d row(s))\n", len(result.Rows))
}

// formatCell renders a plain row value. Entities print as JSON objects.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case map[string]any:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}

// recordingGenerator remembers the last query ID handed to the engine.
type recordingGenerator struct {
	next engine.IDGenerator
	last string
}

func (g *recordingGenerator) Generate() string {
	g.last = g.next.Generate()
	return g.last
}
