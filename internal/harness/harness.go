package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bitfox-hash/querydsl/internal/compiler"
	"github.com/bitfox-hash/querydsl/internal/engine"
	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/querydef"
	"github.com/bitfox-hash/querydsl/internal/queryir"
	"github.com/bitfox-hash/querydsl/internal/store"
	"github.com/bitfox-hash/querydsl/internal/testutil"
)

// Error codes for query failures that are not structure errors.
const (
	CodeTypeError       = "TYPE_ERROR"
	CodeDefinitionError = "DEFINITION_ERROR"
	CodeUnknown         = "ERROR"
)

// Harness holds the per-scenario environment.
type Harness struct {
	schema *ir.Schema
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. A failing query is part
// of the result (ErrorCode) so error assertions can check it; only setup
// problems such as a missing schema or a rejected seed row return an error.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, testutil.Logger())
}

// RunContext is Run with an explicit context and logger.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (result *Result, err error) {
	h, err := setup(ctx, scenario, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := h.store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close store: %w", cerr)
		}
	}()

	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}

	result = NewResult()
	result.Columns = append(result.Columns, scenario.Query.Select...)
	h.execute(ctx, scenario.Query, result)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"rows", len(result.Rows),
		"error_code", result.ErrorCode,
	)
	return result, nil
}

func setup(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Harness, error) {
	schema, err := compiler.CompileSchemaFile(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	ddl, err := os.ReadFile(scenario.DDL)
	if err != nil {
		return nil, fmt.Errorf("failed to read ddl: %w", err)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	if err := st.ApplySchema(ctx, string(ddl)); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to apply ddl: %w", err)
	}

	eng, err := engine.New(st.Adapter(),
		engine.WithLogger(logger),
		engine.WithIDGenerator(testutil.NewFixedQueryIDGenerator(scenario.QueryID)),
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &Harness{schema: schema, store: st, engine: eng, logger: logger}, nil
}

// seed inserts every seed set in order.
func (h *Harness) seed(ctx context.Context, sets []SeedSet) error {
	for i, set := range sets {
		e, ok := h.schema.Entity(set.Entity)
		if !ok {
			return fmt.Errorf("seed[%d]: unknown entity %q", i, set.Entity)
		}
		rows := make([]store.Row, 0, len(set.Rows))
		for j, raw := range set.Rows {
			row, err := convertRow(raw)
			if err != nil {
				return fmt.Errorf("seed[%d] row %d: %w", i, j, err)
			}
			rows = append(rows, row)
		}
		if err := h.store.InsertAll(ctx, e, rows); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
	}
	return nil
}

// execute builds, compiles and fetches def, filling result.
func (h *Harness) execute(ctx context.Context, def *querydef.Definition, result *Result) {
	sel, err := def.Build(h.schema)
	if err != nil {
		fail(result, err)
		return
	}

	plan, err := h.engine.Plan(sel)
	if err != nil {
		fail(result, err)
		return
	}
	result.SQL = plan.SQL
	result.Params = plan.Params

	rows, err := h.engine.Fetch(ctx, sel)
	if err != nil {
		fail(result, err)
		return
	}
	for _, r := range rows {
		result.Rows = append(result.Rows, r.Plain())
	}
}

func fail(result *Result, err error) {
	result.ErrorCode = ErrorCode(err)
	result.Err = err.Error()
}

// ErrorCode classifies a query failure: the structure code, the execution
// error code, TYPE_ERROR, DEFINITION_ERROR, or ERROR for anything else.
func ErrorCode(err error) string {
	if code := queryir.StructureCode(err); code != "" {
		return code
	}
	var ee *engine.ExecutionError
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	if queryir.IsTypeError(err) {
		return CodeTypeError
	}
	var de *querydef.Error
	if errors.As(err, &de) {
		return CodeDefinitionError
	}
	return CodeUnknown
}

// convertRow converts YAML-decoded values into a store row.
func convertRow(raw map[string]any) (store.Row, error) {
	row := make(store.Row, len(raw))
	for key, val := range raw {
		v, err := ir.FromGo(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		row[key] = v
	}
	return row, nil
}
