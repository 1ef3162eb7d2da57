package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"

	"github.com/bitfox-hash/querydsl/internal/adapters"
	"github.com/bitfox-hash/querydsl/internal/ir"
)

// Row holds the values of one entity row, keyed by field name. Associations
// are keyed by association name and hold the target's identity.
type Row map[string]ir.Value

// Writer inserts entity rows through any adapter.
type Writer struct {
	db      adapters.DBAdapter
	dialect goqu.DialectWrapper
}

// NewWriter creates a Writer that renders statements for dialect
// ("sqlite3" or "postgres").
func NewWriter(db adapters.DBAdapter, dialect string) (*Writer, error) {
	switch dialect {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return &Writer{db: db, dialect: goqu.Dialect(dialect)}, nil
}

// Insert writes one row of entity e. Keys that name neither a field nor an
// association are rejected, as are values of the wrong type and NULL for a
// non-nullable field. Omitted keys are left to the column default.
func (w *Writer) Insert(ctx context.Context, e *ir.Entity, row Row) error {
	record, err := columns(e, row)
	if err != nil {
		return err
	}

	query, args, err := w.dialect.Insert(e.Table).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert for %s: %w", e.Name, err)
	}

	if _, err := w.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", e.Name, err)
	}
	return nil
}

// InsertAll writes rows in order, stopping at the first failure.
func (w *Writer) InsertAll(ctx context.Context, e *ir.Entity, rows []Row) error {
	for i, row := range rows {
		if err := w.Insert(ctx, e, row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

func columns(e *ir.Entity, row Row) (goqu.Record, error) {
	if len(row) == 0 {
		return nil, fmt.Errorf("insert %s: empty row", e.Name)
	}

	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	record := make(goqu.Record, len(row))
	for _, k := range keys {
		v := row[k]
		if v == nil {
			v = ir.Null{}
		}

		if f, ok := e.Field(k); ok {
			if err := checkValue(e, f, v); err != nil {
				return nil, err
			}
			record[f.Column] = ir.ToParam(v)
			continue
		}

		if a, ok := e.Association(k); ok {
			record[a.ForeignKey] = ir.ToParam(v)
			continue
		}

		return nil, fmt.Errorf("insert %s: unknown field %q", e.Name, k)
	}
	return record, nil
}

func checkValue(e *ir.Entity, f ir.Field, v ir.Value) error {
	if ir.IsNull(v) {
		if !f.Nullable {
			return fmt.Errorf("insert %s: field %q is not nullable", e.Name, f.Name)
		}
		return nil
	}
	t := v.Type()
	if t == f.Type || (f.Type == ir.TypeDecimal && t == ir.TypeInt) {
		return nil
	}
	return fmt.Errorf("insert %s: field %q is %s, got %s", e.Name, f.Name, f.Type, t)
}
