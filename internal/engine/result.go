package engine

import (
	"fmt"

	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/queryir"
	"github.com/bitfox-hash/querydsl/internal/querysql"
)

// Row is one decoded result row, holding one cell per projection.
// Scalar projections hold a Value; entity projections hold a Record,
// which is nil when an outer join found no match.
type Row struct {
	shape   []querysql.Projection
	values  []ir.Value
	records []*Record
}

// Len returns the number of projections.
func (r Row) Len() int { return len(r.shape) }

// Value returns the scalar at projection i. Entity projections yield the
// record's identity, or Null when the record is absent.
func (r Row) Value(i int) ir.Value {
	if r.shape[i].Entity != nil {
		if rec := r.records[i]; rec != nil {
			return rec.ID()
		}
		return ir.Null{}
	}
	return r.values[i]
}

// Record returns the entity at projection i, or nil for scalar projections
// and absent records.
func (r Row) Record(i int) *Record {
	return r.records[i]
}

// IsEntity reports whether projection i is an entity.
func (r Row) IsEntity(i int) bool { return r.shape[i].Entity != nil }

// Plain returns the row as Go values: scalars as int64, float64, string,
// bool or nil, entities as Record.Plain maps or nil when absent.
func (r Row) Plain() []any {
	out := make([]any, r.Len())
	for i := range out {
		if r.IsEntity(i) {
			if rec := r.records[i]; rec != nil {
				out[i] = rec.Plain()
			}
			continue
		}
		out[i] = ir.ToParam(r.values[i])
	}
	return out
}

// Tuple returns the row as a tuple addressable by expression.
func (r Row) Tuple() Tuple {
	return Tuple{row: r}
}

// Tuple is a row of a multi-projection query. Cells are looked up by
// position or by the projected expression itself; an equivalent expression
// built again finds the same cell.
type Tuple struct {
	row Row
}

// Len returns the number of cells.
func (t Tuple) Len() int { return t.row.Len() }

// At returns the value of cell i.
func (t Tuple) At(i int) ir.Value { return t.row.Value(i) }

// Get returns the scalar value projected for e.
func (t Tuple) Get(e queryir.Expr) (ir.Value, bool) {
	i := t.index(e)
	if i < 0 || t.row.shape[i].Entity != nil {
		return nil, false
	}
	return t.row.values[i], true
}

// Entity returns the record projected for e. The record is nil when an
// outer join found no match.
func (t Tuple) Entity(e queryir.Expr) (*Record, bool) {
	i := t.index(e)
	if i < 0 || t.row.shape[i].Entity == nil {
		return nil, false
	}
	return t.row.records[i], true
}

// Keys returns the expression key of each cell.
func (t Tuple) Keys() []string {
	keys := make([]string, len(t.row.shape))
	for i, p := range t.row.shape {
		keys[i] = p.Key
	}
	return keys
}

func (t Tuple) index(e queryir.Expr) int {
	if e == nil {
		return -1
	}
	key := queryir.Key(e)
	for i, p := range t.row.shape {
		if p.Key == key {
			return i
		}
	}
	return -1
}

// Record is a materialized entity.
type Record struct {
	Entity *ir.Entity
	values map[string]ir.Value
	refs   map[string]Reference
}

// Get returns the value of field name.
func (r *Record) Get(name string) (ir.Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// ID returns the record's identity.
func (r *Record) ID() ir.Value {
	return r.values[r.Entity.ID]
}

// Ref returns the reference held for association name. Unknown names
// return an empty, unresolved reference.
func (r *Record) Ref(name string) Reference {
	if ref, ok := r.refs[name]; ok {
		return ref
	}
	return Reference{id: ir.Null{}}
}

// Values returns a copy of the record's field values.
func (r *Record) Values() map[string]ir.Value {
	out := make(map[string]ir.Value, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Plain returns the record's fields as Go values. Each association holds
// the fetched target's Plain map when resolved, otherwise its identity.
func (r *Record) Plain() map[string]any {
	out := make(map[string]any, len(r.values)+len(r.refs))
	for k, v := range r.values {
		out[k] = ir.ToParam(v)
	}
	for name, ref := range r.refs {
		switch {
		case ref.record != nil:
			out[name] = ref.record.Plain()
		default:
			out[name] = ir.ToParam(ref.id)
		}
	}
	return out
}

// Reference is a to-one association of a record. Without a fetch join only
// the foreign key is known and the reference is unresolved; resolving it
// lazily is the persistence layer's concern.
type Reference struct {
	id       ir.Value
	resolved bool
	record   *Record
}

// ID returns the target's identity, Null when the foreign key is NULL.
func (r Reference) ID() ir.Value { return r.id }

// Resolved reports whether the target was fetched in the same query.
func (r Reference) Resolved() bool { return r.resolved }

// Record returns the fetched target. It is nil when the reference is
// unresolved or a left fetch join found no match.
func (r Reference) Record() *Record { return r.record }

// decoder turns flat driver rows into Rows following a plan's shape.
type decoder struct {
	shape []querysql.Projection
}

func (d decoder) decode(raw []any) (Row, error) {
	row := Row{
		shape:   d.shape,
		values:  make([]ir.Value, len(d.shape)),
		records: make([]*Record, len(d.shape)),
	}

	col := 0
	for i, p := range d.shape {
		if p.Entity != nil {
			rec, next, err := decodeRecord(p.Entity, raw, col)
			if err != nil {
				return Row{}, fmt.Errorf("projection %s: %w", p.Key, err)
			}
			row.records[i] = rec
			col = next
			continue
		}

		v, err := ir.FromSQL(raw[col], p.Type)
		if err != nil {
			return Row{}, fmt.Errorf("projection %s: %w", p.Key, err)
		}
		row.values[i] = v
		col++
	}
	return row, nil
}

// decodeRecord reads the columns of shape starting at col and returns the
// record and the next unread column. A NULL identity yields a nil record.
func decodeRecord(shape *querysql.EntityShape, raw []any, col int) (*Record, int, error) {
	rec := &Record{
		Entity: shape.Entity,
		values: make(map[string]ir.Value, len(shape.Fields)),
		refs:   make(map[string]Reference, len(shape.ForeignKeys)),
	}

	for _, f := range shape.Fields {
		v, err := ir.FromSQL(raw[col], f.Type)
		if err != nil {
			return nil, 0, fmt.Errorf("field %s.%s: %w", shape.Entity.Name, f.Name, err)
		}
		rec.values[f.Name] = v
		col++
	}

	for _, a := range shape.ForeignKeys {
		// The shape does not carry the target's id type, so the driver kind is kept
		v, err := ir.FromSQL(raw[col], ir.TypeNull)
		if err != nil {
			return nil, 0, fmt.Errorf("foreign key %s.%s: %w", shape.Entity.Name, a.ForeignKey, err)
		}
		rec.refs[a.Name] = Reference{id: v}
		col++
	}

	for _, f := range shape.Fetched {
		target, next, err := decodeRecord(f.Shape, raw, col)
		if err != nil {
			return nil, 0, err
		}
		ref := rec.refs[f.Association]
		ref.resolved = true
		ref.record = target
		rec.refs[f.Association] = ref
		col = next
	}

	if ir.IsNull(rec.values[shape.Entity.ID]) {
		return nil, col, nil
	}
	return rec, col, nil
}

// allNull reports whether every cell of row is NULL.
func allNull(row Row) bool {
	for i := range row.shape {
		if !ir.IsNull(row.Value(i)) {
			return false
		}
	}
	return true
}
