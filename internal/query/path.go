package query

import (
	"fmt"

	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/queryir"
)

// EntityPath is an entity bound to an alias, or reached from one through
// associations (m.Assoc("team")). It is the source of field paths and, as an
// expression, stands for the entity itself.
type EntityPath struct {
	schema *ir.Schema
	root   *ir.Entity
	alias  string
	via    []string
	err    error
}

// EntitySource is anything backed by an EntityPath: the path itself or a
// typed entity struct embedding one.
type EntitySource interface {
	Expression
	entityPath() *EntityPath
}

func (p *EntityPath) entityPath() *EntityPath { return p }

// pathOf returns the path behind s; nil stays nil so Err reports it.
func pathOf(s EntitySource) *EntityPath {
	if s == nil {
		return nil
	}
	return s.entityPath()
}

// NewEntityPath binds entity to alias.
func NewEntityPath(schema *ir.Schema, entity, alias string) *EntityPath {
	p := &EntityPath{schema: schema, alias: alias}
	if schema == nil {
		p.err = &queryir.TypeError{Op: "path", Message: "no schema"}
		return p
	}
	root, ok := schema.Entity(entity)
	if !ok {
		p.err = &queryir.TypeError{Op: "path", Message: fmt.Sprintf("unknown entity %q", entity)}
		return p
	}
	if alias == "" {
		p.err = &queryir.TypeError{Op: "path", Message: fmt.Sprintf("entity %s needs an alias", entity)}
		return p
	}
	p.root = root
	return p
}

// Alias returns the alias the path starts from.
func (p *EntityPath) Alias() string { return p.alias }

// Entity returns the entity the path reaches, nil when the path is invalid.
func (p *EntityPath) Entity() *ir.Entity {
	steps, err := p.steps()
	if err != nil || p.root == nil {
		return nil
	}
	if len(steps) == 0 {
		return p.root
	}
	return steps[len(steps)-1].Target
}

// Err returns the construction error of the path.
func (p *EntityPath) Err() error {
	if p == nil {
		return &queryir.TypeError{Op: "path", Message: "missing entity path"}
	}
	return p.err
}

// IR returns the entity reference.
func (p *EntityPath) IR() queryir.Expr {
	steps, err := p.steps()
	if err != nil {
		return nil
	}
	return queryir.NewEntityRef(p.root, p.alias, steps)
}

// Assoc navigates a to-one association. Used in expressions it becomes an
// implicit inner join; passed to Join it names the association to join.
func (p *EntityPath) Assoc(name string) *EntityPath {
	next := &EntityPath{
		schema: p.schema,
		root:   p.root,
		alias:  p.alias,
		via:    append(append([]string(nil), p.via...), name),
		err:    p.err,
	}
	if next.err == nil {
		_, next.err = next.steps()
	}
	return next
}

// Number returns the numeric field name.
func (p *EntityPath) Number(name string) NumberExpr {
	return NumberExpr{p.field(name, ir.TypeInt, ir.TypeDecimal)}
}

// String returns the text field name.
func (p *EntityPath) String(name string) StringExpr {
	return StringExpr{p.field(name, ir.TypeString)}
}

// Bool returns the boolean field name.
func (p *EntityPath) Bool(name string) BoolExpr {
	return BoolExpr{p.field(name, ir.TypeBool)}
}

// Eq compares identities with another path to the same entity.
func (p *EntityPath) Eq(o EntitySource) BoolExpr { return compare(queryir.OpEq, p, pathOf(o)) }

// Ne is the negation of Eq.
func (p *EntityPath) Ne(o EntitySource) BoolExpr { return compare(queryir.OpNe, p, pathOf(o)) }

// Count counts rows where the entity is present.
func (p *EntityPath) Count() NumberExpr { return aggregate(queryir.AggCount, p) }

// CountDistinct counts distinct entities.
func (p *EntityPath) CountDistinct() NumberExpr { return aggregate(queryir.AggCountDistinct, p) }

// IsNull holds when an outer join found no entity, or when a navigated
// association is unset.
func (p *EntityPath) IsNull() BoolExpr { return isNull(p, false) }

// IsNotNull holds when the entity is present.
func (p *EntityPath) IsNotNull() BoolExpr { return isNull(p, true) }

func (p *EntityPath) field(name string, kinds ...ir.Type) base {
	steps, err := p.steps()
	if err != nil {
		return base{err: err}
	}
	path, err := queryir.NewPath(p.root, p.alias, steps, name)
	if err != nil {
		return base{err: err}
	}
	for _, k := range kinds {
		if path.Field.Type == k {
			return base{x: path}
		}
	}
	return base{err: &queryir.TypeError{
		Op:      "path",
		Left:    path.Field.Type,
		Right:   kinds[0],
		Message: fmt.Sprintf("field %s is %s, not %s", path.String(), path.Field.Type, kinds[0]),
	}}
}

func (p *EntityPath) steps() ([]queryir.Step, error) {
	if err := p.Err(); err != nil {
		return nil, err
	}
	return queryir.Navigate(p.schema, p.root, p.via...)
}

// source returns the path as a from/join source. Only a root path can be
// bound as a source.
func (p *EntityPath) source() (queryir.Source, error) {
	if err := p.Err(); err != nil {
		return queryir.Source{}, err
	}
	if len(p.via) > 0 {
		return queryir.Source{}, &queryir.TypeError{
			Op:      "source",
			Message: fmt.Sprintf("%s is an association path, not an alias", p.describe()),
		}
	}
	return queryir.Source{Entity: p.root, Alias: p.alias}, nil
}

func (p *EntityPath) describe() string {
	s := p.alias
	for _, v := range p.via {
		s += "." + v
	}
	return s
}
