package querydef

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is a query in declarative form.
type Definition struct {
	Name     string      `yaml:"name,omitempty"`
	From     []Source    `yaml:"from"`
	Joins    []Join      `yaml:"joins,omitempty"`
	Select   []string    `yaml:"select"`
	Distinct bool        `yaml:"distinct,omitempty"`
	Where    []Condition `yaml:"where,omitempty"`
	GroupBy  []string    `yaml:"group_by,omitempty"`
	Having   []Condition `yaml:"having,omitempty"`
	OrderBy  []Order     `yaml:"order_by,omitempty"`
	Offset   *uint64     `yaml:"offset,omitempty"`
	Limit    *uint64     `yaml:"limit,omitempty"`
}

// Source binds an entity to an alias.
type Source struct {
	Entity string `yaml:"entity"`
	As     string `yaml:"as"`
}

// Join adds an alias to the scope. Path (alias.assoc) joins along an
// association; Entity joins an unrelated entity and then requires On.
type Join struct {
	Kind   string      `yaml:"kind,omitempty"` // inner (default) or left
	Path   string      `yaml:"path,omitempty"`
	Entity string      `yaml:"entity,omitempty"`
	As     string      `yaml:"as"`
	Fetch  bool        `yaml:"fetch,omitempty"`
	On     []Condition `yaml:"on,omitempty"`
}

// Condition is one predicate. Conditions in a list are AND-combined.
//
// The right operand is exactly one of Right (another item), Value (a
// literal), Values (between and in lists) or Query (a subquery). Or and Not
// nest conditions instead of naming an operator.
type Condition struct {
	Left   string      `yaml:"left,omitempty"`
	Op     string      `yaml:"op,omitempty"`
	Right  string      `yaml:"right,omitempty"`
	Value  any         `yaml:"value,omitempty"`
	Values []any       `yaml:"values,omitempty"`
	Query  *Definition `yaml:"query,omitempty"`
	Or     []Condition `yaml:"or,omitempty"`
	Not    *Condition  `yaml:"not,omitempty"`
}

// Order is one ordering key.
type Order struct {
	By    string `yaml:"by"`
	Dir   string `yaml:"dir,omitempty"`   // asc (default) or desc
	Nulls string `yaml:"nulls,omitempty"` // first or last; backend default when empty
}

// Operators accepted in conditions.
const (
	OpEq        = "eq"
	OpNe        = "ne"
	OpGt        = "gt"
	OpGoe       = "goe"
	OpLt        = "lt"
	OpLoe       = "loe"
	OpBetween   = "between"
	OpIn        = "in"
	OpNotIn     = "not_in"
	OpIsNull    = "is_null"
	OpIsNotNull = "is_not_null"
	OpLike      = "like"
)

// Parse decodes a definition, rejecting unknown keys.
func Parse(data []byte) (*Definition, error) {
	var d Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to parse query definition: %w", err)
	}
	if err := d.check(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Load reads and parses a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query definition: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// check validates the shape of the document. Semantic checks happen in Build.
func (d *Definition) check() error {
	if len(d.Select) == 0 {
		return &Error{Field: "select", Message: "at least one item is required"}
	}
	for i, s := range d.From {
		if s.Entity == "" || s.As == "" {
			return &Error{Field: fmt.Sprintf("from[%d]", i), Message: "entity and as are required"}
		}
	}
	for i, j := range d.Joins {
		field := fmt.Sprintf("joins[%d]", i)
		if j.As == "" {
			return &Error{Field: field, Message: "as is required"}
		}
		if (j.Path == "") == (j.Entity == "") {
			return &Error{Field: field, Message: "exactly one of path and entity is required"}
		}
		if j.Kind != "" && j.Kind != "inner" && j.Kind != "left" {
			return &Error{Field: field, Message: fmt.Sprintf("unknown join kind %q", j.Kind)}
		}
	}
	for i, o := range d.OrderBy {
		field := fmt.Sprintf("order_by[%d]", i)
		if o.By == "" {
			return &Error{Field: field, Message: "by is required"}
		}
		if o.Dir != "" && o.Dir != "asc" && o.Dir != "desc" {
			return &Error{Field: field, Message: fmt.Sprintf("unknown direction %q", o.Dir)}
		}
		if o.Nulls != "" && o.Nulls != "first" && o.Nulls != "last" {
			return &Error{Field: field, Message: fmt.Sprintf("unknown nulls placement %q", o.Nulls)}
		}
	}
	return nil
}

// Error reports a malformed definition entry.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
