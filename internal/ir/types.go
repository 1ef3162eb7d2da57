package ir

import (
	"fmt"
	"sort"
)

// Type is the static value type of an expression or a field.
type Type int

const (
	TypeNull Type = iota
	TypeInt
	TypeDecimal
	TypeString
	TypeBool
	TypeEntity
)

var typeNames = map[Type]string{
	TypeNull:    "null",
	TypeInt:     "int",
	TypeDecimal: "decimal",
	TypeString:  "string",
	TypeBool:    "bool",
	TypeEntity:  "entity",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// MarshalText encodes the type by name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// IsNumeric reports whether t is Int or Decimal.
func (t Type) IsNumeric() bool {
	return t == TypeInt || t == TypeDecimal
}

// IsScalar reports whether t can be held in a Value.
func (t Type) IsScalar() bool {
	return t != TypeEntity
}

// ParseType maps a type name ("int", "decimal", "string", "bool") to a Type.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if n == name && t != TypeEntity {
			return t, nil
		}
	}
	return TypeNull, fmt.Errorf("unknown type %q", name)
}

// Field is a typed, column-backed attribute of an entity.
type Field struct {
	Name     string `json:"name"`
	Column   string `json:"column"`
	Type     Type   `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}

// Association is a many-to-one reference from the owning entity to Target,
// stored in the owner's ForeignKey column and matched against Target's id.
type Association struct {
	Name       string `json:"name"`
	Target     string `json:"target"`
	ForeignKey string `json:"foreign_key"`
}

// Entity is an immutable schema descriptor for a record type.
type Entity struct {
	Name         string        `json:"name"`
	Table        string        `json:"table"`
	ID           string        `json:"id"` // name of the identity field
	Fields       []Field       `json:"fields"`
	Associations []Association `json:"associations,omitempty"`
}

// Field returns the field with the given name.
func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Association returns the association with the given name.
func (e *Entity) Association(name string) (Association, bool) {
	for _, a := range e.Associations {
		if a.Name == name {
			return a, true
		}
	}
	return Association{}, false
}

// IDField returns the identity field. NewSchema guarantees it exists.
func (e *Entity) IDField() Field {
	f, _ := e.Field(e.ID)
	return f
}

// Schema is the process-wide registry of entities.
// It is built once by NewSchema and never mutated afterward.
type Schema struct {
	entities map[string]*Entity
	names    []string
}

// NewSchema builds a Schema, rejecting duplicate names, entities without an
// identity field, and associations whose target is not registered.
func NewSchema(entities ...Entity) (*Schema, error) {
	s := &Schema{entities: make(map[string]*Entity, len(entities))}

	for i := range entities {
		e := entities[i]
		if e.Name == "" {
			return nil, fmt.Errorf("entity[%d]: name is required", i)
		}
		if _, dup := s.entities[e.Name]; dup {
			return nil, fmt.Errorf("duplicate entity %q", e.Name)
		}
		if _, ok := e.Field(e.ID); !ok {
			return nil, fmt.Errorf("entity %q: id field %q not declared", e.Name, e.ID)
		}
		for j := range e.Fields {
			if e.Fields[j].Column == "" {
				e.Fields[j].Column = e.Fields[j].Name
			}
		}
		if e.Table == "" {
			e.Table = e.Name
		}
		s.entities[e.Name] = &e
		s.names = append(s.names, e.Name)
	}

	for _, name := range s.names {
		for _, a := range s.entities[name].Associations {
			if _, ok := s.entities[a.Target]; !ok {
				return nil, fmt.Errorf("entity %q: association %q targets unknown entity %q", name, a.Name, a.Target)
			}
		}
	}

	sort.Strings(s.names)
	return s, nil
}

// Entity looks up an entity by name.
func (s *Schema) Entity(name string) (*Entity, bool) {
	e, ok := s.entities[name]
	return e, ok
}

// MustEntity looks up an entity by name and panics if it is not registered.
// Intended for package-level fixture declarations.
func (s *Schema) MustEntity(name string) *Entity {
	e, ok := s.entities[name]
	if !ok {
		panic(fmt.Sprintf("ir: entity %q not registered", name))
	}
	return e
}

// Names returns the registered entity names in sorted order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
