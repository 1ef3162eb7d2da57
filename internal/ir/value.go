package ir

import (
	"fmt"
	"math"
	"strconv"
)

// Value is a sealed interface representing the scalar values that flow through
// queries: literal operands, bound parameters and decoded result cells.
// Only Null, Int, Decimal, String and Bool implement it.
type Value interface {
	Type() Type
	value() // Sealed - only these types implement it
}

// Null represents an SQL NULL.
// Using an explicit type keeps absent values distinct from Go's nil interface.
type Null struct{}

func (Null) value() {}

// Type implements Value.
func (Null) Type() Type { return TypeNull }

// Int represents an integer value. Always int64.
type Int int64

func (Int) value() {}

// Type implements Value.
func (Int) Type() Type { return TypeInt }

// Decimal represents a fractional numeric value (AVG results, decimal columns).
type Decimal float64

func (Decimal) value() {}

// Type implements Value.
func (Decimal) Type() Type { return TypeDecimal }

// String represents a text value.
type String string

func (String) value() {}

// Type implements Value.
func (String) Type() Type { return TypeString }

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// Type implements Value.
func (Bool) Type() Type { return TypeBool }

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// FromGo converts a plain Go value into a Value.
// Accepts the types produced by YAML/JSON decoding plus the sized integer kinds.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(int64(val)), nil
	case int32:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint64:
		return fromUint(val)
	case float32:
		return Decimal(float64(val)), nil
	case float64:
		return Decimal(val), nil
	default:
		return nil, fmt.Errorf("unsupported Go type for value: %T", v)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

// ToParam converts a Value to a Go native type for use as an SQL parameter.
func ToParam(v Value) any {
	switch val := v.(type) {
	case Int:
		return int64(val)
	case Decimal:
		return float64(val)
	case String:
		return string(val)
	case Bool:
		return bool(val)
	default:
		return nil
	}
}

// FromSQL converts a driver value into a Value of the expected type.
//
// Drivers disagree on representations: SQLite reports booleans as 0/1 and
// integral aggregates as int64, lib/pq reports NUMERIC as text. The expected
// type resolves these. TypeNull or TypeEntity as the expectation keeps the
// driver's own kind.
func FromSQL(v any, want Type) (Value, error) {
	if v == nil {
		return Null{}, nil
	}

	switch val := v.(type) {
	case int64:
		return intAs(val, want), nil
	case int32:
		return intAs(int64(val), want), nil
	case int:
		return intAs(int64(val), want), nil
	case float64:
		return floatAs(val, want), nil
	case float32:
		return floatAs(float64(val), want), nil
	case bool:
		if want.IsNumeric() {
			if val {
				return Int(1), nil
			}
			return Int(0), nil
		}
		return Bool(val), nil
	case []byte:
		return textAs(string(val), want)
	case string:
		return textAs(val, want)
	default:
		return nil, fmt.Errorf("unsupported SQL type: %T", v)
	}
}

func intAs(n int64, want Type) Value {
	switch want {
	case TypeDecimal:
		return Decimal(float64(n))
	case TypeBool:
		return Bool(n != 0)
	case TypeString:
		return String(strconv.FormatInt(n, 10))
	default:
		return Int(n)
	}
}

func floatAs(f float64, want Type) Value {
	switch want {
	case TypeInt:
		if f == float64(int64(f)) {
			return Int(int64(f))
		}
		return Decimal(f)
	case TypeString:
		return String(strconv.FormatFloat(f, 'f', -1, 64))
	default:
		return Decimal(f)
	}
}

func textAs(s string, want Type) (Value, error) {
	switch want {
	case TypeInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// NUMERIC text such as "40.000" still decodes as an integer value
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return nil, fmt.Errorf("decode %q as int: %w", s, err)
			}
			return floatAs(f, want), nil
		}
		return Int(n), nil
	case TypeDecimal:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("decode %q as decimal: %w", s, err)
		}
		return Decimal(f), nil
	case TypeBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("decode %q as bool: %w", s, err)
		}
		return Bool(b), nil
	default:
		return String(s), nil
	}
}

// Format renders a Value as display text. Null renders as "null".
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Decimal:
		return strconv.FormatFloat(float64(val), 'f', -1, 64)
	case String:
		return string(val)
	case Bool:
		return strconv.FormatBool(bool(val))
	default:
		return fmt.Sprintf("%v", v)
	}
}
