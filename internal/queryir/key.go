package queryir

import (
	"strconv"
	"strings"

	"github.com/bitfox-hash/querydsl/internal/ir"
)

// Key returns the canonical structural fingerprint of e.
//
// Keys depend only on structure: aliases, entity and field names, operators
// and canonical literal text. They never depend on pointer identity, so an
// expression rebuilt from scratch has the same key as the original.
//
//	m.age                 -> path(m.age)
//	avg(m.age)            -> avg(path(m.age))
//	m.age = 10            -> eq(path(m.age),i:10)
func Key(e Expr) string {
	var b strings.Builder
	writeKey(&b, e)
	return b.String()
}

// SelectKey returns the canonical fingerprint of a whole query.
func SelectKey(s *Select) string {
	var b strings.Builder
	writeSelectKey(&b, s)
	return b.String()
}

func writeKey(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case nil:
		b.WriteString("nil")
	case Path:
		b.WriteString("path(")
		b.WriteString(n.String())
		b.WriteByte(')')
	case EntityRef:
		b.WriteString("entity(")
		b.WriteString(n.String())
		b.WriteByte(':')
		b.WriteString(n.Entity().Name)
		b.WriteByte(')')
	case Literal:
		b.WriteString(ir.CanonicalValue(n.Value))
	case Compare:
		writeCall(b, string(n.Op), n.Left, n.Right)
	case Between:
		writeCall(b, "between", n.X, n.Lo, n.Hi)
	case In:
		if n.Negated {
			b.WriteString("not_")
		}
		b.WriteString("in(")
		writeKey(b, n.X)
		b.WriteByte(';')
		if n.Sub != nil {
			writeSelectKey(b, n.Sub)
		} else {
			writeList(b, n.List)
		}
		b.WriteByte(')')
	case IsNull:
		name := "is_null"
		if n.Negated {
			name = "is_not_null"
		}
		writeCall(b, name, n.X)
	case Like:
		writeCall(b, "like", n.X, n.Pattern)
	case Logical:
		writeCall(b, string(n.Op), n.Operands...)
	case Not:
		writeCall(b, "not", n.X)
	case Arith:
		writeCall(b, "arith"+string(n.Op), n.Left, n.Right)
	case Concat:
		writeCall(b, "concat", n.Parts...)
	case Case:
		b.WriteString("case(")
		for _, w := range n.Whens {
			b.WriteString("when(")
			writeKey(b, w.Cond)
			b.WriteByte(',')
			writeKey(b, w.Result)
			b.WriteString("),")
		}
		b.WriteString("else(")
		writeKey(b, n.Else)
		b.WriteString("))")
	case Aggregate:
		writeCall(b, string(n.Func), n.Arg)
	case Subquery:
		b.WriteString("sub(")
		writeSelectKey(b, n.Query)
		b.WriteByte(')')
	default:
		b.WriteString("?")
	}
}

func writeCall(b *strings.Builder, name string, args ...Expr) {
	b.WriteString(name)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		writeKey(b, a)
	}
	b.WriteByte(')')
}

func writeList(b *strings.Builder, list []Expr) {
	b.WriteByte('[')
	for i, e := range list {
		if i > 0 {
			b.WriteByte(',')
		}
		writeKey(b, e)
	}
	b.WriteByte(']')
}

func writeSelectKey(b *strings.Builder, s *Select) {
	if s == nil {
		b.WriteString("nil")
		return
	}
	b.WriteString("select")
	if s.Distinct {
		b.WriteString(" distinct")
	}
	writeList(b, s.Projections)

	b.WriteString(" from[")
	for i, src := range s.From {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(src.Entity.Name)
		b.WriteByte(' ')
		b.WriteString(src.Alias)
	}
	b.WriteByte(']')

	for _, j := range s.Joins {
		b.WriteString(" join(")
		b.WriteString(string(j.Kind))
		b.WriteByte(',')
		if j.Association != nil {
			b.WriteString(j.Owner)
			b.WriteByte('.')
			b.WriteString(j.Association.Name)
		}
		b.WriteByte(',')
		b.WriteString(j.Target.Entity.Name)
		b.WriteByte(' ')
		b.WriteString(j.Target.Alias)
		b.WriteByte(',')
		writeKey(b, j.On)
		if j.Fetch {
			b.WriteString(",fetch")
		}
		b.WriteByte(')')
	}

	if s.Where != nil {
		b.WriteString(" where(")
		writeKey(b, s.Where)
		b.WriteByte(')')
	}
	if len(s.GroupBy) > 0 {
		b.WriteString(" group")
		writeList(b, s.GroupBy)
	}
	if s.Having != nil {
		b.WriteString(" having(")
		writeKey(b, s.Having)
		b.WriteByte(')')
	}
	for _, o := range s.OrderBy {
		b.WriteString(" order(")
		writeKey(b, o.Expr)
		if o.Desc {
			b.WriteString(",desc")
		}
		switch o.Nulls {
		case NullsFirst:
			b.WriteString(",nulls_first")
		case NullsLast:
			b.WriteString(",nulls_last")
		}
		b.WriteByte(')')
	}
	if s.Offset != nil {
		b.WriteString(" offset(" + strconv.FormatUint(*s.Offset, 10) + ")")
	}
	if s.Limit != nil {
		b.WriteString(" limit(" + strconv.FormatUint(*s.Limit, 10) + ")")
	}
}
