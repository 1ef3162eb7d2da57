package query

import "github.com/bitfox-hash/querydsl/internal/queryir"

// Order is one ordering key, created by an expression's Asc or Desc.
type Order struct {
	key queryir.OrderKey
	err error
}

// NullsFirst places NULL keys before all others.
func (o Order) NullsFirst() Order {
	o.key.Nulls = queryir.NullsFirst
	return o
}

// NullsLast places NULL keys after all others, in either direction.
func (o Order) NullsLast() Order {
	o.key.Nulls = queryir.NullsLast
	return o
}

// Err returns the construction error of the ordered expression.
func (o Order) Err() error { return o.err }
