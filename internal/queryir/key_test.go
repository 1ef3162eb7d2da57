package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfox-hash/querydsl/internal/ir"
)

func TestKeyPaths(t *testing.T) {
	s := testSchema(t)

	assert.Equal(t, "path(m.age)", Key(mustPath(t, s, "Member", "m", "age")))
	assert.Equal(t, "path(m.team.name)", Key(mustPath(t, s, "Member", "m", "team", "name")))
	assert.Equal(t, "entity(m:Member)", Key(NewEntityRef(s.MustEntity("Member"), "m", nil)))
}

func TestKeyStructuralEquality(t *testing.T) {
	s := testSchema(t)

	build := func() Expr {
		age := mustPath(t, s, "Member", "m", "age")
		return mustAgg(t, AggAvg, age)
	}

	assert.Equal(t, Key(build()), Key(build()))
	assert.Equal(t, "avg(path(m.age))", Key(build()))
}

func TestKeyDistinguishes(t *testing.T) {
	s := testSchema(t)
	age := mustPath(t, s, "Member", "m", "age")
	age2 := mustPath(t, s, "Member", "m2", "age")

	keys := []string{
		Key(age),
		Key(age2),
		Key(mustCompare(t, OpEq, age, Lit(ir.Int(10)))),
		Key(mustCompare(t, OpEq, age, Lit(ir.Decimal(10)))),
		Key(mustCompare(t, OpNe, age, Lit(ir.Int(10)))),
		Key(mustAgg(t, AggMax, age)),
		Key(mustAgg(t, AggMin, age)),
	}

	seen := make(map[string]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
}

func TestKeyLiteralsAreNFCNormalized(t *testing.T) {
	s := testSchema(t)
	username := mustPath(t, s, "Member", "m", "username")

	composed := mustCompare(t, OpEq, username, Lit(ir.String("caf\u00e9")))
	decomposed := mustCompare(t, OpEq, username, Lit(ir.String("cafe\u0301")))

	assert.Equal(t, Key(composed), Key(decomposed))
}

func TestKeyCaseAndSubquery(t *testing.T) {
	s := testSchema(t)
	member := s.MustEntity("Member")

	build := func() Expr {
		age := mustPath(t, s, "Member", "m", "age")
		c, err := NewCase([]When{
			{Cond: mustCompare(t, OpEq, age, Lit(ir.Int(10))), Result: Lit(ir.String("A"))},
		}, Lit(ir.String("C")))
		require.NoError(t, err)
		return c
	}
	assert.Equal(t, Key(build()), Key(build()))

	sub := func() Expr {
		sq, err := NewSubquery(&Select{
			Projections: []Expr{mustAgg(t, AggMax, mustPath(t, s, "Member", "sub", "age"))},
			From:        []Source{{Entity: member, Alias: "sub"}},
		})
		require.NoError(t, err)
		return sq
	}
	assert.Equal(t, Key(sub()), Key(sub()))
	assert.Contains(t, Key(sub()), "from[Member sub]")
}

func TestSelectKeyIncludesPagination(t *testing.T) {
	s := testSchema(t)
	member := s.MustEntity("Member")
	limit := uint64(2)

	a := &Select{Projections: []Expr{mustPath(t, s, "Member", "m", "age")}, From: []Source{{Entity: member, Alias: "m"}}}
	b := a.Clone()
	b.Limit = &limit

	assert.NotEqual(t, SelectKey(a), SelectKey(b))
	assert.Contains(t, SelectKey(b), "limit(2)")
}
