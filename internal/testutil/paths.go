package testutil

import (
	"github.com/bitfox-hash/querydsl/internal/ir"
	"github.com/bitfox-hash/querydsl/internal/query"
)

// QTeam is the typed path of the Team fixture entity.
type QTeam struct {
	*query.EntityPath
	ID   query.NumberExpr
	Name query.StringExpr
}

// QMember is the typed path of the Member fixture entity.
type QMember struct {
	*query.EntityPath
	ID       query.NumberExpr
	Username query.StringExpr
	Age      query.NumberExpr
	Score    query.NumberExpr
	Active   query.BoolExpr
	Team     *QTeam
}

// NewQTeam binds Team to alias.
func NewQTeam(schema *ir.Schema, alias string) *QTeam {
	return qTeam(query.NewEntityPath(schema, "Team", alias))
}

// NewQMember binds Member to alias.
func NewQMember(schema *ir.Schema, alias string) *QMember {
	p := query.NewEntityPath(schema, "Member", alias)
	return &QMember{
		EntityPath: p,
		ID:         p.Number("id"),
		Username:   p.String("username"),
		Age:        p.Number("age"),
		Score:      p.Number("score"),
		Active:     p.Bool("active"),
		Team:       qTeam(p.Assoc("team")),
	}
}

func qTeam(p *query.EntityPath) *QTeam {
	return &QTeam{EntityPath: p, ID: p.Number("id"), Name: p.String("name")}
}
