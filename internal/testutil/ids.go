package testutil

// FixedQueryIDGenerator returns the same query ID every time.
//
// Harness runs use it so that logged and reported query IDs are identical
// across runs and golden output stays byte-stable.
//
// Thread-safety: FixedQueryIDGenerator is stateless and safe for concurrent use.
type FixedQueryIDGenerator struct {
	id string
}

// NewFixedQueryIDGenerator creates a new fixed query ID generator.
//
// If id is empty, Generate() returns "test-query-default".
func NewFixedQueryIDGenerator(id string) *FixedQueryIDGenerator {
	if id == "" {
		id = "test-query-default"
	}
	return &FixedQueryIDGenerator{id: id}
}

// Generate returns the fixed query ID.
//
// Implements engine.IDGenerator interface.
func (g *FixedQueryIDGenerator) Generate() string {
	return g.id
}
