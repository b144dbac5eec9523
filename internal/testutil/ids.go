package testutil

// FixedIDGenerator returns the same compilation id every time.
//
// Unlike compiler.FixedGenerator, which returns ids in sequence, this
// generator never runs out, so a scenario can compile any number of
// requests and still log byte-identical output.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a fixed id generator. If id is empty,
// Generate returns "test-compilation".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-compilation"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
//
// Implements compiler.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
