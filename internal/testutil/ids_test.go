package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator(t *testing.T) {
	g := NewFixedIDGenerator("c-1")
	assert.Equal(t, "c-1", g.Generate())
	assert.Equal(t, "c-1", g.Generate())

	assert.Equal(t, "test-compilation", NewFixedIDGenerator("").Generate())
}
