package canonicalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHash_Deterministic(t *testing.T) {
	a := ContentHash([]byte("version: 1.2.0\n"))
	b := ContentHash([]byte("version: 1.2.0\n"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestContentHash_DifferentInputsDiffer(t *testing.T) {
	a := ContentHash([]byte("version: 1.2.0\n"))
	b := ContentHash([]byte("version: 1.3.0\n"))
	assert.NotEqual(t, a, b)
}

func TestShortHash_IsPrefixOfFullHash(t *testing.T) {
	data := []byte("version: 1.2.0\n")
	full := ContentHash(data)
	short := ShortHash(data)

	assert.Len(t, short, 16)
	assert.Equal(t, full[:16], short)
}
