package aliasing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolver_WithValidConfig(t *testing.T) {
	cfg := &Config{SymbolAliases: map[string]string{
		"KIAA1462": "JCAD",
		"FAM46C":   "TENT5C",
	}}

	r := NewResolver(cfg)

	require.NotNil(t, r)
	assert.Equal(t, 2, r.AliasCount())
}

func TestNewResolver_WithNilConfig(t *testing.T) {
	r := NewResolver(nil)

	require.NotNil(t, r)
	assert.Equal(t, 0, r.AliasCount())
}

func TestNewResolver_WithEmptyAliases(t *testing.T) {
	r := NewResolver(&Config{SymbolAliases: map[string]string{}})

	require.NotNil(t, r)
	assert.Equal(t, 0, r.AliasCount())
}

func TestResolve_ReturnsCanonicalForKnownAlias(t *testing.T) {
	r := NewResolver(&Config{SymbolAliases: map[string]string{"KIAA1462": "JCAD"}})

	assert.Equal(t, "JCAD", r.Resolve("KIAA1462"))
	assert.Equal(t, "JCAD", r.Resolve("kiaa1462"))
}

func TestResolve_ReturnsInputUnchangedWhenNoAlias(t *testing.T) {
	r := NewResolver(&Config{SymbolAliases: map[string]string{"KIAA1462": "JCAD"}})

	assert.Equal(t, "TP53", r.Resolve("TP53"))
}

func TestResolve_NilResolverIsNoOp(t *testing.T) {
	var r *Resolver

	assert.Equal(t, "TP53", r.Resolve("TP53"))
}

func TestMatch_ReportsWhetherAliasExists(t *testing.T) {
	r := NewResolver(&Config{SymbolAliases: map[string]string{"KIAA1462": "JCAD"}})

	canonical, ok := r.Match("KIAA1462")
	assert.True(t, ok)
	assert.Equal(t, "JCAD", canonical)

	_, ok = r.Match("TP53")
	assert.False(t, ok)
}
