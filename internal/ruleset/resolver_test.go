package ruleset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestResolve_WithVersionMetadata(t *testing.T) {
	path := writeTempConfig(t, "version: 1.2.0\nlast_updated: 2024-03-01\nchangelog:\n  - version: 1.2.0\n    date: 2024-03-01\n    changes:\n      - tightened GC content bounds\n")

	meta, err := NewResolver(path).Resolve()
	require.NoError(t, err)

	assert.Equal(t, "1.2.0", meta.Version)
	assert.Equal(t, "2024-03-01", meta.LastUpdated)
	assert.Equal(t, path, meta.Source)
	require.NotNil(t, meta.Hash)
	assert.Len(t, *meta.Hash, 16)
	assert.Equal(t, []string{"tightened GC content bounds"}, meta.LatestChanges)
}

func TestResolve_MissingVersionIsNotAnError(t *testing.T) {
	path := writeTempConfig(t, "rules:\n  consistency:\n    required_columns: []\n")

	meta, err := NewResolver(path).Resolve()
	require.NoError(t, err)

	assert.Equal(t, unknownVersion, meta.Version)
	assert.Nil(t, meta.Hash)
}

func TestResolve_SameBytesProduceSameHash(t *testing.T) {
	content := "version: 2.0.0\nlast_updated: 2024-01-01\n"
	pathA := writeTempConfig(t, content)
	pathB := writeTempConfig(t, content)

	metaA, err := NewResolver(pathA).Resolve()
	require.NoError(t, err)

	metaB, err := NewResolver(pathB).Resolve()
	require.NoError(t, err)

	assert.Equal(t, *metaA.Hash, *metaB.Hash)
}

func TestResolve_UnreadableFileIsConfigError(t *testing.T) {
	_, err := NewResolver(filepath.Join(t.TempDir(), "missing.yaml")).Resolve()
	assert.Error(t, err)
}
