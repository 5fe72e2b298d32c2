package aliasing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "aliases.yaml")

	content := `
symbol_aliases:
  KIAA1462: "JCAD"
  FAM46C: "TENT5C"
`
	err := os.WriteFile(configPath, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(configPath)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Len(t, cfg.SymbolAliases, 2)
	assert.Equal(t, "JCAD", cfg.SymbolAliases["KIAA1462"])
	assert.Equal(t, "TENT5C", cfg.SymbolAliases["FAM46C"])
}

func TestLoadConfig_EmptyAliasesSection(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "aliases.yaml")

	err := os.WriteFile(configPath, []byte("symbol_aliases:\n"), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(configPath)

	require.NoError(t, err)
	assert.Empty(t, cfg.SymbolAliases)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/aliases.yaml")

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Empty(t, cfg.SymbolAliases)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "aliases.yaml")

	content := "symbol_aliases:\n  key: [invalid yaml\n"
	err := os.WriteFile(configPath, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(configPath)

	require.NoError(t, err)
	assert.Empty(t, cfg.SymbolAliases)
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "aliases.yaml")

	err := os.WriteFile(configPath, []byte(""), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(configPath)

	require.NoError(t, err)
	assert.Empty(t, cfg.SymbolAliases)
}

func TestLoadConfigFromEnv_CustomPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom-aliases.yaml")

	err := os.WriteFile(configPath, []byte("symbol_aliases:\n  OLD: \"NEW\"\n"), 0644)
	require.NoError(t, err)

	t.Setenv("ALIASES_CONFIG_PATH", configPath)

	cfg, err := LoadConfigFromEnv()

	require.NoError(t, err)
	assert.Len(t, cfg.SymbolAliases, 1)
	assert.Equal(t, "NEW", cfg.SymbolAliases["OLD"])
}
