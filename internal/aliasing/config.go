// Package aliasing resolves deprecated or tool-specific gene identifiers to
// their canonical symbol before a dataset reaches the lookup subsystem.
//
// Gene nomenclature changes over time (HGNC retires and renames symbols),
// and different submitting labs sometimes use older names. Configuring a
// symbol alias map lets a dataset validate against identifiers the external
// providers would otherwise report as not found.
//
// Example configuration (aliases.yaml):
//
//	symbol_aliases:
//	  C9orf72: "C9orf72"
//	  KIAA1462: "JCAD"
package aliasing

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/correlator-io/bioval/internal/config"
)

// Config holds symbol alias configuration loaded from a YAML file.
type Config struct {
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	SymbolAliases map[string]string `yaml:"symbol_aliases"`
}

const (
	// DefaultConfigPath is the default location for the alias configuration file.
	DefaultConfigPath = "aliases.yaml"

	// ConfigPathEnvVar is the environment variable name for a custom config path.
	ConfigPathEnvVar = "ALIASES_CONFIG_PATH"
)

// LoadConfig loads alias configuration from a YAML file at the given path.
//
// A missing, empty, or invalid file returns an empty config rather than an
// error — alias resolution is an optional enrichment, never a precondition.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{SymbolAliases: map[string]string{}}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("alias config not found, continuing without aliases", slog.String("path", path))

			return cfg, nil
		}

		slog.Warn("failed to read alias config, continuing without aliases",
			slog.String("path", path), slog.String("error", err.Error()))

		return cfg, nil
	}

	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("failed to parse alias config, continuing without aliases",
			slog.String("path", path), slog.String("error", err.Error()))

		return &Config{SymbolAliases: map[string]string{}}, nil
	}

	if cfg.SymbolAliases == nil {
		cfg.SymbolAliases = map[string]string{}
	}

	return cfg, nil
}

// LoadConfigFromEnv loads config from the path named by ALIASES_CONFIG_PATH,
// falling back to DefaultConfigPath.
func LoadConfigFromEnv() (*Config, error) {
	path := config.GetEnvStr(ConfigPathEnvVar, DefaultConfigPath)

	return LoadConfig(path)
}
