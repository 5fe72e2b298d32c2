// Package ruleset computes the identity of the rule configuration in effect
// for a run: its declared version, last-updated date, and a content hash of
// the raw config bytes, so every report can embed a reproducible fingerprint.
package ruleset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/correlator-io/bioval/internal/canonicalization"
	"github.com/correlator-io/bioval/internal/model"
)

const unknownVersion = "unknown"

// declaredMetadata is the subset of the rules config file this resolver
// reads; it is intentionally loose, since the file may lack version
// metadata entirely.
type declaredMetadata struct {
	Version     string `yaml:"version"`
	LastUpdated string `yaml:"last_updated"`
	Changelog   []struct {
		Changes []string `yaml:"changes"`
	} `yaml:"changelog"`
}

// Resolver computes RulesetMetadata for a given config file path. The file
// is read twice per run: once here to hash and extract metadata, and again
// by the caller that hands its bytes to rules.ParseConfig.
type Resolver struct {
	path string
}

// NewResolver binds a Resolver to the rules config file at path.
func NewResolver(path string) *Resolver {
	return &Resolver{path: path}
}

// Resolve reads the config file and returns its RulesetMetadata. A read
// failure is a configuration error: it aborts the run before any stage
// executes, so it is returned as an error rather than encoded into a report.
func (r *Resolver) Resolve() (model.RulesetMetadata, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return model.RulesetMetadata{}, fmt.Errorf("ruleset: reading config %q: %w", r.path, err)
	}

	var meta declaredMetadata
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return model.RulesetMetadata{}, fmt.Errorf("ruleset: parsing config %q: %w", r.path, err)
	}

	if meta.Version == "" {
		return model.RulesetMetadata{
			Version:       unknownVersion,
			LastUpdated:   meta.LastUpdated,
			Source:        r.path,
			Hash:          nil,
			LatestChanges: nil,
		}, nil
	}

	hash := canonicalization.ShortHash(raw)

	var latest []string
	if len(meta.Changelog) > 0 {
		latest = meta.Changelog[0].Changes
	}

	return model.RulesetMetadata{
		Version:       meta.Version,
		LastUpdated:   meta.LastUpdated,
		Source:        r.path,
		Hash:          &hash,
		LatestChanges: latest,
	}, nil
}
