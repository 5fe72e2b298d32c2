// Package rules implements the vectorized tabular rule engine: consistency,
// duplicate, and bias checks expressed as bulk set-at-a-time operations
// rather than per-row loops.
package rules

import "gopkg.in/yaml.v3"

// ValueRangeRule bounds a numeric column to a closed interval.
type ValueRangeRule struct {
	Column string  `yaml:"column"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

// RelationOperator is one of the comparison operators a cross-column
// relation may assert between two columns.
type RelationOperator string

// Supported relation operators.
const (
	OpLessThan           RelationOperator = "lt"
	OpLessThanOrEqual    RelationOperator = "lte"
	OpGreaterThan        RelationOperator = "gt"
	OpGreaterThanOrEqual RelationOperator = "gte"
)

// RelationRule declares a predicate between two numeric columns, e.g.
// start < end.
type RelationRule struct {
	Left     string           `yaml:"left"`
	Operator RelationOperator `yaml:"operator"`
	Right    string           `yaml:"right"`
}

// ConsistencyConfig lists the structural consistency checks to run.
type ConsistencyConfig struct {
	RequiredColumns      []string         `yaml:"required_columns"`
	ValueRanges          []ValueRangeRule `yaml:"value_ranges"`
	CrossColumnRelations []RelationRule   `yaml:"cross_column_relations"`
}

// DuplicatesConfig lists the columns and thresholds duplicate detection uses.
type DuplicatesConfig struct {
	UniqueColumns           []string `yaml:"unique_columns"`
	SequenceColumns         []string `yaml:"sequence_columns"`
	NearDuplicateThreshold  float64  `yaml:"near_duplicate_threshold"`
	ExactDuplicateIgnoreCol []string `yaml:"exact_duplicate_ignore_columns"`
}

// BiasConfig lists the categorical columns and thresholds bias detection uses.
type BiasConfig struct {
	CategoricalColumns       []string `yaml:"categorical_columns"`
	ClassImbalanceThreshold  float64  `yaml:"class_imbalance_threshold"`
	MissingValueThreshold    float64  `yaml:"missing_value_threshold"`
	MissingCorrelationColumn string   `yaml:"missing_correlation_column"`
}

// CustomConfig is an opaque passthrough for rule sub-sections this engine
// does not interpret; it is parsed but no check or resolver reads it.
type CustomConfig map[string]any

// ChangelogEntry is one release note in the rules config's changelog.
type ChangelogEntry struct {
	Version string   `yaml:"version"`
	Date    string   `yaml:"date"`
	Changes []string `yaml:"changes"`
}

// Rules is the mapping of rule sub-sections the config file declares.
type Rules struct {
	Consistency ConsistencyConfig `yaml:"consistency"`
	Duplicates  DuplicatesConfig  `yaml:"duplicates"`
	Bias        BiasConfig        `yaml:"bias"`
	Custom      CustomConfig      `yaml:"custom"`
}

// Config is the top-level shape of the rules configuration file.
type Config struct {
	Version     string           `yaml:"version"`
	LastUpdated string           `yaml:"last_updated"`
	Changelog   []ChangelogEntry `yaml:"changelog"`
	Rules       Rules            `yaml:"rules"`
}

const (
	defaultNearDuplicateThreshold = 0.95
	defaultClassImbalanceThresh   = 0.30
	defaultMissingValueThreshold  = 0.10
)

// ParseConfig decodes raw into a Config and applies default thresholds for
// any field the file leaves unset.
func ParseConfig(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Rules.Duplicates.NearDuplicateThreshold == 0 {
		cfg.Rules.Duplicates.NearDuplicateThreshold = defaultNearDuplicateThreshold
	}

	if cfg.Rules.Bias.ClassImbalanceThreshold == 0 {
		cfg.Rules.Bias.ClassImbalanceThreshold = defaultClassImbalanceThresh
	}

	if cfg.Rules.Bias.MissingValueThreshold == 0 {
		cfg.Rules.Bias.MissingValueThreshold = defaultMissingValueThreshold
	}

	return cfg, nil
}
