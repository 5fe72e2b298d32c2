// Package policy turns aggregated stage severity counts into a final
// accept/conditional-accept/reject decision, a human-review flag, and a
// rationale string.
package policy

import "gopkg.in/yaml.v3"

// DecisionMatrix holds the thresholds that select the final decision.
// The first matching condition wins, checked in the order: critical, error,
// warning.
type DecisionMatrix struct {
	CriticalThreshold int `yaml:"critical_threshold"`
	ErrorThreshold    int `yaml:"error_threshold"`
	WarningThreshold  int `yaml:"warning_threshold"`
}

// HumanReviewTriggers holds the thresholds that force human review,
// evaluated as a disjunction.
type HumanReviewTriggers struct {
	OnCritical           bool `yaml:"on_critical"`
	ErrorCountThreshold   int `yaml:"error_count_threshold"`
	WarningCountThreshold int `yaml:"warning_count_threshold"`
}

// Config is the top-level shape of the policy configuration file.
type Config struct {
	DecisionMatrix      DecisionMatrix      `yaml:"decision_matrix"`
	HumanReviewTriggers HumanReviewTriggers `yaml:"human_review_triggers"`
}

const (
	defaultCriticalThreshold     = 1
	defaultErrorThreshold        = 5
	defaultWarningThreshold      = 10
	defaultErrorReviewThreshold  = 3
	defaultWarningReviewThreshold = 15
)

// DefaultConfig returns the policy defaults named in the decision matrix and
// human-review trigger tables.
func DefaultConfig() Config {
	return Config{
		DecisionMatrix: DecisionMatrix{
			CriticalThreshold: defaultCriticalThreshold,
			ErrorThreshold:     defaultErrorThreshold,
			WarningThreshold:   defaultWarningThreshold,
		},
		HumanReviewTriggers: HumanReviewTriggers{
			OnCritical:            true,
			ErrorCountThreshold:   defaultErrorReviewThreshold,
			WarningCountThreshold: defaultWarningReviewThreshold,
		},
	}
}

// ParseConfig decodes raw into a Config, filling any zero-valued threshold
// with its default.
func ParseConfig(raw []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.DecisionMatrix.CriticalThreshold == 0 {
		cfg.DecisionMatrix.CriticalThreshold = defaultCriticalThreshold
	}

	if cfg.DecisionMatrix.ErrorThreshold == 0 {
		cfg.DecisionMatrix.ErrorThreshold = defaultErrorThreshold
	}

	if cfg.DecisionMatrix.WarningThreshold == 0 {
		cfg.DecisionMatrix.WarningThreshold = defaultWarningThreshold
	}

	if cfg.HumanReviewTriggers.ErrorCountThreshold == 0 {
		cfg.HumanReviewTriggers.ErrorCountThreshold = defaultErrorReviewThreshold
	}

	if cfg.HumanReviewTriggers.WarningCountThreshold == 0 {
		cfg.HumanReviewTriggers.WarningCountThreshold = defaultWarningReviewThreshold
	}

	return cfg, nil
}
