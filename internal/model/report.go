package model

import (
	"time"
)

// StageName identifies one of the five pipeline stages.
type StageName string

// The closed set of stage names the orchestrator may run.
const (
	StageSchema      StageName = "schema"
	StageRules       StageName = "rules"
	StageBioRules    StageName = "bio_rules"
	StageBioLookups  StageName = "bio_lookups"
	StagePolicy      StageName = "policy"
)

// StageResult is the outcome of a single validator run.
type StageResult struct {
	StageName        StageName      `json:"stage_name"`
	Passed           bool           `json:"passed"`
	Issues           []Issue        `json:"issues"`
	ExecutionTimeMS  int64          `json:"execution_time_ms"`
	StageMetadata    map[string]any `json:"stage_metadata,omitempty"`
	Skipped          bool           `json:"skipped,omitempty"`
}

// MaxSeverity returns the highest severity among the stage's issues, or
// SeverityInfo if it has none.
func (r StageResult) MaxSeverity() Severity {
	max := SeverityInfo
	for _, iss := range r.Issues {
		if iss.Severity > max {
			max = iss.Severity
		}
	}

	return max
}

// ComputePassed derives the pass/fail invariant: passed iff no issue reaches
// error severity or above.
func ComputePassed(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity >= SeverityError {
			return false
		}
	}

	return true
}

// CountBySeverity groups issues across one or more stages by severity.
func CountBySeverity(stages map[StageName]StageResult) (critical, errorCount, warning, info int) {
	for _, stage := range stages {
		for _, iss := range stage.Issues {
			switch iss.Severity {
			case SeverityCritical:
				critical++
			case SeverityError:
				errorCount++
			case SeverityWarning:
				warning++
			case SeverityInfo:
				info++
			}
		}
	}

	return
}

// Decision is the final accept/conditional/reject outcome.
type Decision string

// The closed set of final decisions.
const (
	DecisionAccepted           Decision = "accepted"
	DecisionConditionalAccept  Decision = "conditional_accept"
	DecisionRejected           Decision = "rejected"
)

// RulesetMetadata identifies the rule configuration in effect for a run.
type RulesetMetadata struct {
	Version       string   `json:"version"`
	LastUpdated   string   `json:"last_updated"`
	Source        string   `json:"source"`
	Hash          *string  `json:"hash"`
	LatestChanges []string `json:"latest_changes"`
}

// APIConfiguration records the environment-derived knobs that shaped this run,
// so the report is reproducible without re-reading the process environment.
type APIConfiguration struct {
	CacheEnabled        bool `json:"cache_enabled"`
	EnsemblEnabled      bool `json:"ensembl_enabled"`
	ShortCircuitEnabled bool `json:"short_circuit_enabled"`
	ParallelBioEnabled  bool `json:"parallel_bio_enabled"`
}

// Report is the final, immutable outcome of a single validation run.
type Report struct {
	ValidationID          string                    `json:"validation_id"`
	DatasetID             string                    `json:"dataset_id"`
	Timestamp             time.Time                 `json:"timestamp"`
	FinalDecision         Decision                  `json:"final_decision"`
	Rationale             string                    `json:"rationale"`
	RequiresHumanReview   bool                      `json:"requires_human_review"`
	ExecutionTimeSeconds  float64                   `json:"execution_time_seconds"`
	ShortCircuited        bool                      `json:"short_circuited"`
	Stages                map[StageName]StageResult `json:"stages"`
	RulesetMetadata       RulesetMetadata           `json:"ruleset_metadata"`
	APIConfiguration      APIConfiguration          `json:"api_configuration"`
}
