package rules

import (
	"time"

	"github.com/correlator-io/bioval/internal/model"
)

// Engine runs the vectorized consistency, duplicate, and bias checks
// configured for a ruleset.
type Engine struct {
	cfg Config
}

// NewEngine builds an Engine bound to the given rules config.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Run executes every configured check against table and returns the rules
// stage result. Only critical issues from this stage may short-circuit the
// pipeline; this engine never produces one — a malformed rules config fails
// before the run starts, as a configuration error, not a stage issue.
func (e *Engine) Run(table *model.Table, _ model.Metadata) model.StageResult {
	start := time.Now()

	var issues []model.Issue

	issues = append(issues, checkRequiredColumns(table, e.cfg.Rules.Consistency)...)
	issues = append(issues, checkValueRanges(table, e.cfg.Rules.Consistency.ValueRanges)...)
	issues = append(issues, checkCrossColumnRelations(table, e.cfg.Rules.Consistency.CrossColumnRelations)...)

	issues = append(issues, checkIdentifierDuplicates(table, e.cfg.Rules.Duplicates.UniqueColumns)...)
	issues = append(issues, checkExactDuplicates(table, e.cfg.Rules.Duplicates.ExactDuplicateIgnoreCol)...)
	issues = append(issues, checkNearDuplicateSequences(
		table, e.cfg.Rules.Duplicates.SequenceColumns, e.cfg.Rules.Duplicates.NearDuplicateThreshold,
	)...)

	issues = append(issues, checkClassImbalance(
		table, e.cfg.Rules.Bias.CategoricalColumns, e.cfg.Rules.Bias.ClassImbalanceThreshold,
	)...)
	issues = append(issues, checkMissingValueBias(table, e.cfg.Rules.Bias)...)

	return model.StageResult{
		StageName:       model.StageRules,
		Passed:          model.ComputePassed(issues),
		Issues:          issues,
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}
}
