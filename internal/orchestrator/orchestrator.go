package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/correlator-io/bioval/internal/model"
)

// SchemaValidator runs the schema stage.
type SchemaValidator interface {
	Run(table *model.Table, meta model.Metadata) model.StageResult
}

// RulesEngine runs the vectorized consistency/duplicate/bias stage.
type RulesEngine interface {
	Run(table *model.Table, meta model.Metadata) model.StageResult
}

// BioRulesEngine runs the biological-rule stage.
type BioRulesEngine interface {
	Run(table *model.Table, meta model.Metadata) model.StageResult
}

// BioLookupsEngine runs the external-identifier lookup stage.
type BioLookupsEngine interface {
	Run(ctx context.Context, table *model.Table, meta model.Metadata) model.StageResult
}

// PolicyEngine turns assembled stage results into a final decision.
type PolicyEngine interface {
	Run(stages map[model.StageName]model.StageResult) (model.StageResult, model.Decision, bool, string)
}

// RulesetResolver computes the ruleset metadata embedded in every report.
type RulesetResolver interface {
	Resolve() (model.RulesetMetadata, error)
}

// ErrConfig is returned when the ruleset resolver cannot read or parse the
// rules configuration. No report is produced for this failure mode.
var ErrConfig = errors.New("configuration error")

// emptyDatasetRuleID marks the single warning issued for a zero-row table.
// A table with no rows short-circuits before rules/bio stages run: there is
// nothing for them to check.
const emptyDatasetRuleID = "empty_dataset"

// Orchestrator sequences the five validation stages and assembles the
// final report. It never raises for data-driven failures — those become
// issues — but returns an error for configuration problems.
type Orchestrator struct {
	Schema   SchemaValidator
	Rules    RulesEngine
	BioRules BioRulesEngine
	Lookups  BioLookupsEngine
	Policy   PolicyEngine
	Ruleset  RulesetResolver
}

// NewOrchestrator wires the five stage implementations together.
func NewOrchestrator(
	schema SchemaValidator, rules RulesEngine, bioRules BioRulesEngine,
	lookups BioLookupsEngine, policy PolicyEngine, ruleset RulesetResolver,
) *Orchestrator {
	return &Orchestrator{
		Schema: schema, Rules: rules, BioRules: bioRules,
		Lookups: lookups, Policy: policy, Ruleset: ruleset,
	}
}

// Run executes the pipeline against table/meta and returns the assembled
// report. Configuration errors (an unreadable rules file) abort
// before any stage runs and are returned as ErrConfig; every other failure
// mode — including validator panics and the overall timeout — is encoded
// into the report as an issue.
func (o *Orchestrator) Run(ctx context.Context, table *model.Table, meta model.Metadata, opts Options) (model.Report, error) {
	opts = opts.withDefaults()

	rulesetMeta, err := o.Ruleset.Resolve()
	if err != nil {
		return model.Report{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.OverallTimeout)
	defer cancel()

	start := time.Now()
	stages := make(map[model.StageName]model.StageResult)
	shortCircuited := false
	var reportLevelIssues []model.Issue

	var schemaResult model.StageResult

	if table.RowCount() == 0 {
		schemaResult = model.StageResult{
			StageName: model.StageSchema,
			Passed:    true,
			Issues:    []model.Issue{model.NewIssue(model.SeverityWarning, emptyDatasetRuleID, "table contains no rows")},
		}
		shortCircuited = true
	} else {
		schemaResult = runStageSafely(model.StageSchema, func() model.StageResult {
			return o.Schema.Run(table, meta)
		})

		if opts.ShortCircuitEnabled && stageHasSeverityAtLeast(schemaResult, model.SeverityError) {
			shortCircuited = true
		}
	}

	stages[model.StageSchema] = schemaResult

	if !shortCircuited {
		rulesResult := runStageSafely(model.StageRules, func() model.StageResult {
			return o.Rules.Run(table, meta)
		})
		stages[model.StageRules] = rulesResult

		if opts.ShortCircuitEnabled && stageHasSeverityAtLeast(rulesResult, model.SeverityCritical) {
			shortCircuited = true
		}
	}

	if !shortCircuited {
		bioRulesResult, bioLookupsResult, timedOut := o.runBioStages(runCtx, table, meta, opts)
		stages[model.StageBioRules] = bioRulesResult
		stages[model.StageBioLookups] = bioLookupsResult

		if timedOut {
			reportLevelIssues = append(reportLevelIssues, model.Issue{
				Severity:     model.SeverityCritical,
				RuleID:       "timeout",
				Message:      "overall validation timeout exceeded before all stages completed",
				AffectedRows: []int{},
			})
		}
	}

	policyResult, decision, requiresReview, rationale := o.Policy.Run(stages)
	policyResult.Issues = append(policyResult.Issues, reportLevelIssues...)
	stages[model.StagePolicy] = policyResult

	return model.Report{
		ValidationID:         uuid.New().String(),
		DatasetID:            meta.DatasetID,
		Timestamp:            time.Now().UTC(),
		FinalDecision:        decision,
		Rationale:            rationale,
		RequiresHumanReview:  requiresReview,
		ExecutionTimeSeconds: time.Since(start).Seconds(),
		ShortCircuited:       shortCircuited,
		Stages:               stages,
		RulesetMetadata:      rulesetMeta,
		APIConfiguration: model.APIConfiguration{
			CacheEnabled:        opts.CacheEnabled,
			EnsemblEnabled:      opts.EnsemblEnabled,
			ShortCircuitEnabled: opts.ShortCircuitEnabled,
			ParallelBioEnabled:  opts.ParallelBioEnabled,
		},
	}, nil
}

// runBioStages runs bio_rules and bio_lookups concurrently (or
// sequentially, if parallel execution is disabled), rejoining via an
// errgroup barrier before policy runs. A timeout in one does not cancel the
// other: each stage function handles its own cancellation internally.
func (o *Orchestrator) runBioStages(
	ctx context.Context, table *model.Table, meta model.Metadata, opts Options,
) (bioRules, bioLookups model.StageResult, timedOut bool) {
	runRules := func() model.StageResult {
		return runStageSafely(model.StageBioRules, func() model.StageResult {
			return o.BioRules.Run(table, meta)
		})
	}

	runLookups := func() model.StageResult {
		return runStageSafely(model.StageBioLookups, func() model.StageResult {
			return o.Lookups.Run(ctx, table, meta)
		})
	}

	if !opts.ParallelBioEnabled {
		bioRules = runRules()
		bioLookups = runLookups()

		return bioRules, bioLookups, ctx.Err() != nil
	}

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		bioRules = runRules()

		return nil
	})

	g.Go(func() error {
		bioLookups = runLookups()

		return nil
	})

	_ = g.Wait()

	return bioRules, bioLookups, ctx.Err() != nil
}

// runStageSafely invokes fn and recovers from any panic, turning it into a
// synthetic critical internal_error issue rather than letting a single
// validator bug abort the whole run.
func runStageSafely(stage model.StageName, fn func() model.StageResult) (result model.StageResult) {
	defer func() {
		if r := recover(); r != nil {
			result = model.StageResult{
				StageName: stage,
				Passed:    false,
				Issues: []model.Issue{{
					Severity:     model.SeverityCritical,
					RuleID:       "internal_error",
					Message:      fmt.Sprintf("validator panic: %v", r),
					AffectedRows: []int{},
				}},
			}
		}
	}()

	return fn()
}

func stageHasSeverityAtLeast(result model.StageResult, threshold model.Severity) bool {
	for _, iss := range result.Issues {
		if iss.Severity >= threshold {
			return true
		}
	}

	return false
}
