package biorules

import (
	"time"

	"github.com/correlator-io/bioval/internal/model"
)

// Options configures the biological-rule engine.
type Options struct {
	// OrganismAllowList is consulted by BIO_201. A nil value falls back to
	// defaultOrganismAllowList.
	OrganismAllowList map[string]struct{}
}

// Engine runs domain-specific biological checks that require no external
// data, dispatching on the table's declared format.
type Engine struct {
	opts Options
}

// NewEngine builds an Engine with the given options.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Run executes the format-appropriate rule set in bulk and returns the
// bio_rules stage result.
func (e *Engine) Run(table *model.Table, meta model.Metadata) model.StageResult {
	start := time.Now()

	var issues []model.Issue

	switch meta.Format {
	case model.FormatGuideRNA:
		issues = checkGuideRNA(table)
	case model.FormatVariantAnnotation:
		issues = checkVariantAnnotation(table)
	case model.FormatSampleMetadata:
		issues = checkSampleMetadata(table, e.opts.OrganismAllowList)
	}

	return model.StageResult{
		StageName:       model.StageBioRules,
		Passed:          model.ComputePassed(issues),
		Issues:          issues,
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}
}
