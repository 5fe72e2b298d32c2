package policy

import (
	"fmt"
	"time"

	"github.com/correlator-io/bioval/internal/model"
)

// Engine produces the final decision and human-review flag from the
// aggregated severity counts across a run's stage results.
type Engine struct {
	cfg Config
}

// NewEngine builds an Engine bound to the given policy config.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Run evaluates the decision matrix and human-review triggers over stages
// and returns the policy stage result. The decision, human-review flag, and
// rationale are also returned directly so the orchestrator can embed them in
// the report without re-deriving them from the stage's opaque metadata.
func (e *Engine) Run(stages map[model.StageName]model.StageResult) (
	model.StageResult, model.Decision, bool, string,
) {
	start := time.Now()

	critical, errorCount, warning, _ := model.CountBySeverity(stages)

	decision := e.decide(critical, errorCount, warning)
	requiresReview := e.requiresHumanReview(critical, errorCount, warning)
	rationale := e.rationale(decision, critical, errorCount, warning, requiresReview)

	result := model.StageResult{
		StageName: model.StagePolicy,
		Passed:    true,
		Issues:    nil,
		StageMetadata: map[string]any{
			"critical_count": critical,
			"error_count":    errorCount,
			"warning_count":  warning,
		},
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}

	return result, decision, requiresReview, rationale
}

func (e *Engine) decide(critical, errorCount, warning int) model.Decision {
	switch {
	case critical >= e.cfg.DecisionMatrix.CriticalThreshold:
		return model.DecisionRejected
	case errorCount >= e.cfg.DecisionMatrix.ErrorThreshold:
		return model.DecisionRejected
	case warning >= e.cfg.DecisionMatrix.WarningThreshold:
		return model.DecisionConditionalAccept
	default:
		return model.DecisionAccepted
	}
}

func (e *Engine) requiresHumanReview(critical, errorCount, warning int) bool {
	if e.cfg.HumanReviewTriggers.OnCritical && critical > 0 {
		return true
	}

	if errorCount >= e.cfg.HumanReviewTriggers.ErrorCountThreshold {
		return true
	}

	if warning >= e.cfg.HumanReviewTriggers.WarningCountThreshold {
		return true
	}

	return false
}

func (e *Engine) rationale(decision model.Decision, critical, errorCount, warning int, review bool) string {
	var verb string

	switch decision {
	case model.DecisionRejected:
		verb = "Rejected"
	case model.DecisionConditionalAccept:
		verb = "Conditionally accepted"
	default:
		verb = "Accepted"
	}

	reason := e.leadingReason(decision, critical, errorCount)

	msg := fmt.Sprintf("%s: %s%d warning(s); %d critical issue(s) require attention",
		verb, reason, warning, critical)

	if review {
		msg += "; flagged for human review"
	}

	return msg
}

func (e *Engine) leadingReason(decision model.Decision, critical, errorCount int) string {
	switch decision {
	case model.DecisionRejected:
		if critical >= e.cfg.DecisionMatrix.CriticalThreshold {
			return fmt.Sprintf("%d critical issue(s) meet or exceed threshold of %d; ",
				critical, e.cfg.DecisionMatrix.CriticalThreshold)
		}

		return fmt.Sprintf("%d error(s) exceed threshold of %d; ",
			errorCount, e.cfg.DecisionMatrix.ErrorThreshold)
	default:
		return fmt.Sprintf("%d error(s); ", errorCount)
	}
}
