package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/bioval/internal/model"
)

func stagesWithCounts(critical, errorCount, warning int) map[model.StageName]model.StageResult {
	var issues []model.Issue

	for i := 0; i < critical; i++ {
		issues = append(issues, model.Issue{Severity: model.SeverityCritical, RuleID: "X"})
	}

	for i := 0; i < errorCount; i++ {
		issues = append(issues, model.Issue{Severity: model.SeverityError, RuleID: "X"})
	}

	for i := 0; i < warning; i++ {
		issues = append(issues, model.Issue{Severity: model.SeverityWarning, RuleID: "X"})
	}

	return map[model.StageName]model.StageResult{
		model.StageSchema: {StageName: model.StageSchema, Issues: issues},
	}
}

func TestEngine_Run_ExactlyCriticalThresholdRejects(t *testing.T) {
	cfg := DefaultConfig()
	_, decision, _, _ := NewEngine(cfg).Run(stagesWithCounts(1, 0, 0))
	assert.Equal(t, model.DecisionRejected, decision)
}

func TestEngine_Run_ErrorThresholdMinusOneAccepts(t *testing.T) {
	cfg := DefaultConfig()
	_, decision, _, _ := NewEngine(cfg).Run(stagesWithCounts(0, cfg.DecisionMatrix.ErrorThreshold-1, 0))
	assert.Equal(t, model.DecisionAccepted, decision)
}

func TestEngine_Run_WarningThresholdConditionalAccept(t *testing.T) {
	cfg := DefaultConfig()
	_, decision, _, _ := NewEngine(cfg).Run(stagesWithCounts(0, 0, cfg.DecisionMatrix.WarningThreshold))
	assert.Equal(t, model.DecisionConditionalAccept, decision)
}

func TestEngine_Run_EmptyTableDefaultsAccepted(t *testing.T) {
	cfg := DefaultConfig()
	_, decision, review, _ := NewEngine(cfg).Run(stagesWithCounts(0, 0, 0))
	assert.Equal(t, model.DecisionAccepted, decision)
	assert.False(t, review)
}

func TestEngine_Run_HumanReviewOnCritical(t *testing.T) {
	cfg := DefaultConfig()
	_, _, review, rationale := NewEngine(cfg).Run(stagesWithCounts(1, 0, 0))
	assert.True(t, review)
	assert.Contains(t, rationale, "human review")
}

func TestEngine_Run_HumanReviewOnErrorCountThreshold(t *testing.T) {
	cfg := DefaultConfig()
	_, _, review, _ := NewEngine(cfg).Run(stagesWithCounts(0, cfg.HumanReviewTriggers.ErrorCountThreshold, 0))
	assert.True(t, review)
}

func TestEngine_Run_HumanReviewOnWarningCountThreshold(t *testing.T) {
	cfg := DefaultConfig()
	_, _, review, _ := NewEngine(cfg).Run(stagesWithCounts(0, 0, cfg.HumanReviewTriggers.WarningCountThreshold))
	assert.True(t, review)
}

func TestEngine_Run_InvalidPAMScenarioStaysAccepted(t *testing.T) {
	// One error below the default threshold of 5 must still accept.
	cfg := DefaultConfig()
	_, decision, review, _ := NewEngine(cfg).Run(stagesWithCounts(0, 1, 0))
	assert.Equal(t, model.DecisionAccepted, decision)
	assert.False(t, review)
}

func TestParseConfig_FillsDefaultsForZeroFields(t *testing.T) {
	cfg, err := ParseConfig([]byte("decision_matrix:\n  critical_threshold: 2\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.DecisionMatrix.CriticalThreshold)
	assert.Equal(t, defaultErrorThreshold, cfg.DecisionMatrix.ErrorThreshold)
	assert.True(t, cfg.HumanReviewTriggers.OnCritical)
}
