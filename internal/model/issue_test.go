package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_Ordering(t *testing.T) {
	assert.Less(t, int(SeverityInfo), int(SeverityWarning))
	assert.Less(t, int(SeverityWarning), int(SeverityError))
	assert.Less(t, int(SeverityError), int(SeverityCritical))
}

func TestSeverity_JSONRoundTrip(t *testing.T) {
	for _, sev := range []Severity{SeverityInfo, SeverityWarning, SeverityError, SeverityCritical} {
		data, err := json.Marshal(sev)
		require.NoError(t, err)

		var got Severity

		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, sev, got)
	}
}

func TestComputePassed_NoIssues(t *testing.T) {
	assert.True(t, ComputePassed(nil))
}

func TestComputePassed_OnlyWarnings(t *testing.T) {
	issues := []Issue{NewIssue(SeverityWarning, "DUP_003", "duplicate rows")}
	assert.True(t, ComputePassed(issues))
}

func TestComputePassed_HasError(t *testing.T) {
	issues := []Issue{
		NewIssue(SeverityWarning, "DUP_003", "duplicate rows"),
		NewIssue(SeverityError, "BIO_002", "invalid PAM"),
	}
	assert.False(t, ComputePassed(issues))
}

func TestIssue_WithRows_SortsAscending(t *testing.T) {
	iss := NewIssue(SeverityWarning, "DUP_003", "duplicate rows").WithRows(5, 1, 3)
	assert.Equal(t, []int{1, 3, 5}, iss.AffectedRows)
}

func TestCountBySeverity(t *testing.T) {
	stages := map[StageName]StageResult{
		StageSchema: {
			Issues: []Issue{NewIssue(SeverityCritical, "SCHEMA_001", "bad format")},
		},
		StageBioRules: {
			Issues: []Issue{
				NewIssue(SeverityError, "BIO_002", "invalid PAM"),
				NewIssue(SeverityWarning, "BIO_003", "GC out of range"),
				NewIssue(SeverityInfo, "BIO_XXX", "fyi"),
			},
		},
	}

	critical, errorCount, warning, info := CountBySeverity(stages)
	assert.Equal(t, 1, critical)
	assert.Equal(t, 1, errorCount)
	assert.Equal(t, 1, warning)
	assert.Equal(t, 1, info)
}
