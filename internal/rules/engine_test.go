package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/correlator-io/bioval/internal/model"
)

func mustTable(t *testing.T, columns []string, rows []model.Record) *model.Table {
	t.Helper()

	tbl, err := model.NewTable(columns, rows)
	require.NoError(t, err)

	return tbl
}

func TestParseConfig_AppliesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("version: 1.0.0\n"))
	require.NoError(t, err)

	assert.InDelta(t, defaultNearDuplicateThreshold, cfg.Rules.Duplicates.NearDuplicateThreshold, 0.001)
	assert.InDelta(t, defaultClassImbalanceThresh, cfg.Rules.Bias.ClassImbalanceThreshold, 0.001)
	assert.InDelta(t, defaultMissingValueThreshold, cfg.Rules.Bias.MissingValueThreshold, 0.001)
}

func TestEngine_RequiredColumnMissing(t *testing.T) {
	tbl := mustTable(t, []string{"a"}, []model.Record{{"a": 1.0}})
	cfg := Config{Rules: Rules{Consistency: ConsistencyConfig{RequiredColumns: []string{"a", "b"}}}}

	result := NewEngine(cfg).Run(tbl, model.Metadata{})

	require.False(t, result.Passed)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, RuleRequiredColumn, result.Issues[0].RuleID)
	assert.Equal(t, "b", *result.Issues[0].Field)
}

func TestEngine_ValueRangeViolation(t *testing.T) {
	tbl := mustTable(t, []string{"score"}, []model.Record{
		{"score": 1.5}, {"score": -0.2}, {"score": 0.5},
	})
	cfg := Config{Rules: Rules{Consistency: ConsistencyConfig{
		ValueRanges: []ValueRangeRule{{Column: "score", Min: 0, Max: 1}},
	}}}

	result := NewEngine(cfg).Run(tbl, model.Metadata{})

	require.Len(t, result.Issues, 1)
	assert.Equal(t, RuleValueRange, result.Issues[0].RuleID)
	assert.Equal(t, []int{0, 1}, result.Issues[0].AffectedRows)
}

func TestEngine_CrossColumnRelation(t *testing.T) {
	tbl := mustTable(t, []string{"start", "end"}, []model.Record{
		{"start": 10.0, "end": 20.0},
		{"start": 30.0, "end": 25.0},
	})
	cfg := Config{Rules: Rules{Consistency: ConsistencyConfig{
		CrossColumnRelations: []RelationRule{{Left: "start", Operator: OpLessThan, Right: "end"}},
	}}}

	result := NewEngine(cfg).Run(tbl, model.Metadata{})

	require.Len(t, result.Issues, 1)
	assert.Equal(t, RuleCrossColumn, result.Issues[0].RuleID)
	assert.Equal(t, []int{1}, result.Issues[0].AffectedRows)
}

func TestEngine_IdentifierDuplicate(t *testing.T) {
	tbl := mustTable(t, []string{"guide_id"}, []model.Record{
		{"guide_id": "g1"}, {"guide_id": "g2"}, {"guide_id": "g1"},
	})
	cfg := Config{Rules: Rules{Duplicates: DuplicatesConfig{UniqueColumns: []string{"guide_id"}}}}

	result := NewEngine(cfg).Run(tbl, model.Metadata{})

	require.Len(t, result.Issues, 1)
	assert.Equal(t, RuleIdentifierDuplicate, result.Issues[0].RuleID)
	assert.Equal(t, []int{0, 2}, result.Issues[0].AffectedRows)
}

func TestEngine_ExactDuplicateRows(t *testing.T) {
	tbl := mustTable(t, []string{"guide_id", "sequence"}, []model.Record{
		{"guide_id": "g1", "sequence": "ACGT"},
		{"guide_id": "g2", "sequence": "ACGT"},
		{"guide_id": "g3", "sequence": "ACGT"},
		{"guide_id": "g4", "sequence": "ACGT"},
		{"guide_id": "g5", "sequence": "TTTT"},
	})
	cfg := Config{Rules: Rules{Duplicates: DuplicatesConfig{
		ExactDuplicateIgnoreCol: []string{"guide_id"},
	}}}

	result := NewEngine(cfg).Run(tbl, model.Metadata{})

	require.Len(t, result.Issues, 1)
	assert.Equal(t, RuleExactDuplicate, result.Issues[0].RuleID)
	assert.Equal(t, model.SeverityWarning, result.Issues[0].Severity)
	assert.Equal(t, []int{0, 1, 2, 3}, result.Issues[0].AffectedRows)
	assert.True(t, result.Passed, "a warning-only stage still passes")
}

func TestEngine_NearDuplicateSequences(t *testing.T) {
	tbl := mustTable(t, []string{"sequence"}, []model.Record{
		{"sequence": "ATCGATCGATCGATCGATCG"},
		{"sequence": "ATCGATCGATCGATCGATCC"},
		{"sequence": "GGGGGGGGGGGGGGGGGGGG"},
	})
	cfg := Config{Rules: Rules{Duplicates: DuplicatesConfig{
		SequenceColumns:        []string{"sequence"},
		NearDuplicateThreshold: 0.9,
	}}}

	result := NewEngine(cfg).Run(tbl, model.Metadata{})

	require.Len(t, result.Issues, 1)
	assert.Equal(t, RuleNearDuplicate, result.Issues[0].RuleID)
	assert.Equal(t, []int{0, 1}, result.Issues[0].AffectedRows)
}

func TestEngine_ClassImbalance(t *testing.T) {
	rows := make([]model.Record, 0, 20)

	for i := 0; i < 19; i++ {
		rows = append(rows, model.Record{"organism": "human"})
	}

	rows = append(rows, model.Record{"organism": "mouse"})

	tbl := mustTable(t, []string{"organism"}, rows)
	cfg := Config{Rules: Rules{Bias: BiasConfig{
		CategoricalColumns:      []string{"organism"},
		ClassImbalanceThreshold: 0.30,
	}}}

	result := NewEngine(cfg).Run(tbl, model.Metadata{})

	require.Len(t, result.Issues, 1)
	assert.Equal(t, RuleClassImbalance, result.Issues[0].RuleID)
	assert.Equal(t, model.SeverityWarning, result.Issues[0].Severity)
}

func TestEngine_MissingValueBias(t *testing.T) {
	rows := []model.Record{
		{"sample_id": "s1", "organism": "human"},
		{"sample_id": "s2", "organism": "human"},
		{"sample_id": "s3"},
		{"sample_id": "s4"},
		{"sample_id": "s5"},
	}

	tbl := mustTable(t, []string{"sample_id", "organism"}, rows)
	cfg := Config{Rules: Rules{Bias: BiasConfig{MissingValueThreshold: 0.10}}}

	result := NewEngine(cfg).Run(tbl, model.Metadata{})

	require.Len(t, result.Issues, 1)
	assert.Equal(t, RuleMissingValue, result.Issues[0].RuleID)
	assert.Equal(t, model.SeverityWarning, result.Issues[0].Severity)
	assert.Equal(t, []int{2, 3, 4}, result.Issues[0].AffectedRows)
}

func TestEngine_CleanTablePasses(t *testing.T) {
	tbl := mustTable(t, []string{"a"}, []model.Record{{"a": 1.0}})
	result := NewEngine(Config{}).Run(tbl, model.Metadata{})

	assert.True(t, result.Passed)
	assert.Empty(t, result.Issues)
	assert.Equal(t, model.StageRules, result.StageName)
}
