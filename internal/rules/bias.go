package rules

import (
	"fmt"

	"github.com/correlator-io/bioval/internal/model"
)

// Rule identifiers emitted by the bias checks.
const (
	RuleClassImbalance = "BIAS_001"
	RuleMissingValue   = "BIAS_002"
)

// checkClassImbalance emits a warning for any declared categorical column
// whose minority class share falls below threshold.
func checkClassImbalance(table *model.Table, categoricalColumns []string, threshold float64) []model.Issue {
	var issues []model.Issue

	for _, col := range categoricalColumns {
		if !table.HasColumn(col) {
			continue
		}

		counts := valueCounts(table, col)
		total := 0

		for _, n := range counts {
			total += n
		}

		if total == 0 || len(counts) < 2 {
			continue
		}

		minority := total

		for _, n := range counts {
			if n < minority {
				minority = n
			}
		}

		share := float64(minority) / float64(total)
		if share >= threshold {
			continue
		}

		field := col
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			RuleID:   RuleClassImbalance,
			Field:    &field,
			Message: fmt.Sprintf(
				"%q minority class share %.2f is below the configured threshold %.2f", col, share, threshold,
			),
			AffectedRows: []int{},
		})
	}

	return issues
}

// checkMissingValueBias emits a warning for any column whose null fraction
// exceeds threshold; the severity is raised to error when the missingness
// pattern correlates with the configured categorical column (a simple
// frequency-split proxy for a chi-square test).
func checkMissingValueBias(table *model.Table, cfg BiasConfig) []model.Issue {
	var issues []model.Issue

	for _, col := range table.Columns() {
		missingRows := missingRowIndices(table, col)
		if len(missingRows) == 0 {
			continue
		}

		fraction := float64(len(missingRows)) / float64(table.RowCount())
		if fraction <= cfg.MissingValueThreshold {
			continue
		}

		sev := model.SeverityWarning
		if cfg.MissingCorrelationColumn != "" && table.HasColumn(cfg.MissingCorrelationColumn) &&
			missingnessCorrelates(table, missingRows, cfg.MissingCorrelationColumn) {
			sev = model.SeverityError
		}

		field := col
		issues = append(issues, model.Issue{
			Severity: sev,
			RuleID:   RuleMissingValue,
			Field:    &field,
			Message: fmt.Sprintf(
				"%q is missing in %.1f%% of rows, exceeding the configured threshold", col, fraction*100,
			),
			AffectedRows: missingRows,
		})
	}

	return issues
}

func valueCounts(table *model.Table, col string) map[string]int {
	counts := make(map[string]int)

	for _, row := range table.Rows() {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}

		counts[fmt.Sprintf("%v", v)]++
	}

	return counts
}

func missingRowIndices(table *model.Table, col string) []int {
	var rows []int

	for i, row := range table.Rows() {
		if v, ok := row[col]; !ok || v == nil {
			rows = append(rows, i)
		}
	}

	return rows
}

// missingnessCorrelates does a simple frequency-split proxy for a chi-square
// test: missingness correlates with the correlation column when any one
// category of that column accounts for a disproportionate share of the
// missing rows relative to its share of the whole table.
func missingnessCorrelates(table *model.Table, missingRows []int, correlationColumn string) bool {
	overall := valueCounts(table, correlationColumn)
	if len(overall) == 0 {
		return false
	}

	missingSet := make(map[int]struct{}, len(missingRows))
	for _, i := range missingRows {
		missingSet[i] = struct{}{}
	}

	withinMissing := make(map[string]int)

	for i, row := range table.Rows() {
		if _, missing := missingSet[i]; !missing {
			continue
		}

		v, ok := row[correlationColumn]
		if !ok || v == nil {
			continue
		}

		withinMissing[fmt.Sprintf("%v", v)]++
	}

	total := table.RowCount()
	if total == 0 {
		return false
	}

	for category, overallCount := range overall {
		overallShare := float64(overallCount) / float64(total)
		missingShare := float64(withinMissing[category]) / float64(len(missingRows))

		// A category's share of the missing rows at least double its
		// share of the whole table is treated as correlated.
		if overallShare > 0 && missingShare >= 2*overallShare {
			return true
		}
	}

	return false
}
