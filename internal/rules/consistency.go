package rules

import (
	"fmt"

	"github.com/correlator-io/bioval/internal/model"
)

// Rule identifiers emitted by the consistency checks.
const (
	RuleRequiredColumn  = "RULES_001"
	RuleValueRange      = "RULES_002"
	RuleCrossColumn     = "RULES_003"
)

// checkRequiredColumns emits one table-level error per column the config
// declares required but the table does not have.
func checkRequiredColumns(table *model.Table, cfg ConsistencyConfig) []model.Issue {
	var issues []model.Issue

	for _, col := range cfg.RequiredColumns {
		if table.HasColumn(col) {
			continue
		}

		field := col
		issues = append(issues, model.Issue{
			Severity:     model.SeverityError,
			RuleID:       RuleRequiredColumn,
			Field:        &field,
			Message:      fmt.Sprintf("required column %q is absent from the table", col),
			AffectedRows: []int{},
		})
	}

	return issues
}

// checkValueRanges emits an error issue per configured column whose values
// fall outside the declared closed interval. All offending rows are
// collected into a single issue per column.
func checkValueRanges(table *model.Table, ranges []ValueRangeRule) []model.Issue {
	var issues []model.Issue

	for _, rng := range ranges {
		if !table.HasColumn(rng.Column) {
			continue
		}

		var rows []int

		for i, row := range table.Rows() {
			v, ok := row[rng.Column]
			if !ok || v == nil {
				continue
			}

			n, ok := toFloat64(v)
			if !ok {
				continue
			}

			if n < rng.Min || n > rng.Max {
				rows = append(rows, i)
			}
		}

		if len(rows) == 0 {
			continue
		}

		field := rng.Column
		issues = append(issues, model.Issue{
			Severity: model.SeverityError,
			RuleID:   RuleValueRange,
			Field:    &field,
			Message: fmt.Sprintf(
				"%q outside the configured range [%g, %g]", rng.Column, rng.Min, rng.Max,
			),
			AffectedRows: rows,
		})
	}

	return issues
}

// checkCrossColumnRelations emits an error issue per configured relation for
// every row that violates it.
func checkCrossColumnRelations(table *model.Table, relations []RelationRule) []model.Issue {
	var issues []model.Issue

	for _, rel := range relations {
		if !table.HasColumn(rel.Left) || !table.HasColumn(rel.Right) {
			continue
		}

		var rows []int

		for i, row := range table.Rows() {
			left, ok1 := toFloat64(row[rel.Left])
			right, ok2 := toFloat64(row[rel.Right])

			if !ok1 || !ok2 {
				continue
			}

			if !relationHolds(left, rel.Operator, right) {
				rows = append(rows, i)
			}
		}

		if len(rows) == 0 {
			continue
		}

		field := rel.Left
		issues = append(issues, model.Issue{
			Severity: model.SeverityError,
			RuleID:   RuleCrossColumn,
			Field:    &field,
			Message: fmt.Sprintf(
				"%q %s %q violated", rel.Left, rel.Operator, rel.Right,
			),
			AffectedRows: rows,
		})
	}

	return issues
}

func relationHolds(left float64, op RelationOperator, right float64) bool {
	switch op {
	case OpLessThan:
		return left < right
	case OpLessThanOrEqual:
		return left <= right
	case OpGreaterThan:
		return left > right
	case OpGreaterThanOrEqual:
		return left >= right
	default:
		return true
	}
}
