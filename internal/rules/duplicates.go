package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/correlator-io/bioval/internal/model"
)

// Rule identifiers emitted by the duplicate checks.
const (
	RuleIdentifierDuplicate = "DUP_001"
	RuleNearDuplicate       = "DUP_002"
	RuleExactDuplicate      = "DUP_003"
)

// checkIdentifierDuplicates emits an error issue per configured
// unique_columns column that holds more than one row with the same value.
func checkIdentifierDuplicates(table *model.Table, uniqueColumns []string) []model.Issue {
	var issues []model.Issue

	for _, col := range uniqueColumns {
		if !table.HasColumn(col) {
			continue
		}

		groups := groupRowsByValue(table, col)
		rows := dupRowsFromGroups(groups)

		if len(rows) == 0 {
			continue
		}

		field := col
		issues = append(issues, model.Issue{
			Severity:     model.SeverityError,
			RuleID:       RuleIdentifierDuplicate,
			Field:        &field,
			Message:      fmt.Sprintf("%q must be unique within the dataset", col),
			AffectedRows: rows,
		})
	}

	return issues
}

// checkExactDuplicates groups rows identical across all columns except those
// named in ignoreColumns, and emits one warning per group of size ≥ 2.
func checkExactDuplicates(table *model.Table, ignoreColumns []string) []model.Issue {
	ignore := make(map[string]struct{}, len(ignoreColumns))
	for _, c := range ignoreColumns {
		ignore[c] = struct{}{}
	}

	compareCols := make([]string, 0, len(table.Columns()))

	for _, c := range table.Columns() {
		if _, skip := ignore[c]; skip {
			continue
		}

		compareCols = append(compareCols, c)
	}

	sort.Strings(compareCols)

	groups := make(map[string][]int)
	order := make([]string, 0)

	for i, row := range table.Rows() {
		sig := rowSignature(row, compareCols)

		if _, known := groups[sig]; !known {
			order = append(order, sig)
		}

		groups[sig] = append(groups[sig], i)
	}

	var issues []model.Issue

	for _, sig := range order {
		rows := groups[sig]
		if len(rows) < 2 {
			continue
		}

		issues = append(issues, model.Issue{
			Severity:     model.SeverityWarning,
			RuleID:       RuleExactDuplicate,
			Message:      fmt.Sprintf("%d rows are identical across all compared columns", len(rows)),
			AffectedRows: rows,
		})
	}

	return issues
}

// checkNearDuplicateSequences flags pairs of rows whose sequence-column
// values are nearly identical. Rows are bucketed by length first — near
// duplicates share a length class — so comparison is per-bucket rather than
// over the full O(n^2) cross product.
func checkNearDuplicateSequences(table *model.Table, sequenceColumns []string, threshold float64) []model.Issue {
	var issues []model.Issue

	for _, col := range sequenceColumns {
		if !table.HasColumn(col) {
			continue
		}

		values, present := table.StringColumn(col)
		buckets := make(map[int][]int)

		for i, ok := range present {
			if !ok {
				continue
			}

			buckets[len(values[i])] = append(buckets[len(values[i])], i)
		}

		flagged := make(map[int]struct{})

		for _, rows := range buckets {
			for a := 0; a < len(rows); a++ {
				for b := a + 1; b < len(rows); b++ {
					i, j := rows[a], rows[b]
					if normalizedSimilarity(values[i], values[j]) >= threshold {
						flagged[i] = struct{}{}
						flagged[j] = struct{}{}
					}
				}
			}
		}

		if len(flagged) == 0 {
			continue
		}

		rows := make([]int, 0, len(flagged))
		for i := range flagged {
			rows = append(rows, i)
		}

		sort.Ints(rows)

		field := col
		issues = append(issues, model.Issue{
			Severity:     model.SeverityWarning,
			RuleID:       RuleNearDuplicate,
			Field:        &field,
			Message:      fmt.Sprintf("%q contains near-duplicate sequences (threshold %.2f)", col, threshold),
			AffectedRows: rows,
		})
	}

	return issues
}

func groupRowsByValue(table *model.Table, col string) map[string][]int {
	groups := make(map[string][]int)

	for i, row := range table.Rows() {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}

		key := fmt.Sprintf("%v", v)
		groups[key] = append(groups[key], i)
	}

	return groups
}

func dupRowsFromGroups(groups map[string][]int) []int {
	var rows []int

	for _, g := range groups {
		if len(g) > 1 {
			rows = append(rows, g...)
		}
	}

	sort.Ints(rows)

	return rows
}

func rowSignature(row model.Record, cols []string) string {
	var b strings.Builder

	for _, c := range cols {
		v, ok := row[c]
		if ok && v != nil {
			fmt.Fprintf(&b, "%v", v)
		}

		b.WriteByte(0)
	}

	return b.String()
}

// normalizedSimilarity returns 1 - (edit distance / max length), the
// fraction of the two strings' length class that matches.
func normalizedSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	if maxLen == 0 {
		return 1
	}

	dist := levenshtein(a, b)

	return 1 - float64(dist)/float64(maxLen)
}

// levenshtein computes the classic edit distance between two strings using
// the two-row dynamic-programming form.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i

		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost

			m := del
			if ins < m {
				m = ins
			}

			if sub < m {
				m = sub
			}

			curr[j] = m
		}

		prev, curr = curr, prev
	}

	return prev[len(rb)]
}
