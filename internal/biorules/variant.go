package biorules

import (
	"strconv"
	"strings"
	"time"

	"github.com/correlator-io/bioval/internal/model"
)

// Rule identifiers emitted against variant_annotation records.
const (
	RuleInvalidChromosomePrefix = "BIO_101"
	RuleAlleleFrequencyRange    = "BIO_102"
	RuleRefAltIdentical         = "BIO_103"
)

var validChromosomeTokens = map[string]struct{}{
	"X": {}, "Y": {}, "MT": {},
}

func checkVariantAnnotation(table *model.Table) []model.Issue {
	var issues []model.Issue

	issues = append(issues, checkChromosomePrefix(table)...)
	issues = append(issues, checkAlleleFrequency(table)...)
	issues = append(issues, checkRefAltIdentical(table)...)

	return issues
}

// checkChromosomePrefix flags values that do not start with "chr" and are
// not a bare digit, X, Y, or MT.
func checkChromosomePrefix(table *model.Table) []model.Issue {
	chroms, present := table.StringColumn("chromosome")

	var rows []int

	for i, ok := range present {
		if !ok {
			continue
		}

		if !isValidChromosomeTag(chroms[i]) {
			rows = append(rows, i)
		}
	}

	if len(rows) == 0 {
		return nil
	}

	field := "chromosome"

	return []model.Issue{{
		Severity:     model.SeverityWarning,
		RuleID:       RuleInvalidChromosomePrefix,
		Field:        &field,
		Message:      "chromosome does not start with \"chr\" or a bare digit, X, Y, or MT",
		AffectedRows: rows,
	}}
}

func isValidChromosomeTag(v string) bool {
	if strings.HasPrefix(strings.ToLower(v), "chr") {
		return true
	}

	upper := strings.ToUpper(v)
	if _, ok := validChromosomeTokens[upper]; ok {
		return true
	}

	_, err := strconv.Atoi(v)

	return err == nil
}

// checkAlleleFrequency flags declared allele_frequency values outside [0,1].
// Absent values are not checked — the field is optional.
func checkAlleleFrequency(table *model.Table) []model.Issue {
	if !table.HasColumn("allele_frequency") {
		return nil
	}

	var rows []int

	for i, row := range table.Rows() {
		v, ok := row["allele_frequency"]
		if !ok || v == nil {
			continue
		}

		freq, ok := toFloat(v)
		if !ok {
			continue
		}

		if freq < 0 || freq > 1 {
			rows = append(rows, i)
		}
	}

	if len(rows) == 0 {
		return nil
	}

	field := "allele_frequency"

	return []model.Issue{{
		Severity:     model.SeverityError,
		RuleID:       RuleAlleleFrequencyRange,
		Field:        &field,
		Message:      "allele_frequency outside the valid [0, 1] range",
		AffectedRows: rows,
	}}
}

func checkRefAltIdentical(table *model.Table) []model.Issue {
	refs, refPresent := table.StringColumn("ref_allele")
	alts, altPresent := table.StringColumn("alt_allele")

	var rows []int

	for i := range refs {
		if !refPresent[i] || !altPresent[i] {
			continue
		}

		if strings.EqualFold(refs[i], alts[i]) {
			rows = append(rows, i)
		}
	}

	if len(rows) == 0 {
		return nil
	}

	field := "ref_allele"

	return []model.Issue{{
		Severity:     model.SeverityWarning,
		RuleID:       RuleRefAltIdentical,
		Field:        &field,
		Message:      "ref_allele and alt_allele are identical",
		AffectedRows: rows,
	}}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// parseRFC3339Date reports whether v parses as an RFC3339 date (full
// timestamp or date-only form).
func parseRFC3339Date(v string) bool {
	if _, err := time.Parse(time.RFC3339, v); err == nil {
		return true
	}

	_, err := time.Parse("2006-01-02", v)

	return err == nil
}
