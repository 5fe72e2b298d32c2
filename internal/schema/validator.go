package schema

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/correlator-io/bioval/internal/model"
)

// Rule identifiers emitted by the schema validator.
const (
	RuleUnknownFormat   = "SCHEMA_001"
	RuleMissingField    = "SCHEMA_002"
	RuleTypeViolation   = "SCHEMA_003"
	RuleInvalidAlphabet = "SCHEMA_004"
	RuleDuplicateID     = "SCHEMA_005"
)

// Validator performs record-level structural and type checks against the
// declared format contract. It exposes exactly one operation, Run, per the
// validator capability set described in the design notes.
type Validator struct{}

// NewValidator creates a new schema Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Run validates every record in table against the contract for meta.Format
// and returns the schema stage result.
//
// Records with critical structural problems remain in the table for
// downstream stages; they accrue issues rather than being dropped.
func (v *Validator) Run(table *model.Table, meta model.Metadata) model.StageResult {
	start := time.Now()

	var issues []model.Issue

	if !meta.Format.IsValid() {
		field := "format"
		issues = append(issues, model.Issue{
			Severity:     model.SeverityCritical,
			RuleID:       RuleUnknownFormat,
			Field:        &field,
			Message:      fmt.Sprintf("unrecognized format tag %q", string(meta.Format)),
			AffectedRows: []int{},
		})

		return model.StageResult{
			StageName:       model.StageSchema,
			Passed:          false,
			Issues:          issues,
			ExecutionTimeMS: time.Since(start).Milliseconds(),
		}
	}

	c := contracts[meta.Format]
	issues = append(issues, checkRequiredFields(table, c)...)

	switch meta.Format {
	case model.FormatGuideRNA:
		issues = append(issues, checkGuideRNARecords(table)...)
	case model.FormatVariantAnnotation:
		issues = append(issues, checkVariantRecords(table)...)
	case model.FormatSampleMetadata:
		issues = append(issues, checkSampleMetadataRecords(table)...)
	}

	return model.StageResult{
		StageName:       model.StageSchema,
		Passed:          model.ComputePassed(issues),
		Issues:          issues,
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}
}

// checkRequiredFields emits one error issue per required field of the
// declared contract that is missing from at least one row, listing those rows.
func checkRequiredFields(table *model.Table, c contract) []model.Issue {
	var issues []model.Issue

	for _, field := range c.requiredFields {
		var missingRows []int

		for i := range table.Rows() {
			if _, ok := table.Get(i, field); !ok {
				missingRows = append(missingRows, i)
			}
		}

		if len(missingRows) > 0 {
			f := field
			issues = append(issues, model.Issue{
				Severity:     model.SeverityError,
				RuleID:       RuleMissingField,
				Field:        &f,
				Message:      fmt.Sprintf("required field %q is missing", field),
				AffectedRows: missingRows,
			})
		}
	}

	return issues
}

func checkGuideRNARecords(table *model.Table) []model.Issue {
	var invalidAlphabetRows []int

	for i, row := range table.Rows() {
		seq, ok := row["sequence"].(string)
		if !ok || seq == "" {
			continue
		}

		if !isOverAlphabet(strings.ToUpper(seq), dnaAlphabet) {
			invalidAlphabetRows = append(invalidAlphabetRows, i)
		}
	}

	var issues []model.Issue

	if len(invalidAlphabetRows) > 0 {
		field := "sequence"
		issues = append(issues, model.Issue{
			Severity:     model.SeverityError,
			RuleID:       RuleInvalidAlphabet,
			Field:        &field,
			Message:      "sequence contains characters outside {A,C,G,T,N}",
			AffectedRows: invalidAlphabetRows,
		})
	}

	return issues
}

func checkVariantRecords(table *model.Table) []model.Issue {
	var (
		badPositionRows []int
		badAlleleRows   []int
	)

	for i, row := range table.Rows() {
		if pos, ok := row["position"]; ok {
			if !isPositiveInteger(pos) {
				badPositionRows = append(badPositionRows, i)
			}
		}

		for _, field := range []string{"ref_allele", "alt_allele"} {
			allele, ok := row[field].(string)
			if !ok || allele == "" {
				continue
			}

			if !isOverAlphabet(strings.ToUpper(allele), variantAlleleAlphabet) {
				badAlleleRows = append(badAlleleRows, i)
			}
		}
	}

	var issues []model.Issue

	if len(badPositionRows) > 0 {
		field := "position"
		issues = append(issues, model.Issue{
			Severity:     model.SeverityError,
			RuleID:       RuleTypeViolation,
			Field:        &field,
			Message:      "position must be a positive integer",
			AffectedRows: badPositionRows,
		})
	}

	if len(badAlleleRows) > 0 {
		field := "ref_allele"
		issues = append(issues, model.Issue{
			Severity:     model.SeverityError,
			RuleID:       RuleInvalidAlphabet,
			Field:        &field,
			Message:      "allele contains characters outside {A,C,G,T,N,-}",
			AffectedRows: dedupSortedInts(badAlleleRows),
		})
	}

	return issues
}

func checkSampleMetadataRecords(table *model.Table) []model.Issue {
	seen := make(map[string][]int)
	order := make([]string, 0)

	for i, row := range table.Rows() {
		id, ok := row["sample_id"].(string)
		if !ok || id == "" {
			continue
		}

		if _, known := seen[id]; !known {
			order = append(order, id)
		}

		seen[id] = append(seen[id], i)
	}

	var dupRows []int

	for _, id := range order {
		if rows := seen[id]; len(rows) > 1 {
			dupRows = append(dupRows, rows...)
		}
	}

	if len(dupRows) == 0 {
		return nil
	}

	field := "sample_id"

	return []model.Issue{{
		Severity:     model.SeverityError,
		RuleID:       RuleDuplicateID,
		Field:        &field,
		Message:      "sample_id must be unique within the dataset",
		AffectedRows: dedupSortedInts(dupRows),
	}}
}

func isOverAlphabet(s, alphabet string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}

	return true
}

func isPositiveInteger(v any) bool {
	switch n := v.(type) {
	case int:
		return n > 0
	case int64:
		return n > 0
	case float64:
		return n > 0 && n == float64(int64(n))
	default:
		return false
	}
}

func dedupSortedInts(rows []int) []int {
	seen := make(map[int]struct{}, len(rows))

	out := make([]int, 0, len(rows))

	for _, r := range rows {
		if _, ok := seen[r]; ok {
			continue
		}

		seen[r] = struct{}{}

		out = append(out, r)
	}

	sort.Ints(out)

	return out
}
