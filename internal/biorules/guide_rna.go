// Package biorules implements domain-specific checks over biological
// sequence and annotation data that require no external lookups.
package biorules

import (
	"fmt"
	"strings"

	"github.com/correlator-io/bioval/internal/model"
)

// Rule identifiers emitted against guide_rna records.
const (
	RuleCriticallyShort    = "BIO_001A"
	RuleSuboptimalLength   = "BIO_001B"
	RuleInvalidPAM         = "BIO_002"
	RuleGCContentOutOfRange = "BIO_003"
	RulePolyTStretch       = "BIO_004"
	RuleHomopolymerRun     = "BIO_005"
	RuleNonDNABase         = "BIO_006"
	RuleRNADNAConfusion    = "BIO_007"
)

const (
	criticallyShortLen    = 15
	optimalLenMin         = 19
	optimalLenMax         = 20
	minGCFraction         = 0.40
	maxGCFraction         = 0.70
	homopolymerRunLength  = 5
	dnaAlphabet           = "ACGTN"
)

// pamPatterns maps the nuclease type declared on a record to the PAM motif
// it requires, expressed base-by-base: 'N' matches any base, 'R' matches
// A or G, 'V' matches A, C, or G.
var pamPatterns = map[string]string{
	"SpCas9": "NGG",
	"SaCas9": "NNGRRT",
	"Cas12a": "TTTV",
}

// checkGuideRNA runs every guide_rna domain rule over table in bulk,
// returning the ordered set of emitted issues.
func checkGuideRNA(table *model.Table) []model.Issue {
	var issues []model.Issue

	sequences, seqPresent := table.StringColumn("sequence")

	issues = append(issues, checkLength(sequences, seqPresent)...)
	issues = append(issues, checkPAM(table, sequences, seqPresent)...)
	issues = append(issues, checkGCContent(sequences, seqPresent)...)
	issues = append(issues, checkPolyT(sequences, seqPresent)...)
	issues = append(issues, checkHomopolymer(sequences, seqPresent)...)
	issues = append(issues, checkNonDNABase(sequences, seqPresent)...)
	issues = append(issues, checkRNAConfusion(sequences, seqPresent)...)

	return issues
}

func checkLength(sequences []string, present []bool) []model.Issue {
	var shortRows, suboptimalRows []int

	for i, ok := range present {
		if !ok {
			continue
		}

		n := len(sequences[i])

		switch {
		case n < criticallyShortLen:
			shortRows = append(shortRows, i)
		case n < optimalLenMin || n > optimalLenMax:
			suboptimalRows = append(suboptimalRows, i)
		}
	}

	var issues []model.Issue

	field := "sequence"

	if len(shortRows) > 0 {
		issues = append(issues, model.Issue{
			Severity:     model.SeverityError,
			RuleID:       RuleCriticallyShort,
			Field:        &field,
			Message:      fmt.Sprintf("sequence shorter than %d bases", criticallyShortLen),
			AffectedRows: shortRows,
		})
	}

	if len(suboptimalRows) > 0 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityWarning,
			RuleID:   RuleSuboptimalLength,
			Field:    &field,
			Message: fmt.Sprintf(
				"sequence length outside the optimal [%d, %d] range", optimalLenMin, optimalLenMax,
			),
			AffectedRows: suboptimalRows,
		})
	}

	return issues
}

func checkPAM(table *model.Table, sequences []string, present []bool) []model.Issue {
	pams, pamPresent := table.StringColumn("pam_sequence")
	nucleases, nucleasePresent := table.StringColumn("nuclease_type")

	var badRows []int

	for i := range sequences {
		if !pamPresent[i] || !nucleasePresent[i] {
			continue
		}

		pattern, known := pamPatterns[nucleases[i]]
		if !known {
			continue
		}

		if !matchesPAMPattern(strings.ToUpper(pams[i]), pattern) {
			badRows = append(badRows, i)
		}
	}

	if len(badRows) == 0 {
		return nil
	}

	field := "pam_sequence"

	return []model.Issue{{
		Severity:     model.SeverityError,
		RuleID:       RuleInvalidPAM,
		Field:        &field,
		Message:      "PAM sequence does not match the declared nuclease's required motif",
		AffectedRows: badRows,
	}}
}

// matchesPAMPattern reports whether seq matches pattern position-by-position,
// where 'N' accepts any base, 'R' accepts A or G, and 'V' accepts A, C, or G.
func matchesPAMPattern(seq, pattern string) bool {
	if len(seq) != len(pattern) {
		return false
	}

	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case 'N':
			continue
		case 'R':
			if seq[i] != 'A' && seq[i] != 'G' {
				return false
			}
		case 'V':
			if seq[i] != 'A' && seq[i] != 'C' && seq[i] != 'G' {
				return false
			}
		default:
			if seq[i] != pattern[i] {
				return false
			}
		}
	}

	return true
}

func checkGCContent(sequences []string, present []bool) []model.Issue {
	var rows []int

	for i, ok := range present {
		if !ok || len(sequences[i]) == 0 {
			continue
		}

		frac := gcFraction(sequences[i])
		if frac < minGCFraction || frac > maxGCFraction {
			rows = append(rows, i)
		}
	}

	if len(rows) == 0 {
		return nil
	}

	field := "sequence"

	return []model.Issue{{
		Severity: model.SeverityWarning,
		RuleID:   RuleGCContentOutOfRange,
		Field:    &field,
		Message: fmt.Sprintf(
			"GC content outside [%.2f, %.2f]", minGCFraction, maxGCFraction,
		),
		AffectedRows: rows,
	}}
}

func gcFraction(seq string) float64 {
	upper := strings.ToUpper(seq)

	gc := 0

	for _, r := range upper {
		if r == 'G' || r == 'C' {
			gc++
		}
	}

	return float64(gc) / float64(len(upper))
}

func checkPolyT(sequences []string, present []bool) []model.Issue {
	var rows []int

	for i, ok := range present {
		if !ok {
			continue
		}

		if strings.Contains(strings.ToUpper(sequences[i]), "TTTT") {
			rows = append(rows, i)
		}
	}

	if len(rows) == 0 {
		return nil
	}

	field := "sequence"

	return []model.Issue{{
		Severity:     model.SeverityWarning,
		RuleID:       RulePolyTStretch,
		Field:        &field,
		Message:      "sequence contains a poly-T stretch (transcription-termination risk)",
		AffectedRows: rows,
	}}
}

func checkHomopolymer(sequences []string, present []bool) []model.Issue {
	var rows []int

	for i, ok := range present {
		if !ok {
			continue
		}

		if hasHomopolymerRun(strings.ToUpper(sequences[i]), homopolymerRunLength) {
			rows = append(rows, i)
		}
	}

	if len(rows) == 0 {
		return nil
	}

	field := "sequence"

	return []model.Issue{{
		Severity:     model.SeverityWarning,
		RuleID:       RuleHomopolymerRun,
		Field:        &field,
		Message:      fmt.Sprintf("sequence contains a base repeated %d or more times consecutively", homopolymerRunLength),
		AffectedRows: rows,
	}}
}

func hasHomopolymerRun(seq string, runLen int) bool {
	run := 0

	var last byte

	for i := 0; i < len(seq); i++ {
		if i > 0 && seq[i] == last {
			run++
		} else {
			run = 1
		}

		last = seq[i]

		if run >= runLen {
			return true
		}
	}

	return false
}

func checkNonDNABase(sequences []string, present []bool) []model.Issue {
	var rows []int

	for i, ok := range present {
		if !ok {
			continue
		}

		if !isOverAlphabet(strings.ToUpper(sequences[i]), dnaAlphabet) {
			rows = append(rows, i)
		}
	}

	if len(rows) == 0 {
		return nil
	}

	field := "sequence"

	return []model.Issue{{
		Severity:     model.SeverityError,
		RuleID:       RuleNonDNABase,
		Field:        &field,
		Message:      "sequence contains a character outside {A,C,G,T,N}",
		AffectedRows: rows,
	}}
}

func checkRNAConfusion(sequences []string, present []bool) []model.Issue {
	var rows []int

	for i, ok := range present {
		if !ok {
			continue
		}

		if strings.Contains(strings.ToUpper(sequences[i]), "U") {
			rows = append(rows, i)
		}
	}

	if len(rows) == 0 {
		return nil
	}

	field := "sequence"

	return []model.Issue{{
		Severity:     model.SeverityWarning,
		RuleID:       RuleRNADNAConfusion,
		Field:        &field,
		Message:      "sequence contains 'U'; guide RNA sequences are recorded as DNA bases",
		AffectedRows: rows,
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
