package biorules

import (
	"fmt"

	"github.com/correlator-io/bioval/internal/model"
)

// Rule identifiers emitted against sample_metadata records.
const (
	RuleInvalidOrganismTag    = "BIO_201"
	RuleMalformedCollectionDate = "BIO_202"
)

// defaultOrganismAllowList is used when the caller does not supply one via
// Options. It covers the organisms the other formats are grounded on.
var defaultOrganismAllowList = map[string]struct{}{
	"human": {}, "mouse": {}, "rat": {}, "zebrafish": {}, "drosophila": {},
}

func checkSampleMetadata(table *model.Table, allowList map[string]struct{}) []model.Issue {
	if allowList == nil {
		allowList = defaultOrganismAllowList
	}

	var issues []model.Issue

	issues = append(issues, checkOrganismAllowList(table, allowList)...)
	issues = append(issues, checkCollectionDate(table)...)

	return issues
}

func checkOrganismAllowList(table *model.Table, allowList map[string]struct{}) []model.Issue {
	organisms, present := table.StringColumn("organism")

	var rows []int

	for i, ok := range present {
		if !ok {
			continue
		}

		if _, known := allowList[organisms[i]]; !known {
			rows = append(rows, i)
		}
	}

	if len(rows) == 0 {
		return nil
	}

	field := "organism"

	return []model.Issue{{
		Severity:     model.SeverityWarning,
		RuleID:       RuleInvalidOrganismTag,
		Field:        &field,
		Message:      fmt.Sprintf("organism is not in the configured allow-list (%d known)", len(allowList)),
		AffectedRows: rows,
	}}
}

func checkCollectionDate(table *model.Table) []model.Issue {
	if !table.HasColumn("collection_date") {
		return nil
	}

	dates, present := table.StringColumn("collection_date")

	var rows []int

	for i, ok := range present {
		if !ok {
			continue
		}

		if !parseRFC3339Date(dates[i]) {
			rows = append(rows, i)
		}
	}

	if len(rows) == 0 {
		return nil
	}

	field := "collection_date"

	return []model.Issue{{
		Severity:     model.SeverityWarning,
		RuleID:       RuleMalformedCollectionDate,
		Field:        &field,
		Message:      "collection_date is not parseable as an RFC3339 date",
		AffectedRows: rows,
	}}
}
