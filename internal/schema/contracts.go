// Package schema validates that a table's records match the structural
// contract declared by their format tag.
package schema

import "github.com/correlator-io/bioval/internal/model"

// contract describes the required fields and basic field shape for one
// format tag. Per-format contracts are the closed set named in spec §4.2.
type contract struct {
	requiredFields []string
}

var contracts = map[model.FormatTag]contract{
	model.FormatGuideRNA: {
		requiredFields: []string{
			"guide_id", "sequence", "pam_sequence", "target_gene", "organism", "nuclease_type",
		},
	},
	model.FormatVariantAnnotation: {
		requiredFields: []string{
			"chromosome", "position", "ref_allele", "alt_allele",
		},
	},
	model.FormatSampleMetadata: {
		requiredFields: []string{
			"sample_id", "organism",
		},
	},
}

// dnaAlphabet is the accepted base alphabet for guide RNA sequences.
const dnaAlphabet = "ACGTN"

// variantAlleleAlphabet additionally accepts '-' for indel representations.
const variantAlleleAlphabet = "ACGTN-"
