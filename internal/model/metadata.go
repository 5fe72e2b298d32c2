package model

// Metadata describes a dataset independent of its rows: the dataset M in the
// validation contract. Immutable within a validation run.
type Metadata struct {
	DatasetID       string
	Format          FormatTag
	RecordCount     int
	Organism        *string
	ExperimentType  *string
	ReferenceGenome *string
	Tags            []string
}
