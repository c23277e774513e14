package models

import (
	"time"
)

// DateLayout is the dd/mm/yyyy layout both portals use for dates.
const DateLayout = "02/01/2006"

// Filing is one published statement occurrence. It is produced by the catalog and never
// mutated by the extractor.
type Filing struct {
	Source         Source        `json:"source" yaml:"source" validate:"required,oneof=legacy regulator"`
	Kind           StatementKind `json:"kind" yaml:"kind" validate:"required,oneof=itr dfp"`
	ReferenceDate  time.Time     `json:"reference_date" yaml:"reference_date" validate:"required"`
	SubmissionDate time.Time     `json:"submission_date" yaml:"submission_date" validate:"required,gtefield=ReferenceDate"`
	SequenceNumber int           `json:"sequence_number,omitempty" yaml:"sequence_number,omitempty" validate:"required_if=Source regulator"`
}

// ReferenceLabel formats the reference date the way the portals and the logs show it
func (f Filing) ReferenceLabel() string {
	return f.ReferenceDate.Format(DateLayout)
}

// AvailableDocs reports which consolidated statements a filing publishes. All flags default to
// true; the probe only ever clears them.
type AvailableDocs struct {
	AssetsConsolidated      bool `json:"assets_consolidated"`
	LiabilitiesConsolidated bool `json:"liabilities_consolidated"`
	IncomeConsolidated      bool `json:"income_consolidated"`
}

// NewAvailableDocs returns flags with every consolidated statement assumed present.
func NewAvailableDocs() AvailableDocs {
	return AvailableDocs{
		AssetsConsolidated:      true,
		LiabilitiesConsolidated: true,
		IncomeConsolidated:      true,
	}
}

// Consolidated returns the flag for a statement category. Capital composition has no
// consolidated variant and always reports false.
func (a AvailableDocs) Consolidated(category Category) bool {
	switch category {
	case CategoryAssets:
		return a.AssetsConsolidated
	case CategoryLiabilities:
		return a.LiabilitiesConsolidated
	case CategoryIncome:
		return a.IncomeConsolidated
	}
	return false
}

// ClearConsolidated marks every consolidated statement as not published.
func (a *AvailableDocs) ClearConsolidated() {
	a.AssetsConsolidated = false
	a.LiabilitiesConsolidated = false
	a.IncomeConsolidated = false
}
