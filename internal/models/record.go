package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Multiplier constants
const (
	MultiplierUnit     int64 = 1
	MultiplierThousand int64 = 1000
	MultiplierMillion  int64 = 1000 * 1000
)

// FinancialLine is one account row of a statement. Amount is invalid when the source cell
// was blank, which is distinct from zero.
type FinancialLine struct {
	Code   string              `json:"code"`
	Label  string              `json:"label"`
	Amount decimal.NullDecimal `json:"amount"`
}

// FinancialRecord is a parsed balance sheet side or income statement. Lines keep the portal's
// chart-of-accounts order.
type FinancialRecord struct {
	Scope      Scope           `json:"scope"`
	Category   Category        `json:"category"`
	Date       time.Time       `json:"date"`
	Multiplier int64           `json:"multiplier"`
	Lines      []FinancialLine `json:"lines"`
}

// NewFinancialRecord returns an empty record with unit multiplier.
func NewFinancialRecord(category Category, scope Scope) *FinancialRecord {
	return &FinancialRecord{
		Scope:      scope,
		Category:   category,
		Multiplier: MultiplierUnit,
		Lines:      []FinancialLine{},
	}
}

// CapitalComposition is the share-capital table of a filing. A quantity whose row never
// appears stays invalid.
type CapitalComposition struct {
	Date                 time.Time           `json:"date"`
	Multiplier           int64               `json:"multiplier"`
	OrdinaryOutstanding  decimal.NullDecimal `json:"ordinary_outstanding"`
	PreferredOutstanding decimal.NullDecimal `json:"preferred_outstanding"`
	OrdinaryTreasury     decimal.NullDecimal `json:"ordinary_treasury"`
	PreferredTreasury    decimal.NullDecimal `json:"preferred_treasury"`
}

// NewCapitalComposition returns an empty composition with unit multiplier.
func NewCapitalComposition() *CapitalComposition {
	return &CapitalComposition{Multiplier: MultiplierUnit}
}
