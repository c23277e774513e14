package models

import (
	"strconv"
	"time"
)

// Company is one listed issuer from the roster.
type Company struct {
	LegalName    string    `json:"legal_name" yaml:"legal_name" validate:"required"`
	TradingName  string    `json:"trading_name" yaml:"trading_name" validate:"required"`
	CVMCode      int       `json:"cvm_code" yaml:"cvm_code" validate:"gt=0"`
	TaxID        string    `json:"tax_id,omitempty" yaml:"tax_id,omitempty"`
	Segment      string    `json:"segment,omitempty" yaml:"segment,omitempty"`
	TradingCodes []string  `json:"trading_codes,omitempty" yaml:"trading_codes,omitempty"`
	Site         string    `json:"site,omitempty" yaml:"site,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Code returns the registry code as the string used in paths and URLs
func (c Company) Code() string {
	return strconv.Itoa(c.CVMCode)
}
