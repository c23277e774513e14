package models

import (
	"fmt"
	"strings"
)

// Source identifies which portal a filing is published on.
type Source string

// Source constants
const (
	// SourceLegacy is the exchange's legacy DXW portal (Windows-1252 pages, session per filing).
	SourceLegacy Source = "legacy"
	// SourceRegulator is the regulator's ENET portal.
	SourceRegulator Source = "regulator"
)

// Sources lists every supported source in a stable order.
var Sources = []Source{SourceLegacy, SourceRegulator}

// TextEncoding names the character set a portal's pages are decoded with.
type TextEncoding string

const (
	// EncodingDefault decodes using the response's declared charset, falling back to UTF-8.
	EncodingDefault TextEncoding = ""
	// EncodingWindows1252 forces Windows-1252 regardless of what the server declares.
	EncodingWindows1252 TextEncoding = "windows-1252"
)

// Encoding returns the character set of the source's pages.
func (s Source) Encoding() TextEncoding {
	if s == SourceLegacy {
		return EncodingWindows1252
	}
	return EncodingDefault
}

// Validate checks the source is one of the known portals
func (s Source) Validate() error {
	switch s {
	case SourceLegacy, SourceRegulator:
		return nil
	}
	return fmt.Errorf("unknown source %q", string(s))
}

// ParseSource accepts the canonical names plus the portal names used by older catalogs.
func ParseSource(value string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "legacy", "bovespa":
		return SourceLegacy, nil
	case "regulator", "cvm":
		return SourceRegulator, nil
	}
	return "", fmt.Errorf("unknown source %q", value)
}

// StatementKind distinguishes interim (ITR) from annual (DFP) statements.
type StatementKind string

const (
	KindInterim StatementKind = "itr"
	KindAnnual  StatementKind = "dfp"
)

// Validate checks the statement kind
func (k StatementKind) Validate() error {
	switch k {
	case KindInterim, KindAnnual:
		return nil
	}
	return fmt.Errorf("unknown statement kind %q", string(k))
}

// SessionCode is the "tipo" parameter the legacy portal's session entry page expects.
func (k StatementKind) SessionCode() int {
	if k == KindAnnual {
		return 2
	}
	return 4
}

// DocumentTypeCode is the "CodTipoDocumento" parameter of the regulator portal.
func (k StatementKind) DocumentTypeCode() int {
	if k == KindAnnual {
		return 4
	}
	return 3
}

// Category is the statement a target extracts.
type Category string

const (
	CategoryAssets      Category = "assets"
	CategoryLiabilities Category = "liabilities"
	CategoryIncome      Category = "income"
	CategoryCapital     Category = "capital"
)

// StatementCategories are the categories parsed into a FinancialRecord, in extraction order.
var StatementCategories = []Category{CategoryAssets, CategoryLiabilities, CategoryIncome}

// IsStatement reports whether the category is parsed into a FinancialRecord
func (c Category) IsStatement() bool {
	switch c {
	case CategoryAssets, CategoryLiabilities, CategoryIncome:
		return true
	}
	return false
}

// Scope is the consolidation scope of a statement.
type Scope string

const (
	ScopeIndividual   Scope = "individual"
	ScopeConsolidated Scope = "consolidated"
)

// Scopes lists both scopes, individual first.
var Scopes = []Scope{ScopeIndividual, ScopeConsolidated}

// Validate checks the scope
func (s Scope) Validate() error {
	switch s {
	case ScopeIndividual, ScopeConsolidated:
		return nil
	}
	return fmt.Errorf("unknown scope %q", string(s))
}
