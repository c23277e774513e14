package dialect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/findata/internal/models"
)

// RowRole is the meaning of a table row, independent of the portal's wording.
type RowRole int

const (
	RoleData RowRole = iota
	RoleHeader
	RoleOutstandingMarker
	RoleTreasuryMarker
	RoleOrdinary
	RolePreferred
	RoleCapitalDate
	RoleOther
)

func (r RowRole) String() string {
	switch r {
	case RoleData:
		return "data"
	case RoleHeader:
		return "header"
	case RoleOutstandingMarker:
		return "outstanding-marker"
	case RoleTreasuryMarker:
		return "treasury-marker"
	case RoleOrdinary:
		return "ordinary"
	case RolePreferred:
		return "preferred"
	case RoleCapitalDate:
		return "capital-date"
	default:
		return "other"
	}
}

// Portal wording. Pages are decoded to UTF-8 before they reach the parser.
const (
	legacyNoDataMarker      = "Não Possui Dados para Carregar a Página"
	regulatorNoDataMarker   = "Justificativa para a não prestação da informação"
	regulatorHeaderCell     = "Conta"
	thousandMarker          = "Mil"
	regulatorThousandMarker = "Reais Mil"
	treasuryMarker          = "Tesouraria"
	outstandingMarker       = "Capital"
	ordinaryMarker          = "Ordinárias"
	preferredMarker         = "Preferenciais"
	sharesMarker            = "Ações"
	consolidatedMarker      = "Consolidad"
	consolidatedBalanceAlt  = "Balanço Patrimonial Consolidado"
	notPresentedMarker      = "Não Apresentado"
)

var millionMarkers = []string{"Milhão", "Milhões"}

// classifyLegacyStatementRow marks top-aligned rows as the header.
func classifyLegacyStatementRow(row *goquery.Selection, _ []string) RowRole {
	if valign, _ := row.Attr("valign"); strings.EqualFold(valign, "top") {
		return RoleHeader
	}
	return RoleData
}

// classifyRegulatorStatementRow marks the row whose first cell is the account column title as
// the header.
func classifyRegulatorStatementRow(_ *goquery.Selection, cells []string) RowRole {
	if cells[0] == regulatorHeaderCell {
		return RoleHeader
	}
	return RoleData
}

// classifyLegacyCapitalRow treats the left-aligned leading row as the date row.
func classifyLegacyCapitalRow(row *goquery.Selection, cells []string) RowRole {
	if align, _ := row.Attr("align"); strings.EqualFold(align, "left") {
		return RoleCapitalDate
	}
	return classifyCapitalSection(cells[0])
}

// classifyRegulatorCapitalRow treats the remaining row mentioning shares as the date row.
func classifyRegulatorCapitalRow(_ *goquery.Selection, cells []string) RowRole {
	role := classifyCapitalSection(cells[0])
	if role == RoleOther && strings.Contains(cells[0], sharesMarker) {
		return RoleCapitalDate
	}
	return role
}

// classifyCapitalSection checks treasury before the outstanding marker so that a title such as
// "Ações em Tesouraria" is never read as the shares row.
func classifyCapitalSection(first string) RowRole {
	switch {
	case strings.Contains(first, treasuryMarker):
		return RoleTreasuryMarker
	case strings.Contains(first, outstandingMarker):
		return RoleOutstandingMarker
	case strings.Contains(first, ordinaryMarker):
		return RoleOrdinary
	case strings.Contains(first, preferredMarker):
		return RolePreferred
	default:
		return RoleOther
	}
}

// statementMultiplier reads the scale from text next to a statement table.
func statementMultiplier(text, marker string) int64 {
	if strings.Contains(text, marker) {
		return models.MultiplierThousand
	}
	return models.MultiplierUnit
}

// capitalMultiplier reads the scale of the legacy capital table, which may be in millions.
func capitalMultiplier(text string) int64 {
	for _, marker := range millionMarkers {
		if strings.Contains(text, marker) {
			return models.MultiplierMillion
		}
	}
	if strings.Contains(text, thousandMarker) {
		return models.MultiplierThousand
	}
	return models.MultiplierUnit
}
