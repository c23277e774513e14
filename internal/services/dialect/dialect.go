// Package dialect parses statement, capital-composition and menu pages of the two filing
// portals into common records.
//
// Each portal renders the same data with its own DOM shape. All selector and traversal
// knowledge lives in named accessors per dialect, and all locale text matching lives in
// classify.go, so the walkers here operate on row roles only.
package dialect

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/findata/internal/models"
	"github.com/ternarybob/findata/internal/services/normalize"
)

// Dialect parses the pages of one portal.
type Dialect interface {
	// Source returns the portal this dialect reads.
	Source() models.Source

	// ParseStatement parses an assets, liabilities or income page. It returns
	// models.ErrDataAbsent when the page carries an explicit no-data marker and a
	// *models.ParseFault when the page does not have the expected shape. The record's
	// Scope is left empty: scope selects the URL, not the parse.
	ParseStatement(body string, category models.Category) (*models.FinancialRecord, error)

	// ParseCapital parses the share-capital composition page.
	ParseCapital(body string) (*models.CapitalComposition, error)

	// ParseAvailableDocs reads the consolidated-statement availability from the menu page.
	ParseAvailableDocs(body string) (models.AvailableDocs, error)
}

// For returns the dialect of a source.
func For(source models.Source) (Dialect, error) {
	switch source {
	case models.SourceLegacy:
		return Legacy{}, nil
	case models.SourceRegulator:
		return Regulator{}, nil
	default:
		return nil, fmt.Errorf("no dialect for source %q", source)
	}
}

func parseDocument(body string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, &models.ParseFault{Reason: "failed to parse HTML", Err: err}
	}
	return doc, nil
}

// tableRows returns the rows that belong to table itself, skipping rows of nested tables.
func tableRows(table *goquery.Selection) []*goquery.Selection {
	var rows []*goquery.Selection
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if row.Closest("table").IsSelection(table) {
			rows = append(rows, row)
		}
	})
	return rows
}

// cellTexts returns the trimmed text of a row's cells.
func cellTexts(row *goquery.Selection) []string {
	cells := row.ChildrenFiltered("td, th")
	texts := make([]string, 0, cells.Length())
	cells.Each(func(_ int, cell *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(cell.Text()))
	})
	return texts
}

// walkStatement fills record from the rows of a statement table. The single header row
// carries the period date in its third cell; every other row is an account line.
func walkStatement(table *goquery.Selection, classify func(row *goquery.Selection, cells []string) RowRole, record *models.FinancialRecord) error {
	headers := 0
	for i, row := range tableRows(table) {
		cells := cellTexts(row)
		if len(cells) == 0 {
			continue
		}

		switch classify(row, cells) {
		case RoleHeader:
			headers++
			if headers > 1 {
				return models.NewParseFault("row %d: unexpected second header row", i)
			}
			if len(cells) < 3 {
				return models.NewParseFault("row %d: header row has %d cells, want 3", i, len(cells))
			}
			date, err := normalize.ExtractDate(cells[2])
			if err != nil {
				return &models.ParseFault{Reason: fmt.Sprintf("row %d: header date", i), Err: err}
			}
			record.Date = date

		default:
			if len(cells) < 3 {
				return models.NewParseFault("row %d: account row has %d cells, want 3", i, len(cells))
			}
			amount, err := normalize.ParseAmount(cells[2])
			if err != nil {
				return &models.ParseFault{Reason: fmt.Sprintf("row %d: account %s", i, cells[0]), Err: err}
			}
			record.Lines = append(record.Lines, models.FinancialLine{
				Code:   cells[0],
				Label:  cells[1],
				Amount: amount,
			})
		}
	}

	if headers == 0 {
		return models.NewParseFault("statement table has no header row")
	}
	return nil
}

// capitalDateFunc applies a dialect's date row to the composition.
type capitalDateFunc func(cells []string, capital *models.CapitalComposition) error

// walkCapital fills capital from the rows of a composition table. Section markers toggle
// between outstanding and treasury quantities and may appear zero or more times in any order.
// The table must carry a date row and at least one quantity row.
func walkCapital(table *goquery.Selection, classify func(row *goquery.Selection, cells []string) RowRole, onDate capitalDateFunc, capital *models.CapitalComposition) error {
	treasury := false
	dated := false
	quantities := 0
	for i, row := range tableRows(table) {
		cells := cellTexts(row)
		if len(cells) == 0 {
			continue
		}

		role := classify(row, cells)
		switch role {
		case RoleCapitalDate:
			if len(cells) < 2 {
				return models.NewParseFault("row %d: date row has %d cells, want 2", i, len(cells))
			}
			if err := onDate(cells, capital); err != nil {
				return &models.ParseFault{Reason: fmt.Sprintf("row %d: capital date", i), Err: err}
			}
			dated = true

		case RoleOutstandingMarker:
			treasury = false

		case RoleTreasuryMarker:
			treasury = true

		case RoleOrdinary, RolePreferred:
			if len(cells) < 2 {
				return models.NewParseFault("row %d: quantity row has %d cells, want 2", i, len(cells))
			}
			quantity, err := normalize.ParseAmount(cells[1])
			if err != nil {
				return &models.ParseFault{Reason: fmt.Sprintf("row %d: %s", i, cells[0]), Err: err}
			}
			quantities++
			switch {
			case role == RoleOrdinary && treasury:
				capital.OrdinaryTreasury = quantity
			case role == RoleOrdinary:
				capital.OrdinaryOutstanding = quantity
			case treasury:
				capital.PreferredTreasury = quantity
			default:
				capital.PreferredOutstanding = quantity
			}
		}
	}

	if !dated {
		return models.NewParseFault("capital table has no date row")
	}
	if quantities == 0 {
		return models.NewParseFault("capital table has no share quantity rows")
	}
	return nil
}
