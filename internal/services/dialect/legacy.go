package dialect

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/findata/internal/models"
	"github.com/ternarybob/findata/internal/services/normalize"
)

// Legacy parses pages of the legacy exchange portal (DXW).
type Legacy struct{}

func (Legacy) Source() models.Source {
	return models.SourceLegacy
}

func (d Legacy) ParseStatement(body string, category models.Category) (*models.FinancialRecord, error) {
	if !category.IsStatement() {
		return nil, fmt.Errorf("category %q is not a statement", category)
	}

	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	container := legacyScrollContainer(doc)
	if container.Length() == 0 {
		if legacyHasNoDataMarker(doc) {
			return nil, models.ErrDataAbsent
		}
		return nil, models.NewParseFault("legacy statement: scroll container not found")
	}

	table := legacyStatementTable(container)
	if table.Length() == 0 {
		return nil, models.NewParseFault("legacy statement: no table inside scroll container")
	}

	record := models.NewFinancialRecord(category, "")
	record.Multiplier = statementMultiplier(legacyMultiplierText(container), thousandMarker)

	if err := walkStatement(table, classifyLegacyStatementRow, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (d Legacy) ParseCapital(body string) (*models.CapitalComposition, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	table := legacyCapitalTable(doc)
	if table.Length() == 0 {
		return nil, models.NewParseFault("legacy capital: label cell not found")
	}

	capital := models.NewCapitalComposition()
	if err := walkCapital(table, classifyLegacyCapitalRow, legacyCapitalDate, capital); err != nil {
		return nil, err
	}
	return capital, nil
}

func (d Legacy) ParseAvailableDocs(body string) (models.AvailableDocs, error) {
	docs := models.NewAvailableDocs()

	doc, err := parseDocument(body)
	if err != nil {
		return docs, err
	}

	imageMap := doc.Find("map").First()
	if imageMap.Length() == 0 {
		return docs, models.NewParseFault("legacy menu: image map not found")
	}

	imageMap.Find("area").EachWithBreak(func(_ int, area *goquery.Selection) bool {
		alt, _ := area.Attr("alt")
		if !strings.Contains(alt, consolidatedBalanceAlt) {
			return true
		}
		href, _ := area.Attr("href")
		if unescaped, err := url.QueryUnescape(href); err == nil {
			href = unescaped
		}
		if strings.Contains(href, notPresentedMarker) {
			docs.ClearConsolidated()
			return false
		}
		return true
	})

	return docs, nil
}

// legacyScrollContainer is the scrolling div that wraps the statement table.
func legacyScrollContainer(doc *goquery.Document) *goquery.Selection {
	return doc.Find("div.ScrollMaker").First()
}

func legacyStatementTable(container *goquery.Selection) *goquery.Selection {
	return container.Children().First().Filter("table")
}

// legacyMultiplierText is the element just before the scroll container, which names the unit.
func legacyMultiplierText(container *goquery.Selection) string {
	return container.Prev().Text()
}

// legacyHasNoDataMarker looks only inside scripts, where the portal raises its no-data alert.
func legacyHasNoDataMarker(doc *goquery.Document) bool {
	found := false
	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		found = strings.Contains(script.Text(), legacyNoDataMarker)
		return !found
	})
	return found
}

// legacyCapitalTable is the table holding the first label cell.
func legacyCapitalTable(doc *goquery.Document) *goquery.Selection {
	return doc.Find("td.label").First().Closest("table")
}

// legacyCapitalDate reads the reference date from the end of the second cell and the unit from
// the first.
func legacyCapitalDate(cells []string, capital *models.CapitalComposition) error {
	date, err := normalize.ExtractDate(cells[1])
	if err != nil {
		return err
	}
	capital.Date = date
	capital.Multiplier = capitalMultiplier(cells[0])
	return nil
}
