package dialect

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/findata/internal/models"
	"github.com/ternarybob/findata/internal/services/normalize"
)

// Regulator parses pages of the regulator portal (ENET).
type Regulator struct{}

func (Regulator) Source() models.Source {
	return models.SourceRegulator
}

func (d Regulator) ParseStatement(body string, category models.Category) (*models.FinancialRecord, error) {
	if !category.IsStatement() {
		return nil, fmt.Errorf("category %q is not a statement", category)
	}

	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	title := regulatorTableTitle(doc)
	if title.Length() == 0 {
		return nil, models.NewParseFault("regulator statement: table title not found")
	}

	table := regulatorStatementTable(title)
	if table.Length() == 0 {
		return nil, models.NewParseFault("regulator statement: no table after title")
	}

	if strings.Contains(table.Text(), regulatorNoDataMarker) {
		return nil, models.ErrDataAbsent
	}

	record := models.NewFinancialRecord(category, "")
	record.Multiplier = statementMultiplier(title.Text(), regulatorThousandMarker)

	if err := walkStatement(table, classifyRegulatorStatementRow, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (d Regulator) ParseCapital(body string) (*models.CapitalComposition, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	table := regulatorCapitalTable(doc)
	if table.Length() == 0 {
		return nil, models.NewParseFault("regulator capital: table not found")
	}

	capital := models.NewCapitalComposition()
	if err := walkCapital(table, classifyRegulatorCapitalRow, regulatorCapitalDate, capital); err != nil {
		return nil, err
	}
	return capital, nil
}

// ParseAvailableDocs reads the document combo box of the page-management response. The
// consolidated statements exist only when one of its items mentions them.
func (d Regulator) ParseAvailableDocs(body string) (models.AvailableDocs, error) {
	docs := models.NewAvailableDocs()

	doc, err := parseDocument(body)
	if err != nil {
		return docs, err
	}

	found := false
	doc.Find("div.ComboBoxItem_CVM").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		found = strings.Contains(item.Text(), consolidatedMarker)
		return !found
	})
	if !found {
		docs.ClearConsolidated()
	}

	return docs, nil
}

func regulatorTableTitle(doc *goquery.Document) *goquery.Selection {
	return doc.Find("#TituloTabelaSemBorda").First()
}

// regulatorStatementTable is the element right after the title.
func regulatorStatementTable(title *goquery.Selection) *goquery.Selection {
	return title.Next().Filter("table")
}

func regulatorCapitalTable(doc *goquery.Document) *goquery.Selection {
	return doc.Find("#UltimaTabela").ChildrenFiltered("table").First()
}

// regulatorCapitalDate parses the second cell as a bare date. The regulator page has no unit
// to detect.
func regulatorCapitalDate(cells []string, capital *models.CapitalComposition) error {
	date, err := normalize.ParseDate(cells[1])
	if err != nil {
		return err
	}
	capital.Date = date
	return nil
}
