package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/findata/internal/httpclient"
	"github.com/ternarybob/findata/internal/models"
	"github.com/ternarybob/findata/internal/services/urls"
	"github.com/ternarybob/findata/internal/storage/filestore"
	"golang.org/x/text/encoding/charmap"
)

const sessionCookie = "ASPSESSIONID"

// portal emulates both portals on one server.
type portal struct {
	mu                    sync.Mutex
	hits                  map[string]int
	issueCookies          bool
	legacyConsolidated    bool
	regulatorConsolidated bool
	brokenCapital         bool
}

func newPortal() *portal {
	return &portal{hits: make(map[string]int), issueCookies: true, legacyConsolidated: true}
}

func (p *portal) count(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits[path]
}

func (p *portal) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, v := range p.hits {
		n += v
	}
	return n
}

func (p *portal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.hits[r.URL.Path]++
	p.mu.Unlock()

	switch r.URL.Path {
	case "/dxw/FrDXW.asp", "/ENETCONSULTA/frmGerenciaPaginaFRE.aspx":
		if p.issueCookies {
			http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "s-" + r.URL.Path, Path: "/"})
		}
		if r.URL.Path == "/ENETCONSULTA/frmGerenciaPaginaFRE.aspx" {
			p.write(w, regulatorMenu(p.regulatorConsolidated), false)
			return
		}
		p.write(w, "<html>frames</html>", true)
		return
	}

	if _, err := r.Cookie(sessionCookie); err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	q := r.URL.Query()
	switch r.URL.Path {
	case "/dxw/DXWMenuBotoes.asp":
		p.write(w, legacyMenu(p.legacyConsolidated), true)
	case "/dxw/FormDetalheDXWBalanco.asp":
		p.write(w, legacyStatement(q.Get("Tipo")), true)
	case "/dxw/FormDetalheDXWDRE.asp":
		p.write(w, legacyNoData, true)
	case "/dxw/FormDetalheDXWG1CompCapital.asp":
		if p.brokenCapital {
			p.write(w, "<html><body>manutenção</body></html>", true)
			return
		}
		p.write(w, legacyCapital, true)
	case "/ENETCONSULTA/frmDemonstracaoFinanceiraITR.aspx":
		p.write(w, regulatorStatement(q.Get("Demonstracao")), false)
	case "/ENETCONSULTA/frmDadosComposicaoCapitalITR.aspx":
		p.write(w, regulatorCapital, false)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *portal) write(w http.ResponseWriter, body string, windows1252 bool) {
	if windows1252 {
		encoded, err := charmap.Windows1252.NewEncoder().String(body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(encoded))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func legacyMenu(consolidated bool) string {
	href := "FormDetalheDXWBalanco.asp?TipoInfo=T"
	if !consolidated {
		href = "javascript:alert('Não Apresentado')"
	}
	return `<html><body><map name="m"><area alt="Balanço Patrimonial Consolidado" href="` + href + `"></map></body></html>`
}

func legacyStatement(tipo string) string {
	return `<html><body><div>(Reais Mil)</div><div class="ScrollMaker"><table>
<tr valign="top"><td>Conta</td><td>Descrição</td><td>Valor do Trimestre Atual 01/04/2009 a 30/06/2009</td></tr>
<tr><td>1</td><td>` + tipo + `</td><td>1.234,56</td></tr>
<tr><td>1.01</td><td>Circulante</td><td>(1.234,56)</td></tr>
</table></div></body></html>`
}

const legacyNoData = `<html><head><script>alert('Não Possui Dados para Carregar a Página');</script></head></html>`

const legacyCapital = `<table>
<tr align="left"><td class="label">Quantidade (Mil)</td><td>Último Exercício 30/06/2009</td></tr>
<tr><td>Do Capital Integralizado</td><td></td></tr>
<tr><td>Ordinárias</td><td>100</td></tr>
<tr><td>Preferenciais</td><td>50</td></tr>
<tr><td>Em Tesouraria</td><td></td></tr>
<tr><td>Ordinárias</td><td>10</td></tr>
<tr><td>Preferenciais</td><td>5</td></tr>
</table>`

func regulatorMenu(consolidated bool) string {
	items := `<div class="ComboBoxItem_CVM">DFs Individuais</div>`
	if consolidated {
		items += `<div class="ComboBoxItem_CVM">DFs Consolidadas</div>`
	}
	return `<html><body>` + items + `</body></html>`
}

func regulatorStatement(demonstracao string) string {
	return `<html><body><div id="TituloTabelaSemBorda">Demonstração ` + demonstracao + ` (Reais Mil)</div><table>
<tr><td>Conta</td><td>Descrição</td><td>31/03/2011</td></tr>
<tr><td>1</td><td>Total</td><td>10</td></tr>
</table></body></html>`
}

const regulatorCapital = `<html><body><div id="UltimaTabela"><table>
<tr><td>Número de Ações (Unidades)</td><td>31/03/2011</td></tr>
<tr><td>Do Capital Integralizado</td><td></td></tr>
<tr><td>Ordinárias</td><td>1.000</td></tr>
<tr><td>Preferenciais</td><td>2.000</td></tr>
</table></div></body></html>`

var company = models.Company{LegalName: "ACME S.A.", TradingName: "ACME", CVMCode: 1234}

func legacyFiling() models.Filing {
	return models.Filing{
		Source:         models.SourceLegacy,
		Kind:           models.KindInterim,
		ReferenceDate:  time.Date(2009, 6, 30, 0, 0, 0, 0, time.UTC),
		SubmissionDate: time.Date(2009, 8, 14, 0, 0, 0, 0, time.UTC),
	}
}

func regulatorFiling() models.Filing {
	return models.Filing{
		Source:         models.SourceRegulator,
		Kind:           models.KindInterim,
		ReferenceDate:  time.Date(2011, 3, 31, 0, 0, 0, 0, time.UTC),
		SubmissionDate: time.Date(2011, 5, 13, 0, 0, 0, 0, time.UTC),
		SequenceNumber: 4242,
	}
}

type fixture struct {
	portal  *portal
	store   *filestore.Store
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	p := newPortal()
	server := httptest.NewServer(p)
	t.Cleanup(server.Close)

	logger := arbor.NewLogger()
	store, err := filestore.New(t.TempDir(), logger)
	require.NoError(t, err)

	retry := httpclient.NewRetryPolicy()
	retry.MaxAttempts = 1
	transport := httpclient.NewTransport(logger, httpclient.WithRetryPolicy(retry), httpclient.WithRateLimit(0, 1))

	builder := urls.NewBuilder()
	builder.LegacyBaseURL = server.URL
	builder.RegulatorBaseURL = server.URL
	builder.RegulatorBootstrapBaseURL = server.URL

	return &fixture{
		portal:  p,
		store:   store,
		service: NewService(transport, store, builder, logger),
	}
}

func (f *fixture) exists(t *testing.T, target models.Target) bool {
	t.Helper()
	_, err := os.Stat(f.store.Path(target))
	return err == nil
}

func TestScrapeFiling_Legacy(t *testing.T) {
	f := newFixture(t)
	scraper := f.service.NewScraper(company)
	ctx := context.Background()
	filing := legacyFiling()

	result, err := scraper.ScrapeFiling(ctx, filing)
	require.NoError(t, err)
	assert.Empty(t, result.Faults)
	assert.Equal(t, 5, result.Extracted, "assets and liabilities in both scopes plus capital")
	assert.Equal(t, 2, result.Absent, "income has no data in either scope")

	assert.Equal(t, 1, f.portal.count("/dxw/FrDXW.asp"), "fetches reuse the session the probe established")
	assert.Equal(t, 1, f.portal.count("/dxw/DXWMenuBotoes.asp"))

	assets := models.StatementTarget(company, filing, models.CategoryAssets, models.ScopeConsolidated)
	record, err := f.store.LoadRecord(ctx, assets)
	require.NoError(t, err)
	assert.Equal(t, models.ScopeConsolidated, record.Scope)
	assert.Equal(t, models.MultiplierThousand, record.Multiplier)
	require.Len(t, record.Lines, 2)
	assert.Equal(t, "01 - Ativo", record.Lines[0].Label, "Windows-1252 page decoded and routed by category")
	assert.True(t, decimal.RequireFromString("-1234.56").Equal(record.Lines[1].Amount.Decimal))

	assert.False(t, f.exists(t, models.StatementTarget(company, filing, models.CategoryIncome, models.ScopeIndividual)))

	capital, err := f.store.LoadCapital(ctx, models.CapitalTarget(company, filing))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(capital.OrdinaryTreasury.Decimal))
	assert.Equal(t, models.MultiplierThousand, capital.Multiplier)
}

func TestScrapeFiling_SecondRunIsSkippedWithoutRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	filing := regulatorFiling()
	f.portal.regulatorConsolidated = true

	_, err := f.service.NewScraper(company).ScrapeFiling(ctx, filing)
	require.NoError(t, err)
	before := f.portal.total()

	result, err := f.service.NewScraper(company).ScrapeFiling(ctx, filing)
	require.NoError(t, err)
	assert.Equal(t, 7, result.Skipped)
	assert.Equal(t, before, f.portal.total(), "a current filing issues no requests")
}

func TestScrapeFiling_RegulatorWithoutConsolidated(t *testing.T) {
	f := newFixture(t)
	scraper := f.service.NewScraper(company)
	filing := regulatorFiling()

	result, err := scraper.ScrapeFiling(context.Background(), filing)
	require.NoError(t, err)
	assert.Empty(t, result.Faults)
	assert.Equal(t, 4, result.Extracted)
	assert.Equal(t, 3, result.Absent)

	assert.Equal(t, 1, f.portal.count("/ENETCONSULTA/frmGerenciaPaginaFRE.aspx"), "the probe is the bootstrap")
	assert.Equal(t, 3, f.portal.count("/ENETCONSULTA/frmDemonstracaoFinanceiraITR.aspx"))

	for _, category := range models.StatementCategories {
		assert.False(t, f.exists(t, models.StatementTarget(company, filing, category, models.ScopeConsolidated)))
		assert.True(t, f.exists(t, models.StatementTarget(company, filing, category, models.ScopeIndividual)))
	}
}

func TestScrapeFiling_LegacyWithoutConsolidated(t *testing.T) {
	f := newFixture(t)
	f.portal.legacyConsolidated = false

	result, err := f.service.NewScraper(company).ScrapeFiling(context.Background(), legacyFiling())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Extracted, "individual assets, liabilities and capital")
	assert.Equal(t, 4, result.Absent)
	assert.Equal(t, 1, f.portal.count("/dxw/FormDetalheDXWDRE.asp"))
}

func TestScrapeFiling_SessionFaultStopsFiling(t *testing.T) {
	f := newFixture(t)
	f.portal.issueCookies = false
	scraper := f.service.NewScraper(company)

	_, err := scraper.ScrapeFiling(context.Background(), legacyFiling())
	require.Error(t, err)

	var fault *models.SessionFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, models.SourceLegacy, fault.Source)
	assert.Error(t, scraper.SessionFault(models.SourceLegacy))
	assert.NoError(t, scraper.SessionFault(models.SourceRegulator))
	assert.Equal(t, 0, f.portal.count("/dxw/FormDetalheDXWBalanco.asp"))
}

func TestScrapeFiling_ParseFaultIsCollectedPerTarget(t *testing.T) {
	f := newFixture(t)
	f.portal.brokenCapital = true
	filing := legacyFiling()

	result, err := f.service.NewScraper(company).ScrapeFiling(context.Background(), filing)
	require.NoError(t, err)
	require.Len(t, result.Faults, 1)
	assert.Equal(t, 4, result.Extracted)

	var targetErr *models.TargetError
	require.True(t, errors.As(result.Faults[0], &targetErr))
	assert.Equal(t, models.CategoryCapital, targetErr.Target.Category)
	assert.True(t, models.IsParseFault(result.Faults[0]))
	assert.Contains(t, result.Faults[0].Error(), "ACME S.A.")
	assert.Contains(t, result.Faults[0].Error(), "30/06/2009")
	assert.False(t, f.exists(t, models.CapitalTarget(company, filing)), "no partial artifact")
}

func TestScrapeStatement_LazyBootstrap(t *testing.T) {
	f := newFixture(t)
	scraper := f.service.NewScraper(company)
	ctx := context.Background()
	filing := regulatorFiling()

	outcome, err := scraper.ScrapeStatement(ctx, filing, models.ScopeIndividual, models.CategoryAssets)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExtracted, outcome)

	outcome, err = scraper.ScrapeStatement(ctx, filing, models.ScopeIndividual, models.CategoryLiabilities)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExtracted, outcome)
	assert.Equal(t, 1, f.portal.count("/ENETCONSULTA/frmGerenciaPaginaFRE.aspx"))

	outcome, err = scraper.ScrapeStatement(ctx, filing, models.ScopeIndividual, models.CategoryAssets)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
}

func TestScrapeStatement_AbsentWritesNothing(t *testing.T) {
	f := newFixture(t)
	filing := legacyFiling()

	outcome, err := f.service.NewScraper(company).ScrapeStatement(context.Background(), filing, models.ScopeIndividual, models.CategoryIncome)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAbsent, outcome)
	assert.False(t, f.exists(t, models.StatementTarget(company, filing, models.CategoryIncome, models.ScopeIndividual)))
}

func TestScrapeCapital_Regulator(t *testing.T) {
	f := newFixture(t)
	filing := regulatorFiling()
	ctx := context.Background()

	outcome, err := f.service.NewScraper(company).ScrapeCapital(ctx, filing)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExtracted, outcome)

	capital, err := f.store.LoadCapital(ctx, models.CapitalTarget(company, filing))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(capital.OrdinaryOutstanding.Decimal))
	assert.True(t, decimal.NewFromInt(2000).Equal(capital.PreferredOutstanding.Decimal))
	assert.False(t, capital.OrdinaryTreasury.Valid)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "skipped", OutcomeSkipped.String())
	assert.Equal(t, "extracted", OutcomeExtracted.String())
	assert.Equal(t, "absent", OutcomeAbsent.String())
}
