// Package urls builds the portal addresses for sessions, menus, statements and capital pages.
package urls

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ternarybob/findata/internal/models"
)

// Default portal locations
const (
	DefaultLegacyBaseURL             = "http://www2.bmfbovespa.com.br"
	DefaultRegulatorBaseURL          = "https://www.rad.cvm.gov.br"
	DefaultRegulatorBootstrapBaseURL = "http://www.rad.cvm.gov.br"
	DefaultRegulatorBootstrapSeq     = 65179
)

const (
	legacySessionPath   = "/dxw/FrDXW.asp"
	legacyMenuPath      = "/dxw/DXWMenuBotoes.asp"
	legacyBalancePath   = "/dxw/FormDetalheDXWBalanco.asp"
	legacyIncomePath    = "/dxw/FormDetalheDXWDRE.asp"
	legacyCapitalPath   = "/dxw/FormDetalheDXWG1CompCapital.asp"
	regulatorPagePath   = "/ENETCONSULTA/frmGerenciaPaginaFRE.aspx"
	regulatorStmtPath   = "/ENETCONSULTA/frmDemonstracaoFinanceiraITR.aspx"
	regulatorCapPath    = "/ENETCONSULTA/frmDadosComposicaoCapitalITR.aspx"
	regulatorInstitType = "2"
)

// Builder builds portal URLs against configurable hosts.
type Builder struct {
	LegacyBaseURL             string
	RegulatorBaseURL          string
	RegulatorBootstrapBaseURL string
	RegulatorBootstrapSeq     int
}

// NewBuilder returns a builder pointing at the public portals.
func NewBuilder() *Builder {
	return &Builder{
		LegacyBaseURL:             DefaultLegacyBaseURL,
		RegulatorBaseURL:          DefaultRegulatorBaseURL,
		RegulatorBootstrapBaseURL: DefaultRegulatorBootstrapBaseURL,
		RegulatorBootstrapSeq:     DefaultRegulatorBootstrapSeq,
	}
}

// SessionEntry is the priming URL that issues a source's session cookies.
func (b *Builder) SessionEntry(company models.Company, filing models.Filing) (string, error) {
	switch filing.Source {
	case models.SourceLegacy:
		return b.legacySessionEntry(company, filing), nil
	case models.SourceRegulator:
		return b.regulatorPageManagement(), nil
	default:
		return "", fmt.Errorf("unknown source %q", filing.Source)
	}
}

// Menu is the available-documents page of the legacy portal. The regulator portal serves
// that information in its session entry response.
func (b *Builder) Menu() string {
	return join(b.LegacyBaseURL, legacyMenuPath, nil)
}

// Statement is the page of one statement category and scope.
func (b *Builder) Statement(company models.Company, filing models.Filing, category models.Category, scope models.Scope) (string, error) {
	if !category.IsStatement() {
		return "", fmt.Errorf("category %q is not a statement", category)
	}
	if err := scope.Validate(); err != nil {
		return "", err
	}

	switch filing.Source {
	case models.SourceLegacy:
		return b.legacyStatement(category, scope), nil
	case models.SourceRegulator:
		return b.regulatorStatement(company, filing, category, scope), nil
	default:
		return "", fmt.Errorf("unknown source %q", filing.Source)
	}
}

// Capital is the share-capital composition page.
func (b *Builder) Capital(company models.Company, filing models.Filing) (string, error) {
	switch filing.Source {
	case models.SourceLegacy:
		return join(b.LegacyBaseURL, legacyCapitalPath, nil), nil
	case models.SourceRegulator:
		return join(b.RegulatorBaseURL, regulatorCapPath, append(regulatorDocumentParams(),
			documentParams(company, filing)...)), nil
	default:
		return "", fmt.Errorf("unknown source %q", filing.Source)
	}
}

// legacySessionEntry submits names form-encoded (spaces as "+") and the date with literal
// slashes, as the portal's own search form does.
func (b *Builder) legacySessionEntry(company models.Company, filing models.Filing) string {
	query := strings.Join([]string{
		"site=B",
		"mercado=18",
		"razao=" + url.QueryEscape(company.LegalName),
		"pregao=" + url.QueryEscape(company.TradingName),
		"ccvm=" + company.Code(),
		"data=" + filing.ReferenceLabel(),
		"tipo=" + strconv.Itoa(filing.Kind.SessionCode()),
	}, "&")
	return join(b.LegacyBaseURL, legacySessionPath, nil) + "?" + query
}

// legacyStatement URLs carry no filing identity; the session cookie selects the filing.
func (b *Builder) legacyStatement(category models.Category, scope models.Scope) string {
	info := param{"TipoInfo", legacyScopeToken(scope)}
	switch category {
	case models.CategoryAssets:
		return join(b.LegacyBaseURL, legacyBalancePath, []param{info, {"Tipo", "01 - Ativo"}})
	case models.CategoryLiabilities:
		return join(b.LegacyBaseURL, legacyBalancePath, []param{info, {"Tipo", "02 - Passivo"}})
	default:
		return join(b.LegacyBaseURL, legacyIncomePath, []param{info})
	}
}

func (b *Builder) regulatorPageManagement() string {
	return join(b.RegulatorBootstrapBaseURL, regulatorPagePath, []param{
		{"NumeroSequencialDocumento", strconv.Itoa(b.RegulatorBootstrapSeq)},
		{"CodigoTipoInstituicao", regulatorInstitType},
	})
}

func (b *Builder) regulatorStatement(company models.Company, filing models.Filing, category models.Category, scope models.Scope) string {
	params := []param{
		{"Informacao", regulatorScopeCode(scope)},
		{"Demonstracao", regulatorCategoryCode(category)},
		{"Periodo", "0"},
	}
	params = append(params, regulatorDocumentParams()...)
	params = append(params, documentParams(company, filing)...)
	return join(b.RegulatorBaseURL, regulatorStmtPath, params)
}

func legacyScopeToken(scope models.Scope) string {
	if scope == models.ScopeConsolidated {
		return "T"
	}
	return "C"
}

func regulatorScopeCode(scope models.Scope) string {
	if scope == models.ScopeConsolidated {
		return "2"
	}
	return "1"
}

func regulatorCategoryCode(category models.Category) string {
	switch category {
	case models.CategoryAssets:
		return "2"
	case models.CategoryLiabilities:
		return "3"
	default:
		return "4"
	}
}

// regulatorDocumentParams are the empty selectors the regulator pages expect to be present.
func regulatorDocumentParams() []param {
	return []param{
		{"Grupo", ""},
		{"Quadro", ""},
		{"NomeTipoDocumento", ""},
		{"Titulo", ""},
		{"Empresa", ""},
		{"DataReferencia", ""},
		{"Versao", ""},
	}
}

func documentParams(company models.Company, filing models.Filing) []param {
	return []param{
		{"CodTipoDocumento", strconv.Itoa(filing.Kind.DocumentTypeCode())},
		{"NumeroSequencialDocumento", strconv.Itoa(filing.SequenceNumber)},
		{"NumeroSequencialRegistroCvm", company.Code()},
		{"CodigoTipoInstituicao", regulatorInstitType},
	}
}

type param struct {
	key   string
	value string
}

// join keeps the parameter order the portals were observed with; url.Values would sort it.
func join(base, path string, params []param) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(base, "/"))
	sb.WriteString(path)
	for i, p := range params {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.key))
		sb.WriteByte('=')
		sb.WriteString(strings.ReplaceAll(url.QueryEscape(p.value), "+", "%20"))
	}
	return sb.String()
}
