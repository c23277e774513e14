package interfaces

import (
	"context"
	"errors"
	"net/http"

	"github.com/ternarybob/findata/internal/models"
)

// ErrArtifactNotFound is returned when a target has no stored artifact
var ErrArtifactNotFound = errors.New("artifact not found")

// Transport fetches portal pages. Implementations retry transient failures and return a
// *models.TransportFault once retries are exhausted.
type Transport interface {
	// Bootstrap issues a GET with an empty cookie jar and returns the cookies set for rawURL
	// during the exchange together with the decoded body.
	Bootstrap(ctx context.Context, rawURL string, encoding models.TextEncoding) ([]*http.Cookie, string, error)

	// Get issues a GET carrying cookies scoped to rawURL's host and returns the decoded body.
	Get(ctx context.Context, rawURL string, cookies []*http.Cookie, encoding models.TextEncoding) (string, error)
}

// ArtifactStateReader reports the on-disk state of a target's artifact
type ArtifactStateReader interface {
	State(ctx context.Context, target models.Target) (models.ArtifactState, error)
}

// ArtifactStore persists one artifact per target and reports its state
type ArtifactStore interface {
	ArtifactStateReader

	// SaveRecord writes a statement record atomically
	SaveRecord(ctx context.Context, target models.Target, record *models.FinancialRecord) error

	// SaveCapital writes a capital composition atomically
	SaveCapital(ctx context.Context, target models.Target, capital *models.CapitalComposition) error

	// LoadRecord reads a statement record back, ErrArtifactNotFound if missing
	LoadRecord(ctx context.Context, target models.Target) (*models.FinancialRecord, error)

	// LoadCapital reads a capital composition back, ErrArtifactNotFound if missing
	LoadCapital(ctx context.Context, target models.Target) (*models.CapitalComposition, error)

	// Path returns the artifact location of a target
	Path(target models.Target) string
}

// Catalog supplies the roster of companies and their filing references
type Catalog interface {
	Companies(ctx context.Context) ([]models.Company, error)
	Filings(ctx context.Context, company models.Company) ([]models.Filing, error)
}
