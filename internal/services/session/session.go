// Package session bootstraps portal sessions and caches their cookies per source.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/findata/internal/interfaces"
	"github.com/ternarybob/findata/internal/models"
	"github.com/ternarybob/findata/internal/services/urls"
)

var errNoCookies = errors.New("bootstrap returned no cookies")

// Session is the cookie set of one source.
type Session struct {
	Source    models.Source
	Cookies   []*http.Cookie
	CreatedAt time.Time
}

// Bootstrapper performs the priming request that issues a source's cookies.
type Bootstrapper struct {
	transport interfaces.Transport
	urls      *urls.Builder
	logger    arbor.ILogger
}

// NewBootstrapper creates a bootstrapper.
func NewBootstrapper(transport interfaces.Transport, builder *urls.Builder, logger arbor.ILogger) *Bootstrapper {
	return &Bootstrapper{
		transport: transport,
		urls:      builder,
		logger:    logger,
	}
}

// Bootstrap issues one GET to the source's session entry and returns the session together with
// the response body. Transport errors and empty cookie sets are returned as *models.SessionFault.
func (b *Bootstrapper) Bootstrap(ctx context.Context, company models.Company, filing models.Filing) (*Session, string, error) {
	entry, err := b.urls.SessionEntry(company, filing)
	if err != nil {
		return nil, "", &models.SessionFault{Source: filing.Source, Err: err}
	}

	cookies, body, err := b.transport.Bootstrap(ctx, entry, filing.Source.Encoding())
	if err != nil {
		return nil, "", &models.SessionFault{Source: filing.Source, Err: err}
	}
	if len(cookies) == 0 {
		return nil, "", &models.SessionFault{Source: filing.Source, Err: errNoCookies}
	}

	b.logger.Debug().
		Str("source", string(filing.Source)).
		Str("company", company.LegalName).
		Int("cookies", len(cookies)).
		Msg("Session established")

	return &Session{
		Source:    filing.Source,
		Cookies:   cookies,
		CreatedAt: time.Now(),
	}, body, nil
}

// Cache holds at most one session per source for one company. Sessions are populated lazily on
// first use; a session fault is remembered and returned for every later request of that source.
type Cache struct {
	bootstrapper *Bootstrapper
	company      models.Company

	mu       sync.Mutex
	sessions map[models.Source]*Session
	faults   map[models.Source]error
}

// NewCache creates an empty session cache for a company.
func NewCache(bootstrapper *Bootstrapper, company models.Company) *Cache {
	return &Cache{
		bootstrapper: bootstrapper,
		company:      company,
		sessions:     make(map[models.Source]*Session),
		faults:       make(map[models.Source]error),
	}
}

// Get returns the filing source's session, bootstrapping it on first use. Callers sharing a
// cache serialize on the first bootstrap.
func (c *Cache) Get(ctx context.Context, filing models.Filing) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.faults[filing.Source]; err != nil {
		return nil, err
	}
	if s, ok := c.sessions[filing.Source]; ok {
		return s, nil
	}

	s, _, err := c.bootstrapLocked(ctx, filing)
	return s, err
}

// Refresh bootstraps the filing source again, replacing any cached session, and returns the
// bootstrap response body.
func (c *Cache) Refresh(ctx context.Context, filing models.Filing) (*Session, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.faults[filing.Source]; err != nil {
		return nil, "", err
	}
	return c.bootstrapLocked(ctx, filing)
}

// Fault returns the remembered session fault of a source, if any.
func (c *Cache) Fault(source models.Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.faults[source]
}

func (c *Cache) bootstrapLocked(ctx context.Context, filing models.Filing) (*Session, string, error) {
	s, body, err := c.bootstrapper.Bootstrap(ctx, c.company, filing)
	if err != nil {
		// A cancelled run is not a portal fault.
		if ctx.Err() == nil {
			c.faults[filing.Source] = err
		}
		return nil, "", err
	}

	c.sessions[filing.Source] = s
	return s, body, nil
}
