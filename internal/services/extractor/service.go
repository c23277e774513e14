// Package extractor drives the extraction of a company's filings: the freshness gate, session
// bootstrap, authenticated fetches, dialect parsing and persistence.
package extractor

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/findata/internal/interfaces"
	"github.com/ternarybob/findata/internal/models"
	"github.com/ternarybob/findata/internal/services/dialect"
	"github.com/ternarybob/findata/internal/services/gate"
	"github.com/ternarybob/findata/internal/services/session"
	"github.com/ternarybob/findata/internal/services/urls"
)

// Service holds the collaborators shared by every company's scraper.
type Service struct {
	transport    interfaces.Transport
	store        interfaces.ArtifactStore
	urls         *urls.Builder
	gate         *gate.Gate
	bootstrapper *session.Bootstrapper
	dialects     map[models.Source]dialect.Dialect
	logger       arbor.ILogger
}

// NewService creates the extraction service with both portal dialects registered.
func NewService(transport interfaces.Transport, store interfaces.ArtifactStore, builder *urls.Builder, logger arbor.ILogger) *Service {
	if builder == nil {
		builder = urls.NewBuilder()
	}

	s := &Service{
		transport:    transport,
		store:        store,
		urls:         builder,
		gate:         gate.New(store, logger),
		bootstrapper: session.NewBootstrapper(transport, builder, logger),
		dialects:     make(map[models.Source]dialect.Dialect),
		logger:       logger,
	}

	s.RegisterDialect(dialect.Legacy{})
	s.RegisterDialect(dialect.Regulator{})

	return s
}

// RegisterDialect sets the parser of a source, replacing any previous one.
func (s *Service) RegisterDialect(d dialect.Dialect) {
	s.dialects[d.Source()] = d
	s.logger.Debug().
		Str("source", string(d.Source())).
		Msg("Registered dialect")
}

// NewScraper creates a scraper for one company with its own session cache.
func (s *Service) NewScraper(company models.Company) *Scraper {
	return &Scraper{
		service:  s,
		company:  company,
		sessions: session.NewCache(s.bootstrapper, company),
		logger:   s.logger,
	}
}

func (s *Service) dialectFor(source models.Source) (dialect.Dialect, error) {
	d, ok := s.dialects[source]
	if !ok {
		return nil, fmt.Errorf("no dialect registered for source %q", source)
	}
	return d, nil
}
