package extractor

import (
	"context"
	"errors"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/findata/internal/models"
	"github.com/ternarybob/findata/internal/services/session"
)

// Scraper extracts the filings of one company. Its session cache lives as long as the scraper
// and holds at most one session per source. Targets are processed sequentially.
type Scraper struct {
	service  *Service
	company  models.Company
	sessions *session.Cache
	logger   arbor.ILogger
}

// Company returns the company this scraper extracts.
func (s *Scraper) Company() models.Company {
	return s.company
}

// SessionFault returns the remembered session fault of a source, if any.
func (s *Scraper) SessionFault(source models.Source) error {
	return s.sessions.Fault(source)
}

// Fetch performs an authenticated GET against rawURL, bootstrapping the filing source's session
// on first use and decoding with the source's encoding.
func (s *Scraper) Fetch(ctx context.Context, filing models.Filing, rawURL string) (string, error) {
	sess, err := s.sessions.Get(ctx, filing)
	if err != nil {
		return "", err
	}
	return s.service.transport.Get(ctx, rawURL, sess.Cookies, filing.Source.Encoding())
}

// AvailableDocs probes which consolidated statements the filing publishes. The probe always
// bootstraps a new session for the filing. On the regulator portal the bootstrap response is the
// menu itself, so no further request is made.
func (s *Scraper) AvailableDocs(ctx context.Context, filing models.Filing) (models.AvailableDocs, error) {
	d, err := s.service.dialectFor(filing.Source)
	if err != nil {
		return models.NewAvailableDocs(), err
	}

	sess, body, err := s.sessions.Refresh(ctx, filing)
	if err != nil {
		return models.NewAvailableDocs(), err
	}

	if filing.Source == models.SourceLegacy {
		body, err = s.service.transport.Get(ctx, s.service.urls.Menu(), sess.Cookies, filing.Source.Encoding())
		if err != nil {
			return models.NewAvailableDocs(), err
		}
	}

	docs, err := d.ParseAvailableDocs(body)
	if err != nil {
		return docs, err
	}

	if !docs.AssetsConsolidated {
		s.logger.Info().
			Str("company", s.company.LegalName).
			Str("date", filing.ReferenceLabel()).
			Msg("Filing has no consolidated statements")
	}
	return docs, nil
}

// ScrapeStatement extracts one statement target. Faults are returned as *models.TargetError,
// except session faults, which apply to the whole source and are returned as they are.
func (s *Scraper) ScrapeStatement(ctx context.Context, filing models.Filing, scope models.Scope, category models.Category) (Outcome, error) {
	target := models.StatementTarget(s.company, filing, category, scope)

	needed, err := s.service.gate.NeedsExtraction(ctx, target)
	if err != nil {
		return OutcomeSkipped, &models.TargetError{Target: target, Err: err}
	}
	if !needed {
		s.logSkipped(target)
		return OutcomeSkipped, nil
	}

	d, err := s.service.dialectFor(filing.Source)
	if err != nil {
		return OutcomeSkipped, &models.TargetError{Target: target, Err: err}
	}

	rawURL, err := s.service.urls.Statement(s.company, filing, category, scope)
	if err != nil {
		return OutcomeSkipped, &models.TargetError{Target: target, Err: err}
	}

	body, err := s.Fetch(ctx, filing, rawURL)
	if err != nil {
		return OutcomeSkipped, s.targetFault(target, err)
	}

	record, err := d.ParseStatement(body, category)
	if errors.Is(err, models.ErrDataAbsent) {
		s.logAbsent(target)
		return OutcomeAbsent, nil
	}
	if err != nil {
		return OutcomeSkipped, &models.TargetError{Target: target, Err: err}
	}
	record.Scope = scope

	if err := s.service.store.SaveRecord(ctx, target, record); err != nil {
		return OutcomeSkipped, &models.TargetError{Target: target, Err: err}
	}

	s.logger.Info().
		Str("company", s.company.LegalName).
		Int("cvm_code", s.company.CVMCode).
		Str("category", string(category)).
		Str("scope", string(scope)).
		Str("date", filing.ReferenceLabel()).
		Int("lines", len(record.Lines)).
		Msg("Statement extracted")

	return OutcomeExtracted, nil
}

// ScrapeCapital extracts the filing's capital composition.
func (s *Scraper) ScrapeCapital(ctx context.Context, filing models.Filing) (Outcome, error) {
	target := models.CapitalTarget(s.company, filing)

	needed, err := s.service.gate.NeedsExtraction(ctx, target)
	if err != nil {
		return OutcomeSkipped, &models.TargetError{Target: target, Err: err}
	}
	if !needed {
		s.logSkipped(target)
		return OutcomeSkipped, nil
	}

	d, err := s.service.dialectFor(filing.Source)
	if err != nil {
		return OutcomeSkipped, &models.TargetError{Target: target, Err: err}
	}

	rawURL, err := s.service.urls.Capital(s.company, filing)
	if err != nil {
		return OutcomeSkipped, &models.TargetError{Target: target, Err: err}
	}

	body, err := s.Fetch(ctx, filing, rawURL)
	if err != nil {
		return OutcomeSkipped, s.targetFault(target, err)
	}

	capital, err := d.ParseCapital(body)
	if err != nil {
		return OutcomeSkipped, &models.TargetError{Target: target, Err: err}
	}

	if err := s.service.store.SaveCapital(ctx, target, capital); err != nil {
		return OutcomeSkipped, &models.TargetError{Target: target, Err: err}
	}

	s.logger.Info().
		Str("company", s.company.LegalName).
		Int("cvm_code", s.company.CVMCode).
		Str("date", filing.ReferenceLabel()).
		Msg("Capital composition extracted")

	return OutcomeExtracted, nil
}

// ScrapeFiling extracts every target of a filing: the freshness pre-check, the
// available-documents probe, the individual and (when published) consolidated statements, then
// capital composition. Target faults are collected in the result. A session fault stops the
// filing and is returned as the error, as is context cancellation.
func (s *Scraper) ScrapeFiling(ctx context.Context, filing models.Filing) (*FilingResult, error) {
	result := &FilingResult{Filing: filing}

	needed, err := s.service.gate.NeedsAnyExtraction(ctx, s.company, filing)
	if err != nil {
		return result, err
	}
	if !needed {
		result.Skipped = len(models.Targets(s.company, filing))
		s.logger.Debug().
			Str("company", s.company.LegalName).
			Str("date", filing.ReferenceLabel()).
			Msg("Filing is current")
		return result, nil
	}

	docs, err := s.AvailableDocs(ctx, filing)
	if err != nil {
		if models.IsSessionFault(err) || ctx.Err() != nil {
			return result, err
		}
		s.logger.Warn().
			Err(err).
			Str("company", s.company.LegalName).
			Str("date", filing.ReferenceLabel()).
			Msg("Available documents probe failed, assuming consolidated statements exist")
		docs = models.NewAvailableDocs()
	}

	for _, scope := range models.Scopes {
		for _, category := range models.StatementCategories {
			if scope == models.ScopeConsolidated && !docs.Consolidated(category) {
				result.add(OutcomeAbsent)
				continue
			}

			outcome, err := s.ScrapeStatement(ctx, filing, scope, category)
			if stop, err := s.collect(result, outcome, err); stop {
				return result, err
			}
		}
	}

	outcome, err := s.ScrapeCapital(ctx, filing)
	if stop, err := s.collect(result, outcome, err); stop {
		return result, err
	}

	return result, nil
}

// collect records a target's result and reports whether the filing must stop.
func (s *Scraper) collect(result *FilingResult, outcome Outcome, err error) (bool, error) {
	if err == nil {
		result.add(outcome)
		return false, nil
	}
	if models.IsSessionFault(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true, err
	}

	s.logger.Error().Err(err).Msg("Target extraction failed")
	result.Faults = append(result.Faults, err)
	return false, nil
}

// targetFault keeps session faults attributable to their source and everything else to the
// target.
func (s *Scraper) targetFault(target models.Target, err error) error {
	if models.IsSessionFault(err) {
		return err
	}
	return &models.TargetError{Target: target, Err: err}
}

func (s *Scraper) logSkipped(target models.Target) {
	s.logger.Debug().
		Str("target", target.String()).
		Msg("Artifact is current, skipping")
}

func (s *Scraper) logAbsent(target models.Target) {
	s.logger.Info().
		Str("company", s.company.LegalName).
		Int("cvm_code", s.company.CVMCode).
		Str("category", string(target.Category)).
		Str("scope", string(target.Scope)).
		Str("date", target.Filing.ReferenceLabel()).
		Msg("Portal has no data for target")
}
