package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/findata/internal/interfaces"
	"github.com/ternarybob/findata/internal/models"
	"github.com/ternarybob/findata/internal/services/extractor"
)

// ErrAlreadyRunning is returned when a run is requested while another is in progress
var ErrAlreadyRunning = errors.New("extraction run already in progress")

// Stats represents statistics from one extraction run
type Stats struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Companies int
	Filings   int
	Extracted int
	Skipped   int
	Absent    int
	// Faults counts failed targets plus filings stopped by a session fault
	Faults int
	// SessionSkipped counts filings not attempted because their source already faulted for the company
	SessionSkipped int
	Errors         []string
}

func (s *Stats) addFiling(result *extractor.FilingResult) {
	if result == nil {
		return
	}
	s.Extracted += result.Extracted
	s.Skipped += result.Skipped
	s.Absent += result.Absent
	s.Faults += len(result.Faults)
	for _, fault := range result.Faults {
		s.Errors = append(s.Errors, fault.Error())
	}
}

// Runner walks the roster sequentially, one scraper (and session cache) per company
type Runner struct {
	catalog   interfaces.Catalog
	extractor *extractor.Service
	logger    arbor.ILogger

	mu      sync.Mutex
	running bool
	lastRun *Stats
}

// New creates a new runner
func New(catalog interfaces.Catalog, service *extractor.Service, logger arbor.ILogger) *Runner {
	return &Runner{
		catalog:   catalog,
		extractor: service,
		logger:    logger,
	}
}

// LastRun returns the statistics of the last completed run, or nil
func (r *Runner) LastRun() *Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}

// Run extracts every filing of every company in catalog order. Target faults are counted and
// logged without stopping the run. Only a failed roster load or context cancellation ends it
// early; the partial statistics are returned in both cases.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	stats := &Stats{
		RunID:     uuid.New().String(),
		StartTime: time.Now(),
		Errors:    make([]string, 0),
	}

	defer func() {
		stats.EndTime = time.Now()
		stats.Duration = stats.EndTime.Sub(stats.StartTime)

		r.mu.Lock()
		r.running = false
		r.lastRun = stats
		r.mu.Unlock()
	}()

	r.logger.Info().Str("run_id", stats.RunID).Msg("Starting extraction run")

	companies, err := r.catalog.Companies(ctx)
	if err != nil {
		if len(companies) == 0 {
			return stats, fmt.Errorf("failed to load companies: %w", err)
		}
		r.logger.Warn().
			Err(err).
			Str("run_id", stats.RunID).
			Msg("Some catalog entries could not be loaded")
		stats.Errors = append(stats.Errors, err.Error())
	}

	for _, company := range companies {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := r.runCompany(ctx, company, stats); err != nil {
			return stats, err
		}
	}

	r.logger.Info().
		Str("run_id", stats.RunID).
		Int("companies", stats.Companies).
		Int("filings", stats.Filings).
		Int("extracted", stats.Extracted).
		Int("skipped", stats.Skipped).
		Int("absent", stats.Absent).
		Int("faults", stats.Faults).
		Dur("duration", time.Since(stats.StartTime)).
		Msg("Extraction run completed")

	return stats, nil
}

// runCompany returns an error only on context cancellation.
func (r *Runner) runCompany(ctx context.Context, company models.Company, stats *Stats) error {
	stats.Companies++

	filings, err := r.catalog.Filings(ctx, company)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("company", company.LegalName).
			Int("cvm_code", company.CVMCode).
			Msg("Some filings could not be loaded")
		stats.Errors = append(stats.Errors, err.Error())
	}
	if len(filings) == 0 {
		r.logger.Debug().Str("company", company.LegalName).Msg("No filings for company")
		return nil
	}

	scraper := r.extractor.NewScraper(company)

	for _, filing := range filings {
		if err := ctx.Err(); err != nil {
			return err
		}

		if scraper.SessionFault(filing.Source) != nil {
			stats.SessionSkipped++
			continue
		}

		stats.Filings++
		result, err := scraper.ScrapeFiling(ctx, filing)
		stats.addFiling(result)
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		stats.Faults++
		stats.Errors = append(stats.Errors, err.Error())
		r.logger.Error().
			Err(err).
			Str("company", company.LegalName).
			Int("cvm_code", company.CVMCode).
			Str("source", string(filing.Source)).
			Str("date", filing.ReferenceLabel()).
			Msg("Filing extraction stopped")
	}

	return nil
}
