// Package catalog loads the roster of companies and their filing links from a directory.
//
// Company files are <dir>/<name>.json, .yaml or .yml. Filing links of a company live next to
// them in <dir>/<cvm_code>.links.json (or .yaml/.yml) as a list of filings.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/findata/internal/interfaces"
	"github.com/ternarybob/findata/internal/models"
	"gopkg.in/yaml.v3"
)

const linksMarker = ".links."

var extensions = []string{".json", ".yaml", ".yml"}

// FileCatalog reads companies and filings from files.
type FileCatalog struct {
	dir       string
	startFrom string
	logger    arbor.ILogger
}

var _ interfaces.Catalog = (*FileCatalog)(nil)

// New creates a catalog over dir. Companies whose registry code sorts before startFrom, compared
// as strings, are left out.
func New(dir, startFrom string, logger arbor.ILogger) *FileCatalog {
	return &FileCatalog{
		dir:       dir,
		startFrom: startFrom,
		logger:    logger,
	}
}

// Companies returns the valid companies sorted by registry code. Invalid files are skipped and
// reported through the joined error, alongside the companies that did load.
func (c *FileCatalog) Companies(ctx context.Context) ([]models.Company, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	var companies []models.Company
	var errs []error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !hasCatalogExtension(name) {
			continue
		}
		if strings.Contains(name, linksMarker) {
			continue
		}

		var company models.Company
		path := filepath.Join(c.dir, name)
		if err := decodeFile(path, &company); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := company.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if c.startFrom != "" && company.Code() < c.startFrom {
			continue
		}
		companies = append(companies, company)
	}

	sort.SliceStable(companies, func(i, j int) bool {
		return companies[i].Code() < companies[j].Code()
	})

	c.logger.Debug().
		Str("dir", c.dir).
		Int("companies", len(companies)).
		Int("invalid", len(errs)).
		Msg("Catalog companies loaded")

	return companies, errors.Join(errs...)
}

// Filings returns the company's filing links in file order. A company without a links file has
// no filings. Portal names ("bovespa", "cvm") are accepted as sources. Invalid entries are skipped and reported through the joined error.
func (c *FileCatalog) Filings(_ context.Context, company models.Company) ([]models.Filing, error) {
	path, ok := c.linksFile(company)
	if !ok {
		return nil, nil
	}

	var raw []models.Filing
	if err := decodeFile(path, &raw); err != nil {
		return nil, err
	}

	filings := make([]models.Filing, 0, len(raw))
	var errs []error
	for i := range raw {
		if source, err := models.ParseSource(string(raw[i].Source)); err == nil {
			raw[i].Source = source
		}
		if err := raw[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s entry %d: %w", filepath.Base(path), i, err))
			continue
		}
		filings = append(filings, raw[i])
	}

	return filings, errors.Join(errs...)
}

func (c *FileCatalog) linksFile(company models.Company) (string, bool) {
	for _, ext := range extensions {
		path := filepath.Join(c.dir, company.Code()+".links"+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

func hasCatalogExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func decodeFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, v)
	} else {
		err = yaml.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
