// Package filestore persists one JSON artifact per extraction target on the local filesystem.
//
// Layout: <data_dir>/<cvm_code>/<yyyy-mm-dd>/<category>[.<scope>].json
//
// Freshness is judged solely from file existence and modification time. Writes go through a
// temporary file and a rename, so a crashed run leaves either the previous artifact or none,
// never a truncated one.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/findata/internal/interfaces"
	"github.com/ternarybob/findata/internal/models"
)

const dateDirLayout = "2006-01-02"

// Store is a file-backed artifact store.
type Store struct {
	dataDir string
	logger  arbor.ILogger
}

var _ interfaces.ArtifactStore = (*Store)(nil)

// New creates the store, creating dataDir if needed.
func New(dataDir string, logger arbor.ILogger) (*Store, error) {
	if dataDir == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dataDir: dataDir, logger: logger}, nil
}

// DataDir returns the root directory.
func (s *Store) DataDir() string {
	return s.dataDir
}

// Path returns the artifact path of a target.
func (s *Store) Path(target models.Target) string {
	name := string(target.Category)
	if target.Scope != "" {
		name += "." + string(target.Scope)
	}
	return filepath.Join(s.dataDir,
		target.Company.Code(),
		target.Filing.ReferenceDate.Format(dateDirLayout),
		name+".json")
}

// State reports whether the artifact exists and when it was last written.
func (s *Store) State(_ context.Context, target models.Target) (models.ArtifactState, error) {
	info, err := os.Stat(s.Path(target))
	if errors.Is(err, fs.ErrNotExist) {
		return models.ArtifactState{}, nil
	}
	if err != nil {
		return models.ArtifactState{}, fmt.Errorf("failed to stat artifact: %w", err)
	}
	return models.ArtifactState{Exists: true, LastWrite: info.ModTime()}, nil
}

// SaveRecord writes a statement record.
func (s *Store) SaveRecord(_ context.Context, target models.Target, record *models.FinancialRecord) error {
	if !target.Category.IsStatement() {
		return fmt.Errorf("target %s is not a statement", target)
	}
	return s.write(target, record)
}

// SaveCapital writes a capital composition.
func (s *Store) SaveCapital(_ context.Context, target models.Target, capital *models.CapitalComposition) error {
	if target.Category != models.CategoryCapital {
		return fmt.Errorf("target %s is not capital composition", target)
	}
	return s.write(target, capital)
}

// LoadRecord reads a statement record back.
func (s *Store) LoadRecord(_ context.Context, target models.Target) (*models.FinancialRecord, error) {
	var record models.FinancialRecord
	if err := s.read(target, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// LoadCapital reads a capital composition back.
func (s *Store) LoadCapital(_ context.Context, target models.Target) (*models.CapitalComposition, error) {
	var capital models.CapitalComposition
	if err := s.read(target, &capital); err != nil {
		return nil, err
	}
	return &capital, nil
}

func (s *Store) write(target models.Target, value interface{}) error {
	path := s.Path(target)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}

	s.logger.Debug().
		Str("path", path).
		Int("bytes", len(data)).
		Msg("Artifact saved")

	return nil
}

func (s *Store) read(target models.Target, value interface{}) error {
	data, err := os.ReadFile(s.Path(target))
	if errors.Is(err, fs.ErrNotExist) {
		return interfaces.ErrArtifactNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("failed to decode artifact %s: %w", s.Path(target), err)
	}
	return nil
}
