package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
)

// Persister stores and restores the full asset collection as one snapshot.
type Persister interface {
	Load() ([]models.AssetRecord, error)
	Save(records []models.AssetRecord) error
}

// FilePersister keeps the snapshot in a JSON file, rewritten atomically on every save.
type FilePersister struct {
	path string
}

var _ Persister = (*FilePersister)(nil)

// NewFilePersister creates a persister for the given file path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the snapshot file path.
func (p *FilePersister) Path() string {
	return p.path
}

// ReadSnapshot decodes the snapshot at path without modifying it.
// A missing or blank file yields an empty collection.
func ReadSnapshot(path string) ([]models.AssetRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []models.AssetRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, path, err)
	}
	return records, nil
}

// Load reads the snapshot. A corrupt file is moved aside to <path>.bak and
// ErrCorruptSnapshot is returned so the caller can start empty.
func (p *FilePersister) Load() ([]models.AssetRecord, error) {
	records, err := ReadSnapshot(p.path)
	if errors.Is(err, ErrCorruptSnapshot) {
		backup := p.path + ".bak"
		if renameErr := os.Rename(p.path, backup); renameErr != nil {
			return nil, fmt.Errorf("quarantine %s: %w", p.path, renameErr)
		}
		return nil, fmt.Errorf("%w (moved to %s)", err, backup)
	}
	return records, err
}

// Save writes the records to a temporary file and renames it over the snapshot.
func (p *FilePersister) Save(records []models.AssetRecord) error {
	if records == nil {
		records = []models.AssetRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
