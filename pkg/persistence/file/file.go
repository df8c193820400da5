// Package file provides file-based persistence for run records.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/dukex/stagerun/pkg/models"
	"github.com/dukex/stagerun/pkg/persistence"
)

// RecordExtension is the suffix of every run record file.
const RecordExtension = ".deps"

// maxEscapedIDLen bounds the escaped id part of a record file name. Longer
// names are truncated and suffixed with a hash of the full id, which keeps
// record and temp file names under common 255 byte filesystem limits.
const maxEscapedIDLen = 200

// RunRecordStore implements persistence.RunRecordStore with one JSON file per id.
//
// Structure:
//
//	{root}/
//	  {escaped id}.deps
type RunRecordStore struct {
	root string
}

var _ persistence.RunRecordStore = (*RunRecordStore)(nil)

// NewRunRecordStore creates a store rooted at the given cache directory.
func NewRunRecordStore(root string) *RunRecordStore {
	return &RunRecordStore{root: strings.Replace(root, "file://", "", 1)}
}

// RecordPath returns {root}/{escaped id}.deps. Escaping is injective, so
// distinct ids never share a file and no id can leave the cache directory.
// Escaped ids longer than maxEscapedIDLen are truncated and suffixed with a
// hash of the full id.
func (s *RunRecordStore) RecordPath(id string) (string, error) {
	if id == "" {
		return "", persistence.NewRecordError("RecordPath", id, persistence.ErrInvalidRecordID)
	}

	return filepath.Join(s.root, escapeID(id)+RecordExtension), nil
}

// Load retrieves the record for id. It returns nil, nil when no record exists.
func (s *RunRecordStore) Load(_ context.Context, id string) (*models.RunRecord, error) {
	filePath, err := s.RecordPath(id)
	if err != nil {
		return nil, err
	}

	body, err := os.ReadFile(filePath) // #nosec G304 -- filePath is built from an escaped id
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, persistence.NewRecordError("Load", id, err)
	}

	record := models.NewRunRecord()

	err = json.Unmarshal(body, record)
	if err != nil {
		return nil, persistence.NewRecordError("Load", id, fmt.Errorf("%w: %v", persistence.ErrRecordCorrupt, err))
	}

	// Explicit nulls reset the maps.
	if record.Inputs == nil {
		record.Inputs = make(map[string]models.PathFingerprint)
	}

	if record.Outputs == nil {
		record.Outputs = make(map[string]models.PathFingerprint)
	}

	return record, nil
}

// Save replaces the record for id. The new content is written to a temporary
// file in the cache directory and renamed into place, so a crash leaves either
// the previous record or the new one.
func (s *RunRecordStore) Save(_ context.Context, id string, record *models.RunRecord) error {
	if record == nil {
		return persistence.NewRecordError("Save", id, errors.New("record is nil"))
	}

	filePath, err := s.RecordPath(id)
	if err != nil {
		return err
	}

	err = os.MkdirAll(s.root, 0750)
	if err != nil {
		return persistence.NewRecordError("Save", id, fmt.Errorf("failed to create cache directory: %w", err))
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return persistence.NewRecordError("Save", id, fmt.Errorf("failed to marshal record: %w", err))
	}

	if err := writeFileAtomic(filePath, data, 0600); err != nil {
		return persistence.NewRecordError("Save", id, err)
	}

	return nil
}

// HealthCheck verifies the cache directory exists and is a directory.
func (s *RunRecordStore) HealthCheck(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("cache path %s is not a directory", s.root)
	}

	return nil
}

// escapeID percent-encodes separators and '%' itself. Short results are
// reversible. Long results are cut at a whole escape sequence and carry the
// xxhash of the full id; they are always longer than maxEscapedIDLen, so they
// never equal the escaped form of a short id.
func escapeID(id string) string {
	escaped := url.PathEscape(id)
	if len(escaped) <= maxEscapedIDLen {
		return escaped
	}

	cut := maxEscapedIDLen
	switch {
	case escaped[cut-1] == '%':
		cut--
	case escaped[cut-2] == '%':
		cut -= 2
	}

	return fmt.Sprintf("%s-%016x", escaped[:cut], xxhash.Sum64String(id))
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to commit record: %w", err)
	}

	return nil
}
