// Package fingerprint computes change-detection signatures for filesystem paths.
package fingerprint

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/dukex/stagerun/pkg/models"
)

// Of returns the fingerprint of path.
//
// A missing path is not an error: it yields a fingerprint with Exists set to
// false. Any other stat or read failure is returned to the caller.
func Of(path string) (models.PathFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.PathFingerprint{}, nil
		}

		return models.PathFingerprint{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		return models.PathFingerprint{Exists: true, IsDir: true}, nil
	}

	digest, err := digestFile(path)
	if err != nil {
		return models.PathFingerprint{}, err
	}

	return models.PathFingerprint{
		Exists:  true,
		Size:    info.Size(),
		ModTime: info.ModTime().UnixNano(),
		Digest:  digest,
	}, nil
}

// Collect fingerprints every path, keyed by the path string as given.
func Collect(paths []string) (map[string]models.PathFingerprint, error) {
	result := make(map[string]models.PathFingerprint, len(paths))

	for _, p := range paths {
		fp, err := Of(p)
		if err != nil {
			return nil, err
		}

		result[p] = fp
	}

	return result, nil
}

// Exists reports whether path is present on disk.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- paths are declared by the runnable
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return strconv.FormatUint(h.Sum64(), 16), nil
}
