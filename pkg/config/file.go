package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for configuration files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// LoadFile decodes a .json, .yaml or .yml file into a new T.
func LoadFile[T any](path string) (T, error) {
	var result T

	data, err := os.ReadFile(path) // #nosec G304 -- config paths come from the operator
	if err != nil {
		return result, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch filepath.Ext(path) {
	case ".json":
		err = json.Unmarshal(data, &result)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &result)
	default:
		return result, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if err != nil {
		return result, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return result, nil
}

// SaveFile encodes v to path, choosing the format from the file extension.
func SaveFile(path string, v any) error {
	var (
		data []byte
		err  error
	)

	switch filepath.Ext(path) {
	case ".json":
		data, err = json.MarshalIndent(v, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}
