package config

import (
	"encoding/json"
	"fmt"
)

// Decode converts a generic config map into T through its JSON encoding and
// validates the result.
func Decode[T any](m map[string]any) (T, error) {
	var result T

	if m == nil {
		m = map[string]any{}
	}

	data, err := json.Marshal(m)
	if err != nil {
		return result, fmt.Errorf("failed to encode config: %w", err)
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(result); err != nil {
		return result, err
	}

	return result, nil
}
