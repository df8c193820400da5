// Package config provides loading, merging and validation of configuration files.
package config

import (
	"encoding/json"
	"fmt"
)

// DeepMerge merges override into base and returns a new map. Nested maps are
// merged recursively; any other override value replaces the base value.
// Neither argument is modified.
func DeepMerge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))

	for key, value := range base {
		result[key] = value
	}

	for key, value := range override {
		baseMap, baseIsMap := result[key].(map[string]any)
		overrideMap, overrideIsMap := value.(map[string]any)

		if baseIsMap && overrideIsMap {
			result[key] = DeepMerge(baseMap, overrideMap)

			continue
		}

		result[key] = value
	}

	return result
}

// Merge overlays override on base through their JSON representation.
//
// Fields omitted from the override encoding (nil pointers, maps or slices
// tagged omitempty) keep the base value; every other field of override wins,
// including zero values that are always encoded.
func Merge[T any](base, override T) (T, error) {
	var result T

	baseMap, err := toMap(base)
	if err != nil {
		return result, fmt.Errorf("failed to encode base config: %w", err)
	}

	overrideMap, err := toMap(override)
	if err != nil {
		return result, fmt.Errorf("failed to encode override config: %w", err)
	}

	data, err := json.Marshal(DeepMerge(baseMap, overrideMap))
	if err != nil {
		return result, fmt.Errorf("failed to encode merged config: %w", err)
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("failed to decode merged config: %w", err)
	}

	return result, nil
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	if m == nil {
		m = map[string]any{}
	}

	return m, nil
}
