package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/go-cmp/cmp"

	"github.com/dukex/stagerun/pkg/fingerprint"
	"github.com/dukex/stagerun/pkg/models"
	"github.com/dukex/stagerun/pkg/protocol"
)

// Classify returns the staleness status that drives Execute. Runnables that
// opt out of dependency management are reported as such before anything else.
func (e *Executor) Classify(ctx context.Context, r protocol.Runnable) (models.RunInfoStatus, error) {
	if !protocol.NeedsDependencyManagement(r) {
		return models.RunInfoStatusNoDependencyManagement, nil
	}

	return e.PreviousRunInfo(ctx, r)
}

// PreviousRunInfo compares r against its stored run record.
//
// Runnables without dependency management never have a record, so they are
// always reported as no_info and the store is not consulted. An unreadable or
// corrupt record also degrades to no_info.
func (e *Executor) PreviousRunInfo(ctx context.Context, r protocol.Runnable) (models.RunInfoStatus, error) {
	if !protocol.NeedsDependencyManagement(r) {
		return models.RunInfoStatusNoInfo, nil
	}

	if e.forceRun {
		return models.RunInfoStatusForcedRun, nil
	}

	id := protocol.IDOf(r)

	record, err := e.store.Load(ctx, id)
	if err != nil {
		e.logger.WarnContext(ctx, "Ignoring unusable run info", "runnable", id, "error", err)

		return models.RunInfoStatusNoInfo, nil
	}

	if record == nil {
		return models.RunInfoStatusNoInfo, nil
	}

	return compare(r, record)
}

func compare(r protocol.Runnable, record *models.RunRecord) (models.RunInfoStatus, error) {
	if config := protocol.ConfigOf(r); config != nil {
		changed, err := configChanged(record.Config, config)
		if err != nil {
			return "", err
		}

		if changed {
			return models.RunInfoStatusConfigChanged, nil
		}
	}

	inputs := r.Inputs()
	outputs := r.Outputs()

	// A recorded input that is no longer declared (e.g. a file that left a
	// glob) is a change of the input set, not a missing file.
	missing, err := anyMissing(stillDeclared(record.Inputs, inputs), sortedKeys(record.Outputs), outputs)
	if err != nil {
		return "", err
	}

	if missing {
		return models.RunInfoStatusFileNotFound, nil
	}

	changed, err := anyChanged(record.Outputs, sortedKeys(record.Outputs))
	if err != nil {
		return "", err
	}

	if changed {
		return models.RunInfoStatusFileChanged, nil
	}

	if !samePathSet(inputs, record.Inputs) {
		return models.RunInfoStatusInputFilesChanged, nil
	}

	changed, err = anyChanged(record.Inputs, inputs)
	if err != nil {
		return "", err
	}

	if changed {
		return models.RunInfoStatusInputFilesChanged, nil
	}

	if len(inputs) == 0 && len(outputs) == 0 {
		return models.RunInfoStatusNothingToCheck, nil
	}

	return models.RunInfoStatusMatch, nil
}

// snapshot fingerprints the current inputs and outputs of r.
func snapshot(r protocol.Runnable) (*models.RunRecord, error) {
	inputs, err := fingerprint.Collect(r.Inputs())
	if err != nil {
		return nil, err
	}

	outputs, err := fingerprint.Collect(r.Outputs())
	if err != nil {
		return nil, err
	}

	record := &models.RunRecord{Inputs: inputs, Outputs: outputs}

	if config := protocol.ConfigOf(r); config != nil {
		record.Config, err = normalizeConfig(config)
		if err != nil {
			return nil, err
		}
	}

	return record, nil
}

// configChanged compares configurations by JSON value.
func configChanged(stored, current any) (bool, error) {
	normalized, err := normalizeConfig(current)
	if err != nil {
		return false, err
	}

	return !cmp.Equal(stored, normalized), nil
}

// normalizeConfig round-trips config through JSON so it compares equal to
// what a stored record decodes to.
func normalizeConfig(config any) (any, error) {
	data, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("config is not JSON serializable: %w", err)
	}

	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, fmt.Errorf("failed to normalize config: %w", err)
	}

	return normalized, nil
}

// anyMissing reports whether any of the given paths is absent from disk.
func anyMissing(pathLists ...[]string) (bool, error) {
	for _, paths := range pathLists {
		for _, p := range paths {
			exists, err := fingerprint.Exists(p)
			if err != nil {
				return false, err
			}

			if !exists {
				return true, nil
			}
		}
	}

	return false, nil
}

// anyChanged reports whether the current fingerprint of any path differs from stored.
func anyChanged(stored map[string]models.PathFingerprint, paths []string) (bool, error) {
	for _, p := range paths {
		current, err := fingerprint.Of(p)
		if err != nil {
			return false, err
		}

		if !current.Equal(stored[p]) {
			return true, nil
		}
	}

	return false, nil
}

func samePathSet(paths []string, recorded map[string]models.PathFingerprint) bool {
	seen := make(map[string]struct{}, len(paths))

	for _, p := range paths {
		if _, ok := recorded[p]; !ok {
			return false
		}

		seen[p] = struct{}{}
	}

	return len(seen) == len(recorded)
}

// stillDeclared returns the recorded paths that are also in the current list, sorted.
func stillDeclared(recorded map[string]models.PathFingerprint, current []string) []string {
	result := make([]string, 0, len(current))

	for _, p := range sortedKeys(recorded) {
		if slices.Contains(current, p) {
			result = append(result, p)
		}
	}

	return result
}

func sortedKeys(m map[string]models.PathFingerprint) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
