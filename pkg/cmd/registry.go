// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/stagerun/pkg/registry"
)

// NewRegistry returns a registry holding the builtin stages and, when
// pluginsPath is set, the stage plugins found below it.
func NewRegistry(logger *slog.Logger, pluginsPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultStages()

	if pluginsPath == "" {
		return reg, nil
	}

	if _, err := reg.LoadPluginDir(pluginsPath); err != nil {
		return nil, fmt.Errorf("failed to load stage plugins: %w", err)
	}

	return reg, nil
}
