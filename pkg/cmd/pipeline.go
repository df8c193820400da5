package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dukex/stagerun/pkg/pipeline"
)

// PipelineOptions are the settings shared by the commands operating on a pipeline.
type PipelineOptions struct {
	ConfigFile  string
	ProjectDir  string
	OutputDir   string
	PluginsPath string
	Clean       bool
}

// resolve fills in the defaults: the project dir is the current directory,
// relative config and output paths are relative to the project dir and the
// output dir defaults to "build".
func (o PipelineOptions) resolve() (PipelineOptions, error) {
	projectDir := o.ProjectDir
	if projectDir == "" {
		projectDir = "."
	}

	projectDir, err := filepath.Abs(projectDir)
	if err != nil {
		return o, fmt.Errorf("failed to resolve project dir: %w", err)
	}

	o.ProjectDir = projectDir

	if o.OutputDir == "" {
		o.OutputDir = "build"
	}

	if !filepath.IsAbs(o.OutputDir) {
		o.OutputDir = filepath.Join(projectDir, o.OutputDir)
	}

	if o.ConfigFile == "" {
		o.ConfigFile = "pipeline.yaml"
	}

	if !filepath.IsAbs(o.ConfigFile) {
		o.ConfigFile = filepath.Join(projectDir, o.ConfigFile)
	}

	return o, nil
}

// LoadStages reads the pipeline configuration and resolves its stages.
func LoadStages(logger *slog.Logger, opts PipelineOptions) (*pipeline.Environment, []pipeline.StageReference, error) {
	opts, err := opts.resolve()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := pipeline.LoadConfigFile(opts.ConfigFile)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("Loaded pipeline configuration", "path", opts.ConfigFile, "pipeline", cfg.String())

	reg, err := NewRegistry(logger, opts.PluginsPath)
	if err != nil {
		return nil, nil, err
	}

	stages, err := pipeline.NewLoader(cfg, opts.ProjectDir, reg).LoadStages()
	if err != nil {
		return nil, nil, err
	}

	return pipeline.NewEnvironment(opts.ProjectDir, opts.OutputDir, opts.Clean, logger), stages, nil
}
