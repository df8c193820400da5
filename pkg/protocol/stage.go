package protocol

import "log/slog"

// Environment holds the context shared by every stage of a pipeline run.
type Environment interface {
	ProjectRootDir() string
	OutputDir() string
	IsCleanRequired() bool
	Logger() *slog.Logger
}

// StageFactory creates pipeline stages. Factories are registered natively or
// exported from Go plugins under a stable string key.
type StageFactory interface {
	ID() string
	Description() string

	// Schema returns the JSON schema of the stage configuration, or nil.
	Schema() map[string]any

	// Create builds a stage that writes its outputs below outputDir.
	Create(env Environment, outputDir string, config map[string]any) (Runnable, error)
}
