// Package command provides a stage that runs a shell command with declared
// inputs and outputs.
package command

import (
	"os"

	"github.com/dukex/stagerun/pkg/config"
	"github.com/dukex/stagerun/pkg/protocol"
)

type CommandStageFactory struct{}

func NewCommandStageFactory() protocol.StageFactory {
	return &CommandStageFactory{}
}

func (f *CommandStageFactory) ID() string {
	return "command"
}

func (f *CommandStageFactory) Description() string {
	return "Runs a shell command in the project root, re-running only when its inputs, outputs or configuration change"
}

func (f *CommandStageFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "Identity of the command within its group",
			},
			"run": map[string]any{
				"type":        "string",
				"description": "Command executed with sh -c",
				"examples":    []string{"go build -o {{ .stage_output_dir }}/app ./cmd/app"},
			},
			"env": map[string]any{
				"type":                 "object",
				"description":          "The only environment variables visible to the command",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"inherit_path": map[string]any{
				"type":        "boolean",
				"description": "Pass the PATH of the pipeline process to the command",
				"default":     false,
			},
			"inputs": map[string]any{
				"type":        "array",
				"description": "Glob patterns relative to the project root",
				"items":       map[string]any{"type": "string"},
			},
			"outputs": map[string]any{
				"type":        "array",
				"description": "Paths relative to the stage output directory",
				"items":       map[string]any{"type": "string"},
			},
		},
		"required": []string{"run"},
	}
}

func (f *CommandStageFactory) Create(env protocol.Environment, outputDir string, cfg map[string]any) (protocol.Runnable, error) {
	settings, err := config.Decode[Config](cfg)
	if err != nil {
		return nil, err
	}

	stage := NewCommandStage(settings, env.ProjectRootDir(), outputDir, env.Logger())
	stage.Stdout = os.Stdout
	stage.Stderr = os.Stderr

	return stage, nil
}
