// Package log provides a stage that writes a message to the pipeline log.
package log

import (
	"github.com/dukex/stagerun/pkg/config"
	"github.com/dukex/stagerun/pkg/protocol"
)

// LogStageFactory creates LogStage instances.
type LogStageFactory struct{}

// NewLogStageFactory creates a new factory instance.
func NewLogStageFactory() protocol.StageFactory {
	return &LogStageFactory{}
}

func (f *LogStageFactory) ID() string {
	return "log"
}

func (f *LogStageFactory) Description() string {
	return "Logs a message at the given level every time the pipeline runs"
}

func (f *LogStageFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log. Supports templating with the stage data.",
				"examples": []string{
					"Building {{ .project_root_dir }}",
					"Artifacts go to {{ .stage_output_dir }}",
				},
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"enum":        []string{"debug", "info", "warn", "error"},
				"default":     "info",
			},
		},
		"required": []string{"message"},
	}
}

func (f *LogStageFactory) Create(env protocol.Environment, _ string, cfg map[string]any) (protocol.Runnable, error) {
	settings, err := config.Decode[Config](cfg)
	if err != nil {
		return nil, err
	}

	return NewLogStage(settings, env.Logger()), nil
}
