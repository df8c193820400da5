// Package filewrite provides a stage that writes configured content to a file
// in its output directory.
package filewrite

import (
	"github.com/dukex/stagerun/pkg/config"
	"github.com/dukex/stagerun/pkg/protocol"
)

type FileWriteStageFactory struct{}

func NewFileWriteStageFactory() protocol.StageFactory {
	return &FileWriteStageFactory{}
}

func (f *FileWriteStageFactory) ID() string {
	return "file_write"
}

func (f *FileWriteStageFactory) Description() string {
	return "Writes content to a file in the stage output directory, skipping the write while content and file are unchanged"
}

func (f *FileWriteStageFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_name": map[string]any{
				"type":        "string",
				"description": "Name of the file, relative to the stage output directory",
				"examples":    []string{"version.txt", "generated/config.json"},
			},
			"content": map[string]any{
				"type":        "string",
				"description": "File content. Supports templating with the stage data.",
			},
		},
		"required": []string{"file_name"},
	}
}

func (f *FileWriteStageFactory) Create(env protocol.Environment, outputDir string, cfg map[string]any) (protocol.Runnable, error) {
	settings, err := config.Decode[Config](cfg)
	if err != nil {
		return nil, err
	}

	return NewFileWriteStage(settings, outputDir, env.Logger()), nil
}
