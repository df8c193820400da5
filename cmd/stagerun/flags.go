package main

import (
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/stagerun/pkg/cmd"
)

func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Pipeline configuration file (.yaml, .yml or .json), relative to the project dir",
			Value:   "pipeline.yaml",
			Sources: cli.EnvVars("STAGERUN_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "project-dir",
			Usage:   "Project root directory",
			Value:   ".",
			Sources: cli.EnvVars("STAGERUN_PROJECT_DIR"),
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Usage:   "Output directory, relative to the project dir",
			Value:   "build",
			Sources: cli.EnvVars("STAGERUN_OUTPUT_DIR"),
		},
		&cli.StringFlag{
			Name:    "plugins-path",
			Usage:   "Directory whose stages/ subdirectory holds stage plugins",
			Value:   "",
			Sources: cli.EnvVars("PLUGINS_PATH"),
		},
	}
}

func pipelineOptions(command *cli.Command) cmd.PipelineOptions {
	return cmd.PipelineOptions{
		ConfigFile:  command.String("config"),
		ProjectDir:  command.String("project-dir"),
		OutputDir:   command.String("output-dir"),
		PluginsPath: command.String("plugins-path"),
	}
}
