package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/stagerun/pkg/cmd"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the pipeline configuration and the configuration of every stage",
		Flags:   pipelineFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			logger, shutdown, err := setup(ctx, command)
			if err != nil {
				return err
			}
			defer shutdown()

			_, stages, err := cmd.LoadStages(logger.With("action", "validate"), pipelineOptions(command))
			if err != nil {
				return err
			}

			out := command.Root().Writer

			for _, stage := range stages {
				label := stage.Factory.ID()
				if stage.GroupName != "" {
					label = stage.GroupName + "/" + label
				}

				_, _ = fmt.Fprintf(out, "  %s: %s\n", label, stage.Factory.Description())
			}

			_, _ = fmt.Fprintf(out, "Pipeline is valid: %d stages\n", len(stages))

			return nil
		},
	}
}
