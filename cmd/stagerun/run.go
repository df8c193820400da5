package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/stagerun/pkg/cmd"
	"github.com/dukex/stagerun/pkg/pipeline"
)

func NewRunCommand() *cli.Command {
	flags := append(pipelineFlags(),
		&cli.BoolFlag{
			Name:  "force-run",
			Usage: "Run every stage regardless of its recorded state",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Resolve the stages without running them",
		},
		&cli.BoolFlag{
			Name:  "clean",
			Usage: "Remove the output directory instead of running the stages",
		},
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Run the stages of the pipeline that are out of date",
		Flags: flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			logger, shutdown, err := setup(ctx, command)
			if err != nil {
				return err
			}
			defer shutdown()

			runID := fmt.Sprintf("run-%s", uuid.New().String()[:8])
			logger = logger.With("run_id", runID)

			opts := pipelineOptions(command)
			opts.Clean = command.Bool("clean")

			env, stages, err := cmd.LoadStages(logger, opts)
			if err != nil {
				return err
			}

			logger.Info("Running pipeline", "stages", len(stages), "output_dir", env.OutputDir())

			runner := pipeline.NewRunner(env, stages,
				pipeline.WithRunID(runID),
				pipeline.WithForceRun(command.Bool("force-run")),
				pipeline.WithDryRun(command.Bool("dry-run")),
			)

			return runner.Run(ctx)
		},
	}
}
