package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/stagerun/pkg/cmd"
	"github.com/dukex/stagerun/pkg/pipeline"
)

func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show whether each stage of the pipeline would run",
		Flags: pipelineFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			logger, shutdown, err := setup(ctx, command)
			if err != nil {
				return err
			}
			defer shutdown()

			env, stages, err := cmd.LoadStages(logger, pipelineOptions(command))
			if err != nil {
				return err
			}

			statuses, err := pipeline.NewRunner(env, stages).Status(ctx)
			if err != nil {
				return err
			}

			out := command.Root().Writer

			for _, status := range statuses {
				action := "skip"
				if status.Status.ShouldRun() {
					action = "run"
				}

				cache := "cache:ok"
				if !status.CacheReady {
					cache = "cache:missing"
				}

				_, _ = fmt.Fprintf(out, "%-24s %-24s %-26s %-14s %s\n", stageLabel(status), status.ID, status.Status, cache, action)
			}

			return nil
		},
	}
}

func stageLabel(status pipeline.StageStatus) string {
	if status.GroupName == "" {
		return status.Stage
	}

	return status.GroupName + "/" + status.Stage
}
