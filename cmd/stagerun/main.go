package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/stagerun/pkg/log"
	"github.com/dukex/stagerun/pkg/otelhelper"
	"github.com/dukex/stagerun/pkg/pipeline"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		var failed *pipeline.StageFailedError
		if errors.As(err, &failed) && failed.Code > 0 {
			os.Exit(failed.Code)
		}

		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "stagerun",
		Usage:                 "Run pipelines of stages, skipping the stages that are up to date",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewRunCommand(),
			NewStatusCommand(),
			NewValidateCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP, configured by the OTEL_EXPORTER_OTLP_* variables",
				Sources: cli.EnvVars("STAGERUN_TRACING"),
			},
		},
	}
}

// setup configures logging and, when enabled, tracing from the global flags.
// The returned function flushes pending spans.
func setup(ctx context.Context, command *cli.Command) (*slog.Logger, func(), error) {
	root := command.Root()
	logger := log.Setup(root.String("log-level"), root.String("log-format"))

	if !root.Bool("tracing") {
		return logger, func() {}, nil
	}

	tracerProvider, err := otelhelper.InitTracer(ctx, "stagerun")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	return logger, func() {
		if err := tracerProvider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}, nil
}
