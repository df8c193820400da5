package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/stagerun/pkg/executor"
	stagelog "github.com/dukex/stagerun/pkg/log"
	"github.com/dukex/stagerun/pkg/models"
	"github.com/dukex/stagerun/pkg/otelhelper"
	"github.com/dukex/stagerun/pkg/protocol"
	"github.com/dukex/stagerun/pkg/template"
)

const tracerName = "github.com/dukex/stagerun/pkg/pipeline"

// Environment is the protocol.Environment shared by the stages of a run.
type Environment struct {
	projectRootDir string
	outputDir      string
	clean          bool
	logger         *slog.Logger
}

func NewEnvironment(projectRootDir, outputDir string, clean bool, logger *slog.Logger) *Environment {
	if logger == nil {
		logger = stagelog.Discard()
	}

	return &Environment{
		projectRootDir: projectRootDir,
		outputDir:      outputDir,
		clean:          clean,
		logger:         logger,
	}
}

func (e *Environment) ProjectRootDir() string { return e.projectRootDir }
func (e *Environment) OutputDir() string      { return e.outputDir }
func (e *Environment) IsCleanRequired() bool  { return e.clean }
func (e *Environment) Logger() *slog.Logger   { return e.logger }

// StageStatus is the staleness classification of one stage.
type StageStatus struct {
	GroupName  string
	Stage      string
	ID         string
	Status     models.RunInfoStatus
	RecordPath string
	// CacheReady is false while the stage output directory holding its
	// record does not exist yet.
	CacheReady bool
}

// Runner executes resolved stages in order, each through an Executor whose
// records live in the stage output directory.
type Runner struct {
	env      protocol.Environment
	stages   []StageReference
	logger   *slog.Logger
	tracer   trace.Tracer
	runID    string
	forceRun bool
	dryRun   bool
}

type RunnerOption func(*Runner)

func WithForceRun(force bool) RunnerOption {
	return func(r *Runner) {
		r.forceRun = force
	}
}

func WithDryRun(dryRun bool) RunnerOption {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

func WithTracer(tracer trace.Tracer) RunnerOption {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithRunID tags logs and spans of the run.
func WithRunID(id string) RunnerOption {
	return func(r *Runner) {
		r.runID = id
	}
}

func NewRunner(env protocol.Environment, stages []StageReference, opts ...RunnerOption) *Runner {
	r := &Runner{
		env:    env,
		stages: stages,
		tracer: otelhelper.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.logger = stagelog.WithModule(env.Logger(), "stage_runner")
	if r.runID != "" {
		r.logger = r.logger.With("run_id", r.runID)
	}

	return r
}

// Run cleans the output directory when requested. Otherwise it runs every
// stage and stops at the first failure.
func (r *Runner) Run(ctx context.Context) error {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "pipeline.run",
		attribute.String(otelhelper.PipelineRunKey, r.runID),
		attribute.Bool(otelhelper.DryRunKey, r.dryRun),
		attribute.Bool(otelhelper.ForceRunKey, r.forceRun),
	)
	defer span.End()

	if r.env.IsCleanRequired() {
		if r.dryRun {
			r.logger.InfoContext(ctx, "Would clean the whole output directory", "output_dir", r.env.OutputDir())

			return nil
		}

		r.logger.InfoContext(ctx, "Cleaning the whole output directory", "output_dir", r.env.OutputDir())

		if err := os.RemoveAll(r.env.OutputDir()); err != nil {
			otelhelper.SetError(span, err)

			return fmt.Errorf("failed to clean output directory: %w", err)
		}

		return nil
	}

	for _, ref := range r.stages {
		if err := r.RunStage(ctx, ref); err != nil {
			otelhelper.SetError(span, err)

			return err
		}
	}

	return nil
}

// RunStage instantiates and executes a single stage.
func (r *Runner) RunStage(ctx context.Context, ref StageReference) error {
	stageOutputDir := r.stageOutputDir(ref)

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "pipeline.stage",
		attribute.String(otelhelper.StageGroupKey, ref.GroupName),
		attribute.String(otelhelper.StageIDKey, ref.Factory.ID()),
	)
	defer span.End()

	logger := r.logger.With("group", ref.GroupName, "stage", ref.Factory.ID())
	defer stagelog.TimeIt(ctx, logger, "stage "+ref.Factory.ID())()

	runnable, err := r.createStage(ref, stageOutputDir)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	if !r.dryRun {
		if err := os.MkdirAll(stageOutputDir, 0750); err != nil {
			otelhelper.SetError(span, err)

			return fmt.Errorf("failed to create stage output directory: %w", err)
		}
	}

	if ref.Timeout > 0 {
		runnable = withTimeout(runnable, ref.Timeout)
	}

	code, err := r.executor(stageOutputDir, logger).Execute(ctx, runnable)
	if err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("stage %s failed: %w", ref.Factory.ID(), err)
	}

	if code != 0 {
		failed := &StageFailedError{Group: ref.GroupName, Stage: ref.Factory.ID(), Code: code}
		otelhelper.SetError(span, failed)

		return failed
	}

	return nil
}

// Status classifies every stage without running anything.
func (r *Runner) Status(ctx context.Context) ([]StageStatus, error) {
	result := make([]StageStatus, 0, len(r.stages))

	for _, ref := range r.stages {
		stageOutputDir := r.stageOutputDir(ref)

		runnable, err := r.createStage(ref, stageOutputDir)
		if err != nil {
			return nil, err
		}

		exec := r.executor(stageOutputDir, r.logger)

		status, err := exec.Classify(ctx, runnable)
		if err != nil {
			return nil, fmt.Errorf("failed to classify stage %s: %w", ref.Factory.ID(), err)
		}

		recordPath, err := exec.RecordPath(runnable)
		if err != nil {
			return nil, err
		}

		result = append(result, StageStatus{
			GroupName:  ref.GroupName,
			Stage:      ref.Factory.ID(),
			ID:         protocol.IDOf(runnable),
			Status:     status,
			RecordPath: recordPath,
			CacheReady: exec.HealthCheck(ctx) == nil,
		})
	}

	return result, nil
}

func (r *Runner) stageOutputDir(ref StageReference) string {
	if ref.GroupName == "" {
		return r.env.OutputDir()
	}

	return filepath.Join(r.env.OutputDir(), ref.GroupName)
}

func (r *Runner) createStage(ref StageReference, stageOutputDir string) (protocol.Runnable, error) {
	cfg, err := template.RenderConfig(ref.Config, template.StageData(r.env, stageOutputDir))
	if err != nil {
		return nil, NewUserNotificationError(err, "Could not render configuration of stage '%s'", ref.Factory.ID())
	}

	runnable, err := ref.Factory.Create(r.env, stageOutputDir, cfg)
	if err != nil {
		return nil, NewUserNotificationError(err, "Could not create stage '%s'", ref.Factory.ID())
	}

	return runnable, nil
}

func (r *Runner) executor(stageOutputDir string, logger *slog.Logger) *executor.Executor {
	return executor.NewForDir(stageOutputDir,
		executor.WithForceRun(r.forceRun),
		executor.WithDryRun(r.dryRun),
		executor.WithLogger(logger),
		executor.WithTracer(r.tracer),
	)
}

// timeoutRunnable bounds the action of a runnable by a deadline while
// keeping its identity, configuration and dependency management.
type timeoutRunnable struct {
	protocol.Runnable
	timeout time.Duration
}

func withTimeout(r protocol.Runnable, timeout time.Duration) protocol.Runnable {
	return &timeoutRunnable{Runnable: r, timeout: timeout}
}

func (t *timeoutRunnable) ID() string {
	return protocol.IDOf(t.Runnable)
}

func (t *timeoutRunnable) Config() any {
	return protocol.ConfigOf(t.Runnable)
}

func (t *timeoutRunnable) NeedsDependencyManagement() bool {
	return protocol.NeedsDependencyManagement(t.Runnable)
}

func (t *timeoutRunnable) Run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	return t.Runnable.Run(ctx)
}
