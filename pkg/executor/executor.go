// Package executor decides whether a runnable has to run and runs it,
// recording a fingerprint snapshot after every successful execution.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/stagerun/pkg/models"
	"github.com/dukex/stagerun/pkg/otelhelper"
	"github.com/dukex/stagerun/pkg/persistence"
	"github.com/dukex/stagerun/pkg/persistence/file"
	"github.com/dukex/stagerun/pkg/protocol"
)

const tracerName = "github.com/dukex/stagerun/pkg/executor"

// Executor runs one runnable at a time against a run record store.
// It does not lock: callers must not execute the same id concurrently.
type Executor struct {
	store    persistence.RunRecordStore
	logger   *slog.Logger
	tracer   trace.Tracer
	forceRun bool
	dryRun   bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithForceRun makes every dependency managed runnable run regardless of its record.
func WithForceRun(force bool) Option {
	return func(e *Executor) {
		e.forceRun = force
	}
}

// WithDryRun disables running actions and any store access.
func WithDryRun(dryRun bool) Option {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// New creates an Executor backed by store.
func New(store persistence.RunRecordStore, opts ...Option) *Executor {
	e := &Executor{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		tracer: otelhelper.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With("module", "executor")

	return e
}

// NewForDir creates an Executor keeping its run records in cacheDir.
func NewForDir(cacheDir string, opts ...Option) *Executor {
	return New(file.NewRunRecordStore(cacheDir), opts...)
}

// HealthCheck reports whether the run record store is usable.
func (e *Executor) HealthCheck(ctx context.Context) error {
	return e.store.HealthCheck(ctx)
}

// RecordPath returns where the run record of r is stored.
func (e *Executor) RecordPath(r protocol.Runnable) (string, error) {
	return e.store.RecordPath(protocol.IDOf(r))
}

// Execute runs r if it is out of date and returns its status code.
//
// Under dry run nothing is run and 0 is returned. Up-to-date runnables are
// skipped with 0. A record is written only after a zero status code, so
// failures are never cached as successes. Filesystem errors raised while
// fingerprinting are returned as errors.
func (e *Executor) Execute(ctx context.Context, r protocol.Runnable) (int, error) {
	id := protocol.IDOf(r)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "executor.execute",
		attribute.String(otelhelper.RunnableIDKey, id),
		attribute.String(otelhelper.RunnableNameKey, r.Name()),
		attribute.Bool(otelhelper.DryRunKey, e.dryRun),
		attribute.Bool(otelhelper.ForceRunKey, e.forceRun),
	)
	defer span.End()

	logger := e.logger.With("runnable", id)

	if e.dryRun {
		logger.InfoContext(ctx, "Dry run, skipping runnable")

		return 0, nil
	}

	status, err := e.Classify(ctx, r)
	if err != nil {
		otelhelper.SetError(span, err)

		return 0, err
	}

	span.SetAttributes(attribute.String(otelhelper.RunStatusKey, status.String()))
	logger = logger.With("status", status)

	if !status.ShouldRun() {
		logger.InfoContext(ctx, "Runnable is up to date, skipping")

		return 0, nil
	}

	logger.InfoContext(ctx, "Running runnable")

	code, err := r.Run(ctx)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Runnable failed", "error", err)

		return code, fmt.Errorf("runnable %s failed: %w", id, err)
	}

	otelhelper.SetExitCode(span, code)

	if code != 0 {
		logger.WarnContext(ctx, "Runnable returned non-zero status, run info not stored", "exit_code", code)

		return code, nil
	}

	if status == models.RunInfoStatusNoDependencyManagement {
		return code, nil
	}

	if err := e.storeRunInfo(ctx, r); err != nil {
		otelhelper.SetError(span, err)

		return code, err
	}

	logger.DebugContext(ctx, "Run info stored")

	return code, nil
}

func (e *Executor) storeRunInfo(ctx context.Context, r protocol.Runnable) error {
	record, err := snapshot(r)
	if err != nil {
		return err
	}

	return e.store.Save(ctx, protocol.IDOf(r), record)
}
