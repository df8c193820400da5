package executor

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dukex/stagerun/pkg/models"
	"github.com/dukex/stagerun/pkg/otelhelper"
	"github.com/dukex/stagerun/pkg/protocol"
)

// myRunnable counts how often it runs and returns a fixed status code.
type myRunnable struct {
	inputs    []string
	outputs   []string
	config    any
	code      int
	err       error
	unmanaged bool
	runs      int
}

func (r *myRunnable) Name() string      { return "MyRunnable" }
func (r *myRunnable) Inputs() []string  { return r.inputs }
func (r *myRunnable) Outputs() []string { return r.outputs }
func (r *myRunnable) Config() any       { return r.config }

func (r *myRunnable) NeedsDependencyManagement() bool { return !r.unmanaged }

func (r *myRunnable) Run(context.Context) (int, error) {
	r.runs++

	return r.code, r.err
}

func newExecutor(t *testing.T, opts ...Option) (*Executor, string) {
	t.Helper()

	cacheDir := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.Mkdir(cacheDir, 0750))

	return NewForDir(cacheDir, opts...), cacheDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func classify(t *testing.T, e *Executor, r protocol.Runnable) models.RunInfoStatus {
	t.Helper()

	status, err := e.PreviousRunInfo(t.Context(), r)
	require.NoError(t, err)

	return status
}

func execute(t *testing.T, e *Executor, r protocol.Runnable) int {
	t.Helper()

	code, err := e.Execute(t.Context(), r)
	require.NoError(t, err)

	return code
}

func TestExecutor_NoPreviousInfo(t *testing.T) {
	e, _ := newExecutor(t)

	assert.Equal(t, models.RunInfoStatusNoInfo, classify(t, e, &myRunnable{}))
}

func TestExecutor_PreviousInfoMatches(t *testing.T) {
	e, cacheDir := newExecutor(t)
	dir := t.TempDir()

	input := filepath.Join(dir, "input.txt")
	output := filepath.Join(dir, "output.txt")
	writeFile(t, input, "input")
	writeFile(t, output, "output")

	r := &myRunnable{inputs: []string{input}, outputs: []string{output}}
	assert.Equal(t, 0, execute(t, e, r))
	assert.Equal(t, models.RunInfoStatusMatch, classify(t, e, r))

	forced := NewForDir(cacheDir, WithForceRun(true))
	assert.Equal(t, models.RunInfoStatusForcedRun, classify(t, forced, r))
}

func TestExecutor_SecondRunIsSkipped(t *testing.T) {
	e, _ := newExecutor(t)
	dir := t.TempDir()

	input := filepath.Join(dir, "input.txt")
	output := filepath.Join(dir, "output.txt")
	writeFile(t, input, "input")
	writeFile(t, output, "output")

	r := &myRunnable{inputs: []string{input}, outputs: []string{output}}
	execute(t, e, r)
	execute(t, e, r)

	assert.Equal(t, 1, r.runs)
}

func TestExecutor_ForceRunOverridesMatchingRecord(t *testing.T) {
	e, cacheDir := newExecutor(t)

	input := filepath.Join(t.TempDir(), "input.txt")
	writeFile(t, input, "input")

	r := &myRunnable{inputs: []string{input}}
	execute(t, e, r)
	require.Equal(t, models.RunInfoStatusMatch, classify(t, e, r))

	forced := NewForDir(cacheDir, WithForceRun(true))
	execute(t, forced, r)

	assert.Equal(t, 2, r.runs)
}

func TestExecutor_InputContentChanged(t *testing.T) {
	e, _ := newExecutor(t)

	input := filepath.Join(t.TempDir(), "input.txt")
	writeFile(t, input, "input")

	r := &myRunnable{inputs: []string{input}}
	execute(t, e, r)

	writeFile(t, input, "changed")
	assert.Equal(t, models.RunInfoStatusInputFilesChanged, classify(t, e, r))
}

func TestExecutor_OutputContentChanged(t *testing.T) {
	e, _ := newExecutor(t)
	dir := t.TempDir()

	input := filepath.Join(dir, "a.txt")
	output := filepath.Join(dir, "b.txt")
	writeFile(t, input, "input")
	writeFile(t, output, "output")

	r := &myRunnable{inputs: []string{input}, outputs: []string{output}}
	execute(t, e, r)

	writeFile(t, output, "tampered")
	assert.Equal(t, models.RunInfoStatusFileChanged, classify(t, e, r))
}

func TestExecutor_OutputChangeWinsOverInputChange(t *testing.T) {
	e, _ := newExecutor(t)
	dir := t.TempDir()

	input := filepath.Join(dir, "a.txt")
	output := filepath.Join(dir, "b.txt")
	writeFile(t, input, "input")
	writeFile(t, output, "output")

	r := &myRunnable{inputs: []string{input}, outputs: []string{output}}
	execute(t, e, r)

	writeFile(t, input, "changed input")
	writeFile(t, output, "changed output")
	assert.Equal(t, models.RunInfoStatusFileChanged, classify(t, e, r))
}

func TestExecutor_ConfigChangeWinsOverMissingOutput(t *testing.T) {
	e, _ := newExecutor(t)

	output := filepath.Join(t.TempDir(), "output.txt")
	writeFile(t, output, "output")

	r := &myRunnable{outputs: []string{output}, config: map[string]any{"target": "a"}}
	execute(t, e, r)

	require.NoError(t, os.Remove(output))
	r.config = map[string]any{"target": "b"}
	assert.Equal(t, models.RunInfoStatusConfigChanged, classify(t, e, r))
}

func TestExecutor_MissingOutputWinsOverChangedOutput(t *testing.T) {
	e, _ := newExecutor(t)
	dir := t.TempDir()

	removed := filepath.Join(dir, "a.txt")
	modified := filepath.Join(dir, "b.txt")
	writeFile(t, removed, "a")
	writeFile(t, modified, "b")

	r := &myRunnable{outputs: []string{removed, modified}}
	execute(t, e, r)

	require.NoError(t, os.Remove(removed))
	writeFile(t, modified, "changed")
	assert.Equal(t, models.RunInfoStatusFileNotFound, classify(t, e, r))
}

func TestExecutor_FileRemoved(t *testing.T) {
	e, _ := newExecutor(t)

	output := filepath.Join(t.TempDir(), "output.txt")
	writeFile(t, output, "output")

	r := &myRunnable{outputs: []string{output}}
	execute(t, e, r)

	require.NoError(t, os.Remove(output))
	assert.Equal(t, models.RunInfoStatusFileNotFound, classify(t, e, r))
}

func TestExecutor_DirectoryExists(t *testing.T) {
	e, _ := newExecutor(t)
	dir := t.TempDir()

	inputDir := filepath.Join(dir, "input_dir")
	outputDir := filepath.Join(dir, "output_dir")
	require.NoError(t, os.Mkdir(inputDir, 0750))
	require.NoError(t, os.Mkdir(outputDir, 0750))

	r := &myRunnable{inputs: []string{inputDir}, outputs: []string{outputDir}}
	execute(t, e, r)

	assert.Equal(t, models.RunInfoStatusMatch, classify(t, e, r))
}

func TestExecutor_DirectoryRemoved(t *testing.T) {
	e, _ := newExecutor(t)
	dir := t.TempDir()

	inputDir := filepath.Join(dir, "input_dir")
	outputDir := filepath.Join(dir, "output_dir")
	require.NoError(t, os.Mkdir(inputDir, 0750))
	require.NoError(t, os.Mkdir(outputDir, 0750))

	r := &myRunnable{inputs: []string{inputDir}, outputs: []string{outputDir}}
	execute(t, e, r)

	require.NoError(t, os.Remove(inputDir))
	assert.Equal(t, models.RunInfoStatusFileNotFound, classify(t, e, r))
}

func TestExecutor_MixedFilesAndDirectories(t *testing.T) {
	e, _ := newExecutor(t)
	dir := t.TempDir()

	inputFile := filepath.Join(dir, "input.txt")
	inputDir := filepath.Join(dir, "input_dir")
	outputFile := filepath.Join(dir, "output.txt")
	outputDir := filepath.Join(dir, "output_dir")
	writeFile(t, inputFile, "input")
	require.NoError(t, os.Mkdir(inputDir, 0750))
	writeFile(t, outputFile, "output")
	require.NoError(t, os.Mkdir(outputDir, 0750))

	r := &myRunnable{inputs: []string{inputFile, inputDir}, outputs: []string{outputFile, outputDir}}
	execute(t, e, r)

	assert.Equal(t, models.RunInfoStatusMatch, classify(t, e, r))
}

func TestExecutor_NoInputsAndNoOutputs(t *testing.T) {
	e, _ := newExecutor(t)

	r := &myRunnable{}
	execute(t, e, r)

	assert.Equal(t, models.RunInfoStatusNothingToCheck, classify(t, e, r))

	execute(t, e, r)
	assert.Equal(t, 1, r.runs)
}

func TestExecutor_GlobInputsAreRecomputed(t *testing.T) {
	e, _ := newExecutor(t)
	srcDir := t.TempDir()

	writeFile(t, filepath.Join(srcDir, "a.c"), "a")
	writeFile(t, filepath.Join(srcDir, "b.c"), "b")

	r := &protocol.Task{
		TaskName: "compile",
		InputsFunc: func() []string {
			matches, err := filepath.Glob(filepath.Join(srcDir, "*.c"))
			require.NoError(t, err)

			return matches
		},
	}

	execute(t, e, r)
	require.Equal(t, models.RunInfoStatusMatch, classify(t, e, r))

	writeFile(t, filepath.Join(srcDir, "c.c"), "c")
	assert.Equal(t, models.RunInfoStatusInputFilesChanged, classify(t, e, r))

	execute(t, e, r)
	require.Equal(t, models.RunInfoStatusMatch, classify(t, e, r))

	require.NoError(t, os.Remove(filepath.Join(srcDir, "a.c")))
	assert.Equal(t, models.RunInfoStatusInputFilesChanged, classify(t, e, r))
}

func TestExecutor_DeclaredInputRemoved(t *testing.T) {
	e, _ := newExecutor(t)

	input := filepath.Join(t.TempDir(), "input.txt")
	writeFile(t, input, "input")

	r := &myRunnable{inputs: []string{input}}
	execute(t, e, r)

	require.NoError(t, os.Remove(input))
	assert.Equal(t, models.RunInfoStatusFileNotFound, classify(t, e, r))
}

func TestExecutor_InputSetShrinksWithoutDeletion(t *testing.T) {
	e, _ := newExecutor(t)
	dir := t.TempDir()

	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	writeFile(t, a, "a")
	writeFile(t, b, "b")

	r := &myRunnable{inputs: []string{a, b}}
	execute(t, e, r)

	r.inputs = []string{a}
	assert.Equal(t, models.RunInfoStatusInputFilesChanged, classify(t, e, r))
}

func TestExecutor_DryRun(t *testing.T) {
	_, cacheDir := newExecutor(t)

	r := &myRunnable{code: 1}

	dry := NewForDir(cacheDir, WithDryRun(true))
	assert.Equal(t, 0, execute(t, dry, r))
	assert.Equal(t, 0, r.runs)

	path, err := dry.RecordPath(r)
	require.NoError(t, err)
	assert.NoFileExists(t, path)

	wet := NewForDir(cacheDir)
	assert.Equal(t, 1, execute(t, wet, r))
	assert.Equal(t, 1, r.runs)
}

func TestExecutor_DryRunSkipsUnmanagedRunnables(t *testing.T) {
	e, _ := newExecutor(t, WithDryRun(true))

	r := &myRunnable{unmanaged: true, code: 2}
	assert.Equal(t, 0, execute(t, e, r))
	assert.Equal(t, 0, r.runs)
}

func TestExecutor_NoDependencyManagement(t *testing.T) {
	e, _ := newExecutor(t)

	r := &myRunnable{unmanaged: true, code: 2}
	assert.Equal(t, 2, execute(t, e, r))
	assert.Equal(t, models.RunInfoStatusNoInfo, classify(t, e, r))

	status, err := e.Classify(t.Context(), r)
	require.NoError(t, err)
	assert.Equal(t, models.RunInfoStatusNoDependencyManagement, status)

	r.code = 0
	execute(t, e, r)
	execute(t, e, r)
	assert.Equal(t, 3, r.runs)

	path, err := e.RecordPath(r)
	require.NoError(t, err)
	assert.NoFileExists(t, path)
	assert.Equal(t, models.RunInfoStatusNoInfo, classify(t, e, r))
}

func TestExecutor_NoDependencyManagementIgnoresForceRun(t *testing.T) {
	e, _ := newExecutor(t, WithForceRun(true))

	r := &myRunnable{unmanaged: true}
	assert.Equal(t, models.RunInfoStatusNoInfo, classify(t, e, r))
}

func TestExecutor_FailureIsNotCached(t *testing.T) {
	e, _ := newExecutor(t)

	input := filepath.Join(t.TempDir(), "input.txt")
	writeFile(t, input, "input")

	r := &myRunnable{inputs: []string{input}, code: 3}
	assert.Equal(t, 3, execute(t, e, r))
	assert.Equal(t, models.RunInfoStatusNoInfo, classify(t, e, r))

	path, err := e.RecordPath(r)
	require.NoError(t, err)
	assert.NoFileExists(t, path)
}

func TestExecutor_FailureKeepsPreviousRecord(t *testing.T) {
	e, _ := newExecutor(t)

	input := filepath.Join(t.TempDir(), "input.txt")
	writeFile(t, input, "input")

	r := &myRunnable{inputs: []string{input}}
	execute(t, e, r)

	writeFile(t, input, "changed")
	r.code = 1
	assert.Equal(t, 1, execute(t, e, r))

	// The record still describes the last successful run.
	assert.Equal(t, models.RunInfoStatusInputFilesChanged, classify(t, e, r))
}

func TestExecutor_ActionErrorIsPropagatedAndNotCached(t *testing.T) {
	e, _ := newExecutor(t)

	boom := errors.New("boom")
	r := &myRunnable{err: boom}

	_, err := e.Execute(t.Context(), r)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, models.RunInfoStatusNoInfo, classify(t, e, r))
}

func TestExecutor_ConfigChanged(t *testing.T) {
	e, _ := newExecutor(t)

	input := filepath.Join(t.TempDir(), "input.txt")
	writeFile(t, input, "input")

	r := &myRunnable{inputs: []string{input}, config: map[string]string{"key": "value"}}
	execute(t, e, r)
	assert.Equal(t, models.RunInfoStatusMatch, classify(t, e, r))

	changed := &myRunnable{inputs: []string{input}, config: map[string]string{"key": "new_value"}}
	assert.Equal(t, models.RunInfoStatusConfigChanged, classify(t, e, changed))
}

func TestExecutor_ConfigComparedByValue(t *testing.T) {
	e, _ := newExecutor(t)

	type options struct {
		Level int      `json:"level"`
		Flags []string `json:"flags"`
	}

	r := &myRunnable{config: options{Level: 2, Flags: []string{"-v"}}}
	execute(t, e, r)

	same := &myRunnable{config: map[string]any{"level": 2, "flags": []any{"-v"}}}
	assert.Equal(t, models.RunInfoStatusNothingToCheck, classify(t, e, same))
}

func TestExecutor_ConfigAddedAfterRun(t *testing.T) {
	e, _ := newExecutor(t)

	input := filepath.Join(t.TempDir(), "input.txt")
	writeFile(t, input, "input")

	r := &myRunnable{inputs: []string{input}}
	execute(t, e, r)

	r.config = map[string]string{"key": "value"}
	assert.Equal(t, models.RunInfoStatusConfigChanged, classify(t, e, r))
}

func TestExecutor_ConfigRemovedAfterRun(t *testing.T) {
	e, _ := newExecutor(t)

	input := filepath.Join(t.TempDir(), "input.txt")
	writeFile(t, input, "input")

	r := &myRunnable{inputs: []string{input}, config: map[string]string{"key": "value"}}
	execute(t, e, r)

	r.config = nil
	assert.Equal(t, models.RunInfoStatusMatch, classify(t, e, r))
}

func TestExecutor_ConfigStored(t *testing.T) {
	e, _ := newExecutor(t)

	input := filepath.Join(t.TempDir(), "input.txt")
	writeFile(t, input, "input")

	r := &myRunnable{inputs: []string{input}, config: map[string]string{"key": "value"}}
	execute(t, e, r)

	raw := readRecord(t, e, r)
	assert.Equal(t, map[string]any{"key": "value"}, raw["config"])
}

func TestExecutor_ConfigNotStoredIfNil(t *testing.T) {
	e, _ := newExecutor(t)

	input := filepath.Join(t.TempDir(), "input.txt")
	writeFile(t, input, "input")

	r := &myRunnable{inputs: []string{input}}
	execute(t, e, r)

	raw := readRecord(t, e, r)
	assert.NotContains(t, raw, "config")
}

func TestExecutor_UnserializableConfigIsAnError(t *testing.T) {
	e, _ := newExecutor(t)

	r := &myRunnable{config: map[string]any{"fn": func() {}}}

	_, err := e.Execute(t.Context(), r)
	require.Error(t, err)
	assert.Equal(t, 1, r.runs, "the action runs on no_info; storing the record fails")
}

func TestExecutor_CorruptRecordDegradesToNoInfo(t *testing.T) {
	e, _ := newExecutor(t)

	r := &myRunnable{}
	path, err := e.RecordPath(r)
	require.NoError(t, err)
	writeFile(t, path, "{definitely not json")

	assert.Equal(t, models.RunInfoStatusNoInfo, classify(t, e, r))

	execute(t, e, r)
	assert.Equal(t, 1, r.runs)
	assert.Equal(t, models.RunInfoStatusNothingToCheck, classify(t, e, r))
}

func TestExecutor_OutputNotProducedForcesRerun(t *testing.T) {
	e, _ := newExecutor(t)

	output := filepath.Join(t.TempDir(), "never.txt")
	r := &myRunnable{outputs: []string{output}}

	execute(t, e, r)
	assert.Equal(t, models.RunInfoStatusFileNotFound, classify(t, e, r))

	execute(t, e, r)
	assert.Equal(t, 2, r.runs)
}

func TestExecutor_RecordReflectsPostRunState(t *testing.T) {
	e, _ := newExecutor(t)

	output := filepath.Join(t.TempDir(), "generated.txt")
	r := &protocol.Task{
		TaskName:    "generate",
		OutputsFunc: protocol.Paths(output),
		Action: func(context.Context) (int, error) {
			return 0, os.WriteFile(output, []byte("generated"), 0600)
		},
	}

	execute(t, e, r)
	assert.Equal(t, models.RunInfoStatusMatch, classify(t, e, r))
}

func TestExecutor_DistinctIDsDoNotCollide(t *testing.T) {
	e, _ := newExecutor(t)

	a := &protocol.Task{TaskName: "stage", TaskID: "group-a/stage"}
	b := &protocol.Task{TaskName: "stage", TaskID: "group-b/stage"}

	execute(t, e, a)

	assert.Equal(t, models.RunInfoStatusNothingToCheck, classify(t, e, a))
	assert.Equal(t, models.RunInfoStatusNoInfo, classify(t, e, b))

	pathA, err := e.RecordPath(a)
	require.NoError(t, err)
	pathB, err := e.RecordPath(b)
	require.NoError(t, err)
	assert.NotEqual(t, pathA, pathB)
}

func TestExecutor_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	e, _ := newExecutor(t, WithTracer(provider.Tracer("test")))

	r := &myRunnable{}
	execute(t, e, r)
	execute(t, e, r)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "executor.execute", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String(otelhelper.RunnableIDKey, "MyRunnable"))
	assert.Contains(t, spans[0].Attributes(), attribute.String(otelhelper.RunStatusKey, "no_info"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int(otelhelper.ExitCodeKey, 0))
	assert.Contains(t, spans[1].Attributes(), attribute.String(otelhelper.RunStatusKey, "nothing_to_check"))
}

func TestExecutor_Flags(t *testing.T) {
	e := NewForDir(t.TempDir(), WithForceRun(true), WithDryRun(true), WithLogger(nil), WithTracer(nil))

	assert.True(t, e.forceRun)
	assert.True(t, e.dryRun)
	assert.NotNil(t, e.logger)
	assert.NotNil(t, e.tracer)
}

func TestExecutor_HealthCheck(t *testing.T) {
	e, cacheDir := newExecutor(t)
	assert.NoError(t, e.HealthCheck(t.Context()))

	missing := NewForDir(filepath.Join(cacheDir, "missing"))
	assert.Error(t, missing.HealthCheck(t.Context()))
}

func readRecord(t *testing.T, e *Executor, r protocol.Runnable) map[string]any {
	t.Helper()

	path, err := e.RecordPath(r)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	return raw
}
