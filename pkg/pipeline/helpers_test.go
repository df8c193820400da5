package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dukex/stagerun/pkg/protocol"
)

// fakeFactory creates tasks writing "<id>.out" into their stage output directory.
type fakeFactory struct {
	id       string
	schema   map[string]any
	code     int
	runs     *[]string
	lastCtx  *context.Context
	lastDir  *string
	lastConf *map[string]any
}

func newFakeFactory(id string, runs *[]string) *fakeFactory {
	var (
		ctx  context.Context
		dir  string
		conf map[string]any
	)

	return &fakeFactory{id: id, runs: runs, lastCtx: &ctx, lastDir: &dir, lastConf: &conf}
}

func (f *fakeFactory) ID() string             { return f.id }
func (f *fakeFactory) Description() string    { return "fake " + f.id }
func (f *fakeFactory) Schema() map[string]any { return f.schema }

func (f *fakeFactory) Create(_ protocol.Environment, outputDir string, config map[string]any) (protocol.Runnable, error) {
	*f.lastDir = outputDir
	*f.lastConf = config
	output := filepath.Join(outputDir, f.id+".out")

	return &protocol.Task{
		TaskName:      f.id,
		OutputsFunc:   protocol.Paths(output),
		Configuration: config,
		Action: func(ctx context.Context) (int, error) {
			*f.runs = append(*f.runs, f.id)
			*f.lastCtx = ctx

			if f.code != 0 {
				return f.code, nil
			}

			return 0, os.WriteFile(output, []byte(f.id), 0600)
		},
	}, nil
}
