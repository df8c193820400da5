// Package registry keeps the stage factories a pipeline can instantiate.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"strings"

	"github.com/dukex/stagerun/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

const (
	// BuiltinNamespace holds the stages compiled into the binary.
	BuiltinNamespace = ""
	// PluginsNamespace holds the stages discovered by LoadPluginDir.
	PluginsNamespace = "plugins"
	// PluginSymbol is the symbol LoadPluginDir looks up in every plugin.
	PluginSymbol = "Stage"
)

var (
	ErrStageNotRegistered = errors.New("stage not registered")
	ErrInvalidPlugin      = errors.New("invalid stage plugin")
	ErrInvalidStageConfig = errors.New("invalid stage config")
)

type symbolLookup interface {
	Lookup(symName string) (plugin.Symbol, error)
}

type Registry struct {
	logger    *slog.Logger
	factories map[string]map[string]protocol.StageFactory
	plugins   map[string]protocol.StageFactory
	open      func(path string) (symbolLookup, error)
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log.With("module", "registry"),
		factories: make(map[string]map[string]protocol.StageFactory),
		plugins:   make(map[string]protocol.StageFactory),
		open: func(path string) (symbolLookup, error) {
			return plugin.Open(path)
		},
	}
}

// Register adds factory under namespace, replacing any factory with the same ID.
func (r *Registry) Register(namespace string, factory protocol.StageFactory) {
	if _, ok := r.factories[namespace]; !ok {
		r.factories[namespace] = make(map[string]protocol.StageFactory)
	}

	r.factories[namespace][factory.ID()] = factory
}

func (r *Registry) Lookup(namespace, id string) (protocol.StageFactory, error) {
	factory, ok := r.factories[namespace][id]
	if !ok {
		if namespace == BuiltinNamespace {
			return nil, fmt.Errorf("%w: '%s'", ErrStageNotRegistered, id)
		}

		return nil, fmt.Errorf("%w: '%s' in '%s'", ErrStageNotRegistered, id, namespace)
	}

	return factory, nil
}

// Factories lists the factories of namespace ordered by ID.
func (r *Registry) Factories(namespace string) []protocol.StageFactory {
	factories := make([]protocol.StageFactory, 0, len(r.factories[namespace]))
	for _, factory := range r.factories[namespace] {
		factories = append(factories, factory)
	}

	sort.Slice(factories, func(i, j int) bool {
		return factories[i].ID() < factories[j].ID()
	})

	return factories
}

// LoadPlugin opens the Go plugin at path and returns the stage factory
// exported as symbol. Loaded factories are cached by path and symbol.
func (r *Registry) LoadPlugin(path, symbol string) (protocol.StageFactory, error) {
	key := path + "#" + symbol
	if factory, ok := r.plugins[key]; ok {
		return factory, nil
	}

	plg, err := r.open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin %s: %w", path, err)
	}

	v, err := plg.Lookup(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s has no symbol %s: %v", ErrInvalidPlugin, path, symbol, err)
	}

	var factory protocol.StageFactory

	switch s := v.(type) {
	case protocol.StageFactory:
		factory = s
	case *protocol.StageFactory:
		factory = *s
	}

	if factory == nil {
		return nil, fmt.Errorf("%w: %s symbol %s is %T, not a stage factory", ErrInvalidPlugin, path, symbol, v)
	}

	r.plugins[key] = factory
	r.logger.Debug("Loaded stage plugin", "path", path, "symbol", symbol, "stage", factory.ID())

	return factory, nil
}

// LoadPluginDir registers, under PluginsNamespace, every *.so below
// pluginsPath/stages that exports PluginSymbol. A missing directory yields no plugins.
func (r *Registry) LoadPluginDir(pluginsPath string) ([]protocol.StageFactory, error) {
	rootPath := filepath.Join(pluginsPath, "stages")

	l := r.logger.With(slog.String("path", rootPath))

	if _, err := os.Stat(rootPath); errors.Is(err, fs.ErrNotExist) {
		l.Debug("No stage plugins directory")

		return nil, nil
	}

	var pluginPathList []string

	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.HasSuffix(d.Name(), ".so") {
			pluginPathList = append(pluginPathList, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan plugins in %s: %w", rootPath, err)
	}

	l.Info("Loading stage plugins", "count", len(pluginPathList))

	factories := make([]protocol.StageFactory, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		factory, err := r.LoadPlugin(p, PluginSymbol)
		if err != nil {
			return nil, err
		}

		r.Register(PluginsNamespace, factory)
		factories = append(factories, factory)

		l.Info("Loaded stage plugin", slog.String("plugin", p), slog.String("stage", factory.ID()))
	}

	return factories, nil
}

// ValidateConfig checks config against the JSON schema of factory.
// Factories without a schema accept any config.
func (r *Registry) ValidateConfig(factory protocol.StageFactory, config map[string]any) error {
	schema := factory.Schema()
	if len(schema) == 0 {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("failed to validate config of stage %s: %w", factory.ID(), err)
	}

	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}

		return fmt.Errorf("%w for stage %s: %s", ErrInvalidStageConfig, factory.ID(), strings.Join(errs, "; "))
	}

	return nil
}
