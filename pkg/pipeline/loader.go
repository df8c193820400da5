package pipeline

import (
	"path/filepath"
	"time"

	"github.com/dukex/stagerun/pkg/protocol"
	"github.com/dukex/stagerun/pkg/registry"
)

// StageReference is a resolved stage, ready to be instantiated by a Runner.
type StageReference struct {
	GroupName   string
	Factory     protocol.StageFactory
	Config      map[string]any
	Description string
	Timeout     time.Duration
}

type Loader struct {
	config         *Config
	projectRootDir string
	registry       *registry.Registry
}

func NewLoader(cfg *Config, projectRootDir string, reg *registry.Registry) *Loader {
	return &Loader{
		config:         cfg,
		projectRootDir: projectRootDir,
		registry:       reg,
	}
}

// LoadStages resolves every stage of the pipeline in order and validates its
// configuration against the factory schema.
func (l *Loader) LoadStages() ([]StageReference, error) {
	if l.config == nil {
		return nil, NewUserNotificationError(nil, "Invalid pipeline configuration")
	}

	var result []StageReference

	for _, group := range l.config.Groups {
		for _, stage := range group.Stages {
			factory, err := l.resolve(stage)
			if err != nil {
				return nil, err
			}

			if err := l.registry.ValidateConfig(factory, stage.Config); err != nil {
				return nil, NewUserNotificationError(err, "Invalid configuration for stage '%s'", stage.FactoryID())
			}

			result = append(result, StageReference{
				GroupName:   group.Name,
				Factory:     factory,
				Config:      stage.Config,
				Description: stage.Description,
				Timeout:     stage.Timeout(),
			})
		}
	}

	return result, nil
}

func (l *Loader) resolve(stage StageConfig) (protocol.StageFactory, error) {
	id := stage.FactoryID()

	switch {
	case stage.File != "":
		path := stage.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(l.projectRootDir, path)
		}

		factory, err := l.registry.LoadPlugin(path, id)
		if err != nil {
			return nil, NewUserNotificationError(err,
				"Could not load stage '%s' from file '%s'. Please check your pipeline configuration", id, path)
		}

		return factory, nil
	case stage.Module != "":
		factory, err := l.registry.Lookup(stage.Module, id)
		if err != nil {
			return nil, NewUserNotificationError(err,
				"Could not load stage '%s' from module '%s'. Please check your pipeline configuration", id, stage.Module)
		}

		return factory, nil
	default:
		factory, err := l.registry.Lookup(registry.BuiltinNamespace, id)
		if err != nil {
			return nil, NewUserNotificationError(err,
				"Unknown stage '%s'. Please check your pipeline configuration", id)
		}

		return factory, nil
	}
}
