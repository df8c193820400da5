// Package pipeline loads ordered groups of stages and runs them one after
// another through the incremental executor.
package pipeline

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dukex/stagerun/pkg/config"
)

// StageConfig selects a stage factory and carries its configuration.
type StageConfig struct {
	// Stage is the factory id, unless ClassName is set.
	Stage string `json:"stage" yaml:"stage" validate:"required"`
	// File is a Go plugin, relative to the project root, exporting the stage.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
	// Module is the registry namespace holding the stage.
	Module      string         `json:"module,omitempty" yaml:"module,omitempty"`
	ClassName   string         `json:"class_name,omitempty" yaml:"class_name,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	TimeoutSec  *int           `json:"timeout_sec,omitempty" yaml:"timeout_sec,omitempty" validate:"omitempty,gte=0"`
	Config      map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// FactoryID returns the id the stage is looked up by.
func (s StageConfig) FactoryID() string {
	if s.ClassName != "" {
		return s.ClassName
	}

	return s.Stage
}

func (s StageConfig) Timeout() time.Duration {
	if s.TimeoutSec == nil {
		return 0
	}

	return time.Duration(*s.TimeoutSec) * time.Second
}

// Group is a named list of stages. Stages of a pipeline given as a plain
// list belong to a single group with an empty name.
type Group struct {
	Name   string
	Stages []StageConfig
}

// Config is the ordered list of stage groups of a pipeline.
type Config struct {
	Groups []Group
}

func NewConfig(groups ...Group) *Config {
	return &Config{Groups: groups}
}

// Ungrouped creates a pipeline of a single unnamed group.
func Ungrouped(stages ...StageConfig) *Config {
	return NewConfig(Group{Stages: stages})
}

// UnmarshalYAML accepts either a sequence of stages or a mapping of group
// name to sequence of stages, keeping the group order of the document.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil
		}

		return c.UnmarshalYAML(node.Content[0])
	case yaml.SequenceNode:
		var stages []StageConfig
		if err := node.Decode(&stages); err != nil {
			return NewUserNotificationError(err, "Invalid pipeline configuration")
		}

		c.Groups = []Group{{Stages: stages}}

		return nil
	case yaml.MappingNode:
		groups := make([]Group, 0, len(node.Content)/2)

		for i := 0; i+1 < len(node.Content); i += 2 {
			name := node.Content[i].Value
			value := node.Content[i+1]

			if value.Kind != yaml.SequenceNode {
				return NewUserNotificationError(nil, "Invalid pipeline configuration: group '%s' is not a list of stages", name)
			}

			var stages []StageConfig
			if err := value.Decode(&stages); err != nil {
				return NewUserNotificationError(err, "Invalid pipeline configuration in group '%s'", name)
			}

			groups = append(groups, Group{Name: name, Stages: stages})
		}

		c.Groups = groups

		return nil
	default:
		return NewUserNotificationError(nil, "Invalid pipeline configuration")
	}
}

// UnmarshalJSON decodes JSON through the YAML decoder, which keeps object key order.
func (c *Config) UnmarshalJSON(data []byte) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return NewUserNotificationError(err, "Invalid pipeline configuration")
	}

	return c.UnmarshalYAML(&node)
}

// Validate checks every stage config.
func (c *Config) Validate() error {
	for _, group := range c.Groups {
		for i, stage := range group.Stages {
			if err := config.Validate(stage); err != nil {
				return NewUserNotificationError(err, "Invalid stage #%d in group '%s'", i+1, group.Name)
			}
		}
	}

	return nil
}

// LoadConfigFile reads a pipeline from a .json, .yaml or .yml file.
func LoadConfigFile(path string) (*Config, error) {
	cfg, err := config.LoadFile[Config](path)
	if err != nil {
		if IsUserNotification(err) {
			return nil, err
		}

		return nil, NewUserNotificationError(err, "Could not load pipeline configuration '%s'", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) String() string {
	stages := 0
	for _, g := range c.Groups {
		stages += len(g.Stages)
	}

	return fmt.Sprintf("%d groups, %d stages", len(c.Groups), stages)
}
