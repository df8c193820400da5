package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"
)

const waitDelay = 5 * time.Second

type Config struct {
	Name        string            `json:"name,omitempty"`
	Run         string            `json:"run" validate:"required"`
	Env         map[string]string `json:"env,omitempty"`
	InheritPath bool              `json:"inherit_path,omitempty"`
	Inputs      []string          `json:"inputs,omitempty" validate:"dive,required"`
	Outputs     []string          `json:"outputs,omitempty" validate:"dive,required"`
}

// CommandStage runs Config.Run through sh -c with only the declared
// environment. Its exit code is the stage status.
type CommandStage struct {
	config    Config
	workDir   string
	outputDir string
	logger    *slog.Logger

	Stdout io.Writer
	Stderr io.Writer
}

func NewCommandStage(cfg Config, workDir, outputDir string, logger *slog.Logger) *CommandStage {
	return &CommandStage{
		config:    cfg,
		workDir:   workDir,
		outputDir: outputDir,
		logger:    logger.With("stage", "command"),
	}
}

func (s *CommandStage) Name() string {
	return "command"
}

func (s *CommandStage) ID() string {
	if s.config.Name == "" {
		return "command"
	}

	return "command-" + s.config.Name
}

// Inputs expands the input patterns against the project root. Patterns are
// evaluated again on every call so added and removed files are noticed.
func (s *CommandStage) Inputs() []string {
	var inputs []string

	seen := make(map[string]struct{})

	for _, pattern := range s.config.Inputs {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(s.workDir, pattern)
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			s.logger.Warn("Invalid input pattern", "pattern", pattern, "error", err)

			continue
		}

		// a literal path that does not exist stays declared so it is reported missing
		if len(matches) == 0 && !hasMeta(pattern) {
			matches = []string{pattern}
		}

		for _, m := range matches {
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				inputs = append(inputs, m)
			}
		}
	}

	sort.Strings(inputs)

	return inputs
}

func (s *CommandStage) Outputs() []string {
	outputs := make([]string, 0, len(s.config.Outputs))
	for _, o := range s.config.Outputs {
		outputs = append(outputs, filepath.Join(s.outputDir, o))
	}

	return outputs
}

func (s *CommandStage) Config() any {
	return s.config
}

func (s *CommandStage) Run(ctx context.Context) (int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", s.config.Run)
	cmd.Dir = s.workDir
	cmd.Env = s.environ()
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	cmd.WaitDelay = waitDelay

	s.logger.DebugContext(ctx, "Running command", "run", s.config.Run, "dir", s.workDir)

	err := cmd.Run()
	if ctx.Err() != nil {
		return -1, fmt.Errorf("command cancelled: %w", ctx.Err())
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.logger.WarnContext(ctx, "Command failed", "exit_code", exitErr.ExitCode())

			return exitErr.ExitCode(), nil
		}

		return -1, fmt.Errorf("failed to execute command: %w", err)
	}

	return 0, nil
}

// environ builds the command environment from the declared variables only.
func (s *CommandStage) environ() []string {
	env := make([]string, 0, len(s.config.Env)+1)

	keys := make([]string, 0, len(s.config.Env))
	for key := range s.config.Env {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		env = append(env, key+"="+s.config.Env[key])
	}

	if _, declared := s.config.Env["PATH"]; s.config.InheritPath && !declared {
		env = append(env, "PATH="+os.Getenv("PATH"))
	}

	return env
}

func hasMeta(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', '\\':
			return true
		}
	}

	return false
}
