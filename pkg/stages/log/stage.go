package log

import (
	"context"
	"log/slog"
)

type Config struct {
	Message string `json:"message" validate:"required"`
	Level   string `json:"level" validate:"omitempty,oneof=debug info warn error"`
}

// LogStage logs its message on every run and never takes part in
// dependency management.
type LogStage struct {
	message string
	level   slog.Level
	logger  *slog.Logger
}

func NewLogStage(cfg Config, logger *slog.Logger) *LogStage {
	var level slog.Level

	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return &LogStage{
		message: cfg.Message,
		level:   level,
		logger:  logger.With("stage", "log"),
	}
}

func (s *LogStage) Name() string {
	return "log"
}

func (s *LogStage) Inputs() []string {
	return nil
}

func (s *LogStage) Outputs() []string {
	return nil
}

func (s *LogStage) NeedsDependencyManagement() bool {
	return false
}

func (s *LogStage) Run(ctx context.Context) (int, error) {
	s.logger.Log(ctx, s.level, s.message)

	return 0, nil
}
