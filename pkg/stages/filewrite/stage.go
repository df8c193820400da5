package filewrite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

type Config struct {
	FileName string `json:"file_name" validate:"required"`
	Content  string `json:"content"`
}

type FileWriteStage struct {
	config Config
	path   string
	logger *slog.Logger
}

func NewFileWriteStage(cfg Config, outputDir string, logger *slog.Logger) *FileWriteStage {
	return &FileWriteStage{
		config: cfg,
		path:   filepath.Join(outputDir, cfg.FileName),
		logger: logger.With("stage", "file_write"),
	}
}

func (s *FileWriteStage) Name() string {
	return "file_write"
}

// ID keeps the records of several file_write stages of a group apart.
func (s *FileWriteStage) ID() string {
	return "file_write-" + s.config.FileName
}

func (s *FileWriteStage) Inputs() []string {
	return nil
}

func (s *FileWriteStage) Outputs() []string {
	return []string{s.path}
}

func (s *FileWriteStage) Config() any {
	return s.config
}

func (s *FileWriteStage) Run(ctx context.Context) (int, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return 1, fmt.Errorf("failed to create directory '%s': %w", filepath.Dir(s.path), err)
	}

	if err := os.WriteFile(s.path, []byte(s.config.Content), 0600); err != nil {
		return 1, fmt.Errorf("failed to write file '%s': %w", s.path, err)
	}

	s.logger.InfoContext(ctx, "Wrote file", "path", s.path, "bytes_written", len(s.config.Content))

	return 0, nil
}
