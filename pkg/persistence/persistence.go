// Package persistence provides the storage abstraction for run records.
package persistence

import (
	"context"

	"github.com/dukex/stagerun/pkg/models"
)

// RunRecordStore maps a unit-of-work id to its persisted run record.
type RunRecordStore interface {
	// RecordPath returns the deterministic location of the record for id.
	// It does not touch the filesystem.
	RecordPath(id string) (string, error)

	// Load returns the stored record for id, or nil when none exists.
	Load(ctx context.Context, id string) (*models.RunRecord, error)

	// Save replaces the stored record for id.
	Save(ctx context.Context, id string, record *models.RunRecord) error

	HealthCheck(ctx context.Context) error
}
