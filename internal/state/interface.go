package state

import (
	"io"
	"time"
)

// RunStore handles run-history persistence operations.
type RunStore interface {
	CreateRun(r *Run) error
	UpdateRun(r *Run) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]Run, error)
	PurgeOldRuns(olderThan time.Duration) (int64, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for run-history persistence, so the command
// line can work without depending on the concrete SQLite implementation.
type Store interface {
	io.Closer
	Migrator
	RunStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store    = (*DB)(nil)
	_ Migrator = (*DB)(nil)
	_ RunStore = (*DB)(nil)
)
