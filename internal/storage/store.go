package storage

import (
	"context"
	"time"

	"docfill/internal/artifact"
	"docfill/internal/backup"
)

// Ledger combines the persistent records of runs, artifacts and backups.
type Ledger interface {
	RunStore
	ArtifactStore
	BackupStore
	Close() error
}

// Run is one docfill invocation.
type Run struct {
	ID        string
	Root      string
	StartedAt time.Time
	// Options is the redacted option snapshot of the run, as JSON.
	Options []byte
}

// RunStore records invocations.
type RunStore interface {
	// BeginRun inserts a run. Options must already be redacted.
	BeginRun(ctx context.Context, run Run) error

	// Runs lists runs, newest first.
	Runs(ctx context.Context) ([]Run, error)
}

// ArtifactRecord is an artifact as persisted by a run.
type ArtifactRecord struct {
	RunID    string
	SymbolID string
	artifact.Artifact
}

// ArtifactStore persists generated artifacts.
type ArtifactStore interface {
	// SaveArtifact upserts the artifact of one symbol for a run.
	SaveArtifact(ctx context.Context, rec ArtifactRecord) error

	// ArtifactsForFile returns the artifacts recorded for a path, oldest first.
	ArtifactsForFile(ctx context.Context, path string) ([]ArtifactRecord, error)
}

// BackupStore persists backup records so later runs can roll back.
type BackupStore interface {
	SaveBackup(ctx context.Context, runID string, rec backup.Record) error

	// Backups returns the records of path, oldest first. An empty path
	// returns every record.
	Backups(ctx context.Context, path string) ([]backup.Record, error)

	DeleteBackup(ctx context.Context, backupPath string) error
}
