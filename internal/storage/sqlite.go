package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docfill/internal/artifact"
	"docfill/internal/backup"
	"docfill/internal/extractor"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Ledger = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			root TEXT,
			started_at INTEGER,
			options JSON
		);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			run_id TEXT,
			symbol_id TEXT,
			path TEXT,
			symbol TEXT,
			kind TEXT,
			status TEXT,
			style TEXT,
			text TEXT,
			generated_at INTEGER,
			applied_at INTEGER,
			PRIMARY KEY (run_id, symbol_id)
		);`,
		`CREATE TABLE IF NOT EXISTS backups (
			backup_path TEXT PRIMARY KEY,
			original_path TEXT,
			run_id TEXT,
			created_at INTEGER,
			byte_size INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_path ON artifacts(path);`,
		`CREATE INDEX IF NOT EXISTS idx_backups_original ON backups(original_path);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- RunStore Implementation ---

func (s *SQLiteStore) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, root, started_at, options)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			root=excluded.root,
			options=excluded.options
	`, run.ID, run.Root, run.StartedAt.UnixNano(), string(run.Options))
	return err
}

func (s *SQLiteStore) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, root, started_at, options FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started int64
			options sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Root, &started, &options); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(0, started).UTC()
		if options.Valid {
			r.Options = []byte(options.String)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- ArtifactStore Implementation ---

func (s *SQLiteStore) SaveArtifact(ctx context.Context, rec ArtifactRecord) error {
	var applied sql.NullInt64
	if rec.AppliedAt != nil {
		applied = sql.NullInt64{Int64: rec.AppliedAt.UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (run_id, symbol_id, path, symbol, kind, status, style, text, generated_at, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, symbol_id) DO UPDATE SET
			path=excluded.path,
			symbol=excluded.symbol,
			kind=excluded.kind,
			status=excluded.status,
			style=excluded.style,
			text=excluded.text,
			generated_at=excluded.generated_at,
			applied_at=excluded.applied_at
	`, rec.RunID, rec.SymbolID, rec.Ref.Path, rec.Ref.Symbol, string(rec.Ref.Kind), string(rec.Status),
		rec.Style, rec.Text, rec.GeneratedAt.UnixNano(), applied)
	return err
}

func (s *SQLiteStore) ArtifactsForFile(ctx context.Context, path string) ([]ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, symbol_id, path, symbol, kind, status, style, text, generated_at, applied_at
		FROM artifacts WHERE path = ? ORDER BY generated_at ASC, symbol_id ASC
	`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArtifactRecord
	for rows.Next() {
		var (
			rec       ArtifactRecord
			kind      string
			status    string
			style     sql.NullString
			generated int64
			applied   sql.NullInt64
		)
		if err := rows.Scan(&rec.RunID, &rec.SymbolID, &rec.Ref.Path, &rec.Ref.Symbol, &kind, &status,
			&style, &rec.Text, &generated, &applied); err != nil {
			return nil, err
		}
		rec.Ref.Kind = extractor.Kind(kind)
		rec.Status = artifact.Status(status)
		rec.Style = style.String
		rec.GeneratedAt = time.Unix(0, generated).UTC()
		if applied.Valid {
			t := time.Unix(0, applied.Int64).UTC()
			rec.AppliedAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// --- BackupStore Implementation ---

func (s *SQLiteStore) SaveBackup(ctx context.Context, runID string, rec backup.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backups (backup_path, original_path, run_id, created_at, byte_size)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(backup_path) DO UPDATE SET
			original_path=excluded.original_path,
			run_id=excluded.run_id,
			created_at=excluded.created_at,
			byte_size=excluded.byte_size
	`, rec.BackupPath, rec.OriginalPath, runID, rec.CreatedAt.UnixNano(), rec.OriginalByteSize)
	return err
}

func (s *SQLiteStore) Backups(ctx context.Context, path string) ([]backup.Record, error) {
	query := `SELECT backup_path, original_path, created_at, byte_size FROM backups`
	var args []any
	if path != "" {
		query += ` WHERE original_path = ?`
		args = append(args, path)
	}
	query += ` ORDER BY created_at ASC, backup_path ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backup.Record
	for rows.Next() {
		var (
			rec     backup.Record
			created int64
		)
		if err := rows.Scan(&rec.BackupPath, &rec.OriginalPath, &created, &rec.OriginalByteSize); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteBackup(ctx context.Context, backupPath string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM backups WHERE backup_path = ?`, backupPath)
	return err
}
