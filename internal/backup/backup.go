package backup

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"docfill/internal/fsutil"
	"docfill/internal/report"
)

const (
	// Suffix is appended to every backup file name.
	Suffix = ".bak"
	// timestampLayout is ISO 8601 basic format, which contains no colons.
	timestampLayout = "20060102T150405.000000000Z"
	// spaceFactor is how many times the file size must be free before a backup.
	spaceFactor = 2
)

var (
	ErrNoBackup          = errors.New("no backup recorded")
	ErrInsufficientSpace = errors.New("insufficient disk space")
)

// Record describes a sidecar copy of a file made before a destructive write.
type Record struct {
	OriginalPath     string    `json:"original_path"`
	BackupPath       string    `json:"backup_path"`
	CreatedAt        time.Time `json:"created_at"`
	OriginalByteSize int64     `json:"original_byte_size"`
}

// Store creates, restores and tracks backups. Safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	records     map[string][]Record
	timestamped bool
	freeSpace   func(dir string) (uint64, error)
	now         func() time.Time
	logger      *slog.Logger
}

type Option func(*Store)

// WithTimestamps keeps every backup under a timestamped name instead of one
// live backup per file.
func WithTimestamps(on bool) Option {
	return func(s *Store) { s.timestamped = on }
}

// WithFreeSpace replaces the free disk space check.
func WithFreeSpace(fn func(dir string) (uint64, error)) Option {
	return func(s *Store) { s.freeSpace = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		records:   make(map[string][]Record),
		freeSpace: fsutil.FreeSpace,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PathFor returns the backup file name for path created at t.
func (s *Store) PathFor(path string, t time.Time) string {
	dir, base := filepath.Split(path)
	if !s.timestamped {
		return filepath.Join(dir, base+Suffix)
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, name+"_"+t.UTC().Format(timestampLayout)+Suffix)
}

// Create copies path to its backup location. It fails without leaving a
// partial backup when the source is unreadable or the disk has less than
// twice the file's size free.
func (s *Store) Create(path string) (Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Record{}, report.Wrap(report.CategoryIO, path, "", err, "failed to stat file for backup").Critical()
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Record{}, report.Wrap(report.CategoryIO, path, "", err, "failed to read file for backup").Critical()
	}

	size := int64(len(content))
	if free, err := s.freeSpace(filepath.Dir(path)); err != nil {
		s.logger.Debug("free space check skipped", slog.String("path", path), slog.String("error", err.Error()))
	} else if free < uint64(size)*spaceFactor {
		msg := fmt.Sprintf("need %d bytes free, %d available", uint64(size)*spaceFactor, free)
		return Record{}, report.Wrap(report.CategoryIO, path, "", ErrInsufficientSpace, msg).Critical()
	}

	now := s.now()
	rec := Record{
		OriginalPath:     path,
		BackupPath:       s.PathFor(path, now),
		CreatedAt:        now,
		OriginalByteSize: size,
	}
	if err := fsutil.WriteFileAtomic(rec.BackupPath, content, info.Mode().Perm()); err != nil {
		return Record{}, report.Wrap(report.CategoryIO, path, "", err, "failed to write backup").Critical()
	}

	s.mu.Lock()
	if s.timestamped {
		s.records[path] = append(s.records[path], rec)
	} else {
		s.records[path] = []Record{rec}
	}
	s.mu.Unlock()

	s.logger.Debug("backup created", slog.String("path", path), slog.String("backup", rec.BackupPath))
	return rec, nil
}

// Restore copies the latest backup of path back over it. The record is kept
// until Cleanup.
func (s *Store) Restore(path string) (Record, error) {
	rec, ok := s.Latest(path)
	if !ok {
		return Record{}, report.Wrap(report.CategoryIO, path, "", ErrNoBackup, "failed to restore")
	}
	content, err := os.ReadFile(rec.BackupPath)
	if err != nil {
		return rec, report.Wrap(report.CategoryIO, path, "", err, "failed to read backup").Critical()
	}
	if int64(len(content)) != rec.OriginalByteSize {
		return rec, report.Newf(report.CategoryIntegrity, path, "", "backup %s holds %d bytes, expected %d",
			rec.BackupPath, len(content), rec.OriginalByteSize).Critical()
	}
	perm := fsutil.FileMode(path, fsutil.FileMode(rec.BackupPath, 0o644))
	if err := fsutil.WriteFileAtomic(path, content, perm); err != nil {
		return rec, report.Wrap(report.CategoryIO, path, "", err, "failed to restore backup").Critical()
	}
	s.logger.Info("file restored from backup", slog.String("path", path), slog.String("backup", rec.BackupPath))
	return rec, nil
}

// Latest returns the most recent backup of path.
func (s *Store) Latest(path string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.records[path]
	if len(recs) == 0 {
		return Record{}, false
	}
	return recs[len(recs)-1], true
}

// Records returns the backups of path, oldest first.
func (s *Store) Records(path string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records[path]))
	copy(out, s.records[path])
	return out
}

// Paths returns every original path with at least one backup, sorted.
func (s *Store) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for p, recs := range s.records {
		if len(recs) > 0 {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Adopt registers a backup made by an earlier run. The backup file must exist.
func (s *Store) Adopt(rec Record) error {
	if _, err := os.Stat(rec.BackupPath); err != nil {
		return report.Wrap(report.CategoryIO, rec.OriginalPath, "", err, "failed to adopt backup")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records[rec.OriginalPath] {
		if existing.BackupPath == rec.BackupPath {
			return nil
		}
	}
	recs := append(s.records[rec.OriginalPath], rec)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	s.records[rec.OriginalPath] = recs
	return nil
}

// Cleanup deletes every backup file of path and forgets its records.
func (s *Store) Cleanup(path string) ([]Record, error) {
	s.mu.Lock()
	recs := s.records[path]
	delete(s.records, path)
	s.mu.Unlock()

	var errs []error
	for _, rec := range recs {
		if err := os.Remove(rec.BackupPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", rec.BackupPath, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return recs, report.Wrap(report.CategoryIO, path, "", err, "failed to clean up backups")
	}
	return recs, nil
}

// CleanupAll removes the backups of every tracked path.
func (s *Store) CleanupAll() ([]Record, error) {
	var (
		removed []Record
		errs    []error
	)
	for _, p := range s.Paths() {
		recs, err := s.Cleanup(p)
		removed = append(removed, recs...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}
