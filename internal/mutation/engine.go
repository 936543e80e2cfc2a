package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"docfill/internal/backup"
	"docfill/internal/extractor"
	"docfill/internal/fsutil"
	"docfill/internal/report"
)

// ErrBusy is returned when another mutation of the same path is in progress.
var ErrBusy = errors.New("file is already being mutated")

// State is the position of one file in the mutation state machine.
type State string

const (
	StateClean       State = "clean"
	StateBackedUp    State = "backed_up"
	StateWritten     State = "written"
	StateVerified    State = "verified"
	StateWriteFailed State = "write_failed"
	StateRestored    State = "restored"
)

// Edit is one documentation block to insert or replace.
type Edit struct {
	Symbol   string
	Kind     extractor.Kind
	Language string
	// Line is the declaration's first line; BodyLine and BodyColumn locate
	// the body for Python docstrings.
	Line        int
	BodyLine    int
	BodyColumn  int
	Text        string
	HasExisting bool
	Override    bool
}

// EditFor builds the edit that documents sym with text.
func EditFor(sym extractor.Symbol, text string, override bool) Edit {
	return Edit{
		Symbol:      sym.QualifiedName(),
		Kind:        sym.Kind,
		Language:    sym.Language,
		Line:        sym.Location.Start,
		BodyLine:    sym.BodyLine,
		BodyColumn:  sym.BodyColumn,
		Text:        text,
		HasExisting: sym.HasDocumentation,
		Override:    override,
	}
}

func (e Edit) anchor() int {
	if e.Language == "python" {
		return e.BodyLine
	}
	return e.Line
}

// Outcome reports what happened to one edit.
type Outcome struct {
	Edit    Edit
	Applied bool
	Err     error
}

// Result is the outcome of applying edits to one file.
type Result struct {
	Path     string
	State    State
	Backup   *backup.Record
	Outcomes []Outcome
}

// Applied counts the edits that were written.
func (r *Result) Applied() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Applied {
			n++
		}
	}
	return n
}

// WriteFunc persists content to path.
type WriteFunc func(path string, content []byte, perm os.FileMode) error

type Option func(*Engine)

// WithWriter replaces the atomic file writer.
func WithWriter(w WriteFunc) Option {
	return func(e *Engine) { e.write = w }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine applies documentation edits to files with backup, atomic write,
// verification and restore on failure.
type Engine struct {
	backups *backup.Store
	write   WriteFunc
	logger  *slog.Logger

	mu     sync.Mutex
	active map[string]bool
}

func NewEngine(backups *backup.Store, opts ...Option) *Engine {
	e := &Engine{
		backups: backups,
		write:   fsutil.WriteFileAtomic,
		logger:  slog.Default(),
		active:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) acquire(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active[path] {
		return false
	}
	e.active[path] = true
	return true
}

func (e *Engine) release(path string) {
	e.mu.Lock()
	delete(e.active, path)
	e.mu.Unlock()
}

// Apply writes edits into path. Either all surviving edits are written and
// verified, or the file is left byte-identical to its previous content.
// Per-edit validation failures are reported in the Result outcomes.
func (e *Engine) Apply(ctx context.Context, path string, edits []Edit) (*Result, error) {
	if !e.acquire(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrBusy)
	}
	defer e.release(path)

	res := &Result{Path: path, State: StateClean}
	original, err := os.ReadFile(path)
	if err != nil {
		return res, report.Wrap(report.CategoryIO, path, "", err, "failed to read file")
	}

	rendered, outcomes := Render(path, original, edits)
	res.Outcomes = outcomes
	if res.Applied() == 0 {
		e.logger.Debug("no edits survived validation", slog.String("path", path))
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	rec, err := e.backups.Create(path)
	if err != nil {
		e.fail(res)
		return res, err
	}
	res.Backup = &rec
	res.State = StateBackedUp

	perm := fsutil.FileMode(path, 0o644)
	if err := e.write(path, rendered, perm); err != nil {
		res.State = StateWriteFailed
		e.fail(res)
		if rerr := e.restore(res); rerr != nil {
			return res, errors.Join(report.Wrap(report.CategoryIO, path, "", err, "failed to write file"), rerr)
		}
		return res, report.Wrap(report.CategoryIO, path, "", err, "failed to write file")
	}
	res.State = StateWritten

	if verr := verify(path, original); verr != nil {
		e.fail(res)
		if rerr := e.restore(res); rerr != nil {
			return res, errors.Join(verr, rerr)
		}
		return res, verr
	}
	res.State = StateVerified

	e.logger.Info("documentation written",
		slog.String("path", path),
		slog.Int("applied", res.Applied()),
		slog.String("backup", rec.BackupPath))
	return res, nil
}

// Restore copies the latest backup of path back over it. It fails with
// ErrBusy while an Apply of the same path is in progress.
func (e *Engine) Restore(path string) (backup.Record, error) {
	if !e.acquire(path) {
		return backup.Record{}, fmt.Errorf("%s: %w", path, ErrBusy)
	}
	defer e.release(path)

	rec, err := e.backups.Restore(path)
	if err != nil {
		return backup.Record{}, err
	}
	e.logger.Debug("file restored from backup", slog.String("path", path), slog.String("backup", rec.BackupPath))
	return rec, nil
}

func (e *Engine) restore(res *Result) error {
	if _, err := e.backups.Restore(res.Path); err != nil {
		return err
	}
	res.State = StateRestored
	return nil
}

// fail marks every applied outcome as not applied.
func (e *Engine) fail(res *Result) {
	for i := range res.Outcomes {
		res.Outcomes[i].Applied = false
	}
}

// verify re-reads path and checks it is non-empty and kept at least half of
// its original size.
func verify(path string, original []byte) error {
	written, err := os.ReadFile(path)
	if err != nil {
		return report.Wrap(report.CategoryIntegrity, path, "", err, "failed to re-read written file")
	}
	if len(written) == 0 {
		return report.Newf(report.CategoryIntegrity, path, "", "written file is empty")
	}
	if len(written)*2 < len(original) {
		return report.Newf(report.CategoryIntegrity, path, "", "written file shrank from %d to %d bytes", len(original), len(written))
	}
	return nil
}
