package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"docfill/internal/artifact"
	"docfill/internal/backup"
	"docfill/internal/extractor"
	"docfill/internal/mutation"
	"docfill/internal/preview"
	"docfill/internal/report"
	"docfill/internal/storage"
)

// Preview collects a decision for every pending artifact of the given files,
// or of every file. Nothing is written. Skipped artifacts stay pending.
func (s *Session) Preview(ctx context.Context, files ...string) (preview.Review, error) {
	paths, err := s.paths(files)
	if err != nil {
		return preview.Review{}, err
	}

	s.mu.Lock()
	var batches []preview.FileBatch
	for _, p := range paths {
		set, ok := s.artifacts[p]
		if !ok {
			continue
		}
		pending := set.Filter(artifact.StatusPending)
		if len(pending) == 0 {
			continue
		}
		batches = append(batches, preview.FileBatch{
			Path:      p,
			Artifacts: pending,
			Symbols:   s.symbols[p],
		})
	}
	s.mu.Unlock()

	rv, err := s.preview.Review(ctx, batches)

	now := s.now()
	var decided []artifact.Artifact
	s.mu.Lock()
	for ref, d := range rv.Decisions {
		s.metrics.ObserveDecision(string(d))
		set := s.set(ref.Path)
		switch {
		case d.Approves():
			set.SetStatus(ref, artifact.StatusApproved, now)
			s.stats.Approved++
		case d == preview.DecisionReject:
			set.SetStatus(ref, artifact.StatusRejected, now)
			s.stats.Rejected++
		default:
			s.stats.Skipped++
			continue
		}
		if a, ok := set.Get(ref); ok {
			decided = append(decided, a)
		}
		s.setFileState(ref.Path, StatePreviewed)
	}
	if len(rv.Decisions) > 0 {
		s.state = StatePreviewed
	}
	s.mu.Unlock()

	artifact.SortByRef(decided)
	s.persistArtifacts(ctx, decided)

	if err != nil {
		return rv, fmt.Errorf("preview interrupted: %w", err)
	}
	return rv, nil
}

// FileResult is the outcome of applying one file.
type FileResult struct {
	Path    string
	State   mutation.State
	Applied int
	Backup  *backup.Record
	Err     error
}

// ApplyResult aggregates per-file outcomes. Files succeed or fail
// independently.
type ApplyResult struct {
	Files []FileResult
}

func (r ApplyResult) Succeeded() int {
	n := 0
	for _, f := range r.Files {
		if f.Err == nil && f.Applied > 0 {
			n++
		}
	}
	return n
}

func (r ApplyResult) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Apply writes every approved artifact of the given files, or of every file.
// Each file is all-or-nothing; a failing file never affects another. Applied
// files are re-read and re-parsed.
func (s *Session) Apply(ctx context.Context, files ...string) (ApplyResult, error) {
	var res ApplyResult
	paths, err := s.paths(files)
	if err != nil {
		return res, err
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		edits, refs := s.editsFor(p)
		if len(edits) == 0 {
			continue
		}

		fr := s.applyFile(ctx, p, edits, refs)
		res.Files = append(res.Files, fr)
		if fr.Err != nil {
			if s.record(fr.Err, report.CategoryIO) {
				return res, fr.Err
			}
		}
	}

	s.mu.Lock()
	if res.Succeeded() > 0 {
		s.state = StateApplied
	}
	s.mu.Unlock()
	return res, nil
}

// editsFor builds the edits of the approved artifacts of path, matched back
// to the current symbols by qualified name and kind.
func (s *Session) editsFor(path string) ([]mutation.Edit, []artifact.Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.artifacts[path]
	if !ok {
		return nil, nil
	}
	symbols := make(map[artifact.Ref]extractor.Symbol)
	for _, sym := range extractor.Flatten(s.symbols[path]) {
		ref := artifact.RefFor(path, sym)
		if _, dup := symbols[ref]; !dup {
			symbols[ref] = sym
		}
	}

	var (
		edits []mutation.Edit
		refs  []artifact.Ref
	)
	for _, a := range set.Filter(artifact.StatusApproved) {
		sym, ok := symbols[a.Ref]
		if !ok {
			s.record(report.Newf(report.CategoryValidation, path, a.Ref.Symbol, "symbol no longer exists"), report.CategoryValidation)
			set.SetStatus(a.Ref, artifact.StatusRejected, s.now())
			continue
		}
		edits = append(edits, mutation.EditFor(sym, a.Text, s.opts.Override || s.overrides[a.Ref]))
		refs = append(refs, a.Ref)
	}
	return edits, refs
}

func (s *Session) applyFile(ctx context.Context, path string, edits []mutation.Edit, refs []artifact.Ref) FileResult {
	fr := FileResult{Path: path}
	mres, err := s.mutation.Apply(ctx, path, edits)
	if mres != nil {
		fr.State = mres.State
		fr.Applied = mres.Applied()
		fr.Backup = mres.Backup
	}
	if err != nil {
		fr.Err = err
		s.metrics.ObserveApply(string(fr.State), fr.Backup != nil)
		s.mu.Lock()
		s.stats.FailedMutations++
		s.mu.Unlock()
		if fr.Backup != nil {
			s.persistBackup(ctx, *fr.Backup)
		}
		return fr
	}

	now := s.now()
	var applied []artifact.Artifact
	s.mu.Lock()
	set := s.set(path)
	for i, o := range mres.Outcomes {
		ref := refs[i]
		switch {
		case o.Applied:
			if a, ok := set.Get(ref); ok {
				a.Status = artifact.StatusApplied
				a.AppliedAt = &now
				applied = append(applied, a)
			}
			set.SetStatus(ref, artifact.StatusApplied, now)
			s.stats.EditsApplied++
		case o.Err != nil:
			set.SetStatus(ref, artifact.StatusRejected, now)
			s.record(o.Err, report.CategoryValidation)
		}
	}
	if fr.Applied > 0 {
		s.stats.FilesMutated++
	}
	s.mu.Unlock()

	s.metrics.ObserveApply(string(fr.State), fr.Backup != nil)
	s.persistArtifacts(ctx, applied)
	if fr.Backup != nil {
		s.persistBackup(ctx, *fr.Backup)
	}
	if fr.Applied > 0 {
		if err := s.refresh(ctx, path, StateApplied); err != nil {
			s.record(err, report.CategoryIO)
		}
	}
	return fr
}

// refresh re-reads path from disk and re-parses it.
func (s *Session) refresh(ctx context.Context, path string, st State) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return report.Wrap(report.CategoryIO, path, "", err, "failed to re-read file")
	}
	r, err := s.extractor.Extract(ctx, content, path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	if !ok {
		return nil
	}
	f.Content = content
	f.Size = int64(len(content))
	f.Hash = hashContent(content)
	f.LoadedAt = s.now()
	f.State = st
	if len(r.Errors) == 0 {
		s.symbols[path] = r.Symbols
	}
	return nil
}

// Rollback restores path from its most recent backup. Backups recorded in the
// ledger by earlier runs are used when this session made none.
func (s *Session) Rollback(ctx context.Context, path string) (backup.Record, error) {
	if _, ok := s.backups.Latest(path); !ok {
		if err := s.adoptBackups(ctx, path); err != nil {
			return backup.Record{}, err
		}
	}

	rec, err := s.mutation.Restore(path)
	if err != nil {
		return backup.Record{}, err
	}
	s.metrics.ObserveRollback()

	s.mu.Lock()
	s.stats.Rollbacks++
	_, loaded := s.files[path]
	s.mu.Unlock()

	if loaded {
		if err := s.refresh(ctx, path, StateParsed); err != nil {
			s.record(err, report.CategoryIO)
		}
	}
	s.logger.Info("file restored", slog.String("path", path), slog.String("backup", rec.BackupPath))
	return rec, nil
}

// adoptBackups loads the ledger's backup records of path, or of every path
// when path is empty, into the backup store.
func (s *Session) adoptBackups(ctx context.Context, path string) error {
	if s.ledger == nil {
		return nil
	}
	recs, err := s.ledger.Backups(ctx, path)
	if err != nil {
		return report.Wrap(report.CategoryIO, path, "", err, "failed to read backups from ledger")
	}
	for _, rec := range recs {
		if err := s.backups.Adopt(rec); err != nil {
			s.logger.Debug("ignoring stale ledger backup",
				slog.String("backup", rec.BackupPath),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// ClearOptions selects what Clear removes.
type ClearOptions struct {
	// Files limits clearing to these paths; empty clears everything.
	Files []string
	// Backups also deletes backup files from disk.
	Backups bool
}

// ClearResult reports what was removed.
type ClearResult struct {
	Files   int
	Backups []backup.Record
}

// Clear forgets loaded files with their symbols and artifacts, and optionally
// deletes their backups.
func (s *Session) Clear(ctx context.Context, opts ClearOptions) (ClearResult, error) {
	var res ClearResult

	s.mu.Lock()
	targets := opts.Files
	if len(targets) == 0 {
		for p := range s.files {
			targets = append(targets, p)
		}
	}
	sort.Strings(targets)
	for _, p := range targets {
		if _, ok := s.files[p]; ok {
			res.Files++
		}
		delete(s.files, p)
		delete(s.symbols, p)
		delete(s.artifacts, p)
	}
	cleared := make(map[string]bool, len(targets))
	for _, p := range targets {
		cleared[p] = true
	}
	for ref := range s.overrides {
		if cleared[ref.Path] {
			delete(s.overrides, ref)
		}
	}
	if len(s.files) == 0 {
		s.state = StateEmpty
	}
	s.mu.Unlock()

	if !opts.Backups {
		return res, nil
	}

	var errs []error
	if len(opts.Files) == 0 {
		if err := s.adoptBackups(ctx, ""); err != nil {
			return res, err
		}
		removed, err := s.backups.CleanupAll()
		res.Backups = append(res.Backups, removed...)
		if err != nil {
			errs = append(errs, err)
		}
	} else {
		for _, p := range targets {
			if err := s.adoptBackups(ctx, p); err != nil {
				errs = append(errs, err)
				continue
			}
			removed, err := s.backups.Cleanup(p)
			res.Backups = append(res.Backups, removed...)
			if err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, rec := range res.Backups {
		s.forgetBackup(ctx, rec)
	}
	return res, errors.Join(errs...)
}

func (s *Session) persistArtifacts(ctx context.Context, artifacts []artifact.Artifact) {
	if s.ledger == nil {
		return
	}
	for _, a := range artifacts {
		rec := storage.ArtifactRecord{
			RunID:    s.ID,
			SymbolID: s.symbolID(a.Ref),
			Artifact: a,
		}
		if err := s.ledger.SaveArtifact(ctx, rec); err != nil {
			s.logger.Warn("failed to record artifact", slog.String("ref", a.Ref.String()), slog.Any("error", err))
		}
	}
}

// symbolID returns the stable ID of the symbol behind ref, or the ref itself
// when the symbol is no longer known.
func (s *Session) symbolID(ref artifact.Ref) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range extractor.Flatten(s.symbols[ref.Path]) {
		if artifact.RefFor(ref.Path, sym) == ref {
			return extractor.BuildStableSymbolID(ref.Path, sym)
		}
	}
	return ref.String()
}

func (s *Session) persistBackup(ctx context.Context, rec backup.Record) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.SaveBackup(ctx, s.ID, rec); err != nil {
		s.logger.Warn("failed to record backup", slog.String("backup", rec.BackupPath), slog.Any("error", err))
	}
}

func (s *Session) forgetBackup(ctx context.Context, rec backup.Record) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.DeleteBackup(ctx, rec.BackupPath); err != nil {
		s.logger.Warn("failed to forget backup", slog.String("backup", rec.BackupPath), slog.Any("error", err))
	}
}
