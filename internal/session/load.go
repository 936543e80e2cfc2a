package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"docfill/internal/artifact"
	"docfill/internal/batch"
	"docfill/internal/crawler"
	"docfill/internal/report"
	"docfill/internal/storage"
)

// LoadResult reports a discovery pass.
type LoadResult struct {
	Loaded    int
	Unchanged int
	Failed    int
}

type loaded struct {
	file    crawler.File
	content []byte
	err     error
}

// LoadFiles discovers the source files under root that match patterns
// (gitignore syntax; none means all) and reads them. Reloading a file whose
// content changed drops its symbols and non-applied artifacts.
func (s *Session) LoadFiles(ctx context.Context, root string, patterns ...string) (LoadResult, error) {
	var res LoadResult
	c := crawler.NewCrawler(s.extractor,
		crawler.WithInclude(patterns...),
		crawler.WithExclude(s.opts.Exclude...),
		crawler.WithLanguages(s.opts.Languages...),
		crawler.WithLogger(s.logger))

	files, err := c.Scan(ctx, root)
	if err != nil {
		return res, report.Wrap(report.CategoryIO, root, "", err, "failed to scan project").Critical()
	}
	if s.opts.Changed != nil {
		files = crawler.FilterChanged(root, files, s.opts.Changed)
	}

	reads, err := batch.Run(ctx, files, s.opts.BatchSize, func(_ context.Context, _ int, f crawler.File) (loaded, error) {
		content, err := os.ReadFile(f.Path)
		return loaded{file: f, content: content, err: err}, nil
	}, s.between())
	if err != nil {
		return res, err
	}

	s.mu.Lock()
	s.root = root
	now := s.now()
	for _, r := range reads {
		if r.err != nil {
			res.Failed++
			rerr := report.Wrap(report.CategoryIO, r.file.Path, "", r.err, "failed to read file")
			if s.record(rerr, report.CategoryIO) {
				s.mu.Unlock()
				return res, rerr
			}
			continue
		}

		hash := hashContent(r.content)
		if prev, ok := s.files[r.file.Path]; ok && prev.Hash == hash {
			res.Unchanged++
			continue
		}
		if _, ok := s.files[r.file.Path]; ok {
			delete(s.symbols, r.file.Path)
			s.dropUnapplied(r.file.Path)
		}
		s.files[r.file.Path] = &FileRecord{
			Path:     r.file.Path,
			Language: r.file.Language,
			Size:     int64(len(r.content)),
			Content:  r.content,
			Hash:     hash,
			LoadedAt: now,
			State:    StateDiscovered,
		}
		res.Loaded++
		s.stats.FilesLoaded++
	}
	if len(s.files) > 0 && s.state == StateEmpty {
		s.state = StateDiscovered
	}
	empty := len(s.files) == 0
	s.mu.Unlock()

	if empty {
		return res, report.Wrap(report.CategoryIO, root, "", ErrNoFiles, "nothing to process").Critical()
	}

	if err := s.beginRun(ctx); err != nil {
		s.record(report.Wrap(report.CategoryIO, "", "", err, "failed to record run in ledger"), report.CategoryIO)
	}

	s.logger.Info("files loaded",
		slog.String("root", root),
		slog.Int("loaded", res.Loaded),
		slog.Int("unchanged", res.Unchanged),
		slog.Int("failed", res.Failed))
	return res, nil
}

// dropUnapplied forgets the non-applied artifacts of path. Caller holds mu.
func (s *Session) dropUnapplied(path string) {
	set, ok := s.artifacts[path]
	if !ok {
		return
	}
	s.artifacts[path] = newSetFrom(set.Filter(artifact.StatusApplied))
}

func (s *Session) beginRun(ctx context.Context) error {
	s.mu.Lock()
	if s.ledger == nil || s.runBegun {
		s.mu.Unlock()
		return nil
	}
	s.runBegun = true
	run := storage.Run{ID: s.ID, Root: s.root, StartedAt: s.now(), Options: s.opts.RunOptions}
	s.mu.Unlock()

	if err := s.ledger.BeginRun(ctx, run); err != nil {
		return fmt.Errorf("failed to begin run: %w", err)
	}
	return nil
}
