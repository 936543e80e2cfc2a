package crawler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"docfill/internal/backup"

	ignore "github.com/sabhiram/go-gitignore"
)

// File is one discovered source file.
type File struct {
	Path     string
	Language string
	Size     int64
}

// LanguageResolver maps a path to its language. extractor.Extractor satisfies it.
type LanguageResolver interface {
	LanguageFor(path string) (string, bool)
}

// Crawler scans a directory for source files.
type Crawler struct {
	resolver  LanguageResolver
	ignored   []string
	include   *ignore.GitIgnore
	exclude   *ignore.GitIgnore
	languages map[string]bool
	logger    *slog.Logger
}

type Option func(*Crawler)

// WithInclude keeps only files matching one of the gitignore-style patterns.
func WithInclude(patterns ...string) Option {
	return func(c *Crawler) {
		if len(patterns) > 0 {
			c.include = ignore.CompileIgnoreLines(patterns...)
		}
	}
}

// WithExclude drops files matching one of the gitignore-style patterns.
func WithExclude(patterns ...string) Option {
	return func(c *Crawler) {
		if len(patterns) > 0 {
			c.exclude = ignore.CompileIgnoreLines(patterns...)
		}
	}
}

// WithLanguages restricts discovery to the given languages.
func WithLanguages(langs ...string) Option {
	return func(c *Crawler) {
		if len(langs) == 0 {
			return
		}
		c.languages = make(map[string]bool, len(langs))
		for _, l := range langs {
			c.languages[l] = true
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) { c.logger = l }
}

// NewCrawler creates a new crawler instance.
func NewCrawler(resolver LanguageResolver, opts ...Option) *Crawler {
	c := &Crawler{
		resolver: resolver,
		ignored:  []string{".git", "vendor", "node_modules", "__pycache__", ".venv", ".docfill"},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scan walks root and returns the supported source files sorted by path.
// The project .gitignore is honoured. A root that is a single file yields
// that file if its language is supported.
func (c *Crawler) Scan(ctx context.Context, root string) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if f, ok := c.accept(root, filepath.Base(root), info.Size()); ok {
			return []File{f}, nil
		}
		return []File{}, nil
	}

	var gitignore *ignore.GitIgnore
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		gitignore = gi
	} else if !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("ignoring unreadable .gitignore", slog.String("root", root), slog.Any("error", err))
	}

	files := []File{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			c.logger.Warn("skipping unreadable path", slog.String("path", path), slog.Any("error", err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		// Skip ignored directories
		if d.IsDir() {
			if path == root {
				return nil
			}
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			if gitignore != nil && gitignore.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if gitignore != nil && gitignore.MatchesPath(rel) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if f, ok := c.accept(path, rel, fi.Size()); ok {
			files = append(files, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (c *Crawler) accept(path, rel string, size int64) (File, bool) {
	if strings.HasSuffix(path, backup.Suffix) {
		return File{}, false
	}
	lang, ok := c.resolver.LanguageFor(path)
	if !ok {
		return File{}, false
	}
	if c.languages != nil && !c.languages[lang] {
		return File{}, false
	}
	if c.include != nil && !c.include.MatchesPath(rel) {
		return File{}, false
	}
	if c.exclude != nil && c.exclude.MatchesPath(rel) {
		return File{}, false
	}
	return File{Path: path, Language: lang, Size: size}, true
}

// FilterChanged keeps the files whose path, relative to root, is in changed.
func FilterChanged(root string, files []File, changed []string) []File {
	set := make(map[string]bool, len(changed))
	for _, p := range changed {
		set[filepath.ToSlash(filepath.Clean(p))] = true
	}
	out := []File{}
	for _, f := range files {
		rel, err := filepath.Rel(root, f.Path)
		if err != nil {
			continue
		}
		if set[filepath.ToSlash(rel)] {
			out = append(out, f)
		}
	}
	return out
}
