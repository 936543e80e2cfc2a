package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"docfill/internal/report"
)

// ErrUnsupported is returned for files no registered extractor handles.
var ErrUnsupported = errors.New("unsupported language")

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	Language() string
	Extensions() []string
	// Extract parses src and returns its top-level symbols in declaration order.
	Extract(ctx context.Context, path string, src []byte) ([]Symbol, error)
}

// Extractor dispatches files to language extractors by extension.
type Extractor struct {
	byLang     map[string]LanguageExtractor
	extToLang  map[string]string
	skipErrors bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSkipErrors makes Extract report malformed files as diagnostics instead of errors.
func WithSkipErrors(skip bool) Option {
	return func(e *Extractor) { e.skipErrors = skip }
}

// WithLanguage registers an additional (or replacement) language extractor.
func WithLanguage(le LanguageExtractor) Option {
	return func(e *Extractor) { e.register(le) }
}

// NewExtractor creates an extractor with the Go, Python, JavaScript and
// TypeScript extractors registered.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		byLang:    make(map[string]LanguageExtractor),
		extToLang: make(map[string]string),
	}
	e.register(NewGoExtractor())
	e.register(NewPythonExtractor())
	e.register(NewJavaScriptExtractor())
	e.register(NewTypeScriptExtractor())
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) register(le LanguageExtractor) {
	lang := le.Language()
	e.byLang[lang] = le
	for _, ext := range le.Extensions() {
		e.extToLang[strings.ToLower(ext)] = lang
	}
}

// LanguageFor returns the language registered for the file's extension.
func (e *Extractor) LanguageFor(path string) (string, bool) {
	lang, ok := e.extToLang[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Languages returns the registered language names, sorted.
func (e *Extractor) Languages() []string {
	out := make([]string, 0, len(e.byLang))
	for lang := range e.byLang {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Extract parses one file's text. A malformed file yields a parse_error, or
// with skip-errors enabled an empty symbol list plus a diagnostic.
func (e *Extractor) Extract(ctx context.Context, src []byte, path string) (Result, error) {
	lang, ok := e.LanguageFor(path)
	if !ok {
		err := report.Wrap(report.CategoryParse, path, "", ErrUnsupported, fmt.Sprintf("no extractor for %q", filepath.Ext(path)))
		if e.skipErrors {
			return Result{Path: path, Errors: []string{err.Error()}}, nil
		}
		return Result{Path: path}, err
	}

	symbols, err := e.byLang[lang].Extract(ctx, path, src)
	if err != nil {
		var re *report.Error
		if !errors.As(err, &re) {
			re = report.Wrap(report.CategoryParse, path, "", err, "failed to parse file")
		}
		if e.skipErrors {
			return Result{Path: path, Language: lang, Symbols: []Symbol{}, Errors: []string{re.Error()}}, nil
		}
		return Result{Path: path, Language: lang}, re
	}
	if symbols == nil {
		symbols = []Symbol{}
	}
	return Result{Path: path, Language: lang, Symbols: symbols}, nil
}

// ExtractFile reads and parses a single source file.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path}, report.Wrap(report.CategoryIO, path, "", err, "failed to read file")
	}
	return e.Extract(ctx, src, path)
}

// GroupByLanguage partitions per-file symbols into language buckets.
// Files are visited in path order so buckets are deterministic.
func GroupByLanguage(byFile map[string][]Symbol) map[string][]Symbol {
	paths := make([]string, 0, len(byFile))
	for p := range byFile {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make(map[string][]Symbol)
	for _, p := range paths {
		for _, s := range byFile[p] {
			out[s.Language] = append(out[s.Language], s)
		}
	}
	return out
}
