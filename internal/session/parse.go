package session

import (
	"context"
	"errors"
	"log/slog"

	"docfill/internal/batch"
	"docfill/internal/extractor"
	"docfill/internal/report"
	"docfill/internal/style"
)

// ParseResult reports a parse pass.
type ParseResult struct {
	Files   int
	Symbols int
	Failed  int
}

var errSkipped = errors.New("file skipped")

type parsed struct {
	path   string
	result extractor.Result
	err    error
}

// Parse extracts the symbols of the given loaded files, or of every loaded
// file. Each parsed file's symbols replace its previous ones. Malformed files
// are recorded and skipped.
func (s *Session) Parse(ctx context.Context, files ...string) (ParseResult, error) {
	var res ParseResult
	paths, err := s.paths(files)
	if err != nil {
		return res, err
	}

	s.mu.Lock()
	contents := make(map[string][]byte, len(paths))
	for _, p := range paths {
		contents[p] = s.files[p].Content
	}
	s.mu.Unlock()

	out, err := batch.Run(ctx, paths, s.opts.BatchSize, func(ctx context.Context, _ int, path string) (parsed, error) {
		r, err := s.extractor.Extract(ctx, contents[path], path)
		return parsed{path: path, result: r, err: err}, nil
	}, s.between())
	if err != nil {
		return res, err
	}

	for _, p := range out {
		lang, _ := s.extractor.LanguageFor(p.path)
		if p.err != nil {
			res.Failed++
			s.metrics.ObserveParse(lang, 0, 0, p.err)
			if s.record(p.err, report.CategoryParse) {
				return res, p.err
			}
			s.storeSymbols(p.path, nil, StateDiscovered)
			continue
		}
		if len(p.result.Errors) > 0 {
			res.Failed++
			s.metrics.ObserveParse(lang, 0, 0, errSkipped)
			for _, diag := range p.result.Errors {
				s.record(report.Newf(report.CategoryParse, p.path, "", "%s", diag), report.CategoryParse)
			}
			s.storeSymbols(p.path, nil, StateDiscovered)
			continue
		}

		documented, undocumented := countDocumented(p.result.Symbols)
		s.metrics.ObserveParse(lang, documented, undocumented, nil)
		res.Files++
		res.Symbols += documented + undocumented
		s.storeSymbols(p.path, p.result.Symbols, StateParsed)
	}

	s.mu.Lock()
	s.styles = style.Analyze(s.symbolsByLanguage())
	s.stats.FilesParsed += res.Files
	s.stats.SymbolsExtracted += res.Symbols
	s.state = StateParsed
	s.mu.Unlock()

	s.logger.Info("files parsed",
		slog.Int("files", res.Files),
		slog.Int("symbols", res.Symbols),
		slog.Int("failed", res.Failed))
	return res, nil
}

func (s *Session) storeSymbols(path string, symbols []extractor.Symbol, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if symbols == nil {
		delete(s.symbols, path)
	} else {
		s.symbols[path] = symbols
	}
	s.setFileState(path, st)
}

// symbolsByLanguage partitions the parsed symbols by language. Caller holds mu.
func (s *Session) symbolsByLanguage() map[string][]extractor.Symbol {
	out := make(map[string][]extractor.Symbol, len(s.symbols))
	for p, syms := range s.symbols {
		out[p] = syms
	}
	return extractor.GroupByLanguage(out)
}

func countDocumented(symbols []extractor.Symbol) (documented, undocumented int) {
	for _, sym := range extractor.Flatten(symbols) {
		if sym.HasDocumentation {
			documented++
		} else {
			undocumented++
		}
	}
	return documented, undocumented
}

// Styles returns the documentation style inferred at the last parse.
func (s *Session) Styles() style.Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.styles
}
