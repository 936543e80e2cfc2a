package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"docfill/internal/artifact"
	"docfill/internal/batch"
	"docfill/internal/extractor"
	"docfill/internal/oracle"
	"docfill/internal/report"
)

// maxContextLines caps the source excerpt sent with each symbol.
const maxContextLines = 200

// GenerateOptions selects what to document.
type GenerateOptions struct {
	// Files limits generation to these loaded paths.
	Files []string
	// Symbol limits generation to symbols with this name or qualified name
	// (Owner.Name); only their artifacts are replaced.
	Symbol string
	// Override also documents symbols that already carry documentation.
	Override bool
}

// GenerateResult reports a generation pass.
type GenerateResult struct {
	Requested int
	Generated int
	Empty     int
	Failed    int
	// Stopped is set when an authentication failure ended the pass early.
	Stopped bool
}

type target struct {
	path     string
	symbol   extractor.Symbol
	style    string
	source   string
	override bool
}

type generated struct {
	target target
	text   string
	err    error
	took   time.Duration
}

// Generate asks the documenter for every targeted symbol and stores the
// results as pending artifacts. It fails with ErrNothingToDocument when no
// symbols were parsed. An authentication failure before any artifact was
// produced aborts the run.
func (s *Session) Generate(ctx context.Context, opts GenerateOptions) (GenerateResult, error) {
	var res GenerateResult
	if s.documenter == nil {
		return res, fmt.Errorf("no documentation oracle configured")
	}
	if s.totalSymbols() == 0 {
		return res, ErrNothingToDocument
	}
	paths, err := s.paths(opts.Files)
	if err != nil {
		return res, err
	}
	override := opts.Override || s.opts.Override

	targets := s.targets(paths, opts.Symbol, override)
	res.Requested = len(targets)

	if opts.Symbol == "" {
		s.mu.Lock()
		for _, p := range paths {
			if _, parsed := s.symbols[p]; parsed {
				s.dropUnapplied(p)
			}
		}
		s.mu.Unlock()
	}

	var produced atomic.Int32
	s.mu.Lock()
	produced.Store(int32(s.stats.ArtifactsGenerated))
	s.mu.Unlock()

	out, runErr := batch.Run(ctx, targets, s.opts.BatchSize, func(ctx context.Context, _ int, t target) (generated, error) {
		start := time.Now()
		text, err := s.documenter.Document(ctx, oracle.Request{
			Path:          t.path,
			Symbol:        t.symbol,
			Style:         t.style,
			SourceContext: t.source,
		})
		g := generated{target: t, text: text, err: err, took: time.Since(start)}
		if err != nil && oracle.IsAuthentication(err) {
			return g, err
		}
		if err == nil {
			produced.Add(1)
		}
		return g, nil
	}, s.between())

	now := s.now()
	for _, g := range out {
		s.storeGenerated(g, now, &res)
	}

	if runErr != nil {
		if !oracle.IsAuthentication(runErr) {
			return res, runErr
		}
		s.metrics.ObserveOracle(string(oracle.ErrAuthentication), 0)
		authErr := report.Wrap(report.CategoryOracle, "", "", runErr, "oracle rejected the credentials")
		if produced.Load() == 0 {
			authErr = authErr.Critical()
			s.record(authErr, report.CategoryOracle)
			return res, authErr
		}
		s.record(authErr, report.CategoryOracle)
		res.Stopped = true
	}

	s.mu.Lock()
	s.state = StateGenerated
	s.mu.Unlock()

	s.logger.Info("documentation generated",
		slog.Int("requested", res.Requested),
		slog.Int("generated", res.Generated),
		slog.Int("empty", res.Empty),
		slog.Int("failed", res.Failed))
	return res, nil
}

func (s *Session) storeGenerated(g generated, now time.Time, res *GenerateResult) {
	t := g.target
	if g.err != nil {
		res.Failed++
		s.metrics.ObserveOracle(oracleOutcome(g.err), g.took)
		s.record(report.Wrap(report.CategoryOracle, t.path, t.symbol.QualifiedName(), g.err, "failed to generate documentation"), report.CategoryOracle)
		return
	}

	outcome := "ok"
	if strings.TrimSpace(g.text) == "" {
		outcome = "empty"
		res.Empty++
	}
	s.metrics.ObserveOracle(outcome, g.took)

	ref := artifact.RefFor(t.path, t.symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.override {
		s.overrides[ref] = true
	} else {
		delete(s.overrides, ref)
	}
	s.set(t.path).Put(artifact.Artifact{
		Ref:         ref,
		Text:        g.text,
		Status:      artifact.StatusPending,
		Style:       t.style,
		GeneratedAt: now,
	})
	s.setFileState(t.path, StateGenerated)
	s.stats.ArtifactsGenerated++
	res.Generated++
}

func (s *Session) totalSymbols() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, syms := range s.symbols {
		n += len(extractor.Flatten(syms))
	}
	return n
}

// targets lists the symbols to document, in file then source order.
func (s *Session) targets(paths []string, name string, override bool) []target {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []target
	for _, p := range paths {
		syms, ok := s.symbols[p]
		if !ok {
			continue
		}
		f := s.files[p]
		lines := strings.Split(string(f.Content), "\n")
		for _, sym := range extractor.Flatten(syms) {
			if name != "" && sym.Name != name && sym.QualifiedName() != name {
				continue
			}
			if sym.HasDocumentation && !override {
				continue
			}
			out = append(out, target{
				path:     p,
				symbol:   sym,
				style:    s.styles.StyleFor(sym.Language),
				source:   excerpt(lines, sym.Location),
				override: sym.HasDocumentation,
			})
		}
	}
	return out
}

func excerpt(lines []string, loc extractor.Location) string {
	start := max(loc.Start-1, 0)
	end := min(loc.End, len(lines))
	if end-start > maxContextLines {
		end = start + maxContextLines
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

// IsAborted reports whether err ended the run rather than a single unit.
func IsAborted(err error) bool {
	return errors.Is(err, ErrNothingToDocument) || errors.Is(err, ErrNoFiles) || report.IsCritical(err)
}

func oracleOutcome(err error) string {
	if t := oracle.TypeOf(err); t != "" {
		return string(t)
	}
	return "error"
}
