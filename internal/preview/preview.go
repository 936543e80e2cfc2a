package preview

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"docfill/internal/artifact"
	"docfill/internal/extractor"
)

// Decision is the reviewer's verdict on one artifact.
type Decision string

const (
	DecisionApprove             Decision = "approve"
	DecisionReject              Decision = "reject"
	DecisionSkip                Decision = "skip"
	DecisionApproveAllRemaining Decision = "approve_all_remaining"
)

// Approves reports whether the decision approves the artifact.
func (d Decision) Approves() bool {
	return d == DecisionApprove || d == DecisionApproveAllRemaining
}

// Item is one artifact awaiting review.
type Item struct {
	Artifact artifact.Artifact
	Existing *extractor.Symbol
	Index    int
	Total    int
	Rendered string
}

// Prompter asks a human for a decision.
type Prompter interface {
	Decide(ctx context.Context, item Item) (Decision, error)
}

// FileBatch is the set of artifacts of one file, with the symbols they document.
type FileBatch struct {
	Path      string
	Artifacts []artifact.Artifact
	Symbols   []extractor.Symbol
}

// Review is the collected outcome of a review pass.
type Review struct {
	Decisions map[artifact.Ref]Decision
	Approved  int
	Rejected  int
	Skipped   int
}

type Option func(*Engine)

// WithInteractive enables prompting; without it every non-empty artifact is approved.
func WithInteractive(p Prompter) Option {
	return func(e *Engine) {
		e.prompter = p
		e.interactive = p != nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithOutput writes a rendering of every auto-approved artifact to w.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

// Engine collects approval decisions before any file is mutated.
type Engine struct {
	prompter    Prompter
	interactive bool
	approveAll  bool
	renderer    *Renderer
	out         io.Writer
	logger      *slog.Logger
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		renderer: &Renderer{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Present decides one artifact. Empty text is skipped without prompting.
func (e *Engine) Present(ctx context.Context, a artifact.Artifact, existing *extractor.Symbol) (Decision, error) {
	return e.present(ctx, Item{Artifact: a, Existing: existing, Index: 1, Total: 1})
}

func (e *Engine) present(ctx context.Context, item Item) (Decision, error) {
	if item.Artifact.Empty() {
		e.logger.Debug("skipping empty artifact", slog.String("ref", item.Artifact.Ref.String()))
		return DecisionSkip, nil
	}
	if !e.interactive || e.approveAll {
		if e.out != nil {
			fmt.Fprintln(e.out, e.renderer.Render(item.Artifact, item.Existing))
		}
		return DecisionApprove, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	item.Rendered = e.renderer.Render(item.Artifact, item.Existing)
	d, err := e.prompter.Decide(ctx, item)
	if err != nil {
		return "", fmt.Errorf("failed to get decision for %s: %w", item.Artifact.Ref, err)
	}
	if d == DecisionApproveAllRemaining {
		e.approveAll = true
	}
	return d, nil
}

// Review presents every pending artifact, file by file, and collects the
// decisions. Nothing is written here.
func (e *Engine) Review(ctx context.Context, files []FileBatch) (Review, error) {
	rv := Review{Decisions: make(map[artifact.Ref]Decision)}
	e.approveAll = false

	total := 0
	for _, f := range files {
		total += len(f.Artifacts)
	}

	index := 0
	for _, f := range files {
		symbols := indexSymbols(f.Symbols)
		for _, a := range f.Artifacts {
			index++
			var existing *extractor.Symbol
			if sym, ok := symbols[symbolKey{a.Ref.Symbol, a.Ref.Kind}]; ok {
				existing = &sym
			}
			d, err := e.present(ctx, Item{Artifact: a, Existing: existing, Index: index, Total: total})
			if err != nil {
				return rv, err
			}
			rv.Decisions[a.Ref] = d
			switch {
			case d.Approves():
				rv.Approved++
			case d == DecisionReject:
				rv.Rejected++
			default:
				rv.Skipped++
			}
		}
	}
	return rv, nil
}

type symbolKey struct {
	name string
	kind extractor.Kind
}

func indexSymbols(symbols []extractor.Symbol) map[symbolKey]extractor.Symbol {
	out := make(map[symbolKey]extractor.Symbol)
	for _, s := range extractor.Flatten(symbols) {
		key := symbolKey{s.QualifiedName(), s.Kind}
		if _, dup := out[key]; !dup {
			out[key] = s
		}
	}
	return out
}
