package oracle

import (
	"context"
	"log/slog"

	"docfill/internal/extractor"
)

// Request is everything the generator needs to document one symbol.
type Request struct {
	Path          string
	Symbol        extractor.Symbol
	Style         string
	SourceContext string
}

// Generator turns symbols into formatted documentation text.
type Generator struct {
	oracle  Oracle
	prompts *PromptBuilder
	opts    Options
	logger  *slog.Logger
}

func NewGenerator(o Oracle, opts Options, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		oracle:  o,
		prompts: &PromptBuilder{},
		opts:    opts,
		logger:  logger,
	}
}

// Document returns the formatted documentation for req.Symbol. An empty
// answer yields "" and no error.
func (g *Generator) Document(ctx context.Context, req Request) (string, error) {
	prompt := g.prompts.BuildSymbolPrompt(req)
	raw, err := g.oracle.Generate(ctx, prompt, g.opts)
	if err != nil {
		return "", err
	}
	text := Format(req.Symbol.Language, raw)
	if text == "" {
		g.logger.Debug("oracle returned no documentation",
			slog.String("path", req.Path),
			slog.String("symbol", req.Symbol.QualifiedName()))
	}
	return text, nil
}
