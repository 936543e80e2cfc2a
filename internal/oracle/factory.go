package oracle

import (
	"context"
	"fmt"
	"strings"
)

// ProviderOptions selects and configures an oracle backend.
type ProviderOptions struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

const (
	defaultGeminiModel = "gemini-2.5-flash"
	defaultOpenAIModel = "gpt-4o-mini"
)

// NewOracle creates the oracle for the configured provider. The default
// provider is gemini. An empty model selects the provider's default.
func NewOracle(ctx context.Context, opts ProviderOptions) (Oracle, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = providerGemini
	}

	model := strings.TrimSpace(opts.Model)
	switch provider {
	case providerGemini:
		if model == "" {
			model = defaultGeminiModel
		}
		return NewGeminiOracle(ctx, opts.APIKey, model, opts.BaseURL)
	case providerOpenAI:
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIOracle(opts.APIKey, model, opts.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", opts.Provider)
	}
}
