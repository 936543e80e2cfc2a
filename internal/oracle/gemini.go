package oracle

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const providerGemini = "gemini"

// GeminiOracle implements Oracle using Gemini text generation.
type GeminiOracle struct {
	client *genai.Client
	model  string
}

func NewGeminiOracle(ctx context.Context, apiKey, modelName, baseURL string) (*GeminiOracle, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiOracle{
		client: client,
		model:  modelName,
	}, nil
}

func (g *GeminiOracle) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &Error{Type: ErrMalformed, Provider: providerGemini, Err: errors.New("response has no candidates")}
	}
	return resp.Text(), nil
}

func classifyGeminiError(err error) *Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Type: classifyStatus(apiErr.Code), Provider: providerGemini, StatusCode: apiErr.Code, Err: err}
	}
	return &Error{Type: classifyTransport(err), Provider: providerGemini, Err: err}
}
