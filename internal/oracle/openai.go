package oracle

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const providerOpenAI = "openai"

// OpenAIOracle implements Oracle using the chat completions API of OpenAI or
// any compatible endpoint.
type OpenAIOracle struct {
	client *openai.Client
	apiKey string
	model  string
}

func NewOpenAIOracle(apiKey, model, baseURL string) *OpenAIOracle {
	cfg := openai.DefaultConfig(apiKey)
	if endpoint := strings.TrimRight(strings.TrimSpace(baseURL), "/"); endpoint != "" {
		endpoint = strings.TrimSuffix(endpoint, "/chat/completions")
		if !strings.HasSuffix(endpoint, "/v1") {
			endpoint += "/v1"
		}
		cfg.BaseURL = endpoint
	}
	return &OpenAIOracle{
		client: openai.NewClientWithConfig(cfg),
		apiKey: apiKey,
		model:  model,
	}
}

func (o *OpenAIOracle) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if strings.TrimSpace(o.apiKey) == "" {
		return "", &Error{Type: ErrAuthentication, Provider: providerOpenAI, Err: errors.New("openai api key is required")}
	}

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxCompletionTokens = opts.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Type: ErrMalformed, Provider: providerOpenAI, Err: errors.New("response has no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Type: classifyStatus(apiErr.HTTPStatusCode), Provider: providerOpenAI, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &Error{Type: classifyStatus(reqErr.HTTPStatusCode), Provider: providerOpenAI, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	var oe *Error
	if errors.As(err, &oe) {
		return oe
	}
	if strings.Contains(err.Error(), "unmarshal") || strings.Contains(err.Error(), "invalid character") {
		return &Error{Type: ErrMalformed, Provider: providerOpenAI, Err: err}
	}
	return &Error{Type: classifyTransport(err), Provider: providerOpenAI, Err: err}
}
