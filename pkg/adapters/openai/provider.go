// Package openai implements llm.Provider on top of the OpenAI chat
// completions API, or any endpoint compatible with it.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aretw0/orichalcum/pkg/llm"
)

const providerName = "openai"

// DefaultModel is used when neither the provider nor the call names a model.
const DefaultModel = openai.GPT4oMini

// Provider calls chat completions with a single user message.
type Provider struct {
	client *openai.Client
	model  string
	system string
}

// Option configures a Provider.
type Option func(*config)

type config struct {
	baseURL string
	model   string
	system  string
	client  *openai.Client
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt(prompt string) Option {
	return func(c *config) { c.system = prompt }
}

// WithClient uses an existing client; WithBaseURL is then ignored.
func WithClient(client *openai.Client) Option {
	return func(c *config) { c.client = client }
}

// New creates a provider authenticated with apiKey.
func New(apiKey string, opts ...Option) *Provider {
	cfg := config{model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	client := cfg.client
	if client == nil {
		occ := openai.DefaultConfig(apiKey)
		if cfg.baseURL != "" {
			occ.BaseURL = strings.TrimRight(cfg.baseURL, "/")
		}
		client = openai.NewClientWithConfig(occ)
	}
	return &Provider{client: client, model: cfg.model, system: cfg.system}
}

// Complete sends prompt and returns the first choice's content.
func (p *Provider) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	model := opts.Model
	if model == "" {
		model = p.model
	}

	var messages []openai.ChatCompletionMessage
	if p.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrap(err)
	}
	if len(resp.Choices) == 0 {
		return "", &llm.ProviderError{Provider: providerName, Err: errors.New("empty choice list")}
	}
	return resp.Choices[0].Message.Content, nil
}

func wrap(err error) error {
	perr := &llm.ProviderError{Provider: providerName, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		perr.Status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		perr.Status = reqErr.HTTPStatusCode
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		perr.Err = fmt.Errorf("request aborted: %w", err)
	}
	return perr
}
