// Package llm talks to the model provider that analyzes commits and grades
// checkpoint answers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
)

const defaultMaxTokens = 1024

// Provider completes a single-turn text prompt
type Provider interface {
	Complete(ctx context.Context, prompt string, maxTokens int64) (string, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context, prompt string, maxTokens int64) (string, error)

func (f ProviderFunc) Complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	return f(ctx, prompt, maxTokens)
}

// Options selects and authenticates a provider
type Options struct {
	Provider string // anthropic | openai | openai_compatible
	Model    string
	BaseURL  string
	APIKey   string
}

// New builds the provider named by opts
func New(opts Options) (Provider, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("missing provider api key")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, errors.New("missing model")
	}
	baseURL := strings.TrimSpace(opts.BaseURL)

	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "anthropic":
		ao := []aoption.RequestOption{aoption.WithAPIKey(apiKey)}
		// the SDK appends /v1 itself
		baseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/v1")
		if baseURL != "" {
			ao = append(ao, aoption.WithBaseURL(baseURL))
		}
		return &anthropicProvider{client: anthropic.NewClient(ao...), model: model}, nil
	case "openai", "openai_compatible":
		oo := []ooption.RequestOption{ooption.WithAPIKey(apiKey)}
		if baseURL != "" {
			oo = append(oo, ooption.WithBaseURL(baseURL))
		}
		return &openAIProvider{client: openai.NewClient(oo...), model: model}, nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", opts.Provider)
	}
}

type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func (p *anthropicProvider) Complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok && strings.TrimSpace(text.Text) != "" {
			return text.Text, nil
		}
	}
	return "", errors.New("empty response")
}

type openAIProvider struct {
	client openai.Client
	model  string
}

func (p *openAIProvider) Complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(p.model),
		MaxCompletionTokens: openai.Int(maxTokens),
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping asks p for a one-word reply to confirm the endpoint and key work
func Ping(ctx context.Context, p Provider) (string, error) {
	out, err := p.Complete(ctx, "Reply with the single word: ok", 16)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CleanJSON strips markdown fences the model sometimes wraps JSON in
func CleanJSON(resp string) string {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	return strings.TrimSpace(resp)
}
