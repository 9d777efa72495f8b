package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"

	"github.com/theimaginaryfoundation/review-sentiment/analysis"
)

const DefaultAnthropicModel = "claude-sonnet-4-5"

type AnthropicOptions struct {
	Model     string
	MaxTokens int64
	Retry     RetryPolicy

	// Logger receives token usage per call at debug level.
	Logger *zerolog.Logger
}

// AnthropicExtractor calls the Messages API. The system prompt is marked cacheable since it repeats
// verbatim across batches.
type AnthropicExtractor struct {
	client *anthropic.Client
	opts   AnthropicOptions
	log    zerolog.Logger
}

func NewAnthropicExtractor(client *anthropic.Client, opts AnthropicOptions) (*AnthropicExtractor, error) {
	if client == nil {
		return nil, errors.New("NewAnthropicExtractor: client is nil")
	}
	if opts.Model == "" {
		opts.Model = DefaultAnthropicModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &AnthropicExtractor{client: client, opts: opts, log: log}, nil
}

func (e *AnthropicExtractor) Extract(ctx context.Context, p analysis.Prompt) (string, error) {
	params := e.params(p)
	message, err := CallWithRetry(ctx, e.opts.Retry, func(ctx context.Context) (*anthropic.Message, error) {
		return e.client.Messages.New(ctx, params)
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	e.log.Debug().
		Int64("tokens_in", message.Usage.InputTokens).
		Int64("tokens_out", message.Usage.OutputTokens).
		Int64("cache_create", message.Usage.CacheCreationInputTokens).
		Int64("cache_read", message.Usage.CacheReadInputTokens).
		Msg("anthropic usage")

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("anthropic messages: no text content (stop_reason=%s)", message.StopReason)
	}
	return out, nil
}

func (e *AnthropicExtractor) params(p analysis.Prompt) anthropic.MessageNewParams {
	msgs := p.Messages()
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, t := range msgs {
		if t.Role == analysis.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
			continue
		}
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
	}
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(e.opts.Model),
		MaxTokens: e.opts.MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: p.System, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: out,
	}
}
