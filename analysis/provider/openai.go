package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"

	"github.com/theimaginaryfoundation/review-sentiment/analysis"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// listFormatOverride tells the model to emit the strict list shape instead of the map shape the
// shared instructions describe.
const listFormatOverride = `Output format override: return {"entities": [{"name": ..., "positive_review_ids": [...], "negative_review_ids": [...]}]}.
Earlier example answers use an object keyed by entity name; carry the same content over to this list form, one element per entity, in first-mentioned order.`

type OpenAIOptions struct {
	Model           string
	MaxOutputTokens int64

	// FlexTier requests the flex service tier (cheaper, slower).
	FlexTier bool

	Retry RetryPolicy
}

// OpenAIExtractor calls the Responses API with a strict JSON-schema output format.
type OpenAIExtractor struct {
	client *openai.Client
	opts   OpenAIOptions
}

func NewOpenAIExtractor(client *openai.Client, opts OpenAIOptions) (*OpenAIExtractor, error) {
	if client == nil {
		return nil, errors.New("NewOpenAIExtractor: client is nil")
	}
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 4096
	}
	return &OpenAIExtractor{client: client, opts: opts}, nil
}

func (e *OpenAIExtractor) Extract(ctx context.Context, p analysis.Prompt) (string, error) {
	params := e.params(p)
	resp, err := CallWithRetry(ctx, e.opts.Retry, func(ctx context.Context) (*responses.Response, error) {
		return e.client.Responses.New(ctx, params)
	})
	if err != nil {
		return "", fmt.Errorf("openai responses: %w", err)
	}
	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", fmt.Errorf("openai responses: empty output (status=%s)", resp.Status)
	}
	return out, nil
}

func (e *OpenAIExtractor) params(p analysis.Prompt) responses.ResponseNewParams {
	msgs := p.Messages()
	input := make([]responses.ResponseInputItemUnionParam, 0, len(msgs)+1)
	for i, t := range msgs {
		if i == len(msgs)-1 {
			input = append(input, responses.ResponseInputItemParamOfMessage(listFormatOverride, responses.EasyInputMessageRoleDeveloper))
		}
		role := responses.EasyInputMessageRoleUser
		if t.Role == analysis.RoleAssistant {
			role = responses.EasyInputMessageRoleAssistant
		}
		input = append(input, responses.ResponseInputItemParamOfMessage(t.Content, role))
	}

	params := responses.ResponseNewParams{
		Model:           e.opts.Model,
		MaxOutputTokens: openai.Int(e.opts.MaxOutputTokens),
		Instructions:    openai.String(p.System),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "EntitySentiment",
					Schema:      entityListSchema,
					Strict:      openai.Bool(true),
					Description: openai.String("Entities with positive and negative review IDs"),
					Type:        "json_schema",
				},
			},
		},
	}
	if e.opts.FlexTier {
		params.ServiceTier = responses.ResponseNewParamsServiceTierFlex
	}
	return params
}
