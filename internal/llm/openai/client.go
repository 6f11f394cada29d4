// Package openai implements the OpenAI-compatible ChatModel transport.
// It also backs the xAI provider (internal/llm/xai), which is the same
// Chat Completions wire format under a different base URL and key.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"

	"tradedesk/internal/llm"
	"tradedesk/internal/observability"
)

// Client is a ChatModel backed by the OpenAI Chat Completions API.
type Client struct {
	sdk         sdk.Client
	model       string
	temperature float64
}

// New constructs a Client. apiKey is required; baseURL may be empty to use
// the provider's default endpoint. temperature is passed through on every
// call (spec §2's "temperature override"; create_chat_model(model_id,
// temperature=1.0) default, with the decision extractor built at 0).
func New(apiKey, baseURL, model string, temperature float64, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai: missing api key")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithHTTPClient(httpClient)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model, temperature: temperature}, nil
}

// Invoke implements llm.ChatModel.
func (c *Client) Invoke(ctx context.Context, messages []llm.Message) (string, error) {
	ctx, span := llm.StartRequestSpan(ctx, "OpenAI Chat", c.model, messages)
	defer span.End()
	log := observability.LoggerWithTrace(ctx)

	params := sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(c.model),
		Messages:    adaptMessages(messages),
		Temperature: param.NewOpt(c.temperature),
	}

	start := time.Now()
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("model", c.model).Dur("duration", dur).Msg("openai_chat_error")
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(comp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: empty choices")
	}
	log.Debug().Str("model", c.model).Dur("duration", dur).
		Int64("prompt_tokens", comp.Usage.PromptTokens).
		Int64("completion_tokens", comp.Usage.CompletionTokens).
		Msg("openai_chat_complete")
	return comp.Choices[0].Message.Content, nil
}

func adaptMessages(msgs []llm.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, sdk.SystemMessage(m.Content))
		case "assistant":
			out = append(out, sdk.AssistantMessage(m.Content))
		default:
			out = append(out, sdk.UserMessage(m.Content))
		}
	}
	return out
}
