// Package google implements the Gemini ChatModel transport.
package google

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"tradedesk/internal/llm"
	"tradedesk/internal/observability"
)

// Client is a ChatModel backed by google.golang.org/genai.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
}

// New constructs a Client for the Gemini API. temperature is passed
// through on every call (spec §2's "temperature override").
func New(apiKey, baseURL, model string, temperature float64, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("google: missing api key")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	httpOpts := genai.HTTPOptions{}
	if baseURL != "" {
		httpOpts.BaseURL = strings.TrimSuffix(baseURL, "/") + "/"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPClient:  httpClient,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("init google client: %w", err)
	}
	return &Client{client: client, model: model, temperature: float32(temperature)}, nil
}

// Invoke implements llm.ChatModel.
func (c *Client) Invoke(ctx context.Context, messages []llm.Message) (string, error) {
	ctx, span := llm.StartRequestSpan(ctx, "Google Chat", c.model, messages)
	defer span.End()
	log := observability.LoggerWithTrace(ctx)

	contents, sysInstr := toContents(messages)
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(c.temperature)}
	if sysInstr != "" {
		cfg.SystemInstruction = genai.NewContentFromText(sysInstr, genai.RoleUser)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	dur := time.Since(start)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("model", c.model).Dur("duration", dur).Msg("google_chat_error")
		return "", fmt.Errorf("google generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("google generate content: empty response")
	}
	log.Debug().Str("model", c.model).Dur("duration", dur).Msg("google_chat_complete")
	return text, nil
}

// toContents splits messages into genai Contents plus a concatenated
// system instruction (genai models system prompts separately from the
// turn history).
func toContents(msgs []llm.Message) ([]*genai.Content, string) {
	var sys []string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			sys = append(sys, m.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(sys, "\n\n")
}
