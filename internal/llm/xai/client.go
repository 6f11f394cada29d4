// Package xai provides the xAI (Grok) ChatModel transport. xAI's API is
// OpenAI Chat-Completions-compatible, so this is a thin wrapper around
// internal/llm/openai.Client with xAI's default base URL — the same move
// the teacher's provider factory makes for its "local" provider case
// (reusing the OpenAI client under a different provider name).
package xai

import (
	"net/http"

	"tradedesk/internal/llm/openai"
)

const defaultBaseURL = "https://api.x.ai/v1"

// New constructs a ChatModel for xAI's Grok models.
func New(apiKey, baseURL, model string, temperature float64, httpClient *http.Client) (*openai.Client, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return openai.New(apiKey, baseURL, model, temperature, httpClient)
}
