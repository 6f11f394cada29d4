// Package providers resolves a model id to a concrete llm.ChatModel,
// generalizing the teacher's internal/llm/providers.Build (a switch over
// a configured provider name) into the spec's closed, model-id-driven
// resolution rule (§4.1): lowercase prefix or allow-list membership picks
// the provider, never an explicit config field.
package providers

import (
	"fmt"
	"net/http"
	"strings"

	"tradedesk/internal/config"
	"tradedesk/internal/llm"
	"tradedesk/internal/llm/google"
	"tradedesk/internal/llm/openai"
	"tradedesk/internal/llm/xai"
)

// DefaultTemperature is create_chat_model's temperature=1.0 default
// (spec §4.1); the decision-token extractor is built at 0 instead.
const DefaultTemperature = 1.0

// CreateChatModel builds the llm.ChatModel that serves modelID, following
// the provider-resolution rule: a "gemini-" prefix or Google allow-list
// membership selects Gemini; a "grok" prefix or xAI allow-list membership
// selects xAI; anything else falls through to the OpenAI-compatible
// transport. Missing provider credentials are a configuration error,
// raised synchronously here (error taxonomy class 1, spec §7). temperature
// is passed through to whichever provider client ends up serving modelID.
func CreateChatModel(cfg config.LLMConfig, modelID string, temperature float64, httpClient *http.Client) (llm.ChatModel, error) {
	lower := strings.ToLower(strings.TrimSpace(modelID))

	switch {
	case strings.HasPrefix(lower, "gemini-") || contains(cfg.Google.Models, modelID):
		m, err := google.New(cfg.Google.APIKey, cfg.Google.BaseURL, modelID, temperature, httpClient)
		if err != nil {
			return nil, fmt.Errorf("create google chat model: %w", err)
		}
		return m, nil
	case strings.HasPrefix(lower, "grok") || contains(cfg.XAI.Models, modelID):
		m, err := xai.New(cfg.XAI.APIKey, cfg.XAI.BaseURL, modelID, temperature, httpClient)
		if err != nil {
			return nil, fmt.Errorf("create xai chat model: %w", err)
		}
		return m, nil
	default:
		m, err := openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, modelID, temperature, httpClient)
		if err != nil {
			return nil, fmt.Errorf("create openai chat model: %w", err)
		}
		return m, nil
	}
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}
