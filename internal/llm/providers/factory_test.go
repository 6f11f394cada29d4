package providers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tradedesk/internal/config"
)

func TestCreateChatModel_ProviderResolution(t *testing.T) {
	cfg := config.LLMConfig{
		OpenAI: config.OpenAIConfig{APIKey: "openai-key"},
		Google: config.GoogleConfig{APIKey: "google-key", Models: []string{"custom-google-model"}},
		XAI:    config.XAIConfig{APIKey: "xai-key", Models: []string{"custom-grok-model"}},
	}

	cases := []string{
		"gemini-2.5-pro",
		"custom-google-model",
		"grok-4",
		"custom-grok-model",
		"gpt-4o-mini",
	}
	for _, modelID := range cases {
		m, err := CreateChatModel(cfg, modelID, DefaultTemperature, nil)
		require.NoError(t, err, modelID)
		require.NotNil(t, m, modelID)
	}
}

func TestCreateChatModel_MissingCredentialIsConfigError(t *testing.T) {
	cfg := config.LLMConfig{}
	_, err := CreateChatModel(cfg, "gpt-4o-mini", DefaultTemperature, nil)
	require.Error(t, err)

	_, err = CreateChatModel(cfg, "gemini-2.5-pro", DefaultTemperature, nil)
	require.Error(t, err)
}
