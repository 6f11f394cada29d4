// Package config loads the orchestration engine's YAML configuration, the
// way the teacher's root config.go reads a YAML file into a typed struct —
// adapted here to the engine's own concerns (provider credentials, debate
// round limits, persistence DSNs) instead of the teacher's HTTP-service
// settings.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

// OpenAIConfig configures the OpenAI-compatible provider (also the
// transport reused, with different defaults, by the xAI provider).
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// GoogleConfig configures the Gemini provider.
type GoogleConfig struct {
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	Models  []string `yaml:"models"` // allow-list, beyond the "gemini-" prefix rule
}

// XAIConfig configures the xAI (Grok) provider.
type XAIConfig struct {
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	Models  []string `yaml:"models"` // allow-list, beyond the "grok" prefix rule
}

// LLMConfig groups every provider's credentials under one section.
type LLMConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
	Google GoogleConfig `yaml:"google"`
	XAI    XAIConfig    `yaml:"xai"`
}

// GraphConfig is the External Interfaces (spec §6) "Configuration
// (enumerated)" block, verbatim.
type GraphConfig struct {
	DefaultTradingModel string `yaml:"default_trading_model"`
	InvestDebateRounds  int    `yaml:"invest_debate_rounds"`
	RiskDebateRounds    int    `yaml:"risk_debate_rounds"`
	MaxRecursionLimit   int    `yaml:"max_recursion_limit"`
	UseDBMemories       bool   `yaml:"use_db_memories"`
	DebugLanggraph      bool   `yaml:"debug_langgraph"`
}

// VectorConfig configures the persona-vector memory backend (C4).
type VectorConfig struct {
	Backend    string `yaml:"backend"` // memory|auto|postgres|qdrant|none
	DSN        string `yaml:"dsn"`
	Collection string `yaml:"collection"`
	Dimensions int    `yaml:"dimensions"`
	Metric     string `yaml:"metric"` // cosine|l2|ip
}

// DBConfig configures the role-summary store and the C8 persistence sinks
// (decision rows, prompt logs, eval summaries), all Postgres-backed.
type DBConfig struct {
	DSN string `yaml:"dsn"`
}

// ObsConfig configures OpenTelemetry export.
type ObsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	OTLP           string `yaml:"otlp_endpoint"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// EmbeddingsConfig configures the embedding collaborator used by the
// persona-vector store for situation-embedding similarity search (§9).
type EmbeddingsConfig struct {
	Host       string `yaml:"host"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
}

// Config is the top-level configuration for the orchestration engine.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Graph      GraphConfig      `yaml:"graph"`
	Vector     VectorConfig     `yaml:"vector"`
	Database   DBConfig         `yaml:"database"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	OTel       ObsConfig        `yaml:"otel"`
	Log        LogConfig        `yaml:"log"`
}

// Load reads filename as YAML and applies defaults, following the
// teacher's LoadConfig shape: read file, unmarshal, backfill zero values.
// Environment variables already loaded via godotenv.Load (see
// cmd/tradedeskd) take precedence over YAML for provider API keys, so a
// deployment can keep credentials out of the YAML file entirely.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDotEnv loads a .env file into the process environment, tolerating a
// missing file (the same best-effort posture as cmd/agentd/main.go).
func LoadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("no .env file loaded")
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.OpenAI.BaseURL = v
	}
	if v := os.Getenv("GOOGLE_GENAI_API_KEY"); v != "" {
		cfg.LLM.Google.APIKey = v
	}
	if v := os.Getenv("XAI_API_KEY"); v != "" {
		cfg.LLM.XAI.APIKey = v
	}
	if v := os.Getenv("TRADEDESK_VECTOR_DSN"); v != "" {
		cfg.Vector.DSN = v
	}
	if v := os.Getenv("TRADEDESK_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Graph.InvestDebateRounds <= 0 {
		cfg.Graph.InvestDebateRounds = 1
	}
	if cfg.Graph.RiskDebateRounds <= 0 {
		cfg.Graph.RiskDebateRounds = 1
	}
	if cfg.Graph.MaxRecursionLimit <= 0 {
		cfg.Graph.MaxRecursionLimit = 4*cfg.Graph.InvestDebateRounds + 4*cfg.Graph.RiskDebateRounds + 8
	}
	if cfg.Graph.DefaultTradingModel == "" {
		cfg.Graph.DefaultTradingModel = "gpt-4o-mini"
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "memory"
	}
	if cfg.Vector.Metric == "" {
		cfg.Vector.Metric = "cosine"
	}
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = "persona_memory"
	}
	if cfg.OTel.ServiceName == "" {
		cfg.OTel.ServiceName = "tradedesk"
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
}
