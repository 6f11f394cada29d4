// Package embeddings generates the vectors the persona-vector half of
// the two-store memory system (C4) upserts into and searches. Grounded
// on the teacher's internal/embeddings/embeddings.go OpenAI-compatible
// embeddings client, adapted to take an injected context and
// *http.Client (per the teacher's own observability.NewHTTPClient
// convention) instead of constructing its own client per call.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"tradedesk/internal/config"
)

const defaultModel = "nomic-embed-text-v1.5.Q8_0"

type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Client generates embeddings against an OpenAI-compatible embeddings
// endpoint, used to turn persona debate turns into vectors for storage
// in the vector half of the memory system.
type Client struct {
	host       string
	apiKey     string
	dimensions int
	httpClient *http.Client
}

func New(cfg config.EmbeddingsConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{host: cfg.Host, apiKey: cfg.APIKey, dimensions: cfg.Dimensions, httpClient: httpClient}
}

// Embed returns one vector per input chunk, in order.
func (c *Client) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embeddingRequest{Input: chunks, Model: defaultModel, EncodingFormat: "float"})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	out := make([][]float32, len(parsed.Data))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
