// Package shared holds the embedding call every LanguageModel backend uses
// verbatim: embeddings are requested over a plain OpenAI-compatible HTTP
// endpoint regardless of which provider generates the completion, the same
// "embed over raw HTTP against whatever host is configured" approach as the
// teacher's llm/embeddings.go, narrowed from a 5-way concurrent batch helper
// to the single-text call our port needs.
package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

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

// Embedder calls an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Model      string
}

func (e Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	client := e.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(embeddingRequest{
		Input:          []string{text},
		Model:          e.Model,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	url := e.BaseURL + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: bad status %d", resp.StatusCode)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embed: empty response")
	}
	return parsed.Data[0].Embedding, nil
}
