// Package google implements ports.LanguageModel over Gemini via
// google.golang.org/genai, narrowed from the teacher's internal/llm/google
// client (tool calling, streaming, thought-signature bookkeeping) to the
// single-shot GenerateContent call GenerateRAG needs.
package google

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"knowledgeservice/internal/adapters/llm/credential"
)

type Client struct {
	client         *genai.Client
	model          string
	embeddingModel string
	credential.Issuer
}

func New(model, apiKey, baseURL, embeddingModel string, signingKey []byte, credentialTTL time.Duration, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	if embeddingModel == "" {
		embeddingModel = "text-embedding-004"
	}
	httpOpts := genai.HTTPOptions{}
	if base := strings.TrimSpace(baseURL); base != "" {
		httpOpts.BaseURL = strings.TrimSuffix(base, "/") + "/"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPClient:  httpClient,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("init google client: %w", err)
	}
	return &Client{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
		Issuer:         credential.NewIssuer(signingKey, "knowledgeservice/google", credentialTTL),
	}, nil
}

// Embed calls Gemini's native EmbedContent API rather than the generic
// OpenAI-compatible embedder the other two backends share, grounded on
// theRebelliousNerd-codenerd's embedding/genai.go (same SDK, same call).
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	result, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("google embed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("google embed: no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

func (c *Client) GenerateRAG(ctx context.Context, prompt string, contextChunks []string) (string, error) {
	var body strings.Builder
	body.WriteString("Answer the question using only the context below. If the context does not contain the answer, say so.\n\n")
	for i, chunk := range contextChunks {
		fmt.Fprintf(&body, "[context %d]\n%s\n\n", i+1, chunk)
	}
	body.WriteString("Question: ")
	body.WriteString(prompt)

	contents := []*genai.Content{genai.NewContentFromText(body.String(), genai.RoleUser)}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("google generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("google generate: empty response")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	return out.String(), nil
}
