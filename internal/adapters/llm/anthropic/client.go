// Package anthropic implements ports.LanguageModel over the Anthropic
// Messages API, narrowed from the teacher's internal/llm/anthropic client
// (which drives a full multi-turn tool-calling agent loop with streaming,
// prompt caching, and extended-thinking bookkeeping) down to the one call
// GenerateRAG needs: a single-shot completion over a rendered prompt plus
// retrieved context, no tools, no streaming.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"knowledgeservice/internal/adapters/llm/credential"
	"knowledgeservice/internal/adapters/llm/shared"
)

const defaultMaxTokens int64 = 2048

// Client implements ports.LanguageModel against Anthropic's Messages API,
// with embedding calls delegated to shared.Embedder (Anthropic has no
// embeddings endpoint of its own) and credential issuance to
// credential.Issuer (shared across every backend).
type Client struct {
	sdk       sdk.Client
	model     string
	maxTokens int64
	embedder  shared.Embedder
	credential.Issuer
}

func New(model, apiKey, baseURL, embeddingModel, embeddingBaseURL string, signingKey []byte, credentialTTL time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(baseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	if model == "" {
		model = string(sdk.ModelClaude3_7SonnetLatest)
	}
	return &Client{
		sdk:       sdk.NewClient(opts...),
		model:     model,
		maxTokens: defaultMaxTokens,
		embedder: shared.Embedder{
			HTTPClient: httpClient,
			BaseURL:    embeddingBaseURL,
			APIKey:     apiKey,
			Model:      embeddingModel,
		},
		Issuer: credential.NewIssuer(signingKey, "knowledgeservice/anthropic", credentialTTL),
	}
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.embedder.Embed(ctx, text)
}

func (c *Client) GenerateRAG(ctx context.Context, prompt string, contextChunks []string) (string, error) {
	var body strings.Builder
	body.WriteString("Answer the question using only the context below. If the context does not contain the answer, say so.\n\n")
	for i, chunk := range contextChunks {
		fmt.Fprintf(&body, "[context %d]\n%s\n\n", i+1, chunk)
	}
	body.WriteString("Question: ")
	body.WriteString(prompt)

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(body.String())),
		},
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic generate: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(sdk.TextBlock); ok {
			out.WriteString(tb.Text)
		}
	}
	return out.String(), nil
}
