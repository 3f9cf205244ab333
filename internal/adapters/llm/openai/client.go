// Package openai implements ports.LanguageModel over the Chat Completions
// API, narrowed from the teacher's internal/llm/openai client (tool
// calling, streaming, self-hosted llama.cpp/mlx_lm compatibility shims) to
// the single-shot, non-streaming completion GenerateRAG needs.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"knowledgeservice/internal/adapters/llm/credential"
	"knowledgeservice/internal/adapters/llm/shared"
)

// Client implements ports.LanguageModel against OpenAI's Chat Completions
// API (or any OpenAI-compatible endpoint via BaseURL).
type Client struct {
	sdk      sdk.Client
	model    string
	embedder shared.Embedder
	credential.Issuer
}

func New(model, apiKey, baseURL, embeddingModel string, signingKey []byte, credentialTTL time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithHTTPClient(httpClient)}
	embeddingBaseURL := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(embeddingBaseURL))
	} else {
		embeddingBaseURL = "https://api.openai.com/v1"
	}
	return &Client{
		sdk:   sdk.NewClient(opts...),
		model: model,
		embedder: shared.Embedder{
			HTTPClient: httpClient,
			BaseURL:    embeddingBaseURL,
			APIKey:     apiKey,
			Model:      embeddingModel,
		},
		Issuer: credential.NewIssuer(signingKey, "knowledgeservice/openai", credentialTTL),
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

	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(c.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(body.String()),
		},
	}

	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if len(comp.Choices) == 0 {
		return "", nil
	}
	return comp.Choices[0].Message.Content, nil
}
