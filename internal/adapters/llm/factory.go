// Package llm selects a ports.LanguageModel backend by config, grounded on
// the teacher's internal/llm/providers/factory.go provider switch.
package llm

import (
	"fmt"
	"net/http"
	"time"

	"knowledgeservice/internal/adapters/llm/anthropic"
	"knowledgeservice/internal/adapters/llm/google"
	openaillm "knowledgeservice/internal/adapters/llm/openai"
	"knowledgeservice/internal/config"
	"knowledgeservice/internal/ports"
)

// Build constructs the configured ports.LanguageModel implementation.
// Embedding calls for the anthropic and openai backends go through a shared
// OpenAI-compatible /embeddings endpoint (Anthropic has none of its own);
// the google backend uses Gemini's native embedding API instead.
func Build(cfg config.LLMConfig, httpClient *http.Client) (ports.LanguageModel, error) {
	ttl := time.Duration(cfg.CredentialTTLSeconds) * time.Second
	signingKey := []byte(cfg.CredentialSigningKey)
	switch cfg.Provider {
	case "anthropic":
		return anthropic.New(cfg.Model, cfg.APIKey, cfg.BaseURL, cfg.EmbeddingModel, cfg.EmbeddingBaseURL, signingKey, ttl, httpClient), nil
	case "", "openai":
		return openaillm.New(cfg.Model, cfg.APIKey, cfg.BaseURL, cfg.EmbeddingModel, signingKey, ttl, httpClient), nil
	case "google":
		return google.New(cfg.Model, cfg.APIKey, cfg.BaseURL, cfg.EmbeddingModel, signingKey, ttl, httpClient)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
