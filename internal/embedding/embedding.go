package embedding

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"book-rag/internal/config"
	"book-rag/internal/models"
)

// QueryEmbedder is the part of langchaingo's embeddings.Embedder used here.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Embedder turns text into vectors with one fixed model.
type Embedder struct {
	provider string
	model    string
	client   QueryEmbedder
}

// New wraps an already configured client. provider and model form the
// identifier recorded with the index.
func New(provider, model string, client QueryEmbedder) *Embedder {
	return &Embedder{provider: provider, model: model, client: client}
}

// NewFromConfig builds the embedder of the configured provider.
func NewFromConfig(cfg *config.Config) (*Embedder, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiEmbedder(&cfg.Gemini)
	case config.ProviderOllama:
		return NewOllamaEmbedder(&cfg.Ollama)
	default:
		return nil, &models.ConfigError{Key: "LLM_PROVIDER", Msg: "unknown provider " + cfg.Provider}
	}
}

// NewGeminiEmbedder talks to the hosted Gemini API through its OpenAI-compatible endpoint.
func NewGeminiEmbedder(cfg *config.GeminiConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, &models.ConfigError{Key: "GOOGLE_API_KEY", Msg: "required for gemini embeddings"}
	}
	log.Debug().Interface("config", map[string]string{
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.EmbeddingModel,
	}).Msg("Creating gemini embedder")

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.APIKey, "Bearer ")),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, &models.ProviderError{Provider: config.ProviderGemini, Op: "init embedder", Err: err}
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, &models.ProviderError{Provider: config.ProviderGemini, Op: "init embedder", Err: err}
	}
	return New(config.ProviderGemini, cfg.EmbeddingModel, embedder), nil
}

// NewOllamaEmbedder talks to a local Ollama server.
func NewOllamaEmbedder(cfg *config.OllamaConfig) (*Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        cfg.Host,
		"embedding_model": cfg.EmbeddingModel,
	}).Msg("Creating ollama embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, &models.ProviderError{Provider: config.ProviderOllama, Op: "init embedder", Err: err}
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, &models.ProviderError{Provider: config.ProviderOllama, Op: "init embedder", Err: err}
	}
	return New(config.ProviderOllama, cfg.EmbeddingModel, embedder), nil
}

// Model identifies the vector space, e.g. "ollama/nomic-embed-text".
func (e *Embedder) Model() string {
	return e.provider + "/" + e.model
}

// Embed returns the vector for text. Every failure is a ProviderError.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.client.EmbedQuery(ctx, text)
	if err != nil {
		return nil, &models.ProviderError{Provider: e.provider, Op: "embed", Err: err}
	}
	if len(vector) == 0 {
		return nil, &models.ProviderError{Provider: e.provider, Op: "embed", Err: errors.New("empty embedding returned")}
	}
	return vector, nil
}
