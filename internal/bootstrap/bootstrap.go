package bootstrap

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"

	"book-rag/internal/chromemdb"
	"book-rag/internal/client"
	"book-rag/internal/config"
	"book-rag/internal/db"
	"book-rag/internal/embedding"
	"book-rag/internal/helper"
	"book-rag/internal/llmservice"
	"book-rag/internal/models"
	"book-rag/internal/rag"
)

// Store is a vector store that holds resources until closed.
type Store interface {
	rag.VectorStore
	io.Closer
}

// NewStore opens the configured vector store backend.
func NewStore(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.StoreChromem:
		if !cfg.InMemory {
			if err := helper.CreateFolder(cfg.Path); err != nil {
				return nil, &models.StorageError{Op: "open", Err: err}
			}
		}
		s, err := chromemdb.NewVectorDBManager(cfg.Path, cfg.Collection, cfg.InMemory)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorePGVector:
		s, err := db.Open(ctx, cfg.PostgresDSN, cfg.Debug)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, &models.ConfigError{Key: "VECTOR_STORE", Msg: "unknown backend " + cfg.Backend}
	}
}

// NewInProcess wires providers, store and orchestrator. The returned closer
// releases the store.
func NewInProcess(ctx context.Context, cfg *config.Config) (*client.InProcess, io.Closer, error) {
	embedder, err := embedding.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	chat, err := llmservice.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	r := rag.NewRAG(store, embedder, chat, rag.Options{
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
		Provider:     cfg.Provider,
	})
	log.Info().
		Str("provider", cfg.Provider).
		Str("embedding_model", embedder.Model()).
		Str("chat_model", chat.Model()).
		Str("store", cfg.Store.Backend).
		Msg("RAG initialized")
	return client.NewInProcess(r, cfg.RAG.TopK), store, nil
}

// NewClient returns the HTTP client when USE_API is set and the in-process
// orchestrator otherwise.
func NewClient(ctx context.Context, cfg *config.Config) (client.Client, io.Closer, error) {
	if cfg.Client.UseAPI {
		log.Info().Str("api_url", cfg.Client.APIURL).Msg("Using remote API")
		return client.NewHTTP(cfg.Client.APIURL, cfg.Client.Timeout), nopCloser{}, nil
	}
	c, closer, err := NewInProcess(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return c, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
