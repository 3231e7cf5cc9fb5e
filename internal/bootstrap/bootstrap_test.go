package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-rag/internal/client"
	"book-rag/internal/config"
	"book-rag/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Provider: config.ProviderOllama,
		Ollama: config.OllamaConfig{
			Host:           "http://127.0.0.1:11434",
			ChatModel:      "llama3.2",
			EmbeddingModel: "nomic-embed-text",
		},
		Store: config.StoreConfig{Backend: config.StoreChromem, InMemory: true, Collection: "books"},
		RAG:   config.RAGConfig{ChunkSize: 500, ChunkOverlap: 100, TopK: 4},
	}
}

func TestNewClientInProcess(t *testing.T) {
	c, closer, err := NewClient(context.Background(), testConfig())
	require.NoError(t, err)
	defer closer.Close()
	assert.IsType(t, &client.InProcess{}, c)

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ollama/nomic-embed-text", h.EmbeddingModel)
}

func TestNewClientRemote(t *testing.T) {
	cfg := testConfig()
	cfg.Client = config.ClientConfig{UseAPI: true, APIURL: "http://localhost:8000", Timeout: time.Second}
	c, closer, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
	assert.IsType(t, &client.HTTP{}, c)
}

func TestNewStorePersistent(t *testing.T) {
	dir := t.TempDir() + "/chroma"
	s, err := NewStore(context.Background(), config.StoreConfig{Backend: config.StoreChromem, Path: dir, Collection: "books"})
	require.NoError(t, err)
	assert.NoError(t, s.Close())
	assert.DirExists(t, dir)
}

func TestNewStoreUnknownBackend(t *testing.T) {
	_, err := NewStore(context.Background(), config.StoreConfig{Backend: "qdrant"})
	assert.ErrorIs(t, err, models.ErrConfig)
}

func TestNewInProcessMissingKey(t *testing.T) {
	cfg := testConfig()
	cfg.Provider = config.ProviderGemini
	_, _, err := NewInProcess(context.Background(), cfg)
	assert.ErrorIs(t, err, models.ErrConfig)
}
