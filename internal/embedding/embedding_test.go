package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-rag/internal/config"
	"book-rag/internal/models"
)

type fakeClient struct {
	vector []float32
	err    error
	texts  []string
}

func (f *fakeClient) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.texts = append(f.texts, text)
	return f.vector, f.err
}

func TestEmbed(t *testing.T) {
	client := &fakeClient{vector: []float32{0.1, 0.2, 0.3}}
	e := New("ollama", "nomic-embed-text", client)

	v, err := e.Embed(context.Background(), "Who is the Queen?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, v)
	assert.Equal(t, []string{"Who is the Queen?"}, client.texts)
	assert.Equal(t, "ollama/nomic-embed-text", e.Model())
}

func TestEmbedFailures(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
	}{
		{name: "client error", client: &fakeClient{err: errors.New("connection refused")}},
		{name: "empty vector", client: &fakeClient{vector: []float32{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("gemini", "text-embedding-004", tt.client).Embed(context.Background(), "x")
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrProvider))

			var perr *models.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "gemini", perr.Provider)
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	_, err := NewFromConfig(&config.Config{Provider: "nope"})
	assert.True(t, errors.Is(err, models.ErrConfig))

	_, err = NewFromConfig(&config.Config{Provider: config.ProviderGemini})
	assert.True(t, errors.Is(err, models.ErrConfig))

	e, err := NewFromConfig(&config.Config{
		Provider: config.ProviderOllama,
		Ollama:   config.OllamaConfig{Host: "http://localhost:11434", EmbeddingModel: "nomic-embed-text"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ollama/nomic-embed-text", e.Model())
}

// Vectors from different providers live in different spaces; the model
// identifier is what the index records to catch a switch.
func TestProvidersAreDistinguishable(t *testing.T) {
	a := New(config.ProviderGemini, "text-embedding-004", &fakeClient{vector: make([]float32, 768)})
	b := New(config.ProviderOllama, "nomic-embed-text", &fakeClient{vector: make([]float32, 768)})

	assert.NotEqual(t, a.Model(), b.Model())
}
