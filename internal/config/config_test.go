package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-rag/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv blanks the settings a developer machine may export.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LLM_PROVIDER", "GOOGLE_API_KEY", "VECTOR_STORE", "PG_DSN", "CHUNK_SIZE", "CHUNK_OVERLAP", "TOP_K", "API_TIMEOUT"} {
		t.Setenv(key, "")
	}
}

func TestResolverOrder(t *testing.T) {
	r := NewResolver(Secrets{"ONLY_SECRET": "from-secret", "BOTH": "from-secret"})
	t.Setenv("BOTH", "from-env")

	assert.Equal(t, "from-env", r.Get("BOTH", "def"))
	assert.Equal(t, "from-secret", r.Get("ONLY_SECRET", "def"))
	assert.Equal(t, "def", r.Get("BOOKRAG_TEST_MISSING", "def"))
}

func TestResolverWithoutSecretStore(t *testing.T) {
	var r *Resolver
	assert.Equal(t, "def", r.Get("BOOKRAG_TEST_MISSING", "def"))
	assert.Equal(t, "def", NewResolver(nil).Get("BOOKRAG_TEST_MISSING", "def"))
}

func TestNewDefaultResolverSkipsMissingFile(t *testing.T) {
	t.Setenv(SecretsFileEnv, filepath.Join(t.TempDir(), "nope.toml"))
	r := NewDefaultResolver()
	assert.Equal(t, "def", r.Get("BOOKRAG_TEST_MISSING", "def"))
}

func TestNewDefaultResolverSkipsBrokenFile(t *testing.T) {
	t.Setenv(SecretsFileEnv, writeFile(t, "broken.toml", "this is = = not toml"))
	r := NewDefaultResolver()
	assert.Equal(t, "def", r.Get("BOOKRAG_TEST_MISSING", "def"))
}

func TestLoadSecrets(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "toml",
			file:    "secrets.toml",
			content: "GOOGLE_API_KEY = \"abc\"\nCHUNK_SIZE = 300\n[nested]\nx = 1\n",
		},
		{
			name:    "yaml",
			file:    "secrets.yaml",
			content: "GOOGLE_API_KEY: abc\nCHUNK_SIZE: 300\nnested:\n  x: 1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secrets, err := LoadSecrets(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)

			v, ok := secrets.Lookup("GOOGLE_API_KEY")
			assert.True(t, ok)
			assert.Equal(t, "abc", v)

			v, ok = secrets.Lookup("CHUNK_SIZE")
			assert.True(t, ok)
			assert.Equal(t, "300", v)

			_, ok = secrets.Lookup("nested")
			assert.False(t, ok)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(NewResolver(Secrets{"GOOGLE_API_KEY": "key"}))
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "key", cfg.Gemini.APIKey)
	assert.Equal(t, StoreChromem, cfg.Store.Backend)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 100, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 4, cfg.RAG.TopK)
	assert.Equal(t, 120*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "text-embedding-004", cfg.EmbeddingModel())
	require.NoError(t, cfg.Validate())
}

func TestLoadMalformedValue(t *testing.T) {
	clearEnv(t)
	_, err := Load(NewResolver(Secrets{"CHUNK_SIZE": "big"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfig))

	var cerr *models.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "CHUNK_SIZE", cerr.Key)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		secrets Secrets
		wantKey string
	}{
		{name: "gemini without key", secrets: Secrets{}, wantKey: "GOOGLE_API_KEY"},
		{name: "unknown provider", secrets: Secrets{"LLM_PROVIDER": "claude"}, wantKey: "LLM_PROVIDER"},
		{name: "ollama ok", secrets: Secrets{"LLM_PROVIDER": "ollama"}},
		{name: "pgvector without dsn", secrets: Secrets{"LLM_PROVIDER": "ollama", "VECTOR_STORE": "pgvector"}, wantKey: "PG_DSN"},
		{name: "unknown store", secrets: Secrets{"LLM_PROVIDER": "ollama", "VECTOR_STORE": "faiss"}, wantKey: "VECTOR_STORE"},
		{name: "overlap too large", secrets: Secrets{"LLM_PROVIDER": "ollama", "CHUNK_SIZE": "100", "CHUNK_OVERLAP": "100"}, wantKey: "CHUNK_OVERLAP"},
		{name: "zero size", secrets: Secrets{"LLM_PROVIDER": "ollama", "CHUNK_SIZE": "0", "CHUNK_OVERLAP": "0"}, wantKey: "CHUNK_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(NewResolver(tt.secrets))
			require.NoError(t, err)

			err = cfg.Validate()
			if tt.wantKey == "" {
				assert.NoError(t, err)
				return
			}
			var cerr *models.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.wantKey, cerr.Key)
		})
	}
}
