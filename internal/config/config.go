package config

import (
	"strconv"
	"strings"
	"time"

	"book-rag/internal/models"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"

	StoreChromem  = "chromem"
	StorePGVector = "pgvector"
)

type Config struct {
	Provider string       `yaml:"provider" json:"provider"`
	Gemini   GeminiConfig `yaml:"gemini" json:"gemini"`
	Ollama   OllamaConfig `yaml:"ollama" json:"ollama"`
	Store    StoreConfig  `yaml:"store" json:"store"`
	RAG      RAGConfig    `yaml:"rag" json:"rag"`
	Server   ServerConfig `yaml:"server" json:"server"`
	Client   ClientConfig `yaml:"client" json:"client"`
	Log      LogConfig    `yaml:"log" json:"log"`
}

type GeminiConfig struct {
	APIKey         string `yaml:"-" json:"-"`
	BaseURL        string `yaml:"base_url" json:"base_url"`
	ChatModel      string `yaml:"chat_model" json:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model" json:"embedding_model"`
}

type OllamaConfig struct {
	Host           string `yaml:"host" json:"host"`
	ChatModel      string `yaml:"chat_model" json:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model" json:"embedding_model"`
}

type StoreConfig struct {
	Backend     string `yaml:"backend" json:"backend"`
	Path        string `yaml:"path" json:"path"`
	InMemory    bool   `yaml:"in_memory" json:"in_memory"`
	Collection  string `yaml:"collection" json:"collection"`
	PostgresDSN string `yaml:"-" json:"-"`
	Debug       bool   `yaml:"debug" json:"debug"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
	TopK         int `yaml:"top_k" json:"top_k"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr" json:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb" json:"max_upload_mb"`
}

type ClientConfig struct {
	UseAPI  bool          `yaml:"use_api" json:"use_api"`
	APIURL  string        `yaml:"api_url" json:"api_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// Load resolves every setting once. Malformed numeric, boolean or duration
// values are reported as ConfigError; semantic checks live in Validate.
func Load(r *Resolver) (*Config, error) {
	p := parser{r: r}
	cfg := &Config{
		Provider: strings.ToLower(r.Get("LLM_PROVIDER", ProviderGemini)),
		Gemini: GeminiConfig{
			APIKey:         r.Get("GOOGLE_API_KEY", ""),
			BaseURL:        r.Get("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
			ChatModel:      r.Get("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
			EmbeddingModel: r.Get("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
		},
		Ollama: OllamaConfig{
			Host:           r.Get("OLLAMA_HOST", "http://localhost:11434"),
			ChatModel:      r.Get("OLLAMA_CHAT_MODEL", "llama3.1"),
			EmbeddingModel: r.Get("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Store: StoreConfig{
			Backend:     strings.ToLower(r.Get("VECTOR_STORE", StoreChromem)),
			Path:        r.Get("CHROMA_DB_PATH", "./chroma_db"),
			InMemory:    p.bool("CHROMA_IN_MEMORY", false),
			Collection:  r.Get("COLLECTION_NAME", "books"),
			PostgresDSN: r.Get("PG_DSN", ""),
			Debug:       p.bool("DB_DEBUG", false),
		},
		RAG: RAGConfig{
			ChunkSize:    p.int("CHUNK_SIZE", models.DefaultChunkSize),
			ChunkOverlap: p.int("CHUNK_OVERLAP", models.DefaultChunkOverlap),
			TopK:         p.int("TOP_K", models.DefaultTopK),
		},
		Server: ServerConfig{
			Addr:        r.Get("SERVER_ADDR", ":8000"),
			MaxUploadMB: p.int("MAX_UPLOAD_MB", 20),
		},
		Client: ClientConfig{
			UseAPI:  p.bool("USE_API", false),
			APIURL:  strings.TrimRight(r.Get("API_URL", "http://localhost:8000"), "/"),
			Timeout: p.duration("API_TIMEOUT", 120*time.Second),
		},
		Log: LogConfig{
			Level:  strings.ToLower(r.Get("LOG_LEVEL", "info")),
			Format: strings.ToLower(r.Get("LOG_FORMAT", "console")),
			File:   r.Get("LOG_FILE", ""),
		},
	}
	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

// Validate checks the settings required by the selected provider and store.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return &models.ConfigError{Key: "GOOGLE_API_KEY", Msg: "required when LLM_PROVIDER is gemini (get one at https://aistudio.google.com/)"}
		}
	case ProviderOllama:
		if c.Ollama.Host == "" {
			return &models.ConfigError{Key: "OLLAMA_HOST", Msg: "must not be empty"}
		}
	default:
		return &models.ConfigError{Key: "LLM_PROVIDER", Msg: "must be 'gemini' or 'ollama', got '" + c.Provider + "'"}
	}

	switch c.Store.Backend {
	case StoreChromem:
		if c.Store.Path == "" && !c.Store.InMemory {
			return &models.ConfigError{Key: "CHROMA_DB_PATH", Msg: "must not be empty"}
		}
	case StorePGVector:
		if c.Store.PostgresDSN == "" {
			return &models.ConfigError{Key: "PG_DSN", Msg: "required when VECTOR_STORE is pgvector"}
		}
	default:
		return &models.ConfigError{Key: "VECTOR_STORE", Msg: "must be 'chromem' or 'pgvector', got '" + c.Store.Backend + "'"}
	}

	if c.RAG.ChunkSize <= 0 {
		return &models.ConfigError{Key: "CHUNK_SIZE", Msg: "must be positive"}
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return &models.ConfigError{Key: "CHUNK_OVERLAP", Msg: "must be >= 0 and smaller than CHUNK_SIZE"}
	}
	if c.RAG.TopK < 0 {
		return &models.ConfigError{Key: "TOP_K", Msg: "must not be negative"}
	}
	return nil
}

// ChatModel and EmbeddingModel return the model names of the active provider.
func (c *Config) ChatModel() string {
	if c.Provider == ProviderOllama {
		return c.Ollama.ChatModel
	}
	return c.Gemini.ChatModel
}

func (c *Config) EmbeddingModel() string {
	if c.Provider == ProviderOllama {
		return c.Ollama.EmbeddingModel
	}
	return c.Gemini.EmbeddingModel
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	r   *Resolver
	err error
}

func (p *parser) int(key string, def int) int {
	raw := p.r.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, "not an integer: "+raw)
		return def
	}
	return v
}

func (p *parser) bool(key string, def bool) bool {
	raw := p.r.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, "not a boolean: "+raw)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := p.r.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, "not a duration: "+raw)
		return def
	}
	return v
}

func (p *parser) fail(key, msg string) {
	if p.err == nil {
		p.err = &models.ConfigError{Key: key, Msg: msg}
	}
}
