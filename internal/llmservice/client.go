package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"book-rag/internal/config"
	"book-rag/internal/models"
)

// ContentGenerator is the part of langchaingo's llms.Model used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// TokenCounter reports the size of a prompt. Used for logging only.
type TokenCounter func(text string) (int, error)

// Chat answers a question from retrieved context. It keeps no conversation state.
type Chat struct {
	provider string
	model    string
	llm      ContentGenerator
	tokens   TokenCounter
}

// New wraps an already configured generator.
func New(provider, model string, llm ContentGenerator) *Chat {
	return &Chat{provider: provider, model: model, llm: llm}
}

// NewFromConfig builds the chat model of the configured provider.
func NewFromConfig(cfg *config.Config) (*Chat, error) {
	var (
		llm ContentGenerator
		err error
	)
	switch cfg.Provider {
	case config.ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, &models.ConfigError{Key: "GOOGLE_API_KEY", Msg: "required for gemini chat"}
		}
		llm, err = openai.New(
			openai.WithBaseURL(cfg.Gemini.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Gemini.APIKey, "Bearer ")),
			openai.WithModel(cfg.Gemini.ChatModel),
		)
	case config.ProviderOllama:
		llm, err = ollama.New(
			ollama.WithServerURL(cfg.Ollama.Host),
			ollama.WithModel(cfg.Ollama.ChatModel),
		)
	default:
		return nil, &models.ConfigError{Key: "LLM_PROVIDER", Msg: "unknown provider " + cfg.Provider}
	}
	if err != nil {
		return nil, &models.ProviderError{Provider: cfg.Provider, Op: "init chat", Err: err}
	}

	log.Debug().Str("provider", cfg.Provider).Str("model", cfg.ChatModel()).Msg("Created chat model")
	chat := New(cfg.Provider, cfg.ChatModel(), llm)
	chat.tokens = TiktokenCounter()
	return chat, nil
}

// WithTokenCounter enables prompt size logging.
func (c *Chat) WithTokenCounter(counter TokenCounter) *Chat {
	c.tokens = counter
	return c
}

func (c *Chat) Model() string {
	return c.provider + "/" + c.model
}

// BuildMessages renders the system instruction and the question with its
// context, chunks kept in the order given.
func BuildMessages(question string, contexts []string) []llms.MessageContent {
	prompt := fmt.Sprintf(models.QuestionPromptTemplate, strings.Join(contexts, models.ContextSeparator), question)
	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, models.RAGSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
}

// Generate returns the model's answer to question grounded on contexts.
func (c *Chat) Generate(ctx context.Context, question string, contexts []string) (string, error) {
	messages := BuildMessages(question, contexts)
	c.logPromptSize(messages)

	res, err := c.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", &models.ProviderError{Provider: c.provider, Op: "generate", Err: err}
	}
	if res == nil || len(res.Choices) == 0 || res.Choices[0] == nil {
		return "", &models.ProviderError{Provider: c.provider, Op: "generate", Err: errors.New("no choices returned")}
	}
	return strings.TrimSpace(res.Choices[0].Content), nil
}

func (c *Chat) logPromptSize(messages []llms.MessageContent) {
	if c.tokens == nil || zerolog.GlobalLevel() > zerolog.DebugLevel {
		return
	}
	var b strings.Builder
	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				b.WriteString(text.Text)
			}
		}
	}
	count, err := c.tokens(b.String())
	if err != nil {
		return
	}
	log.Debug().Str("model", c.Model()).Int("prompt_tokens", count).Int("prompt_chars", b.Len()).Msg("Generating answer")
}

// TiktokenCounter counts cl100k_base tokens. The encoding is loaded on first
// use; when it cannot be loaded the counter keeps returning that error.
func TiktokenCounter() TokenCounter {
	var (
		once sync.Once
		enc  *tiktoken.Tiktoken
		err  error
	)
	return func(text string) (int, error) {
		once.Do(func() {
			enc, err = tiktoken.GetEncoding("cl100k_base")
			if err != nil {
				log.Debug().Err(err).Msg("Token counting disabled")
			}
		})
		if err != nil {
			return 0, err
		}
		return len(enc.Encode(text, nil, nil)), nil
	}
}
