package llmservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"book-rag/internal/config"
	"book-rag/internal/models"
)

type fakeLLM struct {
	res      *llms.ContentResponse
	err      error
	messages []llms.MessageContent
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	return f.res, f.err
}

func answer(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func textOf(t *testing.T, m llms.MessageContent) string {
	t.Helper()
	require.Len(t, m.Parts, 1)
	part, ok := m.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestGenerate(t *testing.T) {
	llm := &fakeLLM{res: answer("  The Queen of Hearts.\n")}
	chat := New("ollama", "llama3.1", llm)

	got, err := chat.Generate(context.Background(), "Who is the Queen?", []string{"first chunk", "second chunk"})
	require.NoError(t, err)
	assert.Equal(t, "The Queen of Hearts.", got)

	require.Len(t, llm.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, llm.messages[0].Role)
	assert.Contains(t, textOf(t, llm.messages[0]), "Use ONLY the information from the context")

	assert.Equal(t, llms.ChatMessageTypeHuman, llm.messages[1].Role)
	prompt := textOf(t, llm.messages[1])
	assert.Equal(t, "Context:\nfirst chunk\n\n---\n\nsecond chunk\n\nQuestion: Who is the Queen?", prompt)
	assert.Less(t, strings.Index(prompt, "first chunk"), strings.Index(prompt, "second chunk"))
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeLLM
	}{
		{name: "call error", llm: &fakeLLM{err: errors.New("quota exceeded")}},
		{name: "nil response", llm: &fakeLLM{}},
		{name: "no choices", llm: &fakeLLM{res: &llms.ContentResponse{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("gemini", "gemini-2.0-flash", tt.llm).Generate(context.Background(), "q", []string{"c"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrProvider))
		})
	}
}

func TestGenerateLogsPromptSize(t *testing.T) {
	var counted string
	chat := New("ollama", "llama3.1", &fakeLLM{res: answer("ok")}).
		WithTokenCounter(func(text string) (int, error) {
			counted = text
			return 42, nil
		})

	_, err := chat.Generate(context.Background(), "Who?", []string{"ctx"})
	require.NoError(t, err)
	assert.Contains(t, counted, models.RAGSystemPrompt)
	assert.Contains(t, counted, "Question: Who?")
}

func TestNewFromConfig(t *testing.T) {
	_, err := NewFromConfig(&config.Config{Provider: config.ProviderGemini})
	assert.True(t, errors.Is(err, models.ErrConfig))

	chat, err := NewFromConfig(&config.Config{
		Provider: config.ProviderOllama,
		Ollama:   config.OllamaConfig{Host: "http://localhost:11434", ChatModel: "llama3.1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ollama/llama3.1", chat.Model())
}
