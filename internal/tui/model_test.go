package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-rag/internal/models"
)

type fakeQuerier struct {
	req models.QueryRequest
	err error
}

func (f *fakeQuerier) Query(_ context.Context, req models.QueryRequest) (*models.Answer, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Answer{
		Question: req.Question,
		Content:  "The Queen of Hearts.",
		Sources: []models.Result{
			{BookID: "alice", ChunkIndex: 4, Content: "The Queen had only one way. Off with his head!", Similarity: 0.9},
			{BookID: "alice", ChunkIndex: 7, Content: "The King spoke.", Similarity: 0.5},
		},
	}, nil
}

func typeQuestion(m Model, q string) Model {
	for _, r := range q {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func submit(t *testing.T, m Model) Model {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.pending)
	next, _ = m.Update(cmd())
	return next.(Model)
}

func TestQueryFlow(t *testing.T) {
	f := &fakeQuerier{}
	k := 3
	m := New(context.Background(), f, "alice", &k)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = next.(Model)

	m = submit(t, typeQuestion(m, "who is the queen"))
	assert.False(t, m.pending)
	assert.Equal(t, "who is the queen", f.req.Question)
	assert.Equal(t, "alice", f.req.BookID)
	require.NotNil(t, f.req.K)
	assert.Equal(t, 3, *f.req.K)
	require.NotNil(t, m.answer)
	assert.Contains(t, m.render(), "The Queen of Hearts.")
	assert.Contains(t, m.render(), "Source 1/2")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.render(), "Source 2/2")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 0, m.cursor)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
}

func TestQueryError(t *testing.T) {
	m := New(context.Background(), &fakeQuerier{err: errors.New("provider down")}, "", nil)
	m = submit(t, typeQuestion(m, "anything"))
	assert.Nil(t, m.answer)
	assert.Contains(t, m.status, "provider down")
}

func TestEmptyQuestionIsIgnored(t *testing.T) {
	m := New(context.Background(), &fakeQuerier{}, "", nil)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, next.(Model).pending)
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("The King spoke. The Queen shouted.", "queen")
	assert.Contains(t, out, "The King spoke.")
	assert.Contains(t, out, "The Queen shouted.")
	assert.Equal(t, "plain", highlightBestSentence("plain", "nothing"))
}
