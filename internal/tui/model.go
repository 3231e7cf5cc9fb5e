package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"book-rag/internal/models"
)

// Querier is the part of client.Client the terminal UI needs.
type Querier interface {
	Query(ctx context.Context, req models.QueryRequest) (*models.Answer, error)
}

type answerMsg struct {
	answer *models.Answer
	err    error
}

// Model is the Bubble Tea model of the interactive query screen.
type Model struct {
	ctx      context.Context
	service  Querier
	bookID   string
	k        *int
	input    textinput.Model
	viewport viewport.Model
	answer   *models.Answer
	status   string
	cursor   int
	pending  bool
	ready    bool
	question string
}

// New creates the query screen. An empty bookID searches every book and a
// nil k uses the server's default.
func New(ctx context.Context, service Querier, bookID string, k *int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your books and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:      ctx,
		service:  service,
		bookID:   bookID,
		k:        k,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Ready. Up/Down switches sources, Ctrl+C quits.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, scope, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.render())
		return m, nil
	case answerMsg:
		m.pending = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.answer = nil
		} else {
			m.answer = msg.answer
			m.cursor = 0
			m.status = fmt.Sprintf("Answered %q from %d source(s)", m.question, len(msg.answer.Sources))
		}
		m.viewport.SetContent(m.render())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.pending = true
			m.question = q
			m.input.SetValue("")
			m.status = "Thinking..."
			return m, m.ask(q)
		case "down":
			if n := m.sourceCount(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.render())
				return m, nil
			}
		case "up":
			if n := m.sourceCount(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.render())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	req := models.QueryRequest{Question: question, BookID: m.bookID, K: m.k}
	return func() tea.Msg {
		answer, err := m.service.Query(m.ctx, req)
		return answerMsg{answer: answer, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Book RAG")
	scope := "All books"
	if m.bookID != "" {
		scope = "Book: " + m.bookID
	}
	scopeLine := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(scope)
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + scopeLine + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) sourceCount() int {
	if m.answer == nil {
		return 0
	}
	return len(m.answer.Sources)
}

func (m Model) render() string {
	if m.answer == nil {
		return "No answer yet."
	}
	out := answerStyle.Render(m.answer.Content)
	if len(m.answer.Sources) == 0 {
		return out
	}
	s := m.answer.Sources[m.cursor]
	title := fmt.Sprintf("Source %d/%d  %s #%d  similarity=%.3f", m.cursor+1, len(m.answer.Sources), s.BookID, s.ChunkIndex, s.Similarity)
	return out + "\n\n" + sourceTitleStyle.Render(title) + "\n" + highlightBestSentence(s.Content, m.question)
}

var (
	resultBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerStyle      = lipgloss.NewStyle().Bold(true)
	sourceTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	wordRe           = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe       = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence marks the sentence sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qWords := wordSet(query)
	best, bestScore := -1, 0
	for i, s := range sentences {
		if score := overlap(qWords, s); score > bestScore {
			best, bestScore = i, score
		}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
		if i == best {
			sentences[i] = highlightStyle.Render(sentences[i])
		}
	}
	return strings.Join(sentences, " ")
}

func wordSet(s string) map[string]struct{} {
	words := wordRe.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func overlap(query map[string]struct{}, sentence string) int {
	score := 0
	for w := range wordSet(sentence) {
		if _, ok := query[w]; ok {
			score++
		}
	}
	return score
}
