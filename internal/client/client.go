package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"book-rag/internal/helper"
	"book-rag/internal/models"
	"book-rag/internal/parser"
	"book-rag/internal/rag"
)

// Client is what the CLI, the terminal UI and the REST layer talk to.
type Client interface {
	ListBooks(ctx context.Context) ([]models.Book, error)
	IngestBook(ctx context.Context, req models.IngestRequest) (*models.IngestResult, error)
	DeleteBook(ctx context.Context, bookID string) error
	Query(ctx context.Context, req models.QueryRequest) (*models.Answer, error)
	Health(ctx context.Context) (*models.Health, error)
}

// InProcess runs the orchestrator in the current process.
type InProcess struct {
	rag  *rag.RAG
	topK int

	// Progress, when set, receives ingestion progress.
	Progress rag.ProgressFunc
}

func NewInProcess(r *rag.RAG, topK int) *InProcess {
	if topK <= 0 {
		topK = models.DefaultTopK
	}
	return &InProcess{rag: r, topK: topK}
}

func (c *InProcess) ListBooks(ctx context.Context) ([]models.Book, error) {
	return c.rag.ListBooks(ctx)
}

// IngestBook extracts the text of the uploaded file and ingests it. The book
// id defaults to the file name and the title to the id.
func (c *InProcess) IngestBook(ctx context.Context, req models.IngestRequest) (*models.IngestResult, error) {
	bookID := strings.TrimSpace(req.BookID)
	if bookID == "" {
		bookID = helper.BookIDFromFilename(req.Filename)
	}
	if bookID == "" {
		return nil, fmt.Errorf("%w: book id or file name is required", models.ErrInvalidInput)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = helper.TitleFromID(bookID)
	}

	text, err := parser.ExtractText(req.Filename, req.Content)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("book_id", bookID).Str("file", req.Filename).Int("bytes", len(req.Content)).Msg("Extracted book text")

	n, err := c.rag.Ingest(ctx, bookID, title, text, c.Progress)
	if err != nil {
		return nil, err
	}
	return &models.IngestResult{BookID: bookID, Title: title, Chunks: n}, nil
}

func (c *InProcess) DeleteBook(ctx context.Context, bookID string) error {
	return c.rag.DeleteBook(ctx, bookID)
}

func (c *InProcess) Query(ctx context.Context, req models.QueryRequest) (*models.Answer, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: question is required", models.ErrInvalidInput)
	}
	k := c.topK
	if req.K != nil {
		k = *req.K
	}
	return c.rag.Query(ctx, req.Question, req.BookID, k)
}

func (c *InProcess) Health(_ context.Context) (*models.Health, error) {
	h := c.rag.Health()
	return &h, nil
}
