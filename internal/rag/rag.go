package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"book-rag/internal/models"
	"book-rag/internal/parser"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

type ChatModel interface {
	Generate(ctx context.Context, question string, contexts []string) (string, error)
}

// VectorStore is implemented by chromemdb.VectorDBManager and db.Store.
type VectorStore interface {
	Upsert(ctx context.Context, chunk models.Chunk, vector []float32) error
	Query(ctx context.Context, vector []float32, k int, bookID string) ([]models.Result, error)
	Delete(ctx context.Context, bookID string) error
	ListBooks(ctx context.Context) ([]models.Book, error)
	// ChunkCount counts stored chunks of bookID, or of every book when
	// bookID is empty, including chunks of books missing from the catalog.
	ChunkCount(ctx context.Context, bookID string) (int, error)
	PutBook(ctx context.Context, book models.Book) error
	IndexInfo(ctx context.Context) (*models.IndexInfo, error)
	SetIndexInfo(ctx context.Context, info *models.IndexInfo) error
}

// ProgressFunc is called after each chunk is stored.
type ProgressFunc func(done, total int)

type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Provider     string
	Now          func() time.Time
}

type RAG struct {
	store    VectorStore
	embedder Embedder
	chat     ChatModel
	opts     Options
}

func NewRAG(store VectorStore, embedder Embedder, chat ChatModel, opts Options) *RAG {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = models.DefaultChunkSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = models.DefaultChunkOverlap
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RAG{store: store, embedder: embedder, chat: chat, opts: opts}
}

// Ingest replaces the stored chunks of bookID with the chunks of rawText and
// returns how many were stored. The book is listed with zero chunks until the
// last chunk is stored. There is no rollback: a failure part-way leaves the
// chunks stored so far, and the book can be deleted or ingested again.
func (r *RAG) Ingest(ctx context.Context, bookID, title, rawText string, progress ProgressFunc) (int, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return 0, fmt.Errorf("%w: book id is required", models.ErrInvalidInput)
	}
	if title == "" {
		title = bookID
	}

	chunks, err := parser.Chunk(parser.StripBoilerplate(rawText), r.opts.ChunkSize, r.opts.ChunkOverlap)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: book %q has no text", models.ErrInvalidInput, bookID)
	}

	logger := log.With().Str("book_id", bookID).Int("chunks", len(chunks)).Logger()
	logger.Info().Msg("Ingesting book")

	first, err := r.embedder.Embed(ctx, chunks[0])
	if err != nil {
		return 0, err
	}
	// When bookID is the only book, re-ingesting it may switch the model.
	sole, err := r.onlyBook(ctx, bookID)
	if err != nil {
		return 0, err
	}
	if !sole {
		if err := r.checkIndex(ctx, len(first), false); err != nil {
			return 0, err
		}
	}

	if err := r.store.Delete(ctx, bookID); err != nil {
		return 0, err
	}
	if sole {
		if err := r.store.SetIndexInfo(ctx, nil); err != nil {
			return 0, err
		}
	}
	if err := r.checkIndex(ctx, len(first), true); err != nil {
		return 0, err
	}
	book := models.Book{ID: bookID, Title: title, IngestedAt: r.opts.Now().UTC()}
	if err := r.store.PutBook(ctx, book); err != nil {
		return 0, err
	}

	for i, text := range chunks {
		vec := first
		if i > 0 {
			if vec, err = r.embedder.Embed(ctx, text); err != nil {
				return i, err
			}
		}
		chunk := models.Chunk{BookID: bookID, Title: title, Index: i, Content: text}
		if err := r.store.Upsert(ctx, chunk, vec); err != nil {
			return i, err
		}
		if progress != nil {
			progress(i+1, len(chunks))
		}
	}

	book.Chunks = len(chunks)
	if err := r.store.PutBook(ctx, book); err != nil {
		return len(chunks), err
	}
	logger.Info().Msg("Book ingested")
	return len(chunks), nil
}

// Query answers question from the k most similar chunks, restricted to
// bookID when it is not empty.
func (r *RAG) Query(ctx context.Context, question, bookID string, k int) (*models.Answer, error) {
	answer := &models.Answer{Question: question, BookID: bookID, Sources: []models.Result{}}
	if k <= 0 {
		answer.Content = models.NoInformationAnswer
		return answer, nil
	}

	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	if err := r.checkIndex(ctx, len(vec), false); err != nil {
		return nil, err
	}

	results, err := r.store.Query(ctx, vec, k, bookID)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("book_id", bookID).Int("k", k).Int("results", len(results)).Msg("Retrieved chunks")

	if len(results) == 0 {
		answer.Content = models.NoInformationAnswer
		return answer, nil
	}

	contexts := make([]string, len(results))
	for i, res := range results {
		contexts[i] = res.Content
	}
	content, err := r.chat.Generate(ctx, question, contexts)
	if err != nil {
		return nil, err
	}
	answer.Content = content
	answer.Sources = results
	return answer, nil
}

// DeleteBook removes a book, including the chunks left by a failed ingest.
func (r *RAG) DeleteBook(ctx context.Context, bookID string) error {
	books, err := r.store.ListBooks(ctx)
	if err != nil {
		return err
	}
	listed := false
	for _, b := range books {
		if b.ID == bookID {
			listed = true
			break
		}
	}
	stored, err := r.store.ChunkCount(ctx, bookID)
	if err != nil {
		return err
	}
	if !listed && stored == 0 {
		return &models.NotFoundError{Resource: "book", ID: bookID}
	}

	if err := r.store.Delete(ctx, bookID); err != nil {
		return err
	}
	log.Info().Str("book_id", bookID).Int("chunks", stored).Msg("Book deleted")

	remaining, err := r.store.ChunkCount(ctx, "")
	if err != nil {
		return err
	}
	if remaining == 0 {
		// No vectors left, so another embedding model may be used from now on.
		if err := r.store.SetIndexInfo(ctx, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *RAG) ListBooks(ctx context.Context) ([]models.Book, error) {
	return r.store.ListBooks(ctx)
}

func (r *RAG) Health() models.Health {
	return models.Health{Status: "ok", Provider: r.opts.Provider, EmbeddingModel: r.embedder.Model()}
}

// onlyBook reports whether neither the catalog nor the store holds anything
// but bookID.
func (r *RAG) onlyBook(ctx context.Context, bookID string) (bool, error) {
	books, err := r.store.ListBooks(ctx)
	if err != nil {
		return false, err
	}
	for _, b := range books {
		if b.ID != bookID {
			return false, nil
		}
	}
	total, err := r.store.ChunkCount(ctx, "")
	if err != nil {
		return false, err
	}
	own, err := r.store.ChunkCount(ctx, bookID)
	if err != nil {
		return false, err
	}
	return total == own, nil
}

// checkIndex compares the active embedding model with the one recorded for
// the collection. With record set, a missing entry is filled in.
func (r *RAG) checkIndex(ctx context.Context, dim int, record bool) error {
	active := models.IndexInfo{Model: r.embedder.Model(), Dimension: dim}
	stored, err := r.store.IndexInfo(ctx)
	if err != nil {
		return err
	}
	if stored == nil {
		if !record {
			return nil
		}
		log.Debug().Str("index", active.String()).Msg("Recording index info")
		return r.store.SetIndexInfo(ctx, &active)
	}
	if *stored != active {
		return &models.IndexMismatchError{Stored: *stored, Active: active}
	}
	return nil
}
