package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"book-rag/internal/models"
)

const compress = false

// VectorDBManager stores book chunks in a chromem-go collection. It satisfies
// the orchestrator's vector store contract.
type VectorDBManager struct {
	collection *chromem.Collection
	catalog    *catalog
}

// NewVectorDBManager opens (or creates) the collection. With inMemory set
// nothing is written to dbPath.
func NewVectorDBManager(dbPath, collectionName string, inMemory bool) (*VectorDBManager, error) {
	var (
		db  *chromem.DB
		err error
	)
	catalogPath := ""
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, &models.StorageError{Op: "open", Err: fmt.Errorf("failed to create database: %w", err)}
		}
		catalogPath = filepath.Join(dbPath, collectionName+".catalog.yaml")
	}

	// embeddings are always supplied by the caller; the embedding func is never invoked
	c, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, &models.StorageError{Op: "open", Err: fmt.Errorf("failed to create/get collection: %w", err)}
	}

	cat, err := openCatalog(catalogPath)
	if err != nil {
		return nil, &models.StorageError{Op: "open", Err: err}
	}

	log.Debug().Str("path", dbPath).Str("collection", collectionName).Bool("in_memory", inMemory).
		Int("documents", c.Count()).Msg("Opened chromem collection")

	return &VectorDBManager{
		collection: c,
		catalog:    cat,
	}, nil
}

// Upsert adds the chunk or replaces the one stored under the same (book, index).
func (m *VectorDBManager) Upsert(ctx context.Context, chunk models.Chunk, vector []float32) error {
	doc := chromem.Document{
		ID:      chunk.ID(),
		Content: chunk.Content,
		Metadata: map[string]string{
			models.MetaBook:  chunk.BookID,
			models.MetaTitle: chunk.Title,
			models.MetaChunk: strconv.Itoa(chunk.Index),
		},
		Embedding: vector,
	}
	if err := m.collection.AddDocument(ctx, doc); err != nil {
		return &models.StorageError{Op: "upsert", Err: fmt.Errorf("failed to add document %s: %w", doc.ID, err)}
	}
	if err := m.catalog.addChunk(chunk.BookID, chunk.Index); err != nil {
		return &models.StorageError{Op: "upsert", Err: err}
	}
	return nil
}

// Query returns up to k chunks most similar to vector, restricted to bookID
// when it is not empty.
func (m *VectorDBManager) Query(ctx context.Context, vector []float32, k int, bookID string) ([]models.Result, error) {
	// chromem rejects nResults above the number of candidate documents or below one
	available := m.collection.Count()
	var where map[string]string
	if bookID != "" {
		where = map[string]string{models.MetaBook: bookID}
		available = min(available, m.catalog.chunks(bookID))
	}
	n := min(k, available)
	if n <= 0 {
		return nil, nil
	}

	docs, err := m.collection.QueryEmbedding(ctx, vector, n, where, nil)
	if err != nil {
		return nil, &models.StorageError{Op: "query", Err: fmt.Errorf("failed to query by similarity: %w", err)}
	}

	results := make([]models.Result, 0, len(docs))
	for _, d := range docs {
		idx, _ := strconv.Atoi(d.Metadata[models.MetaChunk])
		results = append(results, models.Result{
			BookID:     d.Metadata[models.MetaBook],
			Title:      d.Metadata[models.MetaTitle],
			ChunkIndex: idx,
			Content:    d.Content,
			Similarity: d.Similarity,
		})
	}
	return results, nil
}

// Delete removes every chunk of the book and its catalog entry.
func (m *VectorDBManager) Delete(ctx context.Context, bookID string) error {
	if err := m.collection.Delete(ctx, map[string]string{models.MetaBook: bookID}, nil); err != nil {
		return &models.StorageError{Op: "delete", Err: fmt.Errorf("failed to delete book %s: %w", bookID, err)}
	}
	if err := m.catalog.remove(bookID); err != nil {
		return &models.StorageError{Op: "delete", Err: err}
	}
	return nil
}

func (m *VectorDBManager) PutBook(_ context.Context, book models.Book) error {
	if err := m.catalog.put(book); err != nil {
		return &models.StorageError{Op: "put book", Err: err}
	}
	return nil
}

func (m *VectorDBManager) ListBooks(_ context.Context) ([]models.Book, error) {
	return m.catalog.books(), nil
}

func (m *VectorDBManager) IndexInfo(_ context.Context) (*models.IndexInfo, error) {
	return m.catalog.index(), nil
}

func (m *VectorDBManager) SetIndexInfo(_ context.Context, info *models.IndexInfo) error {
	if err := m.catalog.setIndex(info); err != nil {
		return &models.StorageError{Op: "set index info", Err: err}
	}
	return nil
}

// ChunkCount is the number of stored chunks of bookID, or of all books when
// bookID is empty. Chunks count even when their book has no catalog entry.
func (m *VectorDBManager) ChunkCount(_ context.Context, bookID string) (int, error) {
	if bookID == "" {
		return m.collection.Count(), nil
	}
	return m.catalog.chunks(bookID), nil
}

// Count is the number of stored chunks across all books.
func (m *VectorDBManager) Count() int {
	return m.collection.Count()
}

func (m *VectorDBManager) Close() error {
	return nil
}
