package models

import (
	"fmt"
	"time"
)

// Book is a catalog entry for an ingested book.
type Book struct {
	ID         string    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	Chunks     int       `json:"chunks" yaml:"chunks"`
	IngestedAt time.Time `json:"ingested_at" yaml:"ingested_at"`
}

// Chunk is one overlapping window of a book's text.
type Chunk struct {
	BookID  string
	Title   string
	Index   int
	Content string
}

// ID is the storage key of the chunk, unique per (book, index).
func (c Chunk) ID() string {
	return fmt.Sprintf("%s_chunk_%d", c.BookID, c.Index)
}

// Result is a retrieved chunk with its similarity to the query.
type Result struct {
	BookID     string  `json:"book_id"`
	Title      string  `json:"title,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

// Answer is a generated answer plus the chunks it was grounded on.
type Answer struct {
	Question string   `json:"question"`
	BookID   string   `json:"book_id,omitempty"`
	Content  string   `json:"answer"`
	Sources  []Result `json:"sources"`
}

// IndexInfo records which embedding model produced the vectors of a collection.
type IndexInfo struct {
	Model     string `json:"model" yaml:"model"`
	Dimension int    `json:"dimension" yaml:"dimension"`
}

func (i IndexInfo) String() string {
	return fmt.Sprintf("%s (dim %d)", i.Model, i.Dimension)
}

// IngestRequest carries an uploaded book file.
type IngestRequest struct {
	BookID   string
	Title    string
	Filename string
	Content  []byte
}

// IngestResult is the outcome of a successful ingestion.
type IngestResult struct {
	BookID string `json:"book_id"`
	Title  string `json:"title"`
	Chunks int    `json:"chunks"`
}

// QueryRequest is a question, optionally restricted to one book.
type QueryRequest struct {
	Question string `json:"question" validate:"required"`
	BookID   string `json:"book_id,omitempty"`
	K        *int   `json:"k,omitempty" validate:"omitempty,gte=0,lte=50"`
}

// Health describes the running service.
type Health struct {
	Status         string `json:"status"`
	Provider       string `json:"provider"`
	EmbeddingModel string `json:"embedding_model"`
}
