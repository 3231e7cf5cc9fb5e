package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-rag/internal/models"
)

// openTestStore needs a PostgreSQL instance with pgvector available.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("PGVECTOR_TEST_DSN")
	if dsn == "" {
		t.Skip("PGVECTOR_TEST_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn, false)
	require.NoError(t, err)
	require.NoError(t, DropTables(ctx, s.db))
	require.NoError(t, InitDB(ctx, s.db))
	t.Cleanup(func() {
		_ = DropTables(context.Background(), s.db)
		_ = s.Close()
	})
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunks := []struct {
		chunk models.Chunk
		vec   []float32
	}{
		{models.Chunk{BookID: "alice", Title: "Alice", Index: 0, Content: "rabbit hole"}, []float32{1, 0, 0}},
		{models.Chunk{BookID: "alice", Title: "Alice", Index: 1, Content: "tea party"}, []float32{0, 1, 0}},
		{models.Chunk{BookID: "oz", Title: "Oz", Index: 0, Content: "yellow brick road"}, []float32{0, 0, 1}},
	}
	for _, c := range chunks {
		require.NoError(t, s.Upsert(ctx, c.chunk, c.vec))
	}
	// Upserting the same id again must not duplicate.
	require.NoError(t, s.Upsert(ctx, chunks[0].chunk, chunks[0].vec))
	n, err := s.ChunkCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = s.ChunkCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := s.Query(ctx, []float32{1, 0, 0}, 5, "")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "rabbit hole", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-5)

	results, err = s.Query(ctx, []float32{1, 0, 0}, 5, "oz")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "oz", results[0].BookID)

	require.NoError(t, s.PutBook(ctx, models.Book{ID: "alice", Title: "Alice", Chunks: 2, IngestedAt: time.Now().UTC()}))
	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 2, books[0].Chunks)

	require.NoError(t, s.Delete(ctx, "alice"))
	results, err = s.Query(ctx, []float32{1, 0, 0}, 5, "alice")
	require.NoError(t, err)
	assert.Empty(t, results)
	books, err = s.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestStoreIndexInfo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	info, err := s.IndexInfo(ctx)
	require.NoError(t, err)
	assert.Nil(t, info)

	require.NoError(t, s.SetIndexInfo(ctx, &models.IndexInfo{Model: "ollama/nomic-embed-text", Dimension: 768}))
	info, err = s.IndexInfo(ctx)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, 768, info.Dimension)

	require.NoError(t, s.SetIndexInfo(ctx, nil))
	info, err = s.IndexInfo(ctx)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestQueryZeroK(t *testing.T) {
	s := &Store{}
	results, err := s.Query(context.Background(), []float32{1}, 0, "")
	require.NoError(t, err)
	assert.Nil(t, results)
}
