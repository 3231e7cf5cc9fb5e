package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"book-rag/internal/models"
)

type ChunkRow struct {
	bun.BaseModel `bun:"table:book_chunks,alias:c"`
	BookID        string          `bun:"book_id,pk"`
	ChunkIndex    int             `bun:"chunk_index,pk"`
	Title         string          `bun:"title,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Similarity    float64         `bun:"similarity,scanonly"`
}

type BookRow struct {
	bun.BaseModel `bun:"table:books,alias:b"`
	ID            string    `bun:"id,pk"`
	Title         string    `bun:"title,notnull"`
	Chunks        int       `bun:"chunks,notnull"`
	IngestedAt    time.Time `bun:"ingested_at,notnull"`
}

type IndexInfoRow struct {
	bun.BaseModel `bun:"table:index_info,alias:i"`
	ID            int    `bun:"id,pk"`
	Model         string `bun:"model,notnull"`
	Dimension     int    `bun:"dimension,notnull"`
}

// indexInfoID is the single row holding the index info.
const indexInfoID = 1

func ConnectDB(dsn string) *sql.DB {
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// Store keeps book chunks in PostgreSQL with the pgvector extension. It
// satisfies the orchestrator's vector store contract.
type Store struct {
	db *bun.DB
}

// Open connects and creates the schema if needed.
func Open(ctx context.Context, dsn string, debug bool) (*Store, error) {
	s := &Store{db: NewDB(ConnectDB(dsn), debug)}
	if err := s.db.PingContext(ctx); err != nil {
		s.db.Close()
		return nil, &models.StorageError{Op: "open", Err: fmt.Errorf("failed to connect to postgres: %w", err)}
	}
	if err := InitDB(ctx, s.db); err != nil {
		s.db.Close()
		return nil, &models.StorageError{Op: "init", Err: err}
	}
	log.Debug().Msg("Connected to pgvector store")
	return s, nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	for _, model := range []any{(*ChunkRow)(nil), (*BookRow)(nil), (*IndexInfoRow)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// DropTables removes the schema. Used by tests.
func DropTables(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{(*ChunkRow)(nil), (*BookRow)(nil), (*IndexInfoRow)(nil)} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, chunk models.Chunk, vector []float32) error {
	row := &ChunkRow{
		BookID:     chunk.BookID,
		ChunkIndex: chunk.Index,
		Title:      chunk.Title,
		Content:    chunk.Content,
		Embedding:  pgvector.NewVector(vector),
	}
	_, err := s.db.NewInsert().Model(row).
		On("CONFLICT (book_id, chunk_index) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return &models.StorageError{Op: "upsert", Err: err}
	}
	return nil
}

// Query orders by cosine distance; similarity is reported as 1 - distance.
func (s *Store) Query(ctx context.Context, vector []float32, k int, bookID string) ([]models.Result, error) {
	if k <= 0 {
		return nil, nil
	}
	q := pgvector.NewVector(vector)

	var rows []ChunkRow
	sel := s.db.NewSelect().
		Model(&rows).
		Column("book_id", "chunk_index", "title", "content").
		ColumnExpr("1 - (c.embedding <=> ?) AS similarity", q).
		OrderExpr("c.embedding <=> ?", q).
		Limit(k)
	if bookID != "" {
		sel = sel.Where("c.book_id = ?", bookID)
	}
	if err := sel.Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, &models.StorageError{Op: "query", Err: err}
	}

	results := make([]models.Result, 0, len(rows))
	for _, r := range rows {
		results = append(results, models.Result{
			BookID:     r.BookID,
			Title:      r.Title,
			ChunkIndex: r.ChunkIndex,
			Content:    r.Content,
			Similarity: float32(r.Similarity),
		})
	}
	return results, nil
}

func (s *Store) Delete(ctx context.Context, bookID string) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*ChunkRow)(nil)).Where("book_id = ?", bookID).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*BookRow)(nil)).Where("id = ?", bookID).Exec(ctx)
		return err
	})
	if err != nil {
		return &models.StorageError{Op: "delete", Err: err}
	}
	return nil
}

// ChunkCount is the number of stored chunks of bookID, or of all books when
// bookID is empty.
func (s *Store) ChunkCount(ctx context.Context, bookID string) (int, error) {
	q := s.db.NewSelect().Model((*ChunkRow)(nil))
	if bookID != "" {
		q = q.Where("c.book_id = ?", bookID)
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, &models.StorageError{Op: "count", Err: err}
	}
	return n, nil
}

func (s *Store) PutBook(ctx context.Context, book models.Book) error {
	row := &BookRow{ID: book.ID, Title: book.Title, Chunks: book.Chunks, IngestedAt: book.IngestedAt}
	_, err := s.db.NewInsert().Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("chunks = EXCLUDED.chunks").
		Set("ingested_at = EXCLUDED.ingested_at").
		Exec(ctx)
	if err != nil {
		return &models.StorageError{Op: "put book", Err: err}
	}
	return nil
}

func (s *Store) ListBooks(ctx context.Context) ([]models.Book, error) {
	var rows []BookRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, &models.StorageError{Op: "list books", Err: err}
	}
	books := make([]models.Book, 0, len(rows))
	for _, r := range rows {
		books = append(books, models.Book{ID: r.ID, Title: r.Title, Chunks: r.Chunks, IngestedAt: r.IngestedAt})
	}
	return books, nil
}

func (s *Store) IndexInfo(ctx context.Context) (*models.IndexInfo, error) {
	row := new(IndexInfoRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", indexInfoID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &models.StorageError{Op: "index info", Err: err}
	}
	return &models.IndexInfo{Model: row.Model, Dimension: row.Dimension}, nil
}

func (s *Store) SetIndexInfo(ctx context.Context, info *models.IndexInfo) error {
	var err error
	if info == nil {
		_, err = s.db.NewDelete().Model((*IndexInfoRow)(nil)).Where("id = ?", indexInfoID).Exec(ctx)
	} else {
		row := &IndexInfoRow{ID: indexInfoID, Model: info.Model, Dimension: info.Dimension}
		_, err = s.db.NewInsert().Model(row).
			On("CONFLICT (id) DO UPDATE").
			Set("model = EXCLUDED.model").
			Set("dimension = EXCLUDED.dimension").
			Exec(ctx)
	}
	if err != nil {
		return &models.StorageError{Op: "set index info", Err: err}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
