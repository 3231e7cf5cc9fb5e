package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"book-rag/internal/api"
	"book-rag/internal/bootstrap"
	"book-rag/internal/client"
	"book-rag/internal/config"
	"book-rag/internal/helper"
	"book-rag/internal/logger"
	"book-rag/internal/models"
	"book-rag/internal/parser"
	"book-rag/internal/tui"
)

type options struct {
	filePath    string
	bookID      string
	title       string
	dryRun      bool
	query       string
	k           *int
	interactive bool
	serve       bool
	listBooks   bool
	deleteID    string
}

func main() {
	var opts options
	flag.StringVar(&opts.filePath, "file", "", "Path to a book file to ingest (.txt, .md, .pdf, .docx)")
	flag.StringVar(&opts.bookID, "book", "", "Book id; defaults to the file name on ingest, restricts -query and -tui to one book")
	flag.StringVar(&opts.title, "title", "", "Book title; defaults to the book id")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Dry run, print the chunks without embedding or storing them")
	flag.StringVar(&opts.query, "query", "", "Question to be answered")
	k := flag.Int("k", -1, "Number of chunks to retrieve (default TOP_K)")
	flag.BoolVar(&opts.interactive, "tui", false, "Start the interactive query terminal")
	flag.BoolVar(&opts.serve, "serve", false, "Run the REST API")
	flag.BoolVar(&opts.listBooks, "books", false, "List ingested books")
	flag.StringVar(&opts.deleteID, "delete", "", "Delete the book with this id")
	flag.Parse()
	if *k >= 0 {
		opts.k = k
	}

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(config.NewDefaultResolver())
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	logCloser := logger.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, opts)
	stop()

	// log.Fatal would skip the deferred closers, so errors are logged here
	// after every resource has been released.
	if err != nil {
		log.Error().Err(err).Msg("Command failed")
	}
	if cerr := logCloser.Close(); cerr != nil {
		fmt.Fprintln(os.Stderr, "failed to close log file:", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	switch {
	case opts.filePath != "" && opts.query != "":
		return errors.New("please provide either a book file using the -file flag or a query using the -query flag, but not both")
	case opts.filePath != "" && opts.dryRun:
		return previewChunks(cfg, opts.filePath)
	case opts.serve:
		return runServer(ctx, cfg)
	}

	c, storeCloser, err := bootstrap.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize RAG: %w", err)
	}
	defer closeStore(storeCloser)

	switch {
	case opts.filePath != "":
		return ingestBook(ctx, c, opts.filePath, opts.bookID, opts.title)
	case opts.query != "":
		return answerQuery(ctx, c, opts.query, opts.bookID, opts.k)
	case opts.interactive:
		if cfg.Log.File == "" {
			// console logs would tear the alternate screen
			prev := zerolog.GlobalLevel()
			zerolog.SetGlobalLevel(zerolog.Disabled)
			defer zerolog.SetGlobalLevel(prev)
		}
		return runTUI(ctx, c, opts.bookID, opts.k)
	case opts.listBooks:
		return printBooks(ctx, c)
	case opts.deleteID != "":
		return deleteBook(ctx, c, opts.deleteID)
	default:
		flag.Usage()
		return nil
	}
}

func closeStore(c io.Closer) {
	if err := c.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing vector store")
	}
}

func previewChunks(cfg *config.Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read book: %w", err)
	}
	text, err := parser.ExtractText(filePath, data)
	if err != nil {
		return fmt.Errorf("failed to parse book: %w", err)
	}
	chunks, err := parser.Chunk(parser.StripBoilerplate(text), cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("failed to chunk book: %w", err)
	}
	log.Info().Int("chunks", len(chunks)).Msg("Parsed content")
	helper.PrettyPrint(chunks)
	return nil
}

func ingestBook(ctx context.Context, c client.Client, filePath, bookID, title string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read book: %w", err)
	}
	if ip, ok := c.(*client.InProcess); ok {
		ip.Progress = func(done, total int) {
			log.Info().Int("done", done).Int("total", total).Msg("Embedding chunks")
		}
	}

	res, err := c.IngestBook(ctx, models.IngestRequest{
		BookID:   bookID,
		Title:    title,
		Filename: filepath.Base(filePath),
		Content:  data,
	})
	if err != nil {
		return fmt.Errorf("failed to ingest book: %w", err)
	}
	log.Info().Str("book_id", res.BookID).Str("title", res.Title).Int("chunks", res.Chunks).Msg("Book ingested")
	return nil
}

func answerQuery(ctx context.Context, c client.Client, query, bookID string, k *int) error {
	answer, err := c.Query(ctx, models.QueryRequest{Question: query, BookID: bookID, K: k})
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Sources: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, s := range answer.Sources {
		fmt.Printf("[%s #%d, %.3f] %s\n\n", s.BookID, s.ChunkIndex, s.Similarity, s.Content)
	}

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", answer.Content)
	return nil
}

func runTUI(ctx context.Context, c client.Client, bookID string, k *int) error {
	p := tea.NewProgram(tui.New(ctx, c, bookID, k), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run terminal UI: %w", err)
	}
	return nil
}

func printBooks(ctx context.Context, c client.Client) error {
	books, err := c.ListBooks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}
	if len(books) == 0 {
		log.Info().Msg("No books ingested yet")
		return nil
	}
	helper.PrettyPrint(books)
	return nil
}

func deleteBook(ctx context.Context, c client.Client, bookID string) error {
	if err := c.DeleteBook(ctx, bookID); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	log.Info().Str("book_id", bookID).Msg("Book deleted")
	return nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	c, closer, err := bootstrap.NewInProcess(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize RAG: %w", err)
	}
	defer closeStore(closer)

	srv := api.NewServer(cfg.Server.Addr, api.NewApp(c, cfg.Server))
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
