package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"book-rag/internal/client"
	"book-rag/internal/config"
)

const shutdownTimeout = 10 * time.Second

// NewApp builds the REST API on top of c.
func NewApp(c client.Client, cfg config.ServerConfig) *fiber.App {
	fcfg := fiber.Config{
		ErrorHandler:          ErrorHandler,
		UnescapePath:          true,
		DisableStartupMessage: true,
	}
	if cfg.MaxUploadMB > 0 {
		fcfg.BodyLimit = cfg.MaxUploadMB * 1024 * 1024
	}

	var (
		app     = fiber.New(fcfg)
		handler = NewHandler(c)
	)
	app.Use(RequestLogger())

	app.Get("/health", handler.HandleHealth)
	app.Get("/books", handler.HandleListBooks)
	app.Post("/books", handler.HandleIngest)
	app.Delete("/books/:id", handler.HandleDeleteBook)
	app.Post("/query", handler.HandleQuery)
	return app
}

type Server struct {
	listenAddr string
	app        *fiber.App
}

func NewServer(addr string, app *fiber.App) *Server {
	return &Server{listenAddr: addr, app: app}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.listenAddr).Msg("Starting server")
		errCh <- s.app.Listen(s.listenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		return s.app.ShutdownWithTimeout(shutdownTimeout)
	}
}
