package api

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"book-rag/internal/client"
	"book-rag/internal/models"
)

type Handler struct {
	client client.Client
}

func NewHandler(c client.Client) *Handler {
	return &Handler{client: c}
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	health, err := h.client.Health(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(health)
}

func (h *Handler) HandleListBooks(c *fiber.Ctx) error {
	books, err := h.client.ListBooks(c.UserContext())
	if err != nil {
		return err
	}
	if books == nil {
		books = []models.Book{}
	}
	return c.JSON(books)
}

// HandleIngest takes a multipart upload with a "file" field and optional
// "book_id" and "title" fields.
func (h *Handler) HandleIngest(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return ErrMissingFile()
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	res, err := h.client.IngestBook(c.UserContext(), models.IngestRequest{
		BookID:   c.FormValue("book_id"),
		Title:    c.FormValue("title"),
		Filename: fh.Filename,
		Content:  data,
	})
	if err != nil {
		return err
	}
	log.Info().Str("request_id", requestID(c)).Str("book_id", res.BookID).Int("chunks", res.Chunks).Msg("Book uploaded")
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *Handler) HandleDeleteBook(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return ErrInvalidID(id)
	}
	if err := h.client.DeleteBook(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "deleted", "book_id": id})
}

func (h *Handler) HandleQuery(c *fiber.Ctx) error {
	var req models.QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrBadRequest()
	}
	if errs := Validate(&req); len(errs) > 0 {
		return NewValidationError(errs)
	}

	answer, err := h.client.Query(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(answer)
}
