package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"book-rag/internal/models"
)

// APIError is a non-2xx response of the REST API. It matches the error
// sentinel named by its kind through errors.Is, or the one implied by its
// status code when the response carries no kind.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	if sentinel := models.SentinelForKind(e.Kind); sentinel != nil {
		return target == sentinel
	}
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return target == models.ErrInvalidInput
	case http.StatusNotFound:
		return target == models.ErrNotFound
	case http.StatusConflict:
		return target == models.ErrConfig
	case http.StatusBadGateway:
		return target == models.ErrProvider
	case http.StatusInternalServerError:
		return target == models.ErrStorage
	}
	return false
}

// HTTP talks to a running REST API.
type HTTP struct {
	baseURL string
	client  *http.Client
}

func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTP) ListBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := c.do(ctx, http.MethodGet, "/books", nil, "", &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *HTTP) IngestBook(ctx context.Context, req models.IngestRequest) (*models.IngestResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for field, value := range map[string]string{"book_id": req.BookID, "title": req.Title} {
		if value == "" {
			continue
		}
		if err := w.WriteField(field, value); err != nil {
			return nil, err
		}
	}
	part, err := w.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(req.Content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	result := new(models.IngestResult)
	if err := c.do(ctx, http.MethodPost, "/books", &body, w.FormDataContentType(), result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTP) DeleteBook(ctx context.Context, bookID string) error {
	return c.do(ctx, http.MethodDelete, "/books/"+url.PathEscape(bookID), nil, "", nil)
}

func (c *HTTP) Query(ctx context.Context, req models.QueryRequest) (*models.Answer, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	answer := new(models.Answer)
	if err := c.do(ctx, http.MethodPost, "/query", bytes.NewReader(payload), "application/json", answer); err != nil {
		return nil, err
	}
	return answer, nil
}

func (c *HTTP) Health(ctx context.Context) (*models.Health, error) {
	h := new(models.Health)
	if err := c.do(ctx, http.MethodGet, "/health", nil, "", h); err != nil {
		return nil, err
	}
	return h, nil
}

func (c *HTTP) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body struct {
		Kind    string            `json:"kind"`
		Message string            `json:"error"`
		Errors  map[string]string `json:"errors"`
	}
	apiErr := &APIError{Status: status, Message: strings.TrimSpace(string(data))}
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Kind = body.Kind
		switch {
		case body.Message != "":
			apiErr.Message = body.Message
		case len(body.Errors) > 0:
			parts := make([]string, 0, len(body.Errors))
			for field, msg := range body.Errors {
				parts = append(parts, field+" "+msg)
			}
			sort.Strings(parts)
			apiErr.Message = strings.Join(parts, "; ")
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
