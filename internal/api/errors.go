package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"book-rag/internal/models"
)

// ErrorHandler renders every error returned by a handler as JSON. Domain
// errors are mapped onto status codes here.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var valErr ValidationError
	if errors.As(err, &valErr) {
		return c.Status(valErr.Status).JSON(valErr)
	}

	apiErr := FromError(err)
	apiErr.Kind = models.Kind(err)
	event := log.Warn()
	if apiErr.Code >= fiber.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", requestID(c)).
		Int("status", apiErr.Code).
		Msg("Request failed")
	return c.Status(apiErr.Code).JSON(apiErr)
}

// FromError maps err onto an API error.
func FromError(err error) Error {
	var (
		apiErr   Error
		fiberErr *fiber.Error
		mismatch *models.IndexMismatchError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &fiberErr):
		return NewError(fiberErr.Code, fiberErr.Message)
	case errors.As(err, &mismatch):
		return NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidInput):
		return NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrProvider):
		return NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, models.ErrStorage), errors.Is(err, models.ErrConfig):
		return NewError(fiber.StatusInternalServerError, err.Error())
	}
	return NewError(fiber.StatusInternalServerError, "internal server error")
}

type Error struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"error"`
}

// Error implements the Error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, msg string) Error {
	return Error{
		Code:    code,
		Message: msg,
	}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrMissingFile() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "multipart field \"file\" is required",
	}
}

func ErrInvalidID(id string) Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: fmt.Sprintf("invalid book id %q", id),
	}
}
