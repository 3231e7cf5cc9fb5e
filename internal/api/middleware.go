package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"book-rag/internal/helper"
)

const requestIDKey = "request_id"

// RequestLogger tags every request with an X-Request-ID and writes one
// access log line once the response is known.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			var err error
			if id, err = helper.GenerateUUID(); err != nil {
				return err
			}
		}
		c.Locals(requestIDKey, id)
		c.Set(fiber.HeaderXRequestID, id)

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		log.Info().
			Str("request_id", id).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("Request")
		return nil
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
