package handlers

import (
	"errors"

	"bookstore/internal/apperr"
	"bookstore/internal/domain"
	applog "bookstore/internal/log"

	"github.com/gofiber/fiber/v2"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Meta    *domain.Page `json:"meta,omitempty"`
	Error   any          `json:"error,omitempty"`
}

func render(c *fiber.Ctx, status int, msg string, data any) error {
	return c.Status(status).JSON(envelope{Success: true, Message: msg, Data: data})
}

func renderPage(c *fiber.Ctx, msg string, data any, page domain.Page) error {
	return c.Status(fiber.StatusOK).JSON(envelope{Success: true, Message: msg, Data: data, Meta: &page})
}

// renderErr maps err to its status and client message. Server errors are logged
// with their cause and answered generically.
func renderErr(c *fiber.Ctx, action string, err error) error {
	status := apperr.Status(err)
	body := envelope{Message: apperr.Message(err)}

	var ise *apperr.InsufficientStockError
	switch {
	case errors.As(err, &ise):
		body.Error = ise.Shortage
	case status >= fiber.StatusInternalServerError:
		applog.Error(c, action, err, nil)
	}
	return c.Status(status).JSON(body)
}

// ErrorHandler renders framework errors (body limit, unknown method, panics) in the same envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		msg := fe.Message
		if fe.Code >= fiber.StatusInternalServerError {
			applog.Error(c, "server.error", err, nil)
			msg = "Internal server error"
		}
		return c.Status(fe.Code).JSON(envelope{Message: msg})
	}
	if apperr.KindOf(err) != apperr.KindServer {
		return renderErr(c, "request.error", err)
	}
	applog.Error(c, "server.error", err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(envelope{Message: "Internal server error"})
}
