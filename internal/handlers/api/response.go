package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"jobtracker/internal/middleware"
	"jobtracker/internal/models"
)

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonCreated returns a 201 response with data wrapped in the standard envelope.
func jsonCreated(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

// jsonErrorDetails is jsonError with a machine-readable details payload.
func jsonErrorDetails(c fiber.Ctx, status int, message string, details any) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"error":   message,
		"details": details,
	})
}

// requireUser returns the authenticated user or writes a 401.
func requireUser(c fiber.Ctx) (*models.User, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return nil, jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return user, nil
}

// paramID parses the :id route parameter.
func paramID(c fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}
