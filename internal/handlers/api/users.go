package api

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"jobtracker/internal/models"
)

// TokenIssuer mints bearer tokens.
type TokenIssuer interface {
	Issue(user *models.User) (string, time.Time, error)
}

// UserHandler serves the current user's profile and API tokens.
type UserHandler struct {
	tokens TokenIssuer
}

// NewUserHandler creates a new API user handler. tokens may be nil to disable
// token minting.
func NewUserHandler(tokens TokenIssuer) *UserHandler {
	return &UserHandler{tokens: tokens}
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}
	return jsonSuccess(c, user)
}

// CreateToken issues a bearer token for the authenticated user.
func (h *UserHandler) CreateToken(c fiber.Ctx) error {
	user, err := requireUser(c)
	if user == nil {
		return err
	}
	if h.tokens == nil {
		return jsonError(c, fiber.StatusNotImplemented, "API tokens are disabled")
	}

	token, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to issue token")
	}

	return jsonCreated(c, fiber.Map{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expiresAt.UTC(),
	})
}
