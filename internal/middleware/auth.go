package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"jobtracker/internal/models"
	"jobtracker/internal/tokens"
)

// SessionUserKey is the session key holding the signed-in user's OIDC subject.
const SessionUserKey = "user_sub"

// UserStore looks up users by OIDC subject.
type UserStore interface {
	GetUserBySub(ctx context.Context, sub string) (*models.User, error)
}

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(token string) (*tokens.Claims, error)
}

// AuthMiddleware authenticates requests via the session cookie or a bearer
// token.
type AuthMiddleware struct {
	users  UserStore
	tokens TokenParser
}

// NewAuthMiddleware creates a new auth middleware instance. tokens may be nil
// to disable bearer authentication.
func NewAuthMiddleware(users UserStore, tokens TokenParser) *AuthMiddleware {
	return &AuthMiddleware{users: users, tokens: tokens}
}

// RequireAuth ensures the user is authenticated, responding 401 if not.
func (m *AuthMiddleware) RequireAuth(c fiber.Ctx) error {
	user := m.authenticate(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status": "error",
			"error":  "authentication required",
		})
	}

	c.Locals("user", user)
	return c.Next()
}

// OptionalAuth loads the user if authenticated, but doesn't require authentication.
func (m *AuthMiddleware) OptionalAuth(c fiber.Ctx) error {
	if user := m.authenticate(c); user != nil {
		c.Locals("user", user)
	}
	return c.Next()
}

// authenticate resolves the request's user. A bearer token takes precedence;
// an invalid token is not retried against the session.
func (m *AuthMiddleware) authenticate(c fiber.Ctx) *models.User {
	if token, ok := bearerToken(c.Get(fiber.HeaderAuthorization)); ok {
		if m.tokens == nil {
			return nil
		}
		claims, err := m.tokens.Parse(token)
		if err != nil {
			return nil
		}
		user, err := m.users.GetUserBySub(c.Context(), claims.Subject)
		if err != nil || user.ID != claims.UserID {
			return nil
		}
		return user
	}

	sess := session.FromContext(c)
	if sess == nil {
		return nil
	}

	userSub, ok := sess.Get(SessionUserKey).(string)
	if !ok || userSub == "" {
		return nil
	}

	user, err := m.users.GetUserBySub(c.Context(), userSub)
	if err != nil {
		sess.Destroy()
		return nil
	}
	return user
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// CurrentUser returns the authenticated user stored by RequireAuth, or nil.
func CurrentUser(c fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}
