package api

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/models"
	"jobtracker/internal/tokens"
)

type failingIssuer struct{}

func (failingIssuer) Issue(*models.User) (string, time.Time, error) {
	return "", time.Time{}, errors.New("no key")
}

func newUserApp(user *models.User, issuer TokenIssuer) *fiber.App {
	h := NewUserHandler(issuer)
	app := fiber.New()
	api := app.Group("/api", withUser(user))
	api.Get("/me", h.Me)
	api.Post("/tokens", h.CreateToken)
	return app
}

func TestUsers_Me(t *testing.T) {
	user := testUser()

	resp, env := doRequest(t, newUserApp(user, nil), jsonRequest(http.MethodGet, "/api/me", nil))

	require.Equal(t, 200, resp.StatusCode)
	got := decode[models.User](t, env.Data)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "sam@example.com", got.Email)

	resp, _ = doRequest(t, newUserApp(nil, nil), jsonRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, 401, resp.StatusCode)
}

func TestUsers_CreateToken(t *testing.T) {
	user := testUser()
	issuer := tokens.NewIssuer("test-secret-key-for-jwt-signing-minimum-32-bytes", time.Hour)

	resp, env := doRequest(t, newUserApp(user, issuer), jsonRequest(http.MethodPost, "/api/tokens", nil))

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	got := decode[struct {
		Token     string    `json:"token"`
		TokenType string    `json:"token_type"`
		ExpiresAt time.Time `json:"expires_at"`
	}](t, env.Data)
	assert.Equal(t, "Bearer", got.TokenType)
	assert.True(t, got.ExpiresAt.After(time.Now()))

	claims, err := issuer.Parse(got.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Sub, claims.Subject)
}

func TestUsers_CreateTokenErrors(t *testing.T) {
	resp, env := doRequest(t, newUserApp(testUser(), nil), jsonRequest(http.MethodPost, "/api/tokens", nil))
	assert.Equal(t, fiber.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, "API tokens are disabled", env.Error)

	resp, env = doRequest(t, newUserApp(testUser(), failingIssuer{}), jsonRequest(http.MethodPost, "/api/tokens", nil))
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "failed to issue token", env.Error)
}
