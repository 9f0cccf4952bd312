package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/modqueue/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signClaims(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestJWTProtectedRequiresUserSubject(t *testing.T) {
	app := fiber.New()
	app.Get("/me", JWTProtected(&config.Config{JWTSecret: testSecret}), func(c *fiber.Ctx) error {
		id, err := GetUserID(c)
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(id.String())
	})

	caller := uuid.New()
	exp := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name   string
		token  string
		status int
		body   string
	}{
		{"valid", signClaims(t, jwt.MapClaims{"sub": caller.String(), "exp": exp}), fiber.StatusOK, caller.String()},
		{"missing token", "", fiber.StatusUnauthorized, "unauthorized"},
		{"missing sub", signClaims(t, jwt.MapClaims{"exp": exp}), fiber.StatusUnauthorized, "Invalid subject claim"},
		{"non uuid sub", signClaims(t, jwt.MapClaims{"sub": "someone", "exp": exp}), fiber.StatusUnauthorized, "Invalid subject claim"},
		{"nil sub", signClaims(t, jwt.MapClaims{"sub": uuid.Nil.String(), "exp": exp}), fiber.StatusUnauthorized, "Invalid subject claim"},
		{"expired", signClaims(t, jwt.MapClaims{"sub": caller.String(), "exp": time.Now().Add(-time.Hour).Unix()}), fiber.StatusUnauthorized, "invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, string(body), tt.body)
		})
	}
}

func TestCORSPreflightAllowsConsoleMethods(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(&config.Config{CORSOrigins: "https://console.example.com"}))
	app.Post("/api/staff/cases/:id/claim", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("OPTIONS", "/api/staff/cases/1/claim", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://console.example.com")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, fiber.MethodPost)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://console.example.com", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Contains(t, resp.Header.Get(fiber.HeaderAccessControlAllowMethods), fiber.MethodPost)
	assert.NotContains(t, resp.Header.Get(fiber.HeaderAccessControlAllowMethods), fiber.MethodDelete)
}
