package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"nearbuy/internal/infrastructure/auth"
)

// TokenParser verifies a signed token of the expected type.
type TokenParser interface {
	Parse(token, expectedType string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	tokens TokenParser
}

func NewAuthMiddleware(tokens TokenParser) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
	}
}

// Authenticate requires a bearer access token and stores the caller in
// the context as "uid" and "is_admin".
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
		}

		claims, err := m.tokens.Parse(parts[1], auth.AccessToken)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		c.Set("uid", claims.UserID)
		c.Set("is_admin", claims.IsAdmin)
		return next(c)
	}
}

// AuthenticateQuery is Authenticate for clients that cannot set headers,
// such as browser websockets, reading the token from ?token=.
func (m *AuthMiddleware) AuthenticateQuery(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			return m.Authenticate(next)(c)
		}

		claims, err := m.tokens.Parse(token, auth.AccessToken)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		c.Set("uid", claims.UserID)
		c.Set("is_admin", claims.IsAdmin)
		return next(c)
	}
}
