package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"nearbuy/internal/domain/repository"
	"nearbuy/pkg/errors"
)

type AdminMiddleware struct {
	userRepo repository.UserRepository
}

func NewAdminMiddleware(userRepo repository.UserRepository) *AdminMiddleware {
	return &AdminMiddleware{
		userRepo: userRepo,
	}
}

// AdminOnly checks the stored account rather than the token claim, so a
// revoked admin loses access before their token expires.
func (m *AdminMiddleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, ok := c.Get("uid").(string)
		if !ok || uid == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}

		user, err := m.userRepo.GetByID(c.Request().Context(), uid)
		if err != nil {
			if errors.Is(err, "NOT_FOUND") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to verify admin privileges")
		}

		if !user.IsAdmin || user.IsDeleted {
			return echo.NewHTTPError(http.StatusForbidden, "Admin privileges required")
		}

		c.Set("is_admin", true)
		return next(c)
	}
}
