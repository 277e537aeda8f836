package router

import (
	"github.com/labstack/echo/v4"

	"nearbuy/internal/adapter/api/middleware"
	"nearbuy/internal/infrastructure/ratelimit"
)

// ActionAuth is the limiter bucket shared by the credential endpoints.
const ActionAuth = "auth"

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware, limiter *ratelimit.RateLimiter) {
	SetupAuthRouter(e, authMiddleware, limiter)
	SetupUserRouter(e, authMiddleware)
	SetupListingRouter(e, authMiddleware)
	SetupTransactionRouter(e, authMiddleware)
	SetupChatRouter(e, authMiddleware)
	SetupAdminRouter(e, authMiddleware, adminMiddleware)
	SetupFileRouter(e, authMiddleware)
	SetupHealthRouter(e)
	SetupWebSocketRouter(e, authMiddleware)
}
