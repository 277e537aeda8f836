package router

import (
	"github.com/labstack/echo/v4"

	"nearbuy/internal/adapter/api/handler"
	"nearbuy/internal/adapter/api/middleware"
	"nearbuy/internal/infrastructure/ratelimit"
)

func SetupAuthRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	authHandler := handler.GetAuthHandler()

	// Public routes, limited per client address
	limited := middleware.RateLimit(limiter, ActionAuth)
	e.POST("/register", authHandler.Register, limited)
	e.POST("/login", authHandler.Login, limited)
	e.POST("/refresh", authHandler.RefreshToken, limited)

	protected := e.Group("/auth")
	protected.Use(authMiddleware.Authenticate)

	protected.POST("/change-email", authHandler.ChangeEmail)
	protected.POST("/change-password", authHandler.ChangePassword)
}
