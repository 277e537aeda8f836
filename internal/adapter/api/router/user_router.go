package router

import (
	"github.com/labstack/echo/v4"

	"nearbuy/internal/adapter/api/handler"
	"nearbuy/internal/adapter/api/middleware"
)

func SetupUserRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	userHandler := handler.GetUserHandler()

	e.GET("/users/:id", userHandler.GetUser)
	e.GET("/users/:id/rating", userHandler.GetRating)

	e.PUT("/users/:id", userHandler.UpdateProfile, authMiddleware.Authenticate)
}
