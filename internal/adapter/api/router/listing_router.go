package router

import (
	"github.com/labstack/echo/v4"

	"nearbuy/internal/adapter/api/handler"
	"nearbuy/internal/adapter/api/middleware"
)

func SetupListingRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	listingHandler := handler.GetListingHandler()

	// Public routes; search is registered before :id
	e.GET("/listings/search", listingHandler.SearchListings)
	e.GET("/listings/:id", listingHandler.GetListing)

	listings := e.Group("/listings")
	listings.Use(authMiddleware.Authenticate)

	listings.POST("", listingHandler.CreateListing)
	listings.PUT("/:id", listingHandler.UpdateListing)
	listings.DELETE("/:id", listingHandler.DeleteListing)
}
