package router

import (
	"github.com/labstack/echo/v4"

	"nearbuy/internal/adapter/api/handler"
	"nearbuy/internal/adapter/api/middleware"
)

func SetupTransactionRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	transactionHandler := handler.GetTransactionHandler()

	transactions := e.Group("/transactions")
	transactions.Use(authMiddleware.Authenticate)

	transactions.POST("/qr", transactionHandler.IssueQR)
	transactions.POST("/confirm", transactionHandler.ConfirmTransaction)
	transactions.GET("/history", transactionHandler.GetHistory)
	transactions.POST("/:id/rate", transactionHandler.RateTransaction)
	transactions.POST("/:id/dispute", transactionHandler.DisputeTransaction)
}
