package router

import (
	"github.com/labstack/echo/v4"

	"nearbuy/internal/adapter/api/handler"
	"nearbuy/internal/adapter/api/middleware"
)

func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	chatHandler := handler.GetChatHandler()

	chats := e.Group("/chats")
	chats.Use(authMiddleware.Authenticate)

	chats.POST("/initiate", chatHandler.InitiateChat)
	chats.GET("", chatHandler.ListRooms)
	chats.GET("/:transaction_id", chatHandler.GetRoomForTransaction)
	chats.GET("/:room_id/messages", chatHandler.GetMessages)
	chats.POST("/:room_id/messages", chatHandler.SendMessage)
	chats.POST("/:room_id/messages/read", chatHandler.MarkRead)
}
