package handler

import (
	"github.com/labstack/echo/v4"

	"nearbuy/internal/usecase"
)

var (
	authHandler        *AuthHandler
	userHandler        *UserHandler
	listingHandler     *ListingHandler
	transactionHandler *TransactionHandler
	chatHandler        *ChatHandler
	adminHandler       *AdminHandler
	fileHandler        *FileHandler
)

func Setup(
	authUseCase *usecase.AuthUseCase,
	userUseCase *usecase.UserUseCase,
	listingUseCase *usecase.ListingUseCase,
	transactionUseCase *usecase.TransactionUseCase,
	chatUseCase *usecase.ChatUseCase,
	adminUseCase *usecase.AdminUseCase,
	uploadUseCase *usecase.UploadUseCase,
) {
	authHandler = NewAuthHandler(authUseCase)
	userHandler = NewUserHandler(userUseCase)
	listingHandler = NewListingHandler(listingUseCase)
	transactionHandler = NewTransactionHandler(transactionUseCase)
	chatHandler = NewChatHandler(chatUseCase)
	adminHandler = NewAdminHandler(adminUseCase, listingUseCase, transactionUseCase)
	fileHandler = NewFileHandler(uploadUseCase)
}

func GetAuthHandler() *AuthHandler {
	return authHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}

func GetListingHandler() *ListingHandler {
	return listingHandler
}

func GetTransactionHandler() *TransactionHandler {
	return transactionHandler
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetAdminHandler() *AdminHandler {
	return adminHandler
}

func GetFileHandler() *FileHandler {
	return fileHandler
}

// currentUserID is the caller set by AuthMiddleware.
func currentUserID(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}

func currentActor(c echo.Context) usecase.Actor {
	isAdmin, _ := c.Get("is_admin").(bool)
	return usecase.Actor{ID: currentUserID(c), IsAdmin: isAdmin}
}
