package handler

import (
	"github.com/labstack/echo/v4"

	"nearbuy/internal/usecase"
	"nearbuy/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type initiateChatRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// InitiateChat opens the caller's conversation with the seller of a listing.
func (h *ChatHandler) InitiateChat(c echo.Context) error {
	var req initiateChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.chatUseCase.InitiateChat(c.Request().Context(), currentUserID(c), req.ListingID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result)
}

func (h *ChatHandler) ListRooms(c echo.Context) error {
	rooms, err := h.chatUseCase.ListRooms(c.Request().Context(), currentUserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]interface{}{
		"chats": rooms,
	})
}

func (h *ChatHandler) GetRoomForTransaction(c echo.Context) error {
	room, err := h.chatUseCase.RoomForTransaction(c.Request().Context(), currentUserID(c), c.Param("transaction_id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"room_id":        room.ID,
		"transaction_id": room.TransactionID,
	})
}

func (h *ChatHandler) GetMessages(c echo.Context) error {
	messages, err := h.chatUseCase.GetMessages(c.Request().Context(), currentUserID(c), c.Param("room_id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, messages)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), currentUserID(c), c.Param("room_id"), req.Content)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]string{
		"message":    "Message sent",
		"message_id": message.ID,
	})
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	n, err := h.chatUseCase.MarkRead(c.Request().Context(), currentUserID(c), c.Param("room_id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int64{
		"marked_read": n,
	})
}
