package repository

import (
	"context"
	"time"

	"nearbuy/internal/domain/entity"
)

type ChatRepository interface {
	CreateRoom(ctx context.Context, room *entity.ChatRoom) error
	GetRoomByID(ctx context.Context, id string) (*entity.ChatRoom, error)
	GetRoomByTransactionID(ctx context.Context, transactionID string) (*entity.ChatRoom, error)
	ListRoomsByTransactionIDs(ctx context.Context, transactionIDs []string) ([]*entity.ChatRoom, error)

	CreateMessage(ctx context.Context, message *entity.ChatMessage) error
	ListMessages(ctx context.Context, roomID string) ([]*entity.ChatMessage, error)
	// LastMessage returns nil without error for an empty room.
	LastMessage(ctx context.Context, roomID string) (*entity.ChatMessage, error)
	CountUnread(ctx context.Context, roomID, readerID string) (int64, error)
	// MarkRead stamps every unread message in the room not sent by readerID.
	MarkRead(ctx context.Context, roomID, readerID string, at time.Time) (int64, error)
}
