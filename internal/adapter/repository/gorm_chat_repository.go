package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
)

type gormChatRepository struct {
	db *gorm.DB
}

func NewGormChatRepository(db *gorm.DB) repository.ChatRepository {
	return &gormChatRepository{db: db}
}

func (r *gormChatRepository) CreateRoom(ctx context.Context, room *entity.ChatRoom) error {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	room.CreatedAt = time.Now().UTC()

	if err := gormConn(ctx, r.db).Create(room).Error; err != nil {
		return gormError("Chat room", "create", err)
	}
	return nil
}

func (r *gormChatRepository) GetRoomByID(ctx context.Context, id string) (*entity.ChatRoom, error) {
	var room entity.ChatRoom
	if err := gormConn(ctx, r.db).First(&room, "id = ?", id).Error; err != nil {
		return nil, gormError("Chat room", "get", err)
	}
	return &room, nil
}

func (r *gormChatRepository) GetRoomByTransactionID(ctx context.Context, transactionID string) (*entity.ChatRoom, error) {
	var room entity.ChatRoom
	if err := gormConn(ctx, r.db).First(&room, "transaction_id = ?", transactionID).Error; err != nil {
		return nil, gormError("Chat room", "get", err)
	}
	return &room, nil
}

func (r *gormChatRepository) ListRoomsByTransactionIDs(ctx context.Context, transactionIDs []string) ([]*entity.ChatRoom, error) {
	if len(transactionIDs) == 0 {
		return nil, nil
	}
	var rooms []*entity.ChatRoom
	if err := gormConn(ctx, r.db).Where("transaction_id IN ?", transactionIDs).Find(&rooms).Error; err != nil {
		return nil, gormError("Chat room", "list", err)
	}
	return rooms, nil
}

func (r *gormChatRepository) CreateMessage(ctx context.Context, message *entity.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.SentAt.IsZero() {
		message.SentAt = time.Now().UTC()
	}
	if err := gormConn(ctx, r.db).Create(message).Error; err != nil {
		return gormError("Message", "create", err)
	}
	return nil
}

func (r *gormChatRepository) ListMessages(ctx context.Context, roomID string) ([]*entity.ChatMessage, error) {
	var messages []*entity.ChatMessage
	err := gormConn(ctx, r.db).
		Where("room_id = ?", roomID).
		Order("sent_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, gormError("Message", "list", err)
	}
	return messages, nil
}

func (r *gormChatRepository) LastMessage(ctx context.Context, roomID string) (*entity.ChatMessage, error) {
	var message entity.ChatMessage
	err := gormConn(ctx, r.db).
		Where("room_id = ?", roomID).
		Order("sent_at DESC").
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, gormError("Message", "get", err)
	}
	return &message, nil
}

func (r *gormChatRepository) CountUnread(ctx context.Context, roomID, readerID string) (int64, error) {
	var count int64
	err := gormConn(ctx, r.db).Model(&entity.ChatMessage{}).
		Where("room_id = ? AND sender_id <> ? AND read_at IS NULL", roomID, readerID).
		Count(&count).Error
	if err != nil {
		return 0, gormError("Message", "count", err)
	}
	return count, nil
}

func (r *gormChatRepository) MarkRead(ctx context.Context, roomID, readerID string, at time.Time) (int64, error) {
	res := gormConn(ctx, r.db).Model(&entity.ChatMessage{}).
		Where("room_id = ? AND sender_id <> ? AND read_at IS NULL", roomID, readerID).
		Update("read_at", at)
	if res.Error != nil {
		return 0, gormError("Message", "update", res.Error)
	}
	return res.RowsAffected, nil
}
