package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
	"nearbuy/pkg/errors"
)

const (
	chatRoomsCollection = "chat_rooms"
	messagesCollection  = "messages"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

// CreateRoom keys the room document by transaction so a second create for the
// same transaction fails instead of producing a duplicate room.
func (r *firestoreChatRepository) CreateRoom(ctx context.Context, room *entity.ChatRoom) error {
	if room.ID == "" {
		room.ID = room.TransactionID
	}
	room.CreatedAt = time.Now().UTC()

	if err := fsCreate(ctx, r.client.Collection(chatRoomsCollection).Doc(room.ID), room); err != nil {
		return fsWriteError("Chat room", "create", err)
	}
	return nil
}

func (r *firestoreChatRepository) GetRoomByID(ctx context.Context, id string) (*entity.ChatRoom, error) {
	return fsLoad[entity.ChatRoom](ctx, r.client.Collection(chatRoomsCollection).Doc(id), "Chat room")
}

func (r *firestoreChatRepository) GetRoomByTransactionID(ctx context.Context, transactionID string) (*entity.ChatRoom, error) {
	query := r.client.Collection(chatRoomsCollection).Where("transactionId", "==", transactionID)
	return fsFirst[entity.ChatRoom](ctx, query, "Chat room")
}

func (r *firestoreChatRepository) ListRoomsByTransactionIDs(ctx context.Context, transactionIDs []string) ([]*entity.ChatRoom, error) {
	var rooms []*entity.ChatRoom
	for _, part := range chunk(transactionIDs, 30) {
		items, err := fsAll[entity.ChatRoom](ctx, r.client.Collection(chatRoomsCollection).Where("transactionId", "in", part), "chat rooms")
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, items...)
	}
	return rooms, nil
}

func (r *firestoreChatRepository) messages(roomID string) *firestore.CollectionRef {
	return r.client.Collection(chatRoomsCollection).Doc(roomID).Collection(messagesCollection)
}

func (r *firestoreChatRepository) CreateMessage(ctx context.Context, message *entity.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.SentAt.IsZero() {
		message.SentAt = time.Now().UTC()
	}
	if err := fsCreate(ctx, r.messages(message.RoomID).Doc(message.ID), message); err != nil {
		return fsWriteError("Message", "create", err)
	}
	return nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, roomID string) ([]*entity.ChatMessage, error) {
	return fsAll[entity.ChatMessage](ctx, r.messages(roomID).OrderBy("sentAt", firestore.Asc), "messages")
}

func (r *firestoreChatRepository) LastMessage(ctx context.Context, roomID string) (*entity.ChatMessage, error) {
	items, err := fsAll[entity.ChatMessage](ctx, r.messages(roomID).OrderBy("sentAt", firestore.Desc).Limit(1), "messages")
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func (r *firestoreChatRepository) unreadFrom(ctx context.Context, roomID, readerID string) ([]*entity.ChatMessage, error) {
	// readAt is omitted until set, so unread messages cannot be matched by a query on it.
	items, err := fsAll[entity.ChatMessage](ctx, r.messages(roomID).Where("senderId", "!=", readerID), "messages")
	if err != nil {
		return nil, err
	}
	unread := items[:0]
	for _, m := range items {
		if m.ReadAt == nil {
			unread = append(unread, m)
		}
	}
	sort.Slice(unread, func(i, j int) bool { return unread[i].SentAt.Before(unread[j].SentAt) })
	return unread, nil
}

func (r *firestoreChatRepository) CountUnread(ctx context.Context, roomID, readerID string) (int64, error) {
	unread, err := r.unreadFrom(ctx, roomID, readerID)
	if err != nil {
		return 0, err
	}
	return int64(len(unread)), nil
}

func (r *firestoreChatRepository) MarkRead(ctx context.Context, roomID, readerID string, at time.Time) (int64, error) {
	unread, err := r.unreadFrom(ctx, roomID, readerID)
	if err != nil {
		return 0, err
	}
	if len(unread) == 0 {
		return 0, nil
	}

	if firestoreTx(ctx) != nil {
		for _, m := range unread {
			m.ReadAt = &at
			if err := fsSet(ctx, r.messages(roomID).Doc(m.ID), m); err != nil {
				return 0, errors.Internal("Failed to mark message read", err)
			}
		}
		return int64(len(unread)), nil
	}

	bw := r.client.BulkWriter(ctx)
	for _, m := range unread {
		if _, err := bw.Update(r.messages(roomID).Doc(m.ID), []firestore.Update{{Path: "readAt", Value: at}}); err != nil {
			bw.End()
			return 0, errors.Internal("Failed to mark message read", err)
		}
	}
	bw.End()
	return int64(len(unread)), nil
}
