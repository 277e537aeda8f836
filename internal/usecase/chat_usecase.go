package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
	"nearbuy/internal/infrastructure/metrics"
	ws "nearbuy/internal/infrastructure/websocket"
	"nearbuy/pkg/errors"
)

type ChatUseCase struct {
	chatRepo        repository.ChatRepository
	transactionRepo repository.TransactionRepository
	listingRepo     repository.ListingRepository
	userRepo        repository.UserRepository
	uow             repository.UnitOfWork
	broker          ws.Broker
}

var _ ws.ChatService = (*ChatUseCase)(nil)

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	transactionRepo repository.TransactionRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	uow repository.UnitOfWork,
	broker ws.Broker,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:        chatRepo,
		transactionRepo: transactionRepo,
		listingRepo:     listingRepo,
		userRepo:        userRepo,
		uow:             uow,
		broker:          broker,
	}
}

type InitiateChatResult struct {
	RoomID        string  `json:"room_id"`
	TransactionID string  `json:"transaction_id"`
	ListingID     string  `json:"listing_id"`
	SellerID      string  `json:"seller_id"`
	ListingTitle  string  `json:"listing_title"`
	ListingPrice  float64 `json:"listing_price"`
	ListingImage  string  `json:"listing_image"`
}

type ListingInfo struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url"`
}

type RoomMessages struct {
	Listing  *ListingInfo         `json:"listing"`
	Messages []entity.MessageView `json:"messages"`
}

// NewMessageEvent is the new_message payload broadcast to a room.
type NewMessageEvent struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	Content  string    `json:"content"`
	SenderID string    `json:"sender_id"`
	SentAt   time.Time `json:"sent_at"`
}

// MessagesReadEvent is the messages_read payload broadcast to a room.
type MessagesReadEvent struct {
	RoomID   string `json:"room_id"`
	ReaderID string `json:"reader_id"`
	Count    int64  `json:"count"`
}

// InitiateChat opens (or reopens) the buyer's conversation about a listing.
// The buyer's transaction for the listing is created on first contact and is
// reserved for that buyer.
func (uc *ChatUseCase) InitiateChat(ctx context.Context, buyerID, listingID string) (*InitiateChatResult, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID == buyerID {
		return nil, errors.Forbidden("Cannot create chat with yourself", nil)
	}

	var room *entity.ChatRoom
	var transaction *entity.Transaction
	err = uc.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		t, err := uc.transactionRepo.FindByListingAndBuyer(ctx, listing.ID, buyerID)
		if err != nil && !errors.Is(err, "NOT_FOUND") {
			return err
		}

		var existing *entity.ChatRoom
		if t != nil {
			existing, err = uc.chatRepo.GetRoomByTransactionID(ctx, t.ID)
			if err != nil && !errors.Is(err, "NOT_FOUND") {
				return err
			}
		}

		if t == nil {
			t = &entity.Transaction{
				QRCode:    entity.NewQRCode(),
				SellerID:  listing.SellerID,
				BuyerID:   buyerID,
				ListingID: listing.ID,
				Status:    entity.TransactionPending,
			}
			if err := uc.transactionRepo.Create(ctx, t); err != nil {
				return err
			}
		}
		if existing == nil {
			existing = &entity.ChatRoom{TransactionID: t.ID, ListingID: listing.ID}
			if err := uc.chatRepo.CreateRoom(ctx, existing); err != nil {
				return err
			}
		}

		transaction, room = t, existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &InitiateChatResult{
		RoomID:        room.ID,
		TransactionID: transaction.ID,
		ListingID:     listing.ID,
		SellerID:      listing.SellerID,
		ListingTitle:  listing.Title,
		ListingPrice:  listing.Price,
		ListingImage:  listing.ImageURL,
	}, nil
}

// RoomForTransaction returns the transaction's room, creating it on first use.
func (uc *ChatUseCase) RoomForTransaction(ctx context.Context, userID, transactionID string) (*entity.ChatRoom, error) {
	transaction, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}
	if transaction == nil || !transaction.IsParticipant(userID) {
		return nil, errors.NotFound("Transaction", err)
	}

	var room *entity.ChatRoom
	err = uc.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := uc.chatRepo.GetRoomByTransactionID(ctx, transaction.ID)
		if err == nil {
			room = existing
			return nil
		}
		if !errors.Is(err, "NOT_FOUND") {
			return err
		}

		room = &entity.ChatRoom{TransactionID: transaction.ID, ListingID: transaction.ListingID}
		return uc.chatRepo.CreateRoom(ctx, room)
	})
	if errors.Is(err, "CONFLICT") {
		// lost a race with a concurrent creator
		return uc.chatRepo.GetRoomByTransactionID(ctx, transaction.ID)
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (uc *ChatUseCase) ListRooms(ctx context.Context, userID string) ([]entity.ChatRoomSummary, error) {
	transactions, err := uc.transactionRepo.ListByParticipant(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return []entity.ChatRoomSummary{}, nil
	}

	byID := make(map[string]*entity.Transaction, len(transactions))
	transactionIDs := make([]string, 0, len(transactions))
	for _, t := range transactions {
		byID[t.ID] = t
		transactionIDs = append(transactionIDs, t.ID)
	}

	rooms, err := uc.chatRepo.ListRoomsByTransactionIDs(ctx, transactionIDs)
	if err != nil {
		return nil, err
	}

	listingIDs := make([]string, 0, len(rooms))
	userIDs := make([]string, 0, 2*len(rooms))
	for _, room := range rooms {
		t := byID[room.TransactionID]
		listingIDs = append(listingIDs, t.ListingID)
		userIDs = append(userIDs, t.SellerID, t.BuyerID)
	}

	listings, err := uc.listingRepo.GetByIDs(ctx, uniqueStrings(listingIDs))
	if err != nil {
		return nil, err
	}
	users, err := uc.userRepo.GetByIDs(ctx, uniqueStrings(userIDs))
	if err != nil {
		return nil, err
	}

	summaries := make([]entity.ChatRoomSummary, 0, len(rooms))
	for _, room := range rooms {
		t := byID[room.TransactionID]
		summary := entity.ChatRoomSummary{
			ID:            room.ID,
			TransactionID: t.ID,
			ListingID:     t.ListingID,
			SellerID:      t.SellerID,
			BuyerID:       t.BuyerID,
			CompletedAt:   t.CompletedAt,
		}
		if listing, ok := listings[t.ListingID]; ok {
			summary.ListingTitle = listing.Title
			summary.ListingPrice = listing.Price
			summary.ListingImage = listing.ImageURL
			summary.Status = listing.Status
		}
		if seller, ok := users[t.SellerID]; ok {
			summary.SellerName = seller.Name
			summary.SellerAvatar = seller.Avatar
		}
		if buyer, ok := users[t.BuyerID]; ok {
			summary.BuyerName = buyer.Name
			summary.BuyerAvatar = buyer.Avatar
		}

		last, err := uc.chatRepo.LastMessage(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			content, sentAt := last.Content, last.SentAt
			summary.LastMessage = &content
			summary.LastMessageTime = &sentAt

			summary.UnreadCount, err = uc.chatRepo.CountUnread(ctx, room.ID, userID)
			if err != nil {
				return nil, err
			}
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return lastActivity(summaries[i]).After(lastActivity(summaries[j]))
	})
	return summaries, nil
}

func lastActivity(s entity.ChatRoomSummary) time.Time {
	if s.LastMessageTime != nil {
		return *s.LastMessageTime
	}
	return time.Time{}
}

// roomAccess loads a room and its transaction, allowing only the transaction's participants.
func (uc *ChatUseCase) roomAccess(ctx context.Context, userID, roomID string) (*entity.ChatRoom, *entity.Transaction, error) {
	room, err := uc.chatRepo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	transaction, err := uc.transactionRepo.GetByID(ctx, room.TransactionID)
	if err != nil {
		return nil, nil, err
	}
	if !transaction.IsParticipant(userID) {
		return nil, nil, errors.Forbidden("Not authorized", nil)
	}
	return room, transaction, nil
}

func (uc *ChatUseCase) AuthorizeRoom(ctx context.Context, userID, roomID string) error {
	_, _, err := uc.roomAccess(ctx, userID, roomID)
	return err
}

func (uc *ChatUseCase) GetMessages(ctx context.Context, userID, roomID string) (*RoomMessages, error) {
	room, transaction, err := uc.roomAccess(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}

	messages, err := uc.chatRepo.ListMessages(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	result := &RoomMessages{Messages: make([]entity.MessageView, 0, len(messages))}
	for _, msg := range messages {
		result.Messages = append(result.Messages, msg.ViewFor(userID))
	}

	listing, err := uc.listingRepo.GetByID(ctx, transaction.ListingID)
	switch {
	case err == nil:
		result.Listing = &ListingInfo{ID: listing.ID, Title: listing.Title, Price: listing.Price, ImageURL: listing.ImageURL}
	case !errors.Is(err, "NOT_FOUND"):
		return nil, err
	}
	return result, nil
}

// SendMessage stores the message, then broadcasts new_message to the room.
func (uc *ChatUseCase) SendMessage(ctx context.Context, userID, roomID, content string) (*entity.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.Validation("Message content required")
	}

	room, _, err := uc.roomAccess(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}

	message := &entity.ChatMessage{
		RoomID:   room.ID,
		SenderID: userID,
		Content:  content,
		SentAt:   utcNow(),
	}
	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}
	metrics.ChatMessages.Inc()

	if uc.broker != nil {
		uc.broker.Broadcast(ctx, room.ID, ws.MessageTypeNewMessage, NewMessageEvent{
			ID:       message.ID,
			RoomID:   room.ID,
			Content:  message.Content,
			SenderID: message.SenderID,
			SentAt:   message.SentAt,
		})
	}
	return message, nil
}

// MarkRead marks the other party's unread messages as read by userID.
func (uc *ChatUseCase) MarkRead(ctx context.Context, userID, roomID string) (int64, error) {
	room, _, err := uc.roomAccess(ctx, userID, roomID)
	if err != nil {
		return 0, err
	}

	updated, err := uc.chatRepo.MarkRead(ctx, room.ID, userID, utcNow())
	if err != nil {
		return 0, err
	}

	if updated > 0 && uc.broker != nil {
		uc.broker.Broadcast(ctx, room.ID, ws.MessageTypeMessagesRead, MessagesReadEvent{
			RoomID:   room.ID,
			ReaderID: userID,
			Count:    updated,
		})
	}
	return updated, nil
}
