package usecase

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nearbuy/internal/domain/entity"
	ws "nearbuy/internal/infrastructure/websocket"
)

func TestInitiateChatIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.mustUser(t, "seller@example.com")
	buyer := env.mustUser(t, "buyer@example.com")
	listing := env.mustListing(t, seller.ID)

	first, err := env.chat.InitiateChat(ctx, buyer.ID, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, seller.ID, first.SellerID)
	assert.Equal(t, "Bicycle", first.ListingTitle)
	assert.Equal(t, 120.0, first.ListingPrice)

	second, err := env.chat.InitiateChat(ctx, buyer.ID, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, first.RoomID, second.RoomID)
	assert.Equal(t, first.TransactionID, second.TransactionID)

	tx, err := env.transactions.GetByID(ctx, first.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, buyer.ID, tx.BuyerID)
	assert.Equal(t, entity.TransactionPending, tx.Status)
	assert.False(t, tx.Completed)
}

func TestInitiateChatWithYourselfIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	seller := env.mustUser(t, "seller@example.com")
	listing := env.mustListing(t, seller.ID)

	_, err := env.chat.InitiateChat(context.Background(), seller.ID, listing.ID)
	assertStatus(t, err, http.StatusForbidden)
	assert.Contains(t, err.Error(), "Cannot create chat with yourself")

	_, err = env.chat.InitiateChat(context.Background(), seller.ID, "missing")
	assertStatus(t, err, http.StatusNotFound)
}

func TestRoomForTransactionCreatesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.mustUser(t, "seller@example.com")
	stranger := env.mustUser(t, "stranger@example.com")
	listing := env.mustListing(t, seller.ID)
	issued, _, err := env.transaction.IssueQR(ctx, seller.ID, listing.ID)
	require.NoError(t, err)

	room, err := env.chat.RoomForTransaction(ctx, seller.ID, issued.ID)
	require.NoError(t, err)
	again, err := env.chat.RoomForTransaction(ctx, seller.ID, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, again.ID)
	assert.Equal(t, listing.ID, room.ListingID)

	_, err = env.chat.RoomForTransaction(ctx, stranger.ID, issued.ID)
	assertStatus(t, err, http.StatusNotFound)
}

func TestMessagesAreVisibleOnlyToParticipants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.mustUser(t, "seller@example.com")
	buyer := env.mustUser(t, "buyer@example.com")
	stranger := env.mustUser(t, "stranger@example.com")
	listing := env.mustListing(t, seller.ID)

	chat, err := env.chat.InitiateChat(ctx, buyer.ID, listing.ID)
	require.NoError(t, err)

	msg, err := env.chat.SendMessage(ctx, buyer.ID, chat.RoomID, "  Is it still available? ")
	require.NoError(t, err)
	assert.Equal(t, "Is it still available?", msg.Content)
	env.broker.AssertCalled(t, "Broadcast", mock.Anything, chat.RoomID, ws.MessageTypeNewMessage, mock.Anything)

	_, err = env.chat.SendMessage(ctx, buyer.ID, chat.RoomID, "   ")
	assertStatus(t, err, http.StatusBadRequest)

	_, err = env.chat.SendMessage(ctx, stranger.ID, chat.RoomID, "hello")
	assertStatus(t, err, http.StatusForbidden)
	_, err = env.chat.GetMessages(ctx, stranger.ID, chat.RoomID)
	assertStatus(t, err, http.StatusForbidden)
	_, err = env.chat.GetMessages(ctx, buyer.ID, "no-such-room")
	assertStatus(t, err, http.StatusNotFound)

	view, err := env.chat.GetMessages(ctx, seller.ID, chat.RoomID)
	require.NoError(t, err)
	require.NotNil(t, view.Listing)
	assert.Equal(t, listing.ID, view.Listing.ID)
	require.Len(t, view.Messages, 1)
	assert.False(t, view.Messages[0].IsCurrentUser)
	assert.False(t, view.Messages[0].IsRead)
}

func TestMarkReadBroadcastsOnlyWhenSomethingChanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.mustUser(t, "seller@example.com")
	buyer := env.mustUser(t, "buyer@example.com")
	listing := env.mustListing(t, seller.ID)
	chat, err := env.chat.InitiateChat(ctx, buyer.ID, listing.ID)
	require.NoError(t, err)

	_, err = env.chat.SendMessage(ctx, buyer.ID, chat.RoomID, "one")
	require.NoError(t, err)
	_, err = env.chat.SendMessage(ctx, buyer.ID, chat.RoomID, "two")
	require.NoError(t, err)

	// own messages are never marked
	n, err := env.chat.MarkRead(ctx, buyer.ID, chat.RoomID)
	require.NoError(t, err)
	assert.Zero(t, n)
	env.broker.AssertNotCalled(t, "Broadcast", mock.Anything, chat.RoomID, ws.MessageTypeMessagesRead, mock.Anything)

	n, err = env.chat.MarkRead(ctx, seller.ID, chat.RoomID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	env.broker.AssertCalled(t, "Broadcast", mock.Anything, chat.RoomID, ws.MessageTypeMessagesRead,
		MessagesReadEvent{RoomID: chat.RoomID, ReaderID: seller.ID, Count: 2})

	view, err := env.chat.GetMessages(ctx, buyer.ID, chat.RoomID)
	require.NoError(t, err)
	for _, m := range view.Messages {
		assert.True(t, m.IsRead)
		assert.True(t, m.IsCurrentUser)
	}
}

func TestListRoomsOrdersByLatestMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.mustUser(t, "seller@example.com")
	alice := env.mustUser(t, "alice@example.com")
	bob := env.mustUser(t, "bob@example.com")
	listing := env.mustListing(t, seller.ID)

	quiet, err := env.chat.InitiateChat(ctx, alice.ID, listing.ID)
	require.NoError(t, err)
	busy, err := env.chat.InitiateChat(ctx, bob.ID, listing.ID)
	require.NoError(t, err)
	_, err = env.chat.SendMessage(ctx, bob.ID, busy.RoomID, "Can you hold it until Friday?")
	require.NoError(t, err)

	rooms, err := env.chat.ListRooms(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, busy.RoomID, rooms[0].ID)
	require.NotNil(t, rooms[0].LastMessage)
	assert.Equal(t, "Can you hold it until Friday?", *rooms[0].LastMessage)
	assert.EqualValues(t, 1, rooms[0].UnreadCount)
	assert.Equal(t, "bob@example.com", rooms[0].BuyerName)
	assert.Equal(t, entity.ListingActive, rooms[0].Status)

	assert.Equal(t, quiet.RoomID, rooms[1].ID)
	assert.Nil(t, rooms[1].LastMessage)

	aliceRooms, err := env.chat.ListRooms(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, aliceRooms, 1)
	assert.Equal(t, quiet.RoomID, aliceRooms[0].ID)

	none, err := env.chat.ListRooms(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
