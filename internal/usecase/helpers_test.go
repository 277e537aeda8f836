package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	adapter "nearbuy/internal/adapter/repository"
	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
	"nearbuy/internal/infrastructure/auth"
	"nearbuy/internal/infrastructure/database"
	ws "nearbuy/internal/infrastructure/websocket"
)

type testEnv struct {
	users        repository.UserRepository
	listings     repository.ListingRepository
	transactions repository.TransactionRepository
	chats        repository.ChatRepository
	uow          repository.UnitOfWork
	broker       *mockBroker

	auth        *AuthUseCase
	user        *UserUseCase
	listing     *ListingUseCase
	transaction *TransactionUseCase
	chat        *ChatUseCase
	admin       *AdminUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(database.Options{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:uc_%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	env := &testEnv{
		users:        adapter.NewGormUserRepository(db),
		listings:     adapter.NewGormListingRepository(db),
		transactions: adapter.NewGormTransactionRepository(db),
		chats:        adapter.NewGormChatRepository(db),
		uow:          adapter.NewGormUnitOfWork(db),
		broker:       &mockBroker{},
	}
	env.broker.On("Broadcast", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()

	tokens := auth.NewTokenService("test-secret", time.Hour, 24*time.Hour)
	env.auth = NewAuthUseCase(env.users, tokens)
	env.user = NewUserUseCase(env.users, env.transactions)
	env.listing = NewListingUseCase(env.listings, env.uow)
	env.transaction = NewTransactionUseCase(env.transactions, env.listings, env.users, env.uow, time.Hour, 72*time.Hour)
	env.chat = NewChatUseCase(env.chats, env.transactions, env.listings, env.users, env.uow, env.broker)
	env.admin = NewAdminUseCase(env.users, env.uow)
	return env
}

func (e *testEnv) mustUser(t *testing.T, email string) *entity.User {
	t.Helper()
	user, err := e.auth.Register(context.Background(), RegisterInput{Email: email, Password: "secret123", Name: email})
	require.NoError(t, err)
	return user
}

func (e *testEnv) mustListing(t *testing.T, sellerID string) *entity.Listing {
	t.Helper()
	listing, err := e.listing.CreateListing(context.Background(), sellerID, CreateListingInput{
		Title: "Bicycle", Description: "Blue city bike", Price: 120,
	})
	require.NoError(t, err)
	return listing
}

// freeze pins the transaction use case clock and returns a setter to move it.
func (e *testEnv) freeze(at time.Time) func(time.Time) {
	e.transaction.now = func() time.Time { return at }
	return func(next time.Time) {
		e.transaction.now = func() time.Time { return next }
	}
}

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Join(client *ws.Client, roomID string) {
	m.Called(client, roomID)
}

func (m *mockBroker) Leave(client *ws.Client, roomID string) {
	m.Called(client, roomID)
}

func (m *mockBroker) Broadcast(ctx context.Context, roomID, eventType string, data interface{}) {
	m.Called(ctx, roomID, eventType, data)
}
