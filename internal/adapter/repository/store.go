package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"gorm.io/gorm"

	"nearbuy/internal/domain/repository"
	"nearbuy/internal/infrastructure/database"
	"nearbuy/internal/infrastructure/firebase"
	"nearbuy/pkg/config"
	"nearbuy/pkg/logger"
)

// Store bundles the repositories of one backend.
type Store struct {
	Users        repository.UserRepository
	Listings     repository.ListingRepository
	Transactions repository.TransactionRepository
	Chats        repository.ChatRepository
	UnitOfWork   repository.UnitOfWork

	// DB is set for the relational backends only.
	DB *gorm.DB

	ping  func(ctx context.Context) error
	close func() error
}

// OpenStore connects the backend selected by DB_DRIVER. Relational schemas
// are migrated on open.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.DBDriver {
	case "postgres", "sqlite":
		db, err := database.Open(database.Options{
			Driver:      cfg.DBDriver,
			DatabaseURL: cfg.DatabaseURL,
			SQLitePath:  cfg.SQLitePath,
			LogQueries:  cfg.LogLevel == "debug",
		})
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			database.Close(db)
			return nil, err
		}
		logger.Info("Using %s storage", cfg.DBDriver)
		return NewGormStore(db), nil

	case "firestore":
		client, err := firebase.NewFirestoreClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("Using firestore storage for project %s", cfg.FirebaseProject)
		return NewFirestoreStore(client), nil

	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Users:        NewGormUserRepository(db),
		Listings:     NewGormListingRepository(db),
		Transactions: NewGormTransactionRepository(db),
		Chats:        NewGormChatRepository(db),
		UnitOfWork:   NewGormUnitOfWork(db),
		DB:           db,
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func() error { return database.Close(db) },
	}
}

func NewFirestoreStore(client *firestore.Client) *Store {
	return &Store{
		Users:        NewFirestoreUserRepository(client),
		Listings:     NewFirestoreListingRepository(client),
		Transactions: NewFirestoreTransactionRepository(client),
		Chats:        NewFirestoreChatRepository(client),
		UnitOfWork:   NewFirestoreUnitOfWork(client),
		ping: func(ctx context.Context) error {
			_, err := client.Collection(usersCollection).Limit(1).Documents(ctx).Next()
			if err != nil && err != iterator.Done {
				return err
			}
			return nil
		},
		close: client.Close,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func (s *Store) Close() error {
	return s.close()
}
