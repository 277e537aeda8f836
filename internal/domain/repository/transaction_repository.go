package repository

import (
	"context"

	"nearbuy/internal/domain/entity"
)

type TransactionRepository interface {
	Create(ctx context.Context, transaction *entity.Transaction) error
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)
	GetByQRCode(ctx context.Context, qrCode string) (*entity.Transaction, error)
	Update(ctx context.Context, transaction *entity.Transaction) error

	// FindOpenByListing returns the newest uncompleted, unclaimed transaction for a listing.
	FindOpenByListing(ctx context.Context, listingID string) (*entity.Transaction, error)
	FindByListingAndBuyer(ctx context.Context, listingID, buyerID string) (*entity.Transaction, error)
	// ListByParticipant returns transactions where userID is buyer or seller, newest first.
	ListByParticipant(ctx context.Context, userID string, completedOnly bool) ([]*entity.Transaction, error)
	RatingStats(ctx context.Context, sellerID string) (average float64, count int64, err error)

	CreateHistory(ctx context.Context, entry *entity.TransactionStatusHistory) error
	ListHistory(ctx context.Context, transactionID string) ([]*entity.TransactionStatusHistory, error)
}
