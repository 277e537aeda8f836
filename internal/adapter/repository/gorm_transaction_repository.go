package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
)

type gormTransactionRepository struct {
	db *gorm.DB
}

func NewGormTransactionRepository(db *gorm.DB) repository.TransactionRepository {
	return &gormTransactionRepository{db: db}
}

func (r *gormTransactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = now
	}
	transaction.UpdatedAt = now

	if err := gormConn(ctx, r.db).Create(transaction).Error; err != nil {
		return gormError("Transaction", "create", err)
	}
	return nil
}

func (r *gormTransactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	var transaction entity.Transaction
	if err := gormForUpdate(ctx, r.db).First(&transaction, "id = ?", id).Error; err != nil {
		return nil, gormError("Transaction", "get", err)
	}
	return &transaction, nil
}

func (r *gormTransactionRepository) GetByQRCode(ctx context.Context, qrCode string) (*entity.Transaction, error) {
	var transaction entity.Transaction
	if err := gormForUpdate(ctx, r.db).First(&transaction, "qr_code = ?", qrCode).Error; err != nil {
		return nil, gormError("Transaction", "get", err)
	}
	return &transaction, nil
}

func (r *gormTransactionRepository) Update(ctx context.Context, transaction *entity.Transaction) error {
	transaction.UpdatedAt = time.Now().UTC()
	if err := gormConn(ctx, r.db).Save(transaction).Error; err != nil {
		return gormError("Transaction", "update", err)
	}
	return nil
}

func (r *gormTransactionRepository) FindOpenByListing(ctx context.Context, listingID string) (*entity.Transaction, error) {
	var transaction entity.Transaction
	err := gormConn(ctx, r.db).
		Where("listing_id = ? AND completed = ?", listingID, false).
		Where("(buyer_id = '' OR buyer_id IS NULL)").
		Order("created_at DESC").
		First(&transaction).Error
	if err != nil {
		return nil, gormError("Transaction", "get", err)
	}
	return &transaction, nil
}

func (r *gormTransactionRepository) FindByListingAndBuyer(ctx context.Context, listingID, buyerID string) (*entity.Transaction, error) {
	var transaction entity.Transaction
	err := gormConn(ctx, r.db).
		Where("listing_id = ? AND buyer_id = ?", listingID, buyerID).
		Order("created_at DESC").
		First(&transaction).Error
	if err != nil {
		return nil, gormError("Transaction", "get", err)
	}
	return &transaction, nil
}

func (r *gormTransactionRepository) ListByParticipant(ctx context.Context, userID string, completedOnly bool) ([]*entity.Transaction, error) {
	q := gormConn(ctx, r.db).Where("(buyer_id = ? OR seller_id = ?)", userID, userID)
	if completedOnly {
		q = q.Where("completed = ?", true)
	}

	var transactions []*entity.Transaction
	if err := q.Order("created_at DESC").Find(&transactions).Error; err != nil {
		return nil, gormError("Transaction", "list", err)
	}
	return transactions, nil
}

func (r *gormTransactionRepository) RatingStats(ctx context.Context, sellerID string) (float64, int64, error) {
	var stats struct {
		Average float64
		Total   int64
	}
	err := gormConn(ctx, r.db).Model(&entity.Transaction{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(rating) AS total").
		Where("seller_id = ? AND rating IS NOT NULL", sellerID).
		Scan(&stats).Error
	if err != nil {
		return 0, 0, gormError("Rating", "aggregate", err)
	}
	return stats.Average, stats.Total, nil
}

func (r *gormTransactionRepository) CreateHistory(ctx context.Context, entry *entity.TransactionStatusHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	if err := gormConn(ctx, r.db).Create(entry).Error; err != nil {
		return gormError("Transaction history", "create", err)
	}
	return nil
}

func (r *gormTransactionRepository) ListHistory(ctx context.Context, transactionID string) ([]*entity.TransactionStatusHistory, error) {
	var entries []*entity.TransactionStatusHistory
	err := gormConn(ctx, r.db).
		Where("transaction_id = ?", transactionID).
		Order("changed_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, gormError("Transaction history", "list", err)
	}
	return entries, nil
}
