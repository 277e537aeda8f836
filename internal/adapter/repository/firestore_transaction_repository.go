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
	transactionsCollection = "transactions"
	historyCollection      = "transaction_status_history"
)

type firestoreTransactionRepository struct {
	client *firestore.Client
}

func NewFirestoreTransactionRepository(client *firestore.Client) repository.TransactionRepository {
	return &firestoreTransactionRepository{
		client: client,
	}
}

func (r *firestoreTransactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = now
	}
	transaction.UpdatedAt = now

	if err := fsCreate(ctx, r.client.Collection(transactionsCollection).Doc(transaction.ID), transaction); err != nil {
		return fsWriteError("Transaction", "create", err)
	}
	return nil
}

func (r *firestoreTransactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	return fsLoad[entity.Transaction](ctx, r.client.Collection(transactionsCollection).Doc(id), "Transaction")
}

func (r *firestoreTransactionRepository) GetByQRCode(ctx context.Context, qrCode string) (*entity.Transaction, error) {
	query := r.client.Collection(transactionsCollection).Where("qrCode", "==", qrCode)
	return fsFirst[entity.Transaction](ctx, query, "Transaction")
}

func (r *firestoreTransactionRepository) Update(ctx context.Context, transaction *entity.Transaction) error {
	transaction.UpdatedAt = time.Now().UTC()
	if err := fsSet(ctx, r.client.Collection(transactionsCollection).Doc(transaction.ID), transaction); err != nil {
		return errors.Internal("Failed to update transaction", err)
	}
	return nil
}

func (r *firestoreTransactionRepository) FindOpenByListing(ctx context.Context, listingID string) (*entity.Transaction, error) {
	query := r.client.Collection(transactionsCollection).
		Where("listingId", "==", listingID).
		Where("completed", "==", false).
		Where("buyerId", "==", "").
		OrderBy("createdAt", firestore.Desc)
	return fsFirst[entity.Transaction](ctx, query, "Transaction")
}

func (r *firestoreTransactionRepository) FindByListingAndBuyer(ctx context.Context, listingID, buyerID string) (*entity.Transaction, error) {
	query := r.client.Collection(transactionsCollection).
		Where("listingId", "==", listingID).
		Where("buyerId", "==", buyerID).
		OrderBy("createdAt", firestore.Desc)
	return fsFirst[entity.Transaction](ctx, query, "Transaction")
}

// ListByParticipant merges the buyer and seller sides; Firestore cannot OR
// across fields in one query.
func (r *firestoreTransactionRepository) ListByParticipant(ctx context.Context, userID string, completedOnly bool) ([]*entity.Transaction, error) {
	seen := map[string]bool{}
	var out []*entity.Transaction

	for _, field := range []string{"buyerId", "sellerId"} {
		query := r.client.Collection(transactionsCollection).Where(field, "==", userID)
		if completedOnly {
			query = query.Where("completed", "==", true)
		}
		items, err := fsAll[entity.Transaction](ctx, query, "transactions")
		if err != nil {
			return nil, err
		}
		for _, t := range items {
			if !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *firestoreTransactionRepository) RatingStats(ctx context.Context, sellerID string) (float64, int64, error) {
	items, err := fsAll[entity.Transaction](ctx, r.client.Collection(transactionsCollection).Where("sellerId", "==", sellerID), "transactions")
	if err != nil {
		return 0, 0, err
	}

	var sum, count int64
	for _, t := range items {
		if t.Rating != nil {
			sum += int64(*t.Rating)
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

func (r *firestoreTransactionRepository) CreateHistory(ctx context.Context, entry *entity.TransactionStatusHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	if err := fsCreate(ctx, r.client.Collection(historyCollection).Doc(entry.ID), entry); err != nil {
		return fsWriteError("Transaction history", "create", err)
	}
	return nil
}

func (r *firestoreTransactionRepository) ListHistory(ctx context.Context, transactionID string) ([]*entity.TransactionStatusHistory, error) {
	query := r.client.Collection(historyCollection).
		Where("transactionId", "==", transactionID).
		OrderBy("changedAt", firestore.Asc)
	return fsAll[entity.TransactionStatusHistory](ctx, query, "transaction history")
}
