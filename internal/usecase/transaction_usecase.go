package usecase

import (
	"context"
	"strings"
	"time"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
	"nearbuy/internal/infrastructure/metrics"
	"nearbuy/pkg/errors"
	"nearbuy/pkg/logger"
)

type TransactionUseCase struct {
	transactionRepo repository.TransactionRepository
	listingRepo     repository.ListingRepository
	userRepo        repository.UserRepository
	uow             repository.UnitOfWork

	qrValidity    time.Duration
	disputeWindow time.Duration
	now           func() time.Time
}

func NewTransactionUseCase(
	transactionRepo repository.TransactionRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	uow repository.UnitOfWork,
	qrValidity, disputeWindow time.Duration,
) *TransactionUseCase {
	if qrValidity <= 0 {
		qrValidity = entity.DefaultQRValidity
	}
	if disputeWindow <= 0 {
		disputeWindow = entity.DefaultDisputeWindow
	}
	return &TransactionUseCase{
		transactionRepo: transactionRepo,
		listingRepo:     listingRepo,
		userRepo:        userRepo,
		uow:             uow,
		qrValidity:      qrValidity,
		disputeWindow:   disputeWindow,
		now:             utcNow,
	}
}

func (uc *TransactionUseCase) QRValidity() time.Duration {
	return uc.qrValidity
}

type HistoryItem struct {
	ID           string       `json:"id"`
	Item         string       `json:"item"`
	Price        float64      `json:"price"`
	Completed    bool         `json:"completed"`
	Date         *time.Time   `json:"date"`
	Counterparty Counterparty `json:"counterparty"`
}

type Counterparty struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type TransactionHistory struct {
	Bought []HistoryItem `json:"bought"`
	Sold   []HistoryItem `json:"sold"`
}

// IssueQR returns the listing's open QR transaction, or mints one. created
// reports whether a new transaction was stored.
func (uc *TransactionUseCase) IssueQR(ctx context.Context, sellerID, listingID string) (*entity.Transaction, bool, error) {
	var (
		transaction *entity.Transaction
		created     bool
	)
	// the locked listing read serializes concurrent issuers for one listing
	err := uc.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		listing, err := uc.listingRepo.GetByID(ctx, listingID)
		if err != nil && !errors.Is(err, "NOT_FOUND") {
			return err
		}
		if listing == nil || listing.SellerID != sellerID {
			return errors.NotFoundMsg("Listing not found or not owned by user", err)
		}
		if !listing.IsActive() {
			return errors.BadRequest("Listing is not active", nil)
		}

		open, err := uc.transactionRepo.FindOpenByListing(ctx, listingID)
		switch {
		case err == nil && !open.IsExpired(uc.now(), uc.qrValidity):
			transaction = open
			return nil
		case err != nil && !errors.Is(err, "NOT_FOUND"):
			return err
		}

		transaction = &entity.Transaction{
			QRCode:    entity.NewQRCode(),
			SellerID:  sellerID,
			ListingID: listingID,
			Status:    entity.TransactionPending,
			CreatedAt: uc.now(),
		}
		created = true
		return uc.transactionRepo.Create(ctx, transaction)
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		metrics.TransactionEvents.WithLabelValues(metrics.EventIssued).Inc()
	}
	return transaction, created, nil
}

// ConfirmTransaction completes the handoff for the scanning buyer. The
// transaction, its listing and the audit row are written together or not at all.
func (uc *TransactionUseCase) ConfirmTransaction(ctx context.Context, buyerID, qrCode string) (*entity.Transaction, error) {
	qrCode = strings.TrimSpace(qrCode)
	if qrCode == "" {
		return nil, errors.Validation("QR code required")
	}

	var transaction *entity.Transaction
	err := uc.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		t, err := uc.transactionRepo.GetByQRCode(ctx, qrCode)
		if err != nil {
			return err
		}
		if t.Completed {
			return errors.BadRequest("Transaction already completed", nil)
		}
		if t.SellerID == buyerID {
			return errors.Forbidden("Sellers cannot confirm their own transaction", nil)
		}
		if t.IsClaimed() && t.BuyerID != buyerID {
			return errors.Forbidden("Transaction is reserved for another buyer", nil)
		}

		now := uc.now()
		if t.IsExpired(now, uc.qrValidity) {
			return errors.Gone("QR code expired").
				WithDetails("Expired at " + t.ExpiresAt(uc.qrValidity).Format(time.RFC3339))
		}

		listing, err := uc.listingRepo.GetByID(ctx, t.ListingID)
		if err != nil {
			if errors.Is(err, "NOT_FOUND") {
				return errors.Gone("Listing is no longer available")
			}
			return err
		}
		if !listing.IsActive() {
			return errors.Gone("Listing is no longer available")
		}

		from := t.Status
		t.Complete(buyerID, now)
		listing.MarkSold(now)

		if err := uc.transactionRepo.Update(ctx, t); err != nil {
			return err
		}
		if err := uc.listingRepo.Update(ctx, listing); err != nil {
			return err
		}
		if err := uc.transactionRepo.CreateHistory(ctx, t.HistoryEntry(from, buyerID, "Confirmed by QR scan", now)); err != nil {
			return err
		}

		transaction = t
		return nil
	})
	if err != nil {
		if errors.StatusOf(err) >= 500 {
			logger.LogTransactionError(qrCode, "confirm", err)
		}
		return nil, err
	}

	metrics.TransactionEvents.WithLabelValues(metrics.EventConfirmed).Inc()
	return transaction, nil
}

func (uc *TransactionUseCase) RateTransaction(ctx context.Context, buyerID, transactionID string, rating int, feedback string) (*entity.Transaction, error) {
	if rating < 1 || rating > 5 {
		return nil, errors.Validation("Rating must be 1-5")
	}

	transaction, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}
	if transaction == nil || !transaction.CanBeRatedBy(buyerID) {
		return nil, errors.NotFoundMsg("Transaction not found or not eligible for rating", nil)
	}
	if transaction.Rating != nil {
		return nil, errors.Conflict("Transaction already rated")
	}

	transaction.Rating = &rating
	transaction.Feedback = strings.TrimSpace(feedback)
	transaction.UpdatedAt = uc.now()
	if err := uc.transactionRepo.Update(ctx, transaction); err != nil {
		return nil, err
	}

	metrics.TransactionEvents.WithLabelValues(metrics.EventRated).Inc()
	return transaction, nil
}

// DisputeTransaction lets the buyer contest a transaction within the dispute window.
func (uc *TransactionUseCase) DisputeTransaction(ctx context.Context, buyerID, transactionID, reason string) (*entity.Transaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errors.Validation("Dispute reason required")
	}

	var transaction *entity.Transaction
	err := uc.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		t, err := uc.transactionRepo.GetByID(ctx, transactionID)
		if err != nil && !errors.Is(err, "NOT_FOUND") {
			return err
		}
		if t == nil || t.BuyerID == "" || t.BuyerID != buyerID {
			return errors.NotFound("Transaction", err)
		}

		now := uc.now()
		if !t.IsDisputable(now, uc.disputeWindow) {
			return errors.BadRequest("Transaction not eligible for dispute", nil)
		}

		from := t.Status
		t.OpenDispute(reason, now)
		if err := uc.transactionRepo.Update(ctx, t); err != nil {
			return err
		}
		if err := uc.transactionRepo.CreateHistory(ctx, t.HistoryEntry(from, buyerID, reason, now)); err != nil {
			return err
		}

		transaction = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TransactionEvents.WithLabelValues(metrics.EventDisputed).Inc()
	return transaction, nil
}

// ResolveDispute applies an admin decision to a disputed transaction.
func (uc *TransactionUseCase) ResolveDispute(ctx context.Context, adminID, transactionID, action, notes string) (*entity.Transaction, error) {
	decision := entity.DisputeAction(strings.ToLower(strings.TrimSpace(action)))
	if !decision.Valid() {
		return nil, errors.Validation("action must be one of: refund reject")
	}

	var transaction *entity.Transaction
	err := uc.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		t, err := uc.transactionRepo.GetByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if t.Status != entity.TransactionDisputed {
			return errors.BadRequest("Transaction is not disputed", nil)
		}

		now := uc.now()
		from := t.Status
		t.ResolveDispute(decision, now)
		if err := uc.transactionRepo.Update(ctx, t); err != nil {
			return err
		}
		if err := uc.transactionRepo.CreateHistory(ctx, t.HistoryEntry(from, adminID, strings.TrimSpace(notes), now)); err != nil {
			return err
		}

		transaction = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := metrics.EventResolvedReject
	if decision == entity.DisputeRefund {
		event = metrics.EventResolvedRefund
	}
	metrics.TransactionEvents.WithLabelValues(event).Inc()
	logger.Info("Dispute on transaction %s resolved by %s: %s", transactionID, adminID, decision)
	return transaction, nil
}

// History lists the caller's completed purchases and sales, newest first.
func (uc *TransactionUseCase) History(ctx context.Context, userID string) (*TransactionHistory, error) {
	transactions, err := uc.transactionRepo.ListByParticipant(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	listingIDs := make([]string, 0, len(transactions))
	userIDs := make([]string, 0, len(transactions))
	for _, t := range transactions {
		listingIDs = append(listingIDs, t.ListingID)
		userIDs = append(userIDs, t.SellerID)
		if t.BuyerID != "" {
			userIDs = append(userIDs, t.BuyerID)
		}
	}

	listings, err := uc.listingRepo.GetByIDs(ctx, uniqueStrings(listingIDs))
	if err != nil {
		return nil, err
	}
	users, err := uc.userRepo.GetByIDs(ctx, uniqueStrings(userIDs))
	if err != nil {
		return nil, err
	}

	history := &TransactionHistory{Bought: []HistoryItem{}, Sold: []HistoryItem{}}
	for _, t := range transactions {
		item := HistoryItem{
			ID:        t.ID,
			Completed: t.Completed,
			Date:      t.CompletedAt,
		}
		if listing, ok := listings[t.ListingID]; ok {
			item.Item = listing.Title
			item.Price = listing.Price
		}

		counterpartyID := t.SellerID
		if t.SellerID == userID {
			counterpartyID = t.BuyerID
		}
		item.Counterparty.ID = counterpartyID
		if user, ok := users[counterpartyID]; ok {
			item.Counterparty.Email = user.Email
		}

		if t.BuyerID == userID {
			history.Bought = append(history.Bought, item)
		} else {
			history.Sold = append(history.Sold, item)
		}
	}
	return history, nil
}

func (uc *TransactionUseCase) StatusHistory(ctx context.Context, transactionID string) ([]*entity.TransactionStatusHistory, error) {
	if _, err := uc.transactionRepo.GetByID(ctx, transactionID); err != nil {
		return nil, err
	}
	return uc.transactionRepo.ListHistory(ctx, transactionID)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
