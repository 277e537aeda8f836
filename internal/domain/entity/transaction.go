package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionDisputed  TransactionStatus = "disputed"
	TransactionRefunded  TransactionStatus = "refunded"

	QRCodePrefix = "nearbuy:"

	DefaultQRValidity    = time.Hour
	DefaultDisputeWindow = 72 * time.Hour
)

type Transaction struct {
	ID        string `json:"id" firestore:"id" gorm:"primaryKey;type:varchar(36)"`
	QRCode    string `json:"qr_code" firestore:"qrCode" gorm:"uniqueIndex;size:100;not null"`
	SellerID  string `json:"seller_id" firestore:"sellerId" gorm:"type:varchar(36);index;not null"`
	BuyerID   string `json:"buyer_id,omitempty" firestore:"buyerId" gorm:"type:varchar(36);index"`
	ListingID string `json:"listing_id" firestore:"listingId" gorm:"type:varchar(36);index;not null"`

	Status      TransactionStatus `json:"status" firestore:"status" gorm:"size:20;index;not null;default:pending"`
	Completed   bool              `json:"completed" firestore:"completed" gorm:"not null;default:false"`
	CompletedAt *time.Time        `json:"completed_at,omitempty" firestore:"completedAt,omitempty"`

	Rating   *int   `json:"rating,omitempty" firestore:"rating,omitempty"`
	Feedback string `json:"feedback,omitempty" firestore:"feedback,omitempty" gorm:"type:text"`

	DisputeReason string     `json:"dispute_reason,omitempty" firestore:"disputeReason,omitempty" gorm:"type:text"`
	DisputedAt    *time.Time `json:"disputed_at,omitempty" firestore:"disputedAt,omitempty"`
	Resolution    string     `json:"resolution,omitempty" firestore:"resolution,omitempty" gorm:"size:20"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty" firestore:"resolvedAt,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// NewQRCode returns an opaque single-use token, nearbuy:<32 hex chars>.
func NewQRCode() string {
	return QRCodePrefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// ExpiresAt is the instant after which the QR code can no longer be confirmed.
func (t *Transaction) ExpiresAt(validity time.Duration) time.Time {
	return t.CreatedAt.Add(validity)
}

func (t *Transaction) IsExpired(now time.Time, validity time.Duration) bool {
	return now.After(t.ExpiresAt(validity))
}

// IsClaimed reports whether a buyer is already bound to the transaction.
func (t *Transaction) IsClaimed() bool {
	return t.BuyerID != ""
}

func (t *Transaction) IsParticipant(userID string) bool {
	return userID != "" && (t.SellerID == userID || t.BuyerID == userID)
}

// Complete binds the buyer and closes the QR code.
func (t *Transaction) Complete(buyerID string, now time.Time) {
	t.BuyerID = buyerID
	t.Completed = true
	t.CompletedAt = &now
	t.Status = TransactionCompleted
	t.UpdatedAt = now
}

// CanBeRatedBy is true for the buyer of a completed transaction.
func (t *Transaction) CanBeRatedBy(userID string) bool {
	return t.Completed && t.BuyerID != "" && t.BuyerID == userID
}

// TransactionStatusHistory is the append-only audit trail of status changes.
type TransactionStatusHistory struct {
	ID            string            `json:"id" firestore:"id" gorm:"primaryKey;type:varchar(36)"`
	TransactionID string            `json:"transaction_id" firestore:"transactionId" gorm:"type:varchar(36);index;not null"`
	FromStatus    TransactionStatus `json:"from_status" firestore:"fromStatus" gorm:"size:20"`
	ToStatus      TransactionStatus `json:"to_status" firestore:"toStatus" gorm:"size:20;not null"`
	ChangedAt     time.Time         `json:"changed_at" firestore:"changedAt"`
	ChangedBy     string            `json:"changed_by" firestore:"changedBy" gorm:"type:varchar(36)"`
	Notes         string            `json:"notes,omitempty" firestore:"notes,omitempty" gorm:"type:text"`
}

func (TransactionStatusHistory) TableName() string {
	return "transaction_status_history"
}

// HistoryEntry builds the audit row for a transition of t.
func (t *Transaction) HistoryEntry(from TransactionStatus, changedBy, notes string, at time.Time) *TransactionStatusHistory {
	return &TransactionStatusHistory{
		ID:            uuid.New().String(),
		TransactionID: t.ID,
		FromStatus:    from,
		ToStatus:      t.Status,
		ChangedAt:     at,
		ChangedBy:     changedBy,
		Notes:         notes,
	}
}
