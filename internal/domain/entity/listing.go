package entity

import (
	"time"
)

type ListingStatus string

const (
	ListingActive  ListingStatus = "active"
	ListingSold    ListingStatus = "sold"
	ListingRemoved ListingStatus = "removed"
	ListingFlagged ListingStatus = "flagged"

	DefaultCategory = "other"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingActive, ListingSold, ListingRemoved, ListingFlagged:
		return true
	}
	return false
}

type Listing struct {
	ID          string        `json:"id" firestore:"id" gorm:"primaryKey;type:varchar(36)"`
	Title       string        `json:"title" firestore:"title" gorm:"size:100;not null"`
	Description string        `json:"description" firestore:"description" gorm:"type:text"`
	Price       float64       `json:"price" firestore:"price" gorm:"not null"`
	Category    string        `json:"category" firestore:"category" gorm:"size:50;index"`
	ImageURL    string        `json:"image_url,omitempty" firestore:"imageUrl,omitempty" gorm:"size:500"`
	SellerID    string        `json:"seller_id" firestore:"sellerId" gorm:"type:varchar(36);index;not null"`
	Status      ListingStatus `json:"status" firestore:"status" gorm:"size:20;index;not null;default:active"`

	ModeratorID   string `json:"moderator_id,omitempty" firestore:"moderatorId,omitempty" gorm:"type:varchar(36)"`
	RemovalReason string `json:"removal_reason,omitempty" firestore:"removalReason,omitempty" gorm:"size:200"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (l *Listing) IsActive() bool {
	return l.Status == ListingActive
}

// Remove marks the listing removed on behalf of a moderator.
func (l *Listing) Remove(moderatorID, reason string, now time.Time) {
	l.Status = ListingRemoved
	l.ModeratorID = moderatorID
	l.RemovalReason = reason
	l.UpdatedAt = now
}

// MarkSold is only called while confirming a transaction for this listing.
func (l *Listing) MarkSold(now time.Time) {
	l.Status = ListingSold
	l.UpdatedAt = now
}

// ListingFilter drives catalog search. Empty fields do not constrain.
type ListingFilter struct {
	Query    string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Status   ListingStatus
	SellerID string
	Limit    int
	Offset   int
}
