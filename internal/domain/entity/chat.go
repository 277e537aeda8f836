package entity

import "time"

// ChatRoom is the conversation attached to exactly one transaction.
type ChatRoom struct {
	ID            string    `json:"id" firestore:"id" gorm:"primaryKey;type:varchar(36)"`
	TransactionID string    `json:"transaction_id" firestore:"transactionId" gorm:"type:varchar(36);uniqueIndex;not null"`
	ListingID     string    `json:"listing_id" firestore:"listingId" gorm:"type:varchar(36);index"`
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`
}

// ChatRoomSummary is a room as listed for one participant.
type ChatRoomSummary struct {
	ID              string        `json:"id"`
	TransactionID   string        `json:"transaction_id"`
	ListingID       string        `json:"listing_id"`
	ListingTitle    string        `json:"listing_title"`
	ListingPrice    float64       `json:"listing_price"`
	ListingImage    string        `json:"listing_image,omitempty"`
	Status          ListingStatus `json:"status"`
	SellerID        string        `json:"seller_id"`
	BuyerID         string        `json:"buyer_id,omitempty"`
	SellerName      string        `json:"seller_name"`
	SellerAvatar    string        `json:"seller_avatar,omitempty"`
	BuyerName       string        `json:"buyer_name,omitempty"`
	BuyerAvatar     string        `json:"buyer_avatar,omitempty"`
	LastMessage     *string       `json:"last_message"`
	LastMessageTime *time.Time    `json:"last_message_time"`
	CompletedAt     *time.Time    `json:"completed_at"`
	UnreadCount     int64         `json:"unread_count"`
}
