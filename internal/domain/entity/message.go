package entity

import (
	"time"
)

type ChatMessage struct {
	ID       string     `json:"id" firestore:"id" gorm:"primaryKey;type:varchar(36)"`
	RoomID   string     `json:"room_id" firestore:"roomId" gorm:"type:varchar(36);index;not null"`
	SenderID string     `json:"sender_id" firestore:"senderId" gorm:"type:varchar(36);index;not null"`
	Content  string     `json:"content" firestore:"content" gorm:"type:text;not null"`
	SentAt   time.Time  `json:"sent_at" firestore:"sentAt" gorm:"index"`
	ReadAt   *time.Time `json:"read_at,omitempty" firestore:"readAt,omitempty"`
}

func (m *ChatMessage) IsRead() bool {
	return m.ReadAt != nil
}

// MessageView is a message as rendered for a specific reader.
type MessageView struct {
	ID            string     `json:"id"`
	Content       string     `json:"content"`
	SenderID      string     `json:"sender_id"`
	SentAt        time.Time  `json:"sent_at"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	IsRead        bool       `json:"is_read"`
	IsCurrentUser bool       `json:"is_current_user"`
}

func (m *ChatMessage) ViewFor(userID string) MessageView {
	return MessageView{
		ID:            m.ID,
		Content:       m.Content,
		SenderID:      m.SenderID,
		SentAt:        m.SentAt,
		ReadAt:        m.ReadAt,
		IsRead:        m.IsRead(),
		IsCurrentUser: m.SenderID == userID,
	}
}
