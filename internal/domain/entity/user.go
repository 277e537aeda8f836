package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// deletedPasswordSentinel is stored in place of a hash for anonymized accounts.
// It is not a valid bcrypt hash, so CheckPassword always fails against it.
const deletedPasswordSentinel = "!deleted"

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var (
	ErrEmptyPassword   = errors.New("password must not be empty")
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
)

type User struct {
	ID           string `json:"id" firestore:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string `json:"email" firestore:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string `json:"-" firestore:"passwordHash" gorm:"size:255;not null"`
	Name         string `json:"name" firestore:"name" gorm:"size:100"`
	Avatar       string `json:"avatar,omitempty" firestore:"avatar,omitempty" gorm:"size:500"`
	Bio          string `json:"bio,omitempty" firestore:"bio,omitempty" gorm:"type:text"`
	Location     string `json:"location,omitempty" firestore:"location,omitempty" gorm:"size:255"`
	Phone        string `json:"phone,omitempty" firestore:"phone,omitempty" gorm:"size:20"`
	IsAdmin      bool   `json:"is_admin" firestore:"isAdmin" gorm:"not null;default:false"`

	IsDeleted     bool       `json:"is_deleted" firestore:"isDeleted" gorm:"not null;default:false;index"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" firestore:"deletedAt,omitempty"`
	OriginalEmail string     `json:"-" firestore:"originalEmail,omitempty" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// NormalizeEmail lowercases and trims an address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetPassword hashes plain with bcrypt and stores the hash.
func (u *User) SetPassword(plain string) error {
	if plain == "" {
		return ErrEmptyPassword
	}
	if len(plain) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(plain string) bool {
	if u.IsDeleted || u.PasswordHash == "" || u.PasswordHash == deletedPasswordSentinel {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// Anonymize overwrites identifying fields in place. The row is kept so that
// transactions and messages still resolve their participants.
func (u *User) Anonymize(now time.Time) {
	if !u.IsDeleted {
		u.OriginalEmail = u.Email
	}
	u.Email = fmt.Sprintf("deleted_%s@deleted.nearbuy", u.ID)
	u.Name = "Deleted User"
	u.Avatar = ""
	u.Bio = ""
	u.Phone = ""
	u.Location = ""
	u.PasswordHash = deletedPasswordSentinel
	u.IsDeleted = true
	u.DeletedAt = &now
	u.UpdatedAt = now
}

// PublicProfile is what other users may see.
type PublicProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Name:      u.Name,
		Avatar:    u.Avatar,
		Bio:       u.Bio,
		Location:  u.Location,
		CreatedAt: u.CreatedAt,
	}
}
