package usecase

import (
	"time"

	"nearbuy/internal/infrastructure/auth"
)

type TokenService interface {
	GenerateAccessToken(userID string, isAdmin bool) (string, error)
	GenerateRefreshToken(userID string, isAdmin bool) (string, error)
	Parse(token, expectedType string) (*auth.Claims, error)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID      string
	IsAdmin bool
}

func utcNow() time.Time {
	return time.Now().UTC()
}
