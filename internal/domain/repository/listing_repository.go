package repository

import (
	"context"

	"nearbuy/internal/domain/entity"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) error
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Listing, error)
	Update(ctx context.Context, listing *entity.Listing) error
	Delete(ctx context.Context, id string) error
	// Search returns one page of matches, newest first, plus the total match count.
	Search(ctx context.Context, filter entity.ListingFilter) ([]*entity.Listing, int64, error)
}
