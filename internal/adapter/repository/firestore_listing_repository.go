package repository

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
	"nearbuy/pkg/errors"
)

const listingsCollection = "listings"

type firestoreListingRepository struct {
	client *firestore.Client
}

func NewFirestoreListingRepository(client *firestore.Client) repository.ListingRepository {
	return &firestoreListingRepository{
		client: client,
	}
}

func (r *firestoreListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	if err := fsCreate(ctx, r.client.Collection(listingsCollection).Doc(listing.ID), listing); err != nil {
		return fsWriteError("Listing", "create", err)
	}
	return nil
}

func (r *firestoreListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	return fsLoad[entity.Listing](ctx, r.client.Collection(listingsCollection).Doc(id), "Listing")
}

func (r *firestoreListingRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Listing, error) {
	result := make(map[string]*entity.Listing, len(ids))
	for _, part := range chunk(ids, 30) {
		listings, err := fsAll[entity.Listing](ctx, r.client.Collection(listingsCollection).Where("id", "in", part), "listings")
		if err != nil {
			return nil, err
		}
		for _, l := range listings {
			result[l.ID] = l
		}
	}
	return result, nil
}

func (r *firestoreListingRepository) Update(ctx context.Context, listing *entity.Listing) error {
	listing.UpdatedAt = time.Now().UTC()
	if err := fsSet(ctx, r.client.Collection(listingsCollection).Doc(listing.ID), listing); err != nil {
		return errors.Internal("Failed to update listing", err)
	}
	return nil
}

func (r *firestoreListingRepository) Delete(ctx context.Context, id string) error {
	if err := fsDelete(ctx, r.client.Collection(listingsCollection).Doc(id)); err != nil {
		return errors.Internal("Failed to delete listing", err)
	}
	return nil
}

// Search pushes equality filters to Firestore and applies substring and range
// filters in memory, since Firestore has no LIKE operator.
func (r *firestoreListingRepository) Search(ctx context.Context, filter entity.ListingFilter) ([]*entity.Listing, int64, error) {
	query := r.client.Collection(listingsCollection).Query
	if filter.Status != "" {
		query = query.Where("status", "==", string(filter.Status))
	}
	if filter.SellerID != "" {
		query = query.Where("sellerId", "==", filter.SellerID)
	}
	query = query.OrderBy("createdAt", firestore.Desc)

	candidates, err := fsAll[entity.Listing](ctx, query, "listings")
	if err != nil {
		return nil, 0, err
	}

	q := strings.ToLower(filter.Query)
	category := strings.ToLower(filter.Category)
	matched := make([]*entity.Listing, 0, len(candidates))
	for _, l := range candidates {
		if q != "" && !strings.Contains(strings.ToLower(l.Title), q) && !strings.Contains(strings.ToLower(l.Description), q) {
			continue
		}
		if category != "" && !strings.Contains(strings.ToLower(l.Category), category) {
			continue
		}
		if filter.MinPrice != nil && l.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && l.Price > *filter.MaxPrice {
			continue
		}
		matched = append(matched, l)
	}

	return paginate(matched, filter.Limit, filter.Offset), int64(len(matched)), nil
}
