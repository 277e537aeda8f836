package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
	"nearbuy/pkg/errors"
	"nearbuy/pkg/logger"
)

const maxTitleLength = 100

type ListingUseCase struct {
	listingRepo repository.ListingRepository
	uow         repository.UnitOfWork
}

func NewListingUseCase(listingRepo repository.ListingRepository, uow repository.UnitOfWork) *ListingUseCase {
	return &ListingUseCase{
		listingRepo: listingRepo,
		uow:         uow,
	}
}

type CreateListingInput struct {
	Title       string
	Description string
	Price       float64
	Category    string
	ImageURL    string
}

type UpdateListingInput struct {
	Title         *string
	Description   *string
	Price         *float64
	Category      *string
	ImageURL      *string
	Status        *string
	RemovalReason *string
}

type SearchListingsInput struct {
	Query    string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Status   string
	SellerID string
	Limit    int
	Offset   int
}

func validateTitle(title string) error {
	if title == "" {
		return errors.Validation("Title cannot be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return errors.Validation("Title must be at most 100 characters")
	}
	return nil
}

func validatePrice(price float64) error {
	if !(price > 0) {
		return errors.Validation("Invalid price")
	}
	return nil
}

func (uc *ListingUseCase) CreateListing(ctx context.Context, sellerID string, input CreateListingInput) (*entity.Listing, error) {
	title := strings.TrimSpace(input.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = entity.DefaultCategory
	}

	listing := &entity.Listing{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Category:    category,
		ImageURL:    strings.TrimSpace(input.ImageURL),
		SellerID:    sellerID,
		Status:      entity.ListingActive,
	}

	if err := uc.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

func (uc *ListingUseCase) GetListing(ctx context.Context, id string) (*entity.Listing, error) {
	return uc.listingRepo.GetByID(ctx, id)
}

// checkStatusChange guards the sold state: only a confirmed transaction marks
// a listing sold, and a sold listing keeps that status.
func checkStatusChange(listing *entity.Listing, to entity.ListingStatus) error {
	if to == listing.Status {
		return nil
	}
	if to == entity.ListingSold {
		return errors.BadRequest("Listings are sold by confirming a transaction", nil)
	}
	if listing.Status == entity.ListingSold {
		return errors.Conflict("Listing already sold")
	}
	return nil
}

// UpdateListing applies a partial update. Only admins may change status or
// removal reason; an admin removing a listing with a reason is recorded as
// its moderator.
func (uc *ListingUseCase) UpdateListing(ctx context.Context, actor Actor, id string, input UpdateListingInput) (*entity.Listing, error) {
	var listing *entity.Listing
	err := uc.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		listing, err = uc.listingRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := applyListingUpdate(listing, actor, input); err != nil {
			return err
		}
		return uc.listingRepo.Update(ctx, listing)
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func applyListingUpdate(listing *entity.Listing, actor Actor, input UpdateListingInput) error {
	if listing.SellerID != actor.ID && !actor.IsAdmin {
		return errors.Forbidden("Unauthorized to edit this listing", nil)
	}
	if !actor.IsAdmin && (input.Status != nil || input.RemovalReason != nil) {
		return errors.Forbidden("Only admins can change listing status", nil)
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if err := validateTitle(title); err != nil {
			return err
		}
		listing.Title = title
	}
	if input.Description != nil {
		listing.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return err
		}
		listing.Price = *input.Price
	}
	if input.Category != nil {
		listing.Category = strings.TrimSpace(*input.Category)
		if listing.Category == "" {
			listing.Category = entity.DefaultCategory
		}
	}
	if input.ImageURL != nil {
		listing.ImageURL = strings.TrimSpace(*input.ImageURL)
	}

	now := utcNow()
	if input.Status != nil {
		status := entity.ListingStatus(*input.Status)
		if !status.Valid() {
			return errors.Validation("status must be one of: active sold removed flagged")
		}
		if err := checkStatusChange(listing, status); err != nil {
			return err
		}
		if status == entity.ListingRemoved && input.RemovalReason != nil && strings.TrimSpace(*input.RemovalReason) != "" {
			listing.Remove(actor.ID, strings.TrimSpace(*input.RemovalReason), now)
		} else {
			listing.Status = status
		}
	}
	listing.UpdatedAt = now
	return nil
}

// DeleteListing soft deletes for the owner and hard deletes for admins.
func (uc *ListingUseCase) DeleteListing(ctx context.Context, actor Actor, id string) error {
	return uc.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		listing, err := uc.listingRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if actor.IsAdmin {
			logger.Info("Admin %s deleted listing %s", actor.ID, id)
			return uc.listingRepo.Delete(ctx, id)
		}
		if listing.SellerID != actor.ID {
			return errors.Forbidden("Unauthorized to delete this listing", nil)
		}
		if err := checkStatusChange(listing, entity.ListingRemoved); err != nil {
			return err
		}

		listing.Status = entity.ListingRemoved
		listing.UpdatedAt = utcNow()
		return uc.listingRepo.Update(ctx, listing)
	})
}

// SearchListings filters by substring and price. Without a status filter only
// active listings are returned, unless the search is scoped to one seller.
func (uc *ListingUseCase) SearchListings(ctx context.Context, input SearchListingsInput) ([]*entity.Listing, int64, error) {
	if input.MinPrice != nil && input.MaxPrice != nil && *input.MinPrice > *input.MaxPrice {
		return nil, 0, errors.Validation("min_price cannot exceed max_price")
	}

	filter := entity.ListingFilter{
		Query:    strings.TrimSpace(input.Query),
		Category: strings.TrimSpace(input.Category),
		MinPrice: input.MinPrice,
		MaxPrice: input.MaxPrice,
		SellerID: input.SellerID,
		Limit:    input.Limit,
		Offset:   input.Offset,
	}

	switch {
	case input.Status != "":
		status := entity.ListingStatus(input.Status)
		if !status.Valid() {
			return nil, 0, errors.Validation("status must be one of: active sold removed flagged")
		}
		filter.Status = status
	case input.SellerID == "":
		filter.Status = entity.ListingActive
	}

	return uc.listingRepo.Search(ctx, filter)
}

// RemoveListing is the moderation takedown: a reason is mandatory.
func (uc *ListingUseCase) RemoveListing(ctx context.Context, moderatorID, id, reason string) (*entity.Listing, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errors.Validation("Removal reason required")
	}

	var listing *entity.Listing
	err := uc.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		listing, err = uc.listingRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkStatusChange(listing, entity.ListingRemoved); err != nil {
			return err
		}
		listing.Remove(moderatorID, reason, utcNow())
		return uc.listingRepo.Update(ctx, listing)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Listing %s removed by moderator %s", id, moderatorID)
	return listing, nil
}
