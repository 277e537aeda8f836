package usecase

import (
	"context"
	"math"
	"strings"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
	"nearbuy/pkg/errors"
)

type UserUseCase struct {
	userRepo        repository.UserRepository
	transactionRepo repository.TransactionRepository
}

func NewUserUseCase(userRepo repository.UserRepository, transactionRepo repository.TransactionRepository) *UserUseCase {
	return &UserUseCase{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
	}
}

type UpdateProfileInput struct {
	Name     *string
	Avatar   *string
	Bio      *string
	Location *string
	Phone    *string
}

type SellerRating struct {
	SellerID      string   `json:"seller_id"`
	AverageRating *float64 `json:"average_rating"`
	TotalRatings  int64    `json:"total_ratings"`
}

func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

// UpdateProfile lets users edit their own profile; admins may edit anyone's.
func (uc *UserUseCase) UpdateProfile(ctx context.Context, actor Actor, id string, input UpdateProfileInput) (*entity.User, error) {
	if actor.ID != id && !actor.IsAdmin {
		return nil, errors.Forbidden("You can only update your own profile", nil)
	}

	user, err := uc.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Avatar != nil {
		user.Avatar = strings.TrimSpace(*input.Avatar)
	}
	if input.Bio != nil {
		user.Bio = strings.TrimSpace(*input.Bio)
	}
	if input.Location != nil {
		user.Location = strings.TrimSpace(*input.Location)
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}
	user.UpdatedAt = utcNow()

	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SellerRating averages the ratings left on a seller's completed sales.
func (uc *UserUseCase) SellerRating(ctx context.Context, sellerID string) (*SellerRating, error) {
	if _, err := uc.userRepo.GetByID(ctx, sellerID); err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, errors.NotFound("Seller", err)
		}
		return nil, err
	}

	average, count, err := uc.transactionRepo.RatingStats(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	result := &SellerRating{SellerID: sellerID, TotalRatings: count}
	if count > 0 {
		rounded := math.Round(average*100) / 100
		result.AverageRating = &rounded
	}
	return result, nil
}
