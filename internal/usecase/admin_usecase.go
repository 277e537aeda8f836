package usecase

import (
	"context"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
	"nearbuy/pkg/errors"
	"nearbuy/pkg/logger"
)

type AdminUseCase struct {
	userRepo repository.UserRepository
	uow      repository.UnitOfWork
}

func NewAdminUseCase(userRepo repository.UserRepository, uow repository.UnitOfWork) *AdminUseCase {
	return &AdminUseCase{
		userRepo: userRepo,
		uow:      uow,
	}
}

func (uc *AdminUseCase) ListUsers(ctx context.Context, limit, offset int) ([]*entity.User, int64, error) {
	return uc.userRepo.List(ctx, limit, offset)
}

// DeleteUser anonymizes an account. Admins cannot delete themselves or other admins.
func (uc *AdminUseCase) DeleteUser(ctx context.Context, adminID, userID string) (*entity.User, error) {
	if adminID == userID {
		return nil, errors.Forbidden("Cannot delete your own account", nil)
	}

	var user *entity.User
	err := uc.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		u, err := uc.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if u.IsAdmin {
			return errors.Forbidden("Cannot delete admin users", nil)
		}
		if u.IsDeleted {
			return errors.BadRequest("User already deleted", nil)
		}

		u.Anonymize(utcNow())
		if err := uc.userRepo.Update(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("User %s anonymized by admin %s", userID, adminID)
	return user, nil
}

// SetAdmin grants or revokes admin rights; used by the maintenance CLI.
func (uc *AdminUseCase) SetAdmin(ctx context.Context, email string, isAdmin bool) (*entity.User, error) {
	user, err := uc.userRepo.GetByEmail(ctx, entity.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user.IsDeleted {
		return nil, errors.BadRequest("User is deleted", nil)
	}

	user.IsAdmin = isAdmin
	user.UpdatedAt = utcNow()
	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateAdmin registers a new account with admin rights.
func (uc *AdminUseCase) CreateAdmin(ctx context.Context, email, password, name string) (*entity.User, error) {
	user := &entity.User{
		Email:   entity.NormalizeEmail(email),
		Name:    name,
		IsAdmin: true,
	}
	if user.Email == "" {
		return nil, errors.Validation("Email required")
	}
	if err := validatePassword("Password", password); err != nil {
		return nil, err
	}
	if err := user.SetPassword(password); err != nil {
		return nil, errors.Internal("Failed to hash password", err)
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
