package usecase

import (
	"context"
	"strings"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
	"nearbuy/internal/infrastructure/auth"
	"nearbuy/pkg/errors"
	"nearbuy/pkg/logger"
)

type AuthUseCase struct {
	userRepo repository.UserRepository
	tokens   TokenService
}

func NewAuthUseCase(userRepo repository.UserRepository, tokens TokenService) *AuthUseCase {
	return &AuthUseCase{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *entity.User
}

const minPasswordLength = 6

// validatePassword checks length bounds; label names the field in messages.
func validatePassword(label, password string) error {
	if len(password) < minPasswordLength {
		return errors.Validation(label + " must be at least 6 characters")
	}
	if len(password) > entity.MaxPasswordBytes {
		return errors.Validation(label + " must be at most 72 bytes")
	}
	return nil
}

func (uc *AuthUseCase) Register(ctx context.Context, input RegisterInput) (*entity.User, error) {
	email := entity.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, errors.Validation("Email and password required")
	}
	if err := validatePassword("Password", input.Password); err != nil {
		return nil, err
	}

	if _, err := uc.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, errors.Conflict("Email already exists")
	} else if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	user := &entity.User{
		Email: email,
		Name:  strings.TrimSpace(input.Name),
	}
	if err := user.SetPassword(input.Password); err != nil {
		return nil, errors.Internal("Failed to hash password", err)
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, "CONFLICT") {
			return nil, errors.Conflict("Email already exists")
		}
		return nil, err
	}

	logger.Info("User registered: %s", user.ID)
	return user, nil
}

func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := uc.userRepo.GetByEmail(ctx, entity.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, errors.Unauthorized("Invalid credentials", nil)
		}
		return nil, err
	}

	if !user.CheckPassword(password) {
		return nil, errors.Unauthorized("Invalid credentials", nil)
	}

	return uc.issueTokens(user)
}

func (uc *AuthUseCase) issueTokens(user *entity.User) (*LoginResult, error) {
	access, err := uc.tokens.GenerateAccessToken(user.ID, user.IsAdmin)
	if err != nil {
		return nil, errors.Internal("Failed to generate authentication token", err)
	}
	refresh, err := uc.tokens.GenerateRefreshToken(user.ID, user.IsAdmin)
	if err != nil {
		return nil, errors.Internal("Failed to generate authentication token", err)
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	}, nil
}

// RefreshToken exchanges a refresh token for a new access token carrying the
// user's current admin flag.
func (uc *AuthUseCase) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := uc.tokens.Parse(refreshToken, auth.RefreshToken)
	if err != nil {
		return "", errors.Unauthorized("Invalid refresh token", err)
	}

	user, err := uc.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return "", errors.Unauthorized("Invalid refresh token", err)
		}
		return "", err
	}
	if user.IsDeleted {
		return "", errors.Unauthorized("Account has been deleted", nil)
	}

	access, err := uc.tokens.GenerateAccessToken(user.ID, user.IsAdmin)
	if err != nil {
		return "", errors.Internal("Failed to generate authentication token", err)
	}
	return access, nil
}

// Authenticate resolves an access token to its claims.
func (uc *AuthUseCase) Authenticate(accessToken string) (*auth.Claims, error) {
	claims, err := uc.tokens.Parse(accessToken, auth.AccessToken)
	if err != nil {
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}
	return claims, nil
}

func (uc *AuthUseCase) ChangeEmail(ctx context.Context, userID, currentPassword, newEmail string) (*entity.User, error) {
	email := entity.NormalizeEmail(newEmail)
	if email == "" {
		return nil, errors.Validation("New email required")
	}

	user, err := uc.verifiedUser(ctx, userID, currentPassword)
	if err != nil {
		return nil, err
	}
	if user.Email == email {
		return user, nil
	}

	if _, err := uc.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, errors.Conflict("Email already exists")
	} else if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	user.Email = email
	user.UpdatedAt = utcNow()
	if err := uc.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, "CONFLICT") {
			return nil, errors.Conflict("Email already exists")
		}
		return nil, err
	}
	return user, nil
}

func (uc *AuthUseCase) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := validatePassword("New password", newPassword); err != nil {
		return err
	}

	user, err := uc.verifiedUser(ctx, userID, currentPassword)
	if err != nil {
		return err
	}

	if err := user.SetPassword(newPassword); err != nil {
		return errors.Internal("Failed to hash password", err)
	}
	user.UpdatedAt = utcNow()
	return uc.userRepo.Update(ctx, user)
}

func (uc *AuthUseCase) verifiedUser(ctx context.Context, userID, password string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, errors.Unauthorized("Current password is incorrect", nil)
	}
	return user, nil
}
